package models

// FriendRequestState tracks the handshake that must complete before two
// peers exchange ordinary messages. none is the initial state; friends and
// request_expired are resting states that still react to events.
type FriendRequestState string

const (
	FriendRequestNone        FriendRequestState = "none"
	FriendRequestPendingSend FriendRequestState = "pending_send"
	FriendRequestSent        FriendRequestState = "request_sent"
	FriendRequestReceived    FriendRequestState = "request_received"
	FriendRequestFriends     FriendRequestState = "friends"
	FriendRequestExpired     FriendRequestState = "request_expired"
)

// ParseFriendRequestState maps a persisted string onto the known states,
// substituting FriendRequestNone for anything unknown.
func ParseFriendRequestState(s string) FriendRequestState {
	switch FriendRequestState(s) {
	case FriendRequestPendingSend, FriendRequestSent, FriendRequestReceived,
		FriendRequestFriends, FriendRequestExpired:
		return FriendRequestState(s)
	}
	return FriendRequestNone
}

// Pending reports whether a handshake is in flight in either direction.
// Expired requests are not pending; they rest until the user retries.
func (s FriendRequestState) Pending() bool {
	return s == FriendRequestPendingSend || s == FriendRequestSent || s == FriendRequestReceived
}

// FriendRequestEvent names the inputs the handshake reacts to. Local user
// actions, transport acknowledgements and inbound control payloads all
// funnel through the same table.
type FriendRequestEvent string

const (
	EventInitiateSend       FriendRequestEvent = "initiate_send"
	EventSendAcknowledged   FriendRequestEvent = "send_acknowledged"
	EventInboundRequest     FriendRequestEvent = "inbound_request"
	EventAcceptanceReceived FriendRequestEvent = "acceptance_received"
	EventUserAccepts        FriendRequestEvent = "user_accepts"
	EventUserDeclines       FriendRequestEvent = "user_declines"
	EventTimeout            FriendRequestEvent = "timeout"
	EventRetrySend          FriendRequestEvent = "retry_send"
)

type frKey struct {
	from FriendRequestState
	ev   FriendRequestEvent
}

var frEdges = map[frKey]FriendRequestState{
	{FriendRequestNone, EventInitiateSend}:            FriendRequestPendingSend,
	{FriendRequestPendingSend, EventSendAcknowledged}: FriendRequestSent,
	{FriendRequestNone, EventInboundRequest}:          FriendRequestReceived,
	// A request arriving while ours is still unanswered means both sides
	// want the link: resolve straight to friends, no acceptance round trip.
	{FriendRequestSent, EventInboundRequest}:     FriendRequestFriends,
	{FriendRequestSent, EventAcceptanceReceived}: FriendRequestFriends,
	{FriendRequestReceived, EventUserAccepts}:    FriendRequestFriends,
	{FriendRequestReceived, EventUserDeclines}:   FriendRequestNone,
	{FriendRequestSent, EventTimeout}:            FriendRequestExpired,
	{FriendRequestExpired, EventRetrySend}:       FriendRequestPendingSend,
}

// Transition records the outcome of applying an event. Applied is false when
// the table has no edge for the (state, event) pair; such attempts are benign
// no-ops (already satisfied or out of date), never errors.
type Transition struct {
	Event   FriendRequestEvent `json:"event"`
	From    FriendRequestState `json:"from"`
	To      FriendRequestState `json:"to"`
	Applied bool               `json:"applied"`
}

// Apply resolves an event against the transition table.
func (s FriendRequestState) Apply(ev FriendRequestEvent) Transition {
	if to, ok := frEdges[frKey{s, ev}]; ok {
		return Transition{Event: ev, From: s, To: to, Applied: true}
	}
	return Transition{Event: ev, From: s, To: s, Applied: false}
}
