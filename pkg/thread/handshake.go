package thread

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"threaddb/pkg/audit"
	"threaddb/pkg/logger"
	"threaddb/pkg/models"
	"threaddb/pkg/store"
	"threaddb/pkg/telemetry"
)

// ErrUnknownEvent reports an event name outside the handshake vocabulary.
// Known events that match no edge are not errors; this is.
var ErrUnknownEvent = errors.New("unknown handshake event")

// applyEvent resolves an event against the handshake state machine. When an
// edge applies, the record and the optional interaction side effect are
// written through the same transaction; when none applies, nothing is
// written and the returned transition reports Applied=false. On a store
// error the in-memory record is restored so it keeps matching the rolled
// back state.
func applyEvent(tx *store.Tx, t *models.Thread, ev models.FriendRequestEvent, side *models.Interaction, now time.Time) (models.Transition, error) {
	tr := t.FriendRequest.Apply(ev)
	if !tr.Applied {
		logger.Log.Debug("friend_request_noop",
			zap.String("thread", t.ID),
			zap.String("event", string(ev)),
			zap.String("state", string(tr.From)))
		telemetry.TransitionNoop(tr)
		return tr, nil
	}

	saved := *t
	t.FriendRequest = tr.To
	if tr.To == models.FriendRequestSent {
		t.RequestSentTS = now.UTC().UnixNano()
	}
	if side != nil {
		side.Control = true
		if err := appendAndCache(tx, t, side, now); err != nil {
			*t = saved
			return models.Transition{Event: ev, From: saved.FriendRequest, To: saved.FriendRequest}, err
		}
	}
	if err := store.SaveThread(tx, t); err != nil {
		*t = saved
		return models.Transition{Event: ev, From: saved.FriendRequest, To: saved.FriendRequest}, err
	}

	logger.Log.Info("friend_request_transition",
		zap.String("thread", t.ID),
		zap.String("event", string(ev)),
		zap.String("from", string(tr.From)),
		zap.String("to", string(tr.To)))
	id := t.ID
	tx.OnCommit(func() {
		telemetry.TransitionApplied(tr)
		audit.Transition(id, tr)
	})
	return tr, nil
}

// SendRequest starts the handshake toward the peer, or restarts it after an
// expiry. The outgoing control interaction, when given, commits atomically
// with the state change.
func SendRequest(tx *store.Tx, t *models.Thread, control *models.Interaction) (models.Transition, error) {
	ev := models.EventInitiateSend
	if t.FriendRequest == models.FriendRequestExpired {
		ev = models.EventRetrySend
	}
	if control != nil {
		control.Direction = models.DirectionOutgoing
	}
	return applyEvent(tx, t, ev, control, time.Now())
}

// MarkRequestSent acknowledges that the transport put our request on the
// wire; the timeout clock starts here.
func MarkRequestSent(tx *store.Tx, t *models.Thread) (models.Transition, error) {
	return applyEvent(tx, t, models.EventSendAcknowledged, nil, time.Now())
}

// ReceiveRequest applies a peer's handshake request. Arriving while our own
// request is still unanswered resolves the race straight to friends, with no
// redundant acceptance round trip.
func ReceiveRequest(tx *store.Tx, t *models.Thread, inbound *models.Interaction) (models.Transition, error) {
	if inbound != nil {
		inbound.Direction = models.DirectionIncoming
	}
	return applyEvent(tx, t, models.EventInboundRequest, inbound, time.Now())
}

// ReceiveAcceptance applies the peer's acceptance of our request.
func ReceiveAcceptance(tx *store.Tx, t *models.Thread, inbound *models.Interaction) (models.Transition, error) {
	if inbound != nil {
		inbound.Direction = models.DirectionIncoming
	}
	return applyEvent(tx, t, models.EventAcceptanceReceived, inbound, time.Now())
}

// AcceptRequest applies the local user's acceptance of a received request.
func AcceptRequest(tx *store.Tx, t *models.Thread, control *models.Interaction) (models.Transition, error) {
	if control != nil {
		control.Direction = models.DirectionOutgoing
	}
	return applyEvent(tx, t, models.EventUserAccepts, control, time.Now())
}

// DeclineRequest applies the local user's decline. The state returns to none
// and later requests from the same peer stay possible.
func DeclineRequest(tx *store.Tx, t *models.Thread) (models.Transition, error) {
	return applyEvent(tx, t, models.EventUserDeclines, nil, time.Now())
}

// ExpireRequest times out an unanswered sent request. The expiry sweeper is
// the usual driver.
func ExpireRequest(tx *store.Tx, t *models.Thread) (models.Transition, error) {
	return applyEvent(tx, t, models.EventTimeout, nil, time.Now())
}

// ApplyHandshakeEvent routes an event carried as data, for callers like the
// control API. Unknown event names are errors; known events that match no
// edge are the usual benign no-ops.
func ApplyHandshakeEvent(tx *store.Tx, t *models.Thread, ev models.FriendRequestEvent, in *models.Interaction) (models.Transition, error) {
	switch ev {
	case models.EventInitiateSend, models.EventRetrySend:
		return SendRequest(tx, t, in)
	case models.EventSendAcknowledged:
		return MarkRequestSent(tx, t)
	case models.EventInboundRequest:
		return ReceiveRequest(tx, t, in)
	case models.EventAcceptanceReceived:
		return ReceiveAcceptance(tx, t, in)
	case models.EventUserAccepts:
		return AcceptRequest(tx, t, in)
	case models.EventUserDeclines:
		return DeclineRequest(tx, t)
	case models.EventTimeout:
		return ExpireRequest(tx, t)
	default:
		return models.Transition{}, fmt.Errorf("%w: %s", ErrUnknownEvent, ev)
	}
}
