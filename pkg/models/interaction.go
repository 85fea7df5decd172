package models

import "fmt"

// Direction marks which way an interaction travelled.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Interaction is one message-like record owned by a thread: an ordinary
// message or a handshake-control payload. Body carries display text only;
// raw payload bytes stay with the transport.
type Interaction struct {
	ID     string `json:"id"`
	Thread string `json:"thread"`
	// TS is the send/receive timestamp (ns); Seq breaks ties within one ns.
	TS        int64     `json:"ts"`
	Seq       uint64    `json:"seq,omitempty"`
	Direction Direction `json:"direction"`
	// Control marks handshake payloads, which bypass the friends gate.
	Control bool   `json:"control,omitempty"`
	Body    string `json:"body,omitempty"`
	Read    bool   `json:"read,omitempty"`
	// InvalidKey holds the hex identity key a payload failed to decrypt
	// with; empty for readable interactions.
	InvalidKey string `json:"invalid_key,omitempty"`
}

// SortKey yields the zero-padded ordering key used both as the storage key
// suffix and as the comparator for the last-interaction cache. Lexicographic
// order equals chronological order.
func (in Interaction) SortKey() string {
	return fmt.Sprintf("%020d-%06d", in.TS, in.Seq)
}
