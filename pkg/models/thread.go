package models

import (
	"encoding/json"
	"time"
)

// ThreadKind separates one-to-one contact threads from group threads.
// The kind is fixed at creation and never mutates.
type ThreadKind string

const (
	KindContact ThreadKind = "contact"
	KindGroup   ThreadKind = "group"
)

// ParseThreadKind maps a persisted string onto the known kinds, substituting
// KindContact for anything unknown.
func ParseThreadKind(s string) ThreadKind {
	if ThreadKind(s) == KindGroup {
		return KindGroup
	}
	return KindContact
}

// GroupModel carries the group payload of a group thread.
type GroupModel struct {
	GroupID string   `json:"group_id"`
	Name    string   `json:"name,omitempty"`
	Members []string `json:"members,omitempty"`
}

// Thread is the per-conversation record: visibility, archival, mute, draft,
// the cached last-interaction preview and the friend-request handshake state
// that gates ordinary message exchange. Interactions and the disappearing
// messages configuration live in their own keyspaces, linked by thread id.
type Thread struct {
	ID   string     `json:"id"`
	Kind ThreadKind `json:"kind"`
	// Contact is the peer identifier for contact threads; groups carry Group.
	Contact string      `json:"contact,omitempty"`
	Group   *GroupModel `json:"group,omitempty"`
	// DisplayName is an optional label for contact threads; clients manage meaning.
	DisplayName string `json:"display_name,omitempty"`
	// Visible marks threads shown in the conversation list.
	Visible bool `json:"visible"`
	// Created timestamp (ns); immutable after creation.
	CreatedTS int64 `json:"created_ts,omitempty"`
	// ArchivedTS is the archival point (ns); zero means not archived.
	// Interactions newer than this point make the thread read as active again.
	ArchivedTS int64 `json:"archived_ts,omitempty"`
	// LegacyArchivedSort is a sort fallback for records written before the
	// interaction cache existed. It never feeds archival decisions.
	// TODO: drop the field once no pre-cache records remain in the wild.
	LegacyArchivedSort bool `json:"legacy_archived_sort,omitempty"`

	// FriendRequest is the handshake state; group threads stay at none.
	FriendRequest FriendRequestState `json:"friend_request_state"`
	// RequestSentTS records entry into request_sent (ns); the expiry sweep
	// compares it against the configured TTL.
	RequestSentTS int64 `json:"request_sent_ts,omitempty"`

	// Color is assigned once at creation from a stable seed; it never
	// changes so the conversation keeps its identity across devices.
	Color ColorName `json:"color"`

	// MutedUntilTS silences notifications until the given instant (ns).
	// Zero or past means unmuted; nothing resets it eagerly.
	MutedUntilTS int64 `json:"muted_until_ts,omitempty"`

	// Draft holds unsent composer text; empty string when none.
	Draft string `json:"draft"`

	// Last-interaction cache. The cache only advances to interactions with
	// a strictly greater sort key, so replays and out-of-order deliveries
	// cannot regress the preview.
	LastInteractionID   string `json:"last_interaction_id,omitempty"`
	LastInteractionSort string `json:"last_interaction_sort,omitempty"`
	LastMessageText     string `json:"last_message_text,omitempty"`
}

// UnmarshalJSON decodes a persisted record, substituting documented defaults
// for unknown enum values instead of failing the load.
func (t *Thread) UnmarshalJSON(b []byte) error {
	type alias Thread
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	a.Kind = ParseThreadKind(string(a.Kind))
	a.FriendRequest = ParseFriendRequestState(string(a.FriendRequest))
	a.Color = ParseColorName(string(a.Color))
	*t = Thread(a)
	return nil
}

// Name returns the display label: the group name for groups, the contact
// display name otherwise. Threads without one return an empty string.
func (t *Thread) Name() string {
	if t.Kind == KindGroup {
		if t.Group != nil {
			return t.Group.Name
		}
		return ""
	}
	return t.DisplayName
}

// IsGroupThread reports whether the record is a group conversation.
func (t *Thread) IsGroupThread() bool { return t.Kind == KindGroup }

// ContactIdentifier returns the peer identifier for contact threads and the
// empty string for groups.
func (t *Thread) ContactIdentifier() string {
	if t.Kind == KindGroup {
		return ""
	}
	return t.Contact
}

// RecipientIdentifiers lists the identities this thread addresses: the group
// membership for groups, the single peer otherwise.
func (t *Thread) RecipientIdentifiers() []string {
	if t.Kind == KindGroup {
		if t.Group == nil {
			return nil
		}
		return append([]string(nil), t.Group.Members...)
	}
	if t.Contact == "" {
		return nil
	}
	return []string{t.Contact}
}

// IsNoteToSelf reports whether this is the self-conversation for the given
// local identity.
func (t *Thread) IsNoteToSelf(localID string) bool {
	return t.Kind == KindContact && localID != "" && t.Contact == localID
}

// IsFriend reports whether the handshake completed and ordinary message
// exchange is unlocked.
func (t *Thread) IsFriend() bool { return t.FriendRequest == FriendRequestFriends }

// IsPendingFriendRequest reports whether a handshake is in flight in either
// direction.
func (t *Thread) IsPendingFriendRequest() bool { return t.FriendRequest.Pending() }

// HasSentFriendRequest reports whether our request is out and unanswered.
func (t *Thread) HasSentFriendRequest() bool { return t.FriendRequest == FriendRequestSent }

// HasReceivedFriendRequest reports whether a peer request awaits a decision.
func (t *Thread) HasReceivedFriendRequest() bool {
	return t.FriendRequest == FriendRequestReceived
}

// AllowsOrdinaryMessages reports whether non-control outbound payloads may be
// recorded. Groups are ungated; contact threads require a completed handshake.
func (t *Thread) AllowsOrdinaryMessages() bool {
	return t.Kind == KindGroup || t.FriendRequest == FriendRequestFriends
}

// CurrentDraft returns the composer text, empty string when none was saved.
func (t *Thread) CurrentDraft() string { return t.Draft }

// IsMuted evaluates the mute lazily against now. Nothing stored changes when
// a mute lapses; the deadline simply stops mattering.
func (t *Thread) IsMuted(now time.Time) bool {
	return t.MutedUntilTS > now.UTC().UnixNano()
}
