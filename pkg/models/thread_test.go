package models

import (
	"encoding/json"
	"testing"
	"time"
)

// TestThreadDecodeDefaults verifies that records persisted with enum values
// this build does not know decode to the documented defaults instead of
// failing the load.
func TestThreadDecodeDefaults(t *testing.T) {
	raw := `{"id":"t1","kind":"broadcast","friend_request_state":"blocked","color":"magenta","draft":""}`
	var th Thread
	if err := json.Unmarshal([]byte(raw), &th); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if th.Kind != KindContact {
		t.Fatalf("unknown kind should default to contact, got %s", th.Kind)
	}
	if th.FriendRequest != FriendRequestNone {
		t.Fatalf("unknown state should default to none, got %s", th.FriendRequest)
	}
	if th.Color != DefaultColorName {
		t.Fatalf("unknown color should default to %s, got %s", DefaultColorName, th.Color)
	}
}

func TestThreadDecodeKeepsKnownValues(t *testing.T) {
	raw := `{"id":"t2","kind":"group","group":{"group_id":"g1","name":"pals","members":["a","b"]},"friend_request_state":"friends","color":"indigo"}`
	var th Thread
	if err := json.Unmarshal([]byte(raw), &th); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if th.Kind != KindGroup || th.FriendRequest != FriendRequestFriends || th.Color != ColorIndigo {
		t.Fatalf("known enum values must survive decoding: %+v", th)
	}
	if th.Name() != "pals" {
		t.Fatalf("group name: got %q", th.Name())
	}
	if got := th.RecipientIdentifiers(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("recipients: got %v", got)
	}
}

// TestDegenerateReads pins that label and draft reads on sparse records
// return empty strings, never errors or panics.
func TestDegenerateReads(t *testing.T) {
	contact := Thread{Kind: KindContact, Contact: "alice"}
	if contact.Name() != "" {
		t.Fatalf("contact without display name: got %q", contact.Name())
	}
	if contact.CurrentDraft() != "" {
		t.Fatalf("unset draft: got %q", contact.CurrentDraft())
	}
	group := Thread{Kind: KindGroup}
	if group.Name() != "" || group.ContactIdentifier() != "" {
		t.Fatalf("group without payload: name %q contact %q", group.Name(), group.ContactIdentifier())
	}
	if group.RecipientIdentifiers() != nil {
		t.Fatalf("group without payload has no recipients")
	}
}

func TestIsMutedLazy(t *testing.T) {
	now := time.Now()
	var th Thread
	if th.IsMuted(now) {
		t.Fatalf("zero deadline must read unmuted")
	}
	th.MutedUntilTS = now.Add(time.Hour).UTC().UnixNano()
	if !th.IsMuted(now) {
		t.Fatalf("future deadline must read muted")
	}
	// Nothing stored changes when the deadline passes; the read flips alone.
	if th.IsMuted(now.Add(2 * time.Hour)) {
		t.Fatalf("past deadline must read unmuted")
	}
	if th.MutedUntilTS == 0 {
		t.Fatalf("lapse must not clear the stored deadline")
	}
}

func TestAllowsOrdinaryMessages(t *testing.T) {
	group := Thread{Kind: KindGroup}
	if !group.AllowsOrdinaryMessages() {
		t.Fatalf("group threads are ungated")
	}
	contact := Thread{Kind: KindContact}
	for _, s := range []FriendRequestState{
		FriendRequestNone, FriendRequestPendingSend, FriendRequestSent,
		FriendRequestReceived, FriendRequestExpired,
	} {
		contact.FriendRequest = s
		if contact.AllowsOrdinaryMessages() {
			t.Fatalf("state %s must gate ordinary messages", s)
		}
	}
	contact.FriendRequest = FriendRequestFriends
	if !contact.AllowsOrdinaryMessages() {
		t.Fatalf("friends unlocks ordinary messages")
	}
}

func TestIsNoteToSelf(t *testing.T) {
	th := Thread{Kind: KindContact, Contact: "alice"}
	if !th.IsNoteToSelf("alice") {
		t.Fatalf("own contact id is the self conversation")
	}
	if th.IsNoteToSelf("bob") || th.IsNoteToSelf("") {
		t.Fatalf("other or unset identity is not note-to-self")
	}
	g := Thread{Kind: KindGroup, Contact: "alice"}
	if g.IsNoteToSelf("alice") {
		t.Fatalf("groups are never note-to-self")
	}
}

// TestSortKeyOrder pins that lexicographic order of sort keys equals
// chronological order, including the seq tie break.
func TestSortKeyOrder(t *testing.T) {
	a := Interaction{TS: 1000, Seq: 1}
	b := Interaction{TS: 1000, Seq: 2}
	c := Interaction{TS: 2000, Seq: 1}
	if !(a.SortKey() < b.SortKey() && b.SortKey() < c.SortKey()) {
		t.Fatalf("sort keys out of order: %s %s %s", a.SortKey(), b.SortKey(), c.SortKey())
	}
	if len(a.SortKey()) != len(c.SortKey()) {
		t.Fatalf("sort keys must be fixed width: %q vs %q", a.SortKey(), c.SortKey())
	}
}
