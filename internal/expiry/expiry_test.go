package expiry

import (
	"context"
	"testing"
	"time"

	"threaddb/pkg/models"
	"threaddb/pkg/store"
)

func openStore(t *testing.T) {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	})
}

func saveThread(t *testing.T, th *models.Thread) {
	t.Helper()
	if err := store.Update(func(tx *store.Tx) error { return store.SaveThread(tx, th) }); err != nil {
		t.Fatalf("SaveThread: %v", err)
	}
}

func threadState(t *testing.T, id string) models.FriendRequestState {
	t.Helper()
	var st models.FriendRequestState
	if err := store.View(func(s *store.Snap) error {
		th, err := store.GetThread(s, id)
		if err != nil {
			return err
		}
		st = th.FriendRequest
		return nil
	}); err != nil {
		t.Fatalf("GetThread: %v", err)
	}
	return st
}

func TestRequestSweep(t *testing.T) {
	openStore(t)
	now := time.Unix(1_700_000_000, 0).UTC()
	ttl := 72 * time.Hour

	cases := []struct {
		id    string
		state models.FriendRequestState
		sent  time.Time
		want  models.FriendRequestState
	}{
		{"stale", models.FriendRequestSent, now.Add(-73 * time.Hour), models.FriendRequestExpired},
		{"fresh", models.FriendRequestSent, now.Add(-time.Hour), models.FriendRequestSent},
		{"answered", models.FriendRequestFriends, now.Add(-100 * time.Hour), models.FriendRequestFriends},
		{"received", models.FriendRequestReceived, time.Time{}, models.FriendRequestReceived},
	}
	for _, c := range cases {
		th := &models.Thread{ID: c.id, Kind: models.KindContact, Contact: c.id, FriendRequest: c.state}
		if !c.sent.IsZero() {
			th.RequestSentTS = c.sent.UnixNano()
		}
		saveThread(t, th)
	}
	// sent but never stamped: the sweep has nothing to compare against
	saveThread(t, &models.Thread{ID: "unstamped", Kind: models.KindContact, Contact: "unstamped", FriendRequest: models.FriendRequestSent})

	if err := RunOnce(now, ttl); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	for _, c := range cases {
		if got := threadState(t, c.id); got != c.want {
			t.Fatalf("%s: state = %s, want %s", c.id, got, c.want)
		}
	}
	if got := threadState(t, "unstamped"); got != models.FriendRequestSent {
		t.Fatalf("unstamped request must not expire, got %s", got)
	}
}

func TestRequestSweepDisabledTTL(t *testing.T) {
	openStore(t)
	now := time.Unix(1_700_000_000, 0).UTC()
	saveThread(t, &models.Thread{
		ID: "stale", Kind: models.KindContact, Contact: "stale",
		FriendRequest: models.FriendRequestSent,
		RequestSentTS: now.Add(-1000 * time.Hour).UnixNano(),
	})

	if err := RunOnce(now, 0); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if got := threadState(t, "stale"); got != models.FriendRequestSent {
		t.Fatalf("ttl 0 disables the sweep, got %s", got)
	}
}

func TestDisappearingSweep(t *testing.T) {
	openStore(t)
	now := time.Unix(1_700_000_000, 0).UTC()

	saveThread(t, &models.Thread{ID: "timed", Kind: models.KindContact, Contact: "a"})
	saveThread(t, &models.Thread{ID: "plain", Kind: models.KindContact, Contact: "b"})
	if err := store.Update(func(tx *store.Tx) error {
		return store.SaveDisappearingConfig(tx, models.DisappearingMessagesConfiguration{
			ThreadID: "timed", Enabled: true, DurationS: 60,
		})
	}); err != nil {
		t.Fatalf("SaveDisappearingConfig: %v", err)
	}

	old := now.Add(-2 * time.Minute).UnixNano()
	recent := now.Add(-10 * time.Second).UnixNano()
	records := []*models.Interaction{
		{Thread: "timed", Body: "old outgoing", TS: old, Seq: 1, Direction: models.DirectionOutgoing},
		{Thread: "timed", Body: "old read", TS: old, Seq: 2, Direction: models.DirectionIncoming, Read: true},
		{Thread: "timed", Body: "old unread", TS: old, Seq: 3, Direction: models.DirectionIncoming},
		{Thread: "timed", Body: "old control", TS: old, Seq: 4, Direction: models.DirectionOutgoing, Control: true},
		{Thread: "timed", Body: "recent", TS: recent, Seq: 5, Direction: models.DirectionOutgoing},
		{Thread: "plain", Body: "untimed old", TS: old, Seq: 6, Direction: models.DirectionOutgoing},
	}
	if err := store.Update(func(tx *store.Tx) error {
		for _, in := range records {
			if err := store.AppendInteraction(tx, in); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := RunOnce(now, 0); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	want := map[string]bool{"old unread": true, "old control": true, "recent": true}
	if err := store.View(func(s *store.Snap) error {
		ins, err := store.ListInteractions(s, "timed")
		if err != nil {
			return err
		}
		if len(ins) != len(want) {
			t.Fatalf("survivors = %d, want %d: %+v", len(ins), len(want), ins)
		}
		for _, in := range ins {
			if !want[in.Body] {
				t.Fatalf("%q should have been swept", in.Body)
			}
		}
		plain, err := store.ListInteractions(s, "plain")
		if err != nil {
			return err
		}
		if len(plain) != 1 {
			t.Fatalf("threads without a timer must keep everything, have %d", len(plain))
		}
		return nil
	}); err != nil {
		t.Fatalf("View: %v", err)
	}
}

// TestDisappearingSweepAgesIncomingFromRead exercises repeated passes: an
// unread incoming record survives sweeps indefinitely, then becomes
// collectable once marked read.
func TestDisappearingSweepAgesIncomingFromRead(t *testing.T) {
	openStore(t)
	now := time.Unix(1_700_000_000, 0).UTC()

	saveThread(t, &models.Thread{ID: "t1", Kind: models.KindContact, Contact: "c"})
	if err := store.Update(func(tx *store.Tx) error {
		if err := store.SaveDisappearingConfig(tx, models.DisappearingMessagesConfiguration{
			ThreadID: "t1", Enabled: true, DurationS: 60,
		}); err != nil {
			return err
		}
		return store.AppendInteraction(tx, &models.Interaction{
			Thread: "t1", Body: "unread", TS: now.Add(-time.Hour).UnixNano(), Seq: 1,
			Direction: models.DirectionIncoming,
		})
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := RunOnce(now, 0); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if err := store.View(func(s *store.Snap) error {
		n, err := store.CountInteractions(s, "t1")
		if err != nil {
			return err
		}
		if n != 1 {
			t.Fatalf("unread record swept prematurely")
		}
		return nil
	}); err != nil {
		t.Fatalf("View: %v", err)
	}

	if err := store.Update(func(tx *store.Tx) error {
		_, err := store.MarkAllRead(tx, "t1")
		return err
	}); err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if err := RunOnce(now, 0); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if err := store.View(func(s *store.Snap) error {
		n, err := store.CountInteractions(s, "t1")
		if err != nil {
			return err
		}
		if n != 0 {
			t.Fatalf("read record past the timer must be swept, %d remain", n)
		}
		return nil
	}); err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestStartDisabled(t *testing.T) {
	cancel, err := Start(context.Background(), Options{Enabled: false})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()
}

func TestStartRejectsBadCron(t *testing.T) {
	if _, err := Start(context.Background(), Options{Enabled: true, Cron: "every other tuesday"}); err == nil {
		t.Fatalf("invalid cron expression must be rejected")
	}
}

func TestStartAndCancel(t *testing.T) {
	openStore(t)
	cancel, err := Start(context.Background(), Options{Enabled: true, Cron: DefaultCron, RequestTTL: time.Hour})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()
}
