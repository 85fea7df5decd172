package store

import (
	"errors"
	"fmt"
	"testing"

	"threaddb/pkg/models"
)

// openStore opens a fresh database for one test and closes it afterwards.
// The handle is package-global, so store tests never run in parallel.
func openStore(t *testing.T) {
	t.Helper()
	if err := Open(t.TempDir()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	})
}

func saveThread(t *testing.T, th *models.Thread) {
	t.Helper()
	if err := Update(func(tx *Tx) error { return SaveThread(tx, th) }); err != nil {
		t.Fatalf("SaveThread: %v", err)
	}
}

func TestThreadRoundTrip(t *testing.T) {
	openStore(t)
	th := &models.Thread{
		ID:            "t1",
		Kind:          models.KindContact,
		Contact:       "alice",
		FriendRequest: models.FriendRequestNone,
		Color:         models.ColorTeal,
		CreatedTS:     42,
	}
	saveThread(t, th)

	err := View(func(s *Snap) error {
		got, err := GetThread(s, "t1")
		if err != nil {
			return err
		}
		if got.Contact != "alice" || got.Color != models.ColorTeal || got.CreatedTS != 42 {
			t.Fatalf("round trip mismatch: %+v", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestGetThreadNotFound(t *testing.T) {
	openStore(t)
	err := View(func(s *Snap) error {
		_, err := GetThread(s, "missing")
		return err
	})
	if !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("expected ErrThreadNotFound, got %v", err)
	}
}

func TestNotOpen(t *testing.T) {
	if Ready() {
		t.Skip("another test left the store open")
	}
	if err := Update(func(tx *Tx) error { return nil }); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("Update before Open: %v", err)
	}
	if err := View(func(s *Snap) error { return nil }); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("View before Open: %v", err)
	}
}

// TestUpdateRollsBackWholesale verifies the all-or-nothing contract: an error
// from the transaction body discards every write staged before it.
func TestUpdateRollsBackWholesale(t *testing.T) {
	openStore(t)
	boom := errors.New("boom")
	err := Update(func(tx *Tx) error {
		if err := SaveThread(tx, &models.Thread{ID: "tx1", Kind: models.KindContact}); err != nil {
			return err
		}
		if err := AppendInteraction(tx, &models.Interaction{Thread: "tx1", Body: "hello"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update should surface the body error, got %v", err)
	}

	vErr := View(func(s *Snap) error {
		if _, err := GetThread(s, "tx1"); !errors.Is(err, ErrThreadNotFound) {
			t.Fatalf("thread write leaked from discarded transaction: %v", err)
		}
		ins, err := ListInteractions(s, "tx1")
		if err != nil {
			return err
		}
		if len(ins) != 0 {
			t.Fatalf("interaction write leaked from discarded transaction: %d records", len(ins))
		}
		return nil
	})
	if vErr != nil {
		t.Fatalf("View: %v", vErr)
	}
}

// TestOnCommitHooks verifies hooks run only for committed transactions.
func TestOnCommitHooks(t *testing.T) {
	openStore(t)
	ran := 0
	if err := Update(func(tx *Tx) error {
		tx.OnCommit(func() { ran++ })
		return SaveThread(tx, &models.Thread{ID: "h1", Kind: models.KindContact})
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if ran != 1 {
		t.Fatalf("commit hook should have run once, ran %d", ran)
	}

	boom := errors.New("boom")
	_ = Update(func(tx *Tx) error {
		tx.OnCommit(func() { ran++ })
		return boom
	})
	if ran != 1 {
		t.Fatalf("discarded transaction must not run hooks, ran %d", ran)
	}
}

func TestAppendStampsAndOrders(t *testing.T) {
	openStore(t)
	saveThread(t, &models.Thread{ID: "t1", Kind: models.KindContact})

	first := &models.Interaction{Thread: "t1", Body: "one", TS: 1_000}
	second := &models.Interaction{Thread: "t1", Body: "two", TS: 1_000}
	third := &models.Interaction{Thread: "t1", Body: "three"}
	if err := Update(func(tx *Tx) error {
		for _, in := range []*models.Interaction{first, second, third} {
			if err := AppendInteraction(tx, in); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if third.TS == 0 || third.Seq == 0 {
		t.Fatalf("append must stamp missing ts and seq: %+v", third)
	}
	if first.Seq == second.Seq {
		t.Fatalf("equal timestamps must get distinct seqs")
	}

	err := View(func(s *Snap) error {
		ins, err := ListInteractions(s, "t1")
		if err != nil {
			return err
		}
		if len(ins) != 3 {
			t.Fatalf("expected 3 interactions, got %d", len(ins))
		}
		if ins[0].Body != "one" || ins[1].Body != "two" || ins[2].Body != "three" {
			t.Fatalf("wrong order: %q %q %q", ins[0].Body, ins[1].Body, ins[2].Body)
		}
		limited, err := ListInteractions(s, "t1", 2)
		if err != nil {
			return err
		}
		if len(limited) != 2 {
			t.Fatalf("limit ignored, got %d", len(limited))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestAppendRequiresThread(t *testing.T) {
	openStore(t)
	err := Update(func(tx *Tx) error {
		return AppendInteraction(tx, &models.Interaction{Body: "orphan"})
	})
	if err == nil {
		t.Fatalf("appending without a thread id must fail")
	}
}

func TestLastInteractionForInboxSkipsControl(t *testing.T) {
	openStore(t)
	saveThread(t, &models.Thread{ID: "t1", Kind: models.KindContact})
	if err := Update(func(tx *Tx) error {
		if err := AppendInteraction(tx, &models.Interaction{Thread: "t1", Body: "hello", TS: 100, Direction: models.DirectionIncoming}); err != nil {
			return err
		}
		return AppendInteraction(tx, &models.Interaction{Thread: "t1", Body: "", TS: 200, Control: true, Direction: models.DirectionOutgoing})
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	err := View(func(s *Snap) error {
		last, err := LastInteraction(s, "t1")
		if err != nil {
			return err
		}
		if last == nil || !last.Control {
			t.Fatalf("newest record should be the control payload, got %+v", last)
		}
		inbox, err := LastInteractionForInbox(s, "t1")
		if err != nil {
			return err
		}
		if inbox == nil || inbox.Body != "hello" {
			t.Fatalf("inbox preview must skip control records, got %+v", inbox)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestLastInteractionEmptyThread(t *testing.T) {
	openStore(t)
	saveThread(t, &models.Thread{ID: "t1", Kind: models.KindContact})
	err := View(func(s *Snap) error {
		last, err := LastInteraction(s, "t1")
		if err != nil {
			return err
		}
		if last != nil {
			t.Fatalf("empty thread should yield nil, got %+v", last)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestUnreadAndMarkAllRead(t *testing.T) {
	openStore(t)
	saveThread(t, &models.Thread{ID: "t1", Kind: models.KindContact})
	if err := Update(func(tx *Tx) error {
		for i, in := range []*models.Interaction{
			{Thread: "t1", Direction: models.DirectionIncoming, Body: "a"},
			{Thread: "t1", Direction: models.DirectionIncoming, Body: "b"},
			{Thread: "t1", Direction: models.DirectionIncoming, Body: "seen", Read: true},
			{Thread: "t1", Direction: models.DirectionOutgoing, Body: "mine"},
		} {
			in.TS = int64(1000 + i)
			if err := AppendInteraction(tx, in); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := View(func(s *Snap) error {
		n, err := UnreadCount(s, "t1")
		if err != nil {
			return err
		}
		if n != 2 {
			t.Fatalf("unread = %d, want 2", n)
		}
		return nil
	}); err != nil {
		t.Fatalf("View: %v", err)
	}

	var flipped int
	if err := Update(func(tx *Tx) error {
		var err error
		flipped, err = MarkAllRead(tx, "t1")
		return err
	}); err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if flipped != 2 {
		t.Fatalf("flipped = %d, want 2", flipped)
	}

	if err := View(func(s *Snap) error {
		n, err := UnreadCount(s, "t1")
		if err != nil {
			return err
		}
		if n != 0 {
			t.Fatalf("unread after mark = %d, want 0", n)
		}
		total, err := CountInteractions(s, "t1")
		if err != nil {
			return err
		}
		if total != 4 {
			t.Fatalf("marking read must not change count, got %d", total)
		}
		return nil
	}); err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestInteractionsForInvalidKey(t *testing.T) {
	openStore(t)
	saveThread(t, &models.Thread{ID: "t1", Kind: models.KindContact})
	if err := Update(func(tx *Tx) error {
		for i, in := range []*models.Interaction{
			{Thread: "t1", Direction: models.DirectionIncoming, InvalidKey: "deadbeef"},
			{Thread: "t1", Direction: models.DirectionIncoming, Body: "fine"},
			{Thread: "t1", Direction: models.DirectionIncoming, InvalidKey: "deadbeef"},
			{Thread: "t1", Direction: models.DirectionIncoming, InvalidKey: "cafef00d"},
		} {
			in.TS = int64(1000 + i)
			if err := AppendInteraction(tx, in); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	err := View(func(s *Snap) error {
		hits, err := InteractionsForInvalidKey(s, "t1", "deadbeef")
		if err != nil {
			return err
		}
		if len(hits) != 2 {
			t.Fatalf("expected 2 hits, got %d", len(hits))
		}
		if hits[0].TS > hits[1].TS {
			t.Fatalf("hits must come back oldest first")
		}
		none, err := InteractionsForInvalidKey(s, "t1", "")
		if err != nil {
			return err
		}
		if none != nil {
			t.Fatalf("empty key must match nothing")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestRemoveAllInteractions(t *testing.T) {
	openStore(t)
	saveThread(t, &models.Thread{ID: "t1", Kind: models.KindContact})
	saveThread(t, &models.Thread{ID: "t2", Kind: models.KindContact})
	if err := Update(func(tx *Tx) error {
		for i := 0; i < 3; i++ {
			if err := AppendInteraction(tx, &models.Interaction{Thread: "t1", TS: int64(1000 + i), Body: "x"}); err != nil {
				return err
			}
		}
		return AppendInteraction(tx, &models.Interaction{Thread: "t2", TS: 5000, Body: "keep"})
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := Update(func(tx *Tx) error { return RemoveAllInteractions(tx, "t1") }); err != nil {
		t.Fatalf("RemoveAllInteractions: %v", err)
	}

	err := View(func(s *Snap) error {
		gone, err := CountInteractions(s, "t1")
		if err != nil {
			return err
		}
		if gone != 0 {
			t.Fatalf("t1 should be empty, has %d", gone)
		}
		kept, err := CountInteractions(s, "t2")
		if err != nil {
			return err
		}
		if kept != 1 {
			t.Fatalf("t2 must be untouched, has %d", kept)
		}
		// the meta record survives history removal
		if _, err := GetThread(s, "t1"); err != nil {
			t.Fatalf("meta record must survive: %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestFindContactThread(t *testing.T) {
	openStore(t)
	saveThread(t, &models.Thread{ID: "t1", Kind: models.KindContact, Contact: "alice"})
	saveThread(t, &models.Thread{ID: "t2", Kind: models.KindGroup, Group: &models.GroupModel{GroupID: "alice"}})

	err := View(func(s *Snap) error {
		got, err := FindContactThread(s, "alice")
		if err != nil {
			return err
		}
		if got == nil || got.ID != "t1" {
			t.Fatalf("expected t1, got %+v", got)
		}
		missing, err := FindContactThread(s, "nobody")
		if err != nil {
			return err
		}
		if missing != nil {
			t.Fatalf("unknown contact should yield nil, got %+v", missing)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestListThreadsSkipsNonMeta(t *testing.T) {
	openStore(t)
	for i := 0; i < 3; i++ {
		saveThread(t, &models.Thread{ID: fmt.Sprintf("t%d", i), Kind: models.KindContact, Contact: fmt.Sprintf("c%d", i)})
	}
	if err := Update(func(tx *Tx) error {
		return AppendInteraction(tx, &models.Interaction{Thread: "t0", TS: 1, Body: "not meta"})
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	err := View(func(s *Snap) error {
		threads, err := ListThreads(s)
		if err != nil {
			return err
		}
		if len(threads) != 3 {
			t.Fatalf("expected 3 threads, got %d", len(threads))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestDisappearingConfigDefaultAndRoundTrip(t *testing.T) {
	openStore(t)
	saveThread(t, &models.Thread{ID: "t1", Kind: models.KindContact})

	if err := View(func(s *Snap) error {
		cfg, err := GetDisappearingConfig(s, "t1")
		if err != nil {
			return err
		}
		if cfg.Enabled || cfg.DurationS != 0 || cfg.ThreadID != "t1" {
			t.Fatalf("missing config must read as disabled default, got %+v", cfg)
		}
		return nil
	}); err != nil {
		t.Fatalf("View: %v", err)
	}

	if err := Update(func(tx *Tx) error {
		return SaveDisappearingConfig(tx, models.DisappearingMessagesConfiguration{ThreadID: "t1", Enabled: true, DurationS: 3600})
	}); err != nil {
		t.Fatalf("SaveDisappearingConfig: %v", err)
	}

	if err := View(func(s *Snap) error {
		cfg, err := GetDisappearingConfig(s, "t1")
		if err != nil {
			return err
		}
		if !cfg.Enabled || cfg.DurationS != 3600 {
			t.Fatalf("round trip mismatch: %+v", cfg)
		}
		return nil
	}); err != nil {
		t.Fatalf("View: %v", err)
	}

	if err := Update(func(tx *Tx) error { return DeleteDisappearingConfig(tx, "t1") }); err != nil {
		t.Fatalf("DeleteDisappearingConfig: %v", err)
	}
	if err := View(func(s *Snap) error {
		cfg, err := GetDisappearingConfig(s, "t1")
		if err != nil {
			return err
		}
		if cfg.Enabled {
			t.Fatalf("deleted config must read as default again")
		}
		return nil
	}); err != nil {
		t.Fatalf("View: %v", err)
	}
}
