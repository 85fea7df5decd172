package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"threaddb/pkg/logger"
	"threaddb/pkg/models"
)

// AppendInteraction writes an interaction into its thread's keyspace under a
// sortable key. Missing timestamps get stamped and the tie-break seq is
// assigned when unset, so the caller sees the final ordering key on return.
func AppendInteraction(tx *Tx, in *models.Interaction) error {
	if in.Thread == "" {
		return fmt.Errorf("interaction thread required")
	}
	if in.TS == 0 {
		in.TS = time.Now().UTC().UnixNano()
	}
	if in.Seq == 0 {
		in.Seq = nextSeq()
	}
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal interaction: %w", err)
	}
	key := interactionKey(in.Thread, in.SortKey())
	if err := tx.set(key, data); err != nil {
		logger.Log.Error("append_interaction_failed", zap.String("thread", in.Thread), zap.String("key", string(key)), zap.Error(err))
		return err
	}
	logger.Log.Debug("interaction_appended", zap.String("thread", in.Thread), zap.String("id", in.ID))
	return nil
}

// ListInteractions returns a thread's interactions in chronological order.
// A positive limit caps the result.
func ListInteractions(r Reader, threadID string, limit ...int) ([]models.Interaction, error) {
	prefix := interactionPrefix(threadID)
	iter, err := r.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	max := -1
	if len(limit) > 0 {
		max = limit[0]
	}
	var out []models.Interaction
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var in models.Interaction
		if err := json.Unmarshal(iter.Value(), &in); err != nil {
			return nil, fmt.Errorf("invalid interaction at %s: %w", iter.Key(), err)
		}
		out = append(out, in)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out, iter.Error()
}

// boundedIter opens an iterator confined to one thread's interactions so it
// can seek from either end.
func boundedIter(r Reader, threadID string) (*pebble.Iterator, error) {
	prefix := interactionPrefix(threadID)
	return r.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
}

// LastInteraction returns the newest interaction, or nil when the thread has
// none.
func LastInteraction(r Reader, threadID string) (*models.Interaction, error) {
	iter, err := boundedIter(r, threadID)
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	if !iter.Last() {
		return nil, iter.Error()
	}
	var in models.Interaction
	if err := json.Unmarshal(iter.Value(), &in); err != nil {
		return nil, fmt.Errorf("invalid interaction at %s: %w", iter.Key(), err)
	}
	return &in, nil
}

// LastInteractionForInbox returns the newest ordinary interaction, skipping
// handshake-control records that should not drive inbox previews. Returns
// nil when nothing qualifies.
func LastInteractionForInbox(r Reader, threadID string) (*models.Interaction, error) {
	iter, err := boundedIter(r, threadID)
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	for ok := iter.Last(); ok; ok = iter.Prev() {
		var in models.Interaction
		if err := json.Unmarshal(iter.Value(), &in); err != nil {
			return nil, fmt.Errorf("invalid interaction at %s: %w", iter.Key(), err)
		}
		if !in.Control {
			return &in, nil
		}
	}
	return nil, iter.Error()
}

// UnreadCount counts incoming interactions not yet marked read.
func UnreadCount(r Reader, threadID string) (int, error) {
	iter, err := boundedIter(r, threadID)
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		var in models.Interaction
		if err := json.Unmarshal(iter.Value(), &in); err != nil {
			return 0, fmt.Errorf("invalid interaction at %s: %w", iter.Key(), err)
		}
		if in.Direction == models.DirectionIncoming && !in.Read {
			n++
		}
	}
	return n, iter.Error()
}

// CountInteractions returns the total number of interactions in a thread.
func CountInteractions(r Reader, threadID string) (int, error) {
	iter, err := boundedIter(r, threadID)
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	return n, iter.Error()
}

// MarkAllRead flips every unread incoming interaction to read and returns
// how many changed. Keys are collected before writing so the iterator never
// observes its own updates.
func MarkAllRead(tx *Tx, threadID string) (int, error) {
	iter, err := boundedIter(tx, threadID)
	if err != nil {
		return 0, err
	}
	type pending struct {
		key []byte
		in  models.Interaction
	}
	var updates []pending
	for iter.First(); iter.Valid(); iter.Next() {
		var in models.Interaction
		if err := json.Unmarshal(iter.Value(), &in); err != nil {
			_ = iter.Close()
			return 0, fmt.Errorf("invalid interaction at %s: %w", iter.Key(), err)
		}
		if in.Direction == models.DirectionIncoming && !in.Read {
			in.Read = true
			updates = append(updates, pending{key: append([]byte(nil), iter.Key()...), in: in})
		}
	}
	if err := iter.Error(); err != nil {
		_ = iter.Close()
		return 0, err
	}
	if err := iter.Close(); err != nil {
		return 0, err
	}
	for _, u := range updates {
		data, err := json.Marshal(u.in)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal interaction: %w", err)
		}
		if err := tx.set(u.key, data); err != nil {
			return 0, err
		}
	}
	if len(updates) > 0 {
		logger.Log.Debug("interactions_marked_read", zap.String("thread", threadID), zap.Int("count", len(updates)))
	}
	return len(updates), nil
}

// InteractionsForInvalidKey returns interactions whose payload failed to
// decrypt with the given identity key (hex), oldest first.
func InteractionsForInvalidKey(r Reader, threadID, keyHex string) ([]models.Interaction, error) {
	if keyHex == "" {
		return nil, nil
	}
	iter, err := boundedIter(r, threadID)
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Interaction
	for iter.First(); iter.Valid(); iter.Next() {
		var in models.Interaction
		if err := json.Unmarshal(iter.Value(), &in); err != nil {
			return nil, fmt.Errorf("invalid interaction at %s: %w", iter.Key(), err)
		}
		if in.InvalidKey == keyHex {
			out = append(out, in)
		}
	}
	return out, iter.Error()
}

// DeleteInteraction removes a single interaction by its ordering key.
func DeleteInteraction(tx *Tx, threadID, sortKey string) error {
	return tx.delete(interactionKey(threadID, sortKey))
}

// RemoveAllInteractions drops a thread's whole interaction keyspace.
func RemoveAllInteractions(tx *Tx, threadID string) error {
	prefix := interactionPrefix(threadID)
	if err := tx.deleteRange(prefix, prefixUpperBound(prefix)); err != nil {
		logger.Log.Error("remove_interactions_failed", zap.String("thread", threadID), zap.Error(err))
		return err
	}
	logger.Log.Debug("interactions_removed", zap.String("thread", threadID))
	return nil
}
