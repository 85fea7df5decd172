package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"threaddb/pkg/logger"
	"threaddb/pkg/models"
)

// SaveThread writes the thread record under its reserved meta key.
func SaveThread(tx *Tx, t *models.Thread) error {
	if t.ID == "" {
		return fmt.Errorf("thread id required")
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal thread: %w", err)
	}
	if err := tx.set(threadMetaKey(t.ID), data); err != nil {
		logger.Log.Error("save_thread_failed", zap.String("thread", t.ID), zap.Error(err))
		return err
	}
	logger.Log.Debug("thread_saved", zap.String("thread", t.ID))
	return nil
}

// GetThread loads a thread record. Returns ErrThreadNotFound when absent.
func GetThread(r Reader, id string) (*models.Thread, error) {
	v, closer, err := r.Get(threadMetaKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrThreadNotFound
		}
		return nil, err
	}
	defer closer.Close()
	var t models.Thread
	if err := json.Unmarshal(v, &t); err != nil {
		return nil, fmt.Errorf("invalid thread metadata: %w", err)
	}
	return &t, nil
}

// ListThreads returns every stored thread record in key order.
func ListThreads(r Reader) ([]models.Thread, error) {
	prefix := []byte("thread:")
	iter, err := r.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Thread
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if !strings.HasSuffix(string(iter.Key()), ":meta") {
			continue
		}
		var t models.Thread
		if err := json.Unmarshal(iter.Value(), &t); err != nil {
			return nil, fmt.Errorf("invalid thread metadata at %s: %w", iter.Key(), err)
		}
		out = append(out, t)
	}
	return out, iter.Error()
}

// FindContactThread returns the contact thread for a peer identifier, nil
// when none exists yet.
func FindContactThread(r Reader, contactID string) (*models.Thread, error) {
	if contactID == "" {
		return nil, fmt.Errorf("contact identifier required")
	}
	threads, err := ListThreads(r)
	if err != nil {
		return nil, err
	}
	for i := range threads {
		t := &threads[i]
		if t.Kind == models.KindContact && t.Contact == contactID {
			return t, nil
		}
	}
	return nil, nil
}

// DeleteThread removes only the meta record. Owned keyspaces (interactions,
// disappearing config) are removed by the record layer's cascade.
func DeleteThread(tx *Tx, id string) error {
	if err := tx.delete(threadMetaKey(id)); err != nil {
		logger.Log.Error("delete_thread_failed", zap.String("thread", id), zap.Error(err))
		return err
	}
	logger.Log.Debug("thread_meta_deleted", zap.String("thread", id))
	return nil
}
