package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"threaddb/pkg/models"
)

// GetDisappearingConfig loads the per-thread auto-delete setting. A missing
// record reads as the disabled default, never an error.
func GetDisappearingConfig(r Reader, threadID string) (models.DisappearingMessagesConfiguration, error) {
	def := models.DisappearingMessagesConfiguration{ThreadID: threadID}
	v, closer, err := r.Get(dmConfigKey(threadID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return def, nil
		}
		return def, err
	}
	defer closer.Close()
	var cfg models.DisappearingMessagesConfiguration
	if err := json.Unmarshal(v, &cfg); err != nil {
		return def, fmt.Errorf("invalid disappearing config: %w", err)
	}
	cfg.ThreadID = threadID
	return cfg, nil
}

// SaveDisappearingConfig writes the per-thread auto-delete setting.
func SaveDisappearingConfig(tx *Tx, cfg models.DisappearingMessagesConfiguration) error {
	if cfg.ThreadID == "" {
		return fmt.Errorf("disappearing config thread id required")
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal disappearing config: %w", err)
	}
	return tx.set(dmConfigKey(cfg.ThreadID), data)
}

// DeleteDisappearingConfig removes the setting, returning the thread to the
// disabled default.
func DeleteDisappearingConfig(tx *Tx, threadID string) error {
	return tx.delete(dmConfigKey(threadID))
}
