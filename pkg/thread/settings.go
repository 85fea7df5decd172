package thread

import (
	"time"

	"go.uber.org/zap"

	"threaddb/pkg/logger"
	"threaddb/pkg/models"
	"threaddb/pkg/store"
)

// SetDraft overwrites the thread's unsent composer text. Last write wins;
// there are no merge semantics. An empty string clears the draft.
func SetDraft(tx *store.Tx, t *models.Thread, text string) error {
	saved := *t
	t.Draft = text
	if err := store.SaveThread(tx, t); err != nil {
		*t = saved
		return err
	}
	logger.Log.Debug("draft_saved", zap.String("thread", t.ID), zap.Int("len", len(text)))
	return nil
}

// SetMutedUntil silences the thread until the given instant. A zero or past
// time unmutes; nothing is scheduled, IsMuted simply evaluates lazily.
func SetMutedUntil(tx *store.Tx, t *models.Thread, until time.Time) error {
	saved := *t
	if until.IsZero() {
		t.MutedUntilTS = 0
	} else {
		t.MutedUntilTS = until.UTC().UnixNano()
	}
	if err := store.SaveThread(tx, t); err != nil {
		*t = saved
		return err
	}
	logger.Log.Debug("mute_updated", zap.String("thread", t.ID), zap.Int64("until_ts", t.MutedUntilTS))
	return nil
}

// DisappearingConfig fetches the thread's auto-delete setting from its own
// keyspace. Threads with no stored setting read as the disabled default.
func DisappearingConfig(r store.Reader, t *models.Thread) (models.DisappearingMessagesConfiguration, error) {
	return store.GetDisappearingConfig(r, t.ID)
}

// SetDisappearingConfig writes the thread's auto-delete setting. The config
// is owned by its own keyspace; the thread record itself does not change.
func SetDisappearingConfig(tx *store.Tx, t *models.Thread, cfg models.DisappearingMessagesConfiguration) error {
	cfg.ThreadID = t.ID
	if err := store.SaveDisappearingConfig(tx, cfg); err != nil {
		return err
	}
	logger.Log.Info("disappearing_config_saved",
		zap.String("thread", t.ID),
		zap.Bool("enabled", cfg.Enabled),
		zap.Uint32("duration_s", cfg.DurationS))
	return nil
}

// DisappearingDuration returns the active auto-delete duration in seconds,
// zero when the feature is off for this thread.
func DisappearingDuration(r store.Reader, t *models.Thread) (uint32, error) {
	cfg, err := store.GetDisappearingConfig(r, t.ID)
	if err != nil {
		return 0, err
	}
	return cfg.DurationSeconds(), nil
}
