package thread

import (
	"time"

	"go.uber.org/zap"

	"threaddb/pkg/audit"
	"threaddb/pkg/logger"
	"threaddb/pkg/models"
	"threaddb/pkg/store"
)

// Archive hides the thread from the active list as of now. Archiving an
// already archived thread just restamps the point; the call is idempotent.
func Archive(tx *store.Tx, t *models.Thread, now time.Time) error {
	saved := *t
	t.ArchivedTS = now.UTC().UnixNano()
	if err := store.SaveThread(tx, t); err != nil {
		*t = saved
		return err
	}
	logger.Log.Info("thread_archived", zap.String("thread", t.ID))
	id := t.ID
	tx.OnCommit(func() { audit.Archival(id, true) })
	return nil
}

// Unarchive clears the archival point and returns the thread to the active
// list. Safe to call on a thread that was never archived.
func Unarchive(tx *store.Tx, t *models.Thread) error {
	saved := *t
	t.ArchivedTS = 0
	t.Visible = true
	if err := store.SaveThread(tx, t); err != nil {
		*t = saved
		return err
	}
	logger.Log.Info("thread_unarchived", zap.String("thread", t.ID))
	id := t.ID
	tx.OnCommit(func() { audit.Archival(id, false) })
	return nil
}

// IsArchived reports whether the thread is hidden: an archival point is set
// and no interaction newer than it exists. An interaction arriving after the
// point makes the thread read as active again without any explicit call.
// The legacy sort flag never participates in this decision.
func IsArchived(r store.Reader, t *models.Thread) (bool, error) {
	if t.ArchivedTS == 0 {
		return false, nil
	}
	last, err := store.LastInteraction(r, t.ID)
	if err != nil {
		return false, err
	}
	if last != nil && last.TS > t.ArchivedTS {
		return false, nil
	}
	return true, nil
}

// SortTimestamp orders threads for the conversation list: the newest
// interaction's timestamp when one exists, else the creation time. Records
// written before the interaction cache existed carry LegacyArchivedSort and
// fall back to their archival point, matching what those builds displayed.
// The branch goes away with the flag once no such records remain.
func SortTimestamp(r store.Reader, t *models.Thread) (int64, error) {
	last, err := store.LastInteraction(r, t.ID)
	if err != nil {
		return 0, err
	}
	if last != nil {
		return last.TS, nil
	}
	if t.LegacyArchivedSort && t.ArchivedTS != 0 {
		return t.ArchivedTS, nil
	}
	return t.CreatedTS, nil
}
