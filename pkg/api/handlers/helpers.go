package handlers

import (
	"errors"
	"net/http"
	"time"

	"threaddb/pkg/models"
	"threaddb/pkg/store"
	"threaddb/pkg/thread"
	"threaddb/pkg/utils"
)

// localID is the identifier of the account that owns this store. Handlers
// use it to flag the note-to-self thread in responses.
var localID string

// SetLocalIdentity configures the owning account identifier.
func SetLocalIdentity(id string) { localID = id }

// threadView pairs a stored record with the derived properties clients
// render in the conversation list. Archival, mute and unread state are
// computed against the same snapshot the record was read from.
type threadView struct {
	Thread      models.Thread `json:"thread"`
	IsArchived  bool          `json:"is_archived"`
	IsMuted     bool          `json:"is_muted"`
	Unread      int           `json:"unread"`
	LastMessage string        `json:"last_message"`
	SortTS      int64         `json:"sort_ts"`
	NoteToSelf  bool          `json:"note_to_self,omitempty"`
}

func buildView(r store.Reader, t *models.Thread, now time.Time) (threadView, error) {
	v := threadView{Thread: *t, NoteToSelf: t.IsNoteToSelf(localID)}
	var err error
	if v.IsArchived, err = thread.IsArchived(r, t); err != nil {
		return v, err
	}
	v.IsMuted = t.IsMuted(now)
	if v.Unread, err = thread.UnreadCount(r, t); err != nil {
		return v, err
	}
	if v.LastMessage, err = thread.LastMessageText(r, t); err != nil {
		return v, err
	}
	if v.SortTS, err = thread.SortTimestamp(r, t); err != nil {
		return v, err
	}
	return v, nil
}

// writeErr maps store and thread errors onto HTTP statuses. Anything not
// recognized is a 500.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrThreadNotFound):
		utils.JSONError(w, http.StatusNotFound, "thread not found")
	case errors.Is(err, thread.ErrNotFriends):
		utils.JSONError(w, http.StatusForbidden, err.Error())
	default:
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
	}
}
