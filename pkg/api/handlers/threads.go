package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"

	"threaddb/pkg/models"
	"threaddb/pkg/store"
	"threaddb/pkg/thread"
	"threaddb/pkg/utils"
	"threaddb/pkg/validation"
)

// RegisterThreads registers the thread collection and lifecycle routes.
func RegisterThreads(r *mux.Router) {
	r.HandleFunc("/threads", createThread).Methods(http.MethodPost)
	r.HandleFunc("/threads", listThreads).Methods(http.MethodGet)

	r.HandleFunc("/threads/{id}", getThread).Methods(http.MethodGet)
	r.HandleFunc("/threads/{id}", deleteThread).Methods(http.MethodDelete)

	r.HandleFunc("/threads/{id}/archive", archiveThread).Methods(http.MethodPost)
	r.HandleFunc("/threads/{id}/unarchive", unarchiveThread).Methods(http.MethodPost)
}

type createThreadRequest struct {
	Kind        string             `json:"kind"`
	Contact     string             `json:"contact,omitempty"`
	DisplayName string             `json:"display_name,omitempty"`
	Group       *models.GroupModel `json:"group,omitempty"`
}

// createThread handles POST /threads. Contact creation is find-or-create:
// posting an identifier that already has a thread returns the existing
// record with 200 instead of a duplicate.
func createThread(w http.ResponseWriter, r *http.Request) {
	var req createThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	kind := models.ParseThreadKind(req.Kind)
	if kind == models.KindGroup {
		if req.Group == nil {
			utils.JSONError(w, http.StatusBadRequest, "group object is required")
			return
		}
		if err := validation.ValidateGroupCreate(*req.Group); err != nil {
			utils.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		if err := validation.ValidateContactCreate(req.Contact, req.DisplayName); err != nil {
			utils.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	now := time.Now()
	var created *models.Thread
	status := http.StatusCreated
	err := store.Update(func(tx *store.Tx) error {
		var err error
		if kind == models.KindGroup {
			created, err = thread.CreateGroup(tx, *req.Group, now)
			return err
		}
		existing, err := store.FindContactThread(tx, req.Contact)
		if err != nil {
			return err
		}
		if existing != nil {
			created = existing
			status = http.StatusOK
			return nil
		}
		created, err = thread.CreateContact(tx, req.Contact, req.DisplayName, now)
		return err
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	var v threadView
	if err := store.View(func(s *store.Snap) error {
		var err error
		v, err = buildView(s, created, now)
		return err
	}); err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, status, v)
}

// listThreads handles GET /threads. The list is sorted newest activity
// first. Optional query parameters:
//   - "visible": "true" keeps only threads the inbox would show.
//   - "archived": "true" or "false" filters on derived archival state.
func listThreads(w http.ResponseWriter, r *http.Request) {
	visibleQ := r.URL.Query().Get("visible")
	archivedQ := r.URL.Query().Get("archived")
	now := time.Now()

	var views []threadView
	err := store.View(func(s *store.Snap) error {
		threads, err := store.ListThreads(s)
		if err != nil {
			return err
		}
		views = make([]threadView, 0, len(threads))
		for i := range threads {
			v, err := buildView(s, &threads[i], now)
			if err != nil {
				return err
			}
			if visibleQ == "true" && !v.Thread.Visible {
				continue
			}
			if archivedQ == "true" && !v.IsArchived {
				continue
			}
			if archivedQ == "false" && v.IsArchived {
				continue
			}
			views = append(views, v)
		}
		return nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	sort.Slice(views, func(i, j int) bool {
		if views[i].SortTS != views[j].SortTS {
			return views[i].SortTS > views[j].SortTS
		}
		return views[i].Thread.ID < views[j].Thread.ID
	})
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{"threads": views})
}

// getThread handles GET /threads/{id}.
func getThread(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	now := time.Now()

	var v threadView
	err := store.View(func(s *store.Snap) error {
		t, err := store.GetThread(s, id)
		if err != nil {
			return err
		}
		v, err = buildView(s, t, now)
		return err
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, v)
}

// deleteThread handles DELETE /threads/{id}. The record and everything it
// owns go in one atomic batch.
func deleteThread(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	err := store.Update(func(tx *store.Tx) error {
		t, err := store.GetThread(tx, id)
		if err != nil {
			return err
		}
		return thread.Delete(tx, t)
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// archiveThread handles POST /threads/{id}/archive. Archiving an already
// archived thread refreshes its archival timestamp.
func archiveThread(w http.ResponseWriter, r *http.Request) {
	updateThreadState(w, r, func(tx *store.Tx, t *models.Thread, now time.Time) error {
		return thread.Archive(tx, t, now)
	})
}

// unarchiveThread handles POST /threads/{id}/unarchive.
func unarchiveThread(w http.ResponseWriter, r *http.Request) {
	updateThreadState(w, r, func(tx *store.Tx, t *models.Thread, now time.Time) error {
		return thread.Unarchive(tx, t)
	})
}

// updateThreadState loads the thread, applies fn in a transaction and
// responds with the refreshed view.
func updateThreadState(w http.ResponseWriter, r *http.Request, fn func(*store.Tx, *models.Thread, time.Time) error) {
	id := mux.Vars(r)["id"]
	now := time.Now()

	var t *models.Thread
	err := store.Update(func(tx *store.Tx) error {
		var err error
		t, err = store.GetThread(tx, id)
		if err != nil {
			return err
		}
		return fn(tx, t, now)
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	var v threadView
	if err := store.View(func(s *store.Snap) error {
		var err error
		v, err = buildView(s, t, now)
		return err
	}); err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, v)
}
