package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"threaddb/pkg/models"
	"threaddb/pkg/store"
	"threaddb/pkg/thread"
	"threaddb/pkg/utils"
	"threaddb/pkg/validation"
)

// RegisterSettings registers the per-thread settings routes: draft, mute
// and disappearing messages.
func RegisterSettings(r *mux.Router) {
	r.HandleFunc("/threads/{id}/draft", getDraft).Methods(http.MethodGet)
	r.HandleFunc("/threads/{id}/draft", putDraft).Methods(http.MethodPut)

	r.HandleFunc("/threads/{id}/mute", putMute).Methods(http.MethodPut)

	r.HandleFunc("/threads/{id}/disappearing", getDisappearing).Methods(http.MethodGet)
	r.HandleFunc("/threads/{id}/disappearing", putDisappearing).Methods(http.MethodPut)
}

// getDraft handles GET /threads/{id}/draft.
func getDraft(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var draft string
	err := store.View(func(s *store.Snap) error {
		t, err := store.GetThread(s, id)
		if err != nil {
			return err
		}
		draft = t.CurrentDraft()
		return nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"draft": draft})
}

// putDraft handles PUT /threads/{id}/draft. The stored draft is whatever
// arrived last; an empty string clears it.
func putDraft(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		Draft string `json:"draft"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validation.ValidateDraft(req.Draft); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := store.Update(func(tx *store.Tx) error {
		t, err := store.GetThread(tx, id)
		if err != nil {
			return err
		}
		return thread.SetDraft(tx, t, req.Draft)
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"draft": req.Draft})
}

// putMute handles PUT /threads/{id}/mute. muted_until_ts is nanoseconds
// since the epoch; zero unmutes. Nothing fires when the deadline passes,
// readers just compare against the clock.
func putMute(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		MutedUntilTS int64 `json:"muted_until_ts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	var until time.Time
	if req.MutedUntilTS > 0 {
		until = time.Unix(0, req.MutedUntilTS)
	}

	var t *models.Thread
	err := store.Update(func(tx *store.Tx) error {
		var err error
		t, err = store.GetThread(tx, id)
		if err != nil {
			return err
		}
		return thread.SetMutedUntil(tx, t, until)
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{
		"muted_until_ts": t.MutedUntilTS,
		"is_muted":       t.IsMuted(time.Now()),
	})
}

// getDisappearing handles GET /threads/{id}/disappearing. Threads with no
// stored configuration report the disabled default.
func getDisappearing(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var cfg models.DisappearingMessagesConfiguration
	err := store.View(func(s *store.Snap) error {
		t, err := store.GetThread(s, id)
		if err != nil {
			return err
		}
		cfg, err = thread.DisappearingConfig(s, t)
		return err
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, cfg)
}

// putDisappearing handles PUT /threads/{id}/disappearing.
func putDisappearing(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		Enabled   bool   `json:"enabled"`
		DurationS uint32 `json:"duration_s"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Enabled && req.DurationS == 0 {
		utils.JSONError(w, http.StatusBadRequest, "duration_s must be positive when enabled")
		return
	}

	cfg := models.DisappearingMessagesConfiguration{
		ThreadID:  id,
		Enabled:   req.Enabled,
		DurationS: req.DurationS,
	}
	err := store.Update(func(tx *store.Tx) error {
		t, err := store.GetThread(tx, id)
		if err != nil {
			return err
		}
		return thread.SetDisappearingConfig(tx, t, cfg)
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, cfg)
}
