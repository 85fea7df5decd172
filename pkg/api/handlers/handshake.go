package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"threaddb/pkg/models"
	"threaddb/pkg/store"
	"threaddb/pkg/thread"
	"threaddb/pkg/utils"
	"threaddb/pkg/validation"
)

// RegisterHandshake registers the friend-request routes. Thread-scoped
// events drive an existing record; the inbound route also creates the
// record when a stranger's request arrives first.
func RegisterHandshake(r *mux.Router) {
	r.HandleFunc("/threads/{id}/handshake", applyHandshake).Methods(http.MethodPost)
	r.HandleFunc("/handshake/inbound", inboundHandshake).Methods(http.MethodPost)
}

type handshakeRequest struct {
	Event       string              `json:"event"`
	Interaction *models.Interaction `json:"interaction,omitempty"`
}

type handshakeResponse struct {
	Transition models.Transition `json:"transition"`
	Thread     threadView        `json:"thread"`
}

// applyHandshake handles POST /threads/{id}/handshake. Events that match no
// edge of the state machine return 200 with transition.applied=false; only
// unknown event names are client errors.
func applyHandshake(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req handshakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Interaction != nil {
		if err := validation.ValidateInteraction(*req.Interaction); err != nil {
			utils.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	now := time.Now()
	var t *models.Thread
	var tr models.Transition
	err := store.Update(func(tx *store.Tx) error {
		var err error
		t, err = store.GetThread(tx, id)
		if err != nil {
			return err
		}
		tr, err = thread.ApplyHandshakeEvent(tx, t, models.FriendRequestEvent(req.Event), req.Interaction)
		return err
	})
	if err != nil {
		if errors.Is(err, thread.ErrUnknownEvent) {
			utils.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeErr(w, err)
		return
	}

	writeHandshakeResponse(w, t, tr, now)
}

type inboundHandshakeRequest struct {
	Contact     string              `json:"contact"`
	DisplayName string              `json:"display_name,omitempty"`
	Interaction *models.Interaction `json:"interaction,omitempty"`
}

// inboundHandshake handles POST /handshake/inbound: a peer's request
// arrived over the transport. The contact thread is found or created and
// the inbound event applied in one transaction, so a request from a
// stranger either fully lands or leaves no trace.
func inboundHandshake(w http.ResponseWriter, r *http.Request) {
	var req inboundHandshakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Contact == "" {
		utils.JSONError(w, http.StatusBadRequest, "contact identifier required")
		return
	}
	if req.Interaction != nil {
		if err := validation.ValidateInteraction(*req.Interaction); err != nil {
			utils.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	now := time.Now()
	var t *models.Thread
	var tr models.Transition
	err := store.Update(func(tx *store.Tx) error {
		var err error
		t, tr, err = thread.FromInboundHandshake(tx, req.Contact, req.Interaction, now)
		if err != nil {
			return err
		}
		if req.DisplayName != "" && t.DisplayName == "" {
			t.DisplayName = req.DisplayName
			return store.SaveThread(tx, t)
		}
		return nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	writeHandshakeResponse(w, t, tr, now)
}

func writeHandshakeResponse(w http.ResponseWriter, t *models.Thread, tr models.Transition, now time.Time) {
	var v threadView
	if err := store.View(func(s *store.Snap) error {
		var err error
		v, err = buildView(s, t, now)
		return err
	}); err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, handshakeResponse{Transition: tr, Thread: v})
}
