package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"threaddb/pkg/models"
	"threaddb/pkg/store"
	"threaddb/pkg/thread"
	"threaddb/pkg/utils"
	"threaddb/pkg/validation"
)

// RegisterMessages registers the interaction routes.
func RegisterMessages(r *mux.Router) {
	r.HandleFunc("/threads/{id}/messages", createMessage).Methods(http.MethodPost)
	r.HandleFunc("/threads/{id}/messages", listMessages).Methods(http.MethodGet)
	r.HandleFunc("/threads/{id}/messages", clearMessages).Methods(http.MethodDelete)

	r.HandleFunc("/threads/{id}/read", markRead).Methods(http.MethodPost)
	r.HandleFunc("/threads/{id}/unread", unreadCount).Methods(http.MethodGet)
	r.HandleFunc("/threads/{id}/invalid-key", invalidKeyMessages).Methods(http.MethodGet)
}

// createMessage handles POST /threads/{id}/messages. Direction defaults to
// outgoing. Ordinary outgoing payloads on a thread whose handshake is not
// complete are refused with 403; control payloads pass in every state.
func createMessage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var in models.Interaction
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if in.Direction == "" {
		in.Direction = models.DirectionOutgoing
	}
	if err := validation.ValidateInteraction(in); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := store.Update(func(tx *store.Tx) error {
		t, err := store.GetThread(tx, id)
		if err != nil {
			return err
		}
		if in.Direction == models.DirectionIncoming {
			return thread.RecordIncoming(tx, t, &in)
		}
		return thread.RecordOutgoing(tx, t, &in)
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, in)
}

// listMessages handles GET /threads/{id}/messages. Interactions come back
// oldest first; a positive "limit" caps the count.
func listMessages(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			utils.JSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	var out []models.Interaction
	err := store.View(func(s *store.Snap) error {
		if _, err := store.GetThread(s, id); err != nil {
			return err
		}
		var err error
		out, err = store.ListInteractions(s, id, limit)
		return err
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{"interactions": out})
}

// clearMessages handles DELETE /threads/{id}/messages: the history goes, the
// thread record stays with its preview cache reset.
func clearMessages(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	err := store.Update(func(tx *store.Tx) error {
		t, err := store.GetThread(tx, id)
		if err != nil {
			return err
		}
		return thread.RemoveAllInteractions(tx, t)
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// markRead handles POST /threads/{id}/read and reports how many interactions
// flipped.
func markRead(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var n int
	err := store.Update(func(tx *store.Tx) error {
		t, err := store.GetThread(tx, id)
		if err != nil {
			return err
		}
		n, err = thread.MarkAllAsRead(tx, t)
		return err
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]int{"read": n})
}

// unreadCount handles GET /threads/{id}/unread.
func unreadCount(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var n int
	err := store.View(func(s *store.Snap) error {
		t, err := store.GetThread(s, id)
		if err != nil {
			return err
		}
		n, err = thread.UnreadCount(s, t)
		return err
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]int{"unread": n})
}

// invalidKeyMessages handles GET /threads/{id}/invalid-key?key=<hex>: the
// received interactions whose payload failed to decrypt with that key,
// oldest first.
func invalidKeyMessages(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	key := r.URL.Query().Get("key")
	if key == "" {
		utils.JSONError(w, http.StatusBadRequest, "key query parameter is required")
		return
	}

	var out []models.Interaction
	err := store.View(func(s *store.Snap) error {
		t, err := store.GetThread(s, id)
		if err != nil {
			return err
		}
		out, err = thread.ReceivedMessagesForInvalidKey(s, t, key)
		return err
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{"interactions": out})
}
