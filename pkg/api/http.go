// Package api exposes the thread store over HTTP. Routes are grouped under
// /v1 and handlers live in the handlers subpackage; auth, rate limiting and
// telemetry wrap the returned handler at the server layer.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"threaddb/pkg/api/handlers"
	"threaddb/pkg/store"
	"threaddb/pkg/utils"
)

// Handler builds the versioned API router. localID is the identifier of the
// account this store belongs to; note-to-self detection needs it.
func Handler(localID string) http.Handler {
	handlers.SetLocalIdentity(localID)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	handlers.RegisterThreads(v1)
	handlers.RegisterHandshake(v1)
	handlers.RegisterMessages(v1)
	handlers.RegisterSettings(v1)

	return r
}

func healthz(w http.ResponseWriter, r *http.Request) {
	if !store.Ready() {
		utils.JSONError(w, http.StatusServiceUnavailable, "store not open")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
}
