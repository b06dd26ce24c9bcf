// Package httpapi is the minimal operator surface over an index.Manager:
// per-index stats, backup, and priority endpoints. Grounded on the
// teacher's index/server package (mux.Router, one handler struct per route,
// a shared writeResponse/writeErrorResponse JSON envelope).
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ravendb/ravenidx/index"
)

func writeResponse(w http.ResponseWriter, status int, response interface{}) {
	body, err := json.Marshal(response)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "JSON serialization error")
		return
	}
	body = append(body, '\n')
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}

func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	writeResponse(w, status, map[string]string{"message": message})
}

// Handler builds the mux.Router exposing mgr's indexes.
func Handler(mgr *index.Manager, log index.Logger) http.Handler {
	r := mux.NewRouter()
	r.Path("/indexes/{name}/stats").Methods(http.MethodGet).Handler(&statsHandler{mgr: mgr})
	r.Path("/indexes/{name}/backup").Methods(http.MethodPost).Handler(&backupHandler{mgr: mgr, log: log})
	r.Path("/indexes/{name}/priority").Methods(http.MethodPost).Handler(&priorityHandler{mgr: mgr})
	return r
}

// ListenAndServe serves mgr's operator surface at addr until the process
// exits or the listener errors.
func ListenAndServe(addr string, mgr *index.Manager, log index.Logger) error {
	return http.ListenAndServe(addr, Handler(mgr, log))
}
