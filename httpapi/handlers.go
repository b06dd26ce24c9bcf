package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ravendb/ravenidx/index"
	"github.com/ravendb/ravenidx/index/vfs"
)

func lookupIndex(w http.ResponseWriter, r *http.Request, mgr *index.Manager) (*index.Index, bool) {
	name := mux.Vars(r)["name"]
	idx, ok := mgr.Get(name)
	if !ok {
		writeErrorResponse(w, http.StatusNotFound, "index not found: "+name)
		return nil, false
	}
	return idx, true
}

// statsHandler answers GET /indexes/{name}/stats with the rolling Indexing
// Stats queue, active batches, priority, and last-index/query timestamps.
type statsHandler struct {
	mgr *index.Manager
}

func (h *statsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	idx, ok := lookupIndex(w, r, h.mgr)
	if !ok {
		return
	}

	type response struct {
		Name          string              `json:"name"`
		Priority      string              `json:"priority"`
		Generation    uint64              `json:"generation"`
		LastIndexTime string              `json:"last_index_time,omitempty"`
		LastQueryTime string              `json:"last_query_time,omitempty"`
		Stats         []index.BatchStats  `json:"stats"`
		ActiveBatches int                 `json:"active_batches"`
	}

	resp := response{
		Name:          idx.Definition().Name,
		Priority:      idx.Priority().String(),
		Generation:    idx.Generation(),
		Stats:         idx.Stats(),
		ActiveBatches: len(idx.ActiveBatches()),
	}
	if t := idx.LastIndexTime(); !t.IsZero() {
		resp.LastIndexTime = t.Format(httpTimeFormat)
	}
	if t := idx.LastQueryTime(); !t.IsZero() {
		resp.LastQueryTime = t.Format(httpTimeFormat)
	}

	writeResponse(w, http.StatusOK, resp)
}

const httpTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// backupHandler answers POST /indexes/{name}/backup, backing up the index
// into the destination directory named by the "dest" JSON body field.
type backupHandler struct {
	mgr *index.Manager
	log index.Logger
}

func (h *backupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	idx, ok := lookupIndex(w, r, h.mgr)
	if !ok {
		return
	}

	var input struct {
		Dest string `json:"dest"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Dest == "" {
		writeErrorResponse(w, http.StatusBadRequest, "invalid body: expected {\"dest\": \"<path>\"}")
		return
	}

	dest, err := vfs.OpenDiskDir(input.Dest, true)
	if err != nil {
		h.log.Warnf("backup: open destination %q failed: %v", input.Dest, err)
		writeErrorResponse(w, http.StatusInternalServerError, "could not open backup destination")
		return
	}
	defer dest.Close()

	report, err := idx.Backup(dest)
	if err != nil {
		h.log.Warnf("backup of %q failed: %v", idx.Definition().Name, err)
		writeErrorResponse(w, http.StatusInternalServerError, "backup failed: "+err.Error())
		return
	}

	writeResponse(w, http.StatusOK, report)
}

// priorityHandler answers POST /indexes/{name}/priority with a
// {"priority": "<name>"} body.
type priorityHandler struct {
	mgr *index.Manager
}

func (h *priorityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	idx, ok := lookupIndex(w, r, h.mgr)
	if !ok {
		return
	}

	var input struct {
		Priority string `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid body")
		return
	}

	p, ok := index.ParsePriority(input.Priority)
	if !ok {
		writeErrorResponse(w, http.StatusBadRequest, "unknown priority: "+input.Priority)
		return
	}

	changed := idx.SetPriority(p)
	writeResponse(w, http.StatusOK, map[string]interface{}{
		"priority": idx.Priority().String(),
		"changed":  changed,
	})
}
