package api

import (
	"encoding/json"
	"net/http"

	"github.com/cuemby/livepaste/pkg/storage"
	syncsess "github.com/cuemby/livepaste/pkg/sync"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

type errorBody struct {
	Error            string `json:"error"`
	PasswordRequired bool   `json:"password_required,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writePasswordRequired(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorBody{Error: "password required", PasswordRequired: true})
}

// writeStoreError maps the small set of sentinel errors the manager and
// store surface into the HTTP status taxonomy. Anything unrecognized is
// a 500: the transaction already rolled back, the client is expected to
// retry per the design's transient-error handling.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case err == storage.ErrNotFound:
		writeError(w, http.StatusNotFound, "not found")
	case err == syncsess.ErrSessionExpired:
		writeError(w, http.StatusBadRequest, "sync session expired or unknown")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
