package api

import (
	"encoding/json"
	"net/http"

	"github.com/cuemby/livepaste/pkg/manager"
	"github.com/go-chi/chi/v5"
)

type changeInputPayload struct {
	PathHash            string `json:"path_hash"`
	FilePathEncrypted   string `json:"file_path_encrypted"`
	OldContentEncrypted string `json:"old_content_encrypted"`
	NewContentEncrypted string `json:"new_content_encrypted"`
	DiffEncrypted       string `json:"diff_encrypted"`
}

type createChangesetRequest struct {
	AuthorEncrypted  string               `json:"author_encrypted"`
	MessageEncrypted string               `json:"message_encrypted"`
	Changes          []changeInputPayload `json:"changes"`
}

// createChangeset answers POST /api/room/{id}/changesets (§4.8).
func (a *API) createChangeset(w http.ResponseWriter, r *http.Request) {
	var req createChangesetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	changes := make([]manager.ChangeInput, len(req.Changes))
	for i, c := range req.Changes {
		changes[i] = manager.ChangeInput{
			PathHash:            c.PathHash,
			FilePathEncrypted:   c.FilePathEncrypted,
			OldContentEncrypted: c.OldContentEncrypted,
			NewContentEncrypted: c.NewContentEncrypted,
			DiffEncrypted:       c.DiffEncrypted,
		}
	}

	cs, err := a.manager.CreateChangeset(roomIDFromRequest(r), req.AuthorEncrypted, req.MessageEncrypted, changes)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

type changesetResolutionResponse struct {
	Changeset   any   `json:"changeset"`
	RoomVersion int64 `json:"room_version,omitempty"`
}

// acceptChangeset answers POST /api/room/{id}/changesets/{cid}/accept.
func (a *API) acceptChangeset(w http.ResponseWriter, r *http.Request) {
	cs, version, err := a.manager.AcceptChangeset(roomIDFromRequest(r), chi.URLParam(r, "cid"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changesetResolutionResponse{Changeset: cs, RoomVersion: version})
}

// rejectChangeset answers POST /api/room/{id}/changesets/{cid}/reject.
func (a *API) rejectChangeset(w http.ResponseWriter, r *http.Request) {
	cs, err := a.manager.RejectChangeset(roomIDFromRequest(r), chi.URLParam(r, "cid"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changesetResolutionResponse{Changeset: cs})
}

// acceptChange answers POST /api/room/{id}/changes/{chid}/accept.
func (a *API) acceptChange(w http.ResponseWriter, r *http.Request) {
	cs, version, err := a.manager.AcceptChange(roomIDFromRequest(r), chi.URLParam(r, "chid"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changesetResolutionResponse{Changeset: cs, RoomVersion: version})
}

// rejectChange answers POST /api/room/{id}/changes/{chid}/reject.
func (a *API) rejectChange(w http.ResponseWriter, r *http.Request) {
	cs, err := a.manager.RejectChange(roomIDFromRequest(r), chi.URLParam(r, "chid"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changesetResolutionResponse{Changeset: cs})
}
