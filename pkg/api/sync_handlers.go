package api

import (
	"encoding/json"
	"net/http"

	"github.com/cuemby/livepaste/pkg/manager"
)

type syncFilePayload struct {
	PathHash         string  `json:"path_hash"`
	PathEncrypted    string  `json:"path_encrypted"`
	ContentEncrypted *string `json:"content_encrypted"`
	IsSyncable       bool    `json:"is_syncable"`
	SizeBytes        int64   `json:"size_bytes"`
}

func (p syncFilePayload) toSyncFile() manager.SyncFile {
	return manager.SyncFile{
		PathHash:         p.PathHash,
		PathEncrypted:    p.PathEncrypted,
		ContentEncrypted: p.ContentEncrypted,
		IsSyncable:       p.IsSyncable,
		SizeBytes:        p.SizeBytes,
	}
}

type syncBeginRequest struct {
	ClientID    string `json:"client_id"`
	TotalChunks int    `json:"total_chunks"`
	TotalFiles  int    `json:"total_files"`
}

type syncBeginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// syncBegin answers POST /api/room/{id}/sync/begin (§4.6 step 1).
func (a *API) syncBegin(w http.ResponseWriter, r *http.Request) {
	var req syncBeginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	token, expiresAt := a.manager.BeginSync(roomIDFromRequest(r), req.ClientID, req.TotalChunks, req.TotalFiles)
	writeJSON(w, http.StatusOK, syncBeginResponse{Token: token, ExpiresAt: expiresAt.Format("2006-01-02T15:04:05Z07:00")})
}

type syncChunkRequest struct {
	Token string            `json:"token"`
	Files []syncFilePayload `json:"files"`
}

type syncChunkResponse struct {
	ChunksRemaining int `json:"chunks_remaining"`
}

// syncChunk answers POST /api/room/{id}/sync/chunk (§4.6 step 2).
func (a *API) syncChunk(w http.ResponseWriter, r *http.Request) {
	var req syncChunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	files := make([]manager.SyncFile, len(req.Files))
	for i, f := range req.Files {
		files[i] = f.toSyncFile()
	}

	result, err := a.manager.ApplyChunk(req.Token, files)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, syncChunkResponse{ChunksRemaining: result.ChunksRemaining})
}

type syncCompleteRequest struct {
	Token string `json:"token"`
}

// syncComplete answers POST /api/room/{id}/sync/complete (§4.6 step 3).
func (a *API) syncComplete(w http.ResponseWriter, r *http.Request) {
	var req syncCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	state, err := a.manager.CompleteSync(req.Token)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type syncSingleShotRequest struct {
	Files []syncFilePayload `json:"files"`
}

// syncSingleShot answers POST /api/room/{id}/sync, the single-request
// equivalent of begin+chunk+complete.
func (a *API) syncSingleShot(w http.ResponseWriter, r *http.Request) {
	var req syncSingleShotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	files := make([]manager.SyncFile, len(req.Files))
	for i, f := range req.Files {
		files[i] = f.toSyncFile()
	}

	state, err := a.manager.SyncSingleShot(roomIDFromRequest(r), files)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
