package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cuemby/livepaste/pkg/manager"
	"github.com/go-chi/chi/v5"
)

type upsertFileRequest struct {
	PathHash         string  `json:"path_hash"`
	PathEncrypted    string  `json:"path_encrypted"`
	ContentEncrypted *string `json:"content_encrypted"`
	IsSyncable       bool    `json:"is_syncable"`
	SizeBytes        int64   `json:"size_bytes"`
}

type upsertFileResponse struct {
	Version     int64 `json:"version"`
	RoomVersion int64 `json:"room_version"`
}

// upsertFile answers POST /api/room/{id}/files (§4.4).
func (a *API) upsertFile(w http.ResponseWriter, r *http.Request) {
	var req upsertFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	file, roomVersion, err := a.manager.UpsertFile(roomIDFromRequest(r), manager.UpsertFileInput{
		PathHash:         req.PathHash,
		PathEncrypted:    req.PathEncrypted,
		ContentEncrypted: req.ContentEncrypted,
		IsSyncable:       req.IsSyncable,
		SizeBytes:        req.SizeBytes,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, upsertFileResponse{Version: file.Version, RoomVersion: roomVersion})
}

type deleteFileResponse struct {
	Success bool  `json:"success"`
	Version int64 `json:"version"`
}

// deleteFile answers DELETE /api/room/{id}/files/{fileId} (§4.4).
func (a *API) deleteFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileId")
	version, err := a.manager.DeleteFile(roomIDFromRequest(r), fileID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteFileResponse{Success: true, Version: version})
}

type snapshotFileRequest struct {
	ContentEncrypted string `json:"content_encrypted"`
	ThroughSeq        int64 `json:"through_seq"`
}

// snapshotFile answers POST /api/room/{id}/files/{pathHash}/snapshot
// (§4.7).
func (a *API) snapshotFile(w http.ResponseWriter, r *http.Request) {
	var req snapshotFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	pathHash := chi.URLParam(r, "pathHash")
	file, err := a.manager.SnapshotFile(roomIDFromRequest(r), pathHash, req.ContentEncrypted, req.ThroughSeq)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

// parseInt64Query is shared by handlers that read a numeric query
// parameter with a fallback.
func parseInt64Query(r *http.Request, key string, fallback int64) int64 {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
