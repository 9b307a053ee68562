package api

import (
	"encoding/json"
	"net/http"

	"github.com/cuemby/livepaste/pkg/manager"
)

type submitOperationRequest struct {
	FilePathHash string `json:"file_path_hash"`
	OpEncrypted  string `json:"op_encrypted"`
	ClientID     string `json:"client_id"`
	BaseVersion  int64  `json:"base_version"`
}

type submitOperationResponse struct {
	Seq            int64 `json:"seq"`
	CurrentVersion int64 `json:"current_version"`
}

type conflictResponse struct {
	Error          string `json:"error"`
	CurrentVersion int64  `json:"current_version"`
	BaseVersion    int64  `json:"base_version"`
	ConflictingOps []any  `json:"conflicting_ops"`
}

// submitOperation answers POST /api/room/{id}/ops (§4.7): either the
// operation is assigned the next seq, or the room replies 409 with
// enough context for the client to rebase.
func (a *API) submitOperation(w http.ResponseWriter, r *http.Request) {
	var req submitOperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	result, conflict, err := a.manager.SubmitOperation(roomIDFromRequest(r), manager.SubmitOperationInput{
		FilePathHash: req.FilePathHash,
		OpEncrypted:  req.OpEncrypted,
		ClientID:     req.ClientID,
		BaseVersion:  req.BaseVersion,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if conflict != nil {
		ops := make([]any, len(conflict.ConflictingOps))
		for i, op := range conflict.ConflictingOps {
			ops[i] = op
		}
		writeJSON(w, http.StatusConflict, conflictResponse{
			Error:          "operation conflict",
			CurrentVersion: conflict.CurrentVersion,
			BaseVersion:    conflict.BaseVersion,
			ConflictingOps: ops,
		})
		return
	}

	writeJSON(w, http.StatusOK, submitOperationResponse{Seq: result.Seq, CurrentVersion: result.CurrentVersion})
}

// fetchOperations answers GET /api/room/{id}/ops?since=&file= (§4.7).
func (a *API) fetchOperations(w http.ResponseWriter, r *http.Request) {
	since := parseInt64Query(r, "since", 0)
	fileFilter := r.URL.Query().Get("file")

	page, err := a.manager.FetchOperations(roomIDFromRequest(r), since, fileFilter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
