package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func doJSON(t *testing.T, a *API, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

// TestFileLifecycleOverHTTP mirrors scenario S1.
func TestFileLifecycleOverHTTP(t *testing.T) {
	a := newTestAPI(t)

	rec := doJSON(t, a, http.MethodPost, "/api/room/RM000001/files", map[string]any{
		"path_hash": "aa", "path_encrypted": "P1", "content_encrypted": "C1", "is_syncable": true,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp1 upsertFileResponse
	decodeJSON(t, rec, &resp1)
	require.Equal(t, int64(1), resp1.Version)
	require.Equal(t, int64(1), resp1.RoomVersion)

	rec = doJSON(t, a, http.MethodPost, "/api/room/RM000001/files", map[string]any{
		"path_hash": "aa", "path_encrypted": "P1", "content_encrypted": "C2", "is_syncable": true,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp2 upsertFileResponse
	decodeJSON(t, rec, &resp2)
	require.Equal(t, int64(2), resp2.Version)
	require.Equal(t, int64(2), resp2.RoomVersion)

	rec = doJSON(t, a, http.MethodGet, "/api/room/RM000001", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var state struct {
		Files []struct {
			ID               string  `json:"id"`
			ContentEncrypted *string `json:"content_encrypted"`
			Version          int64   `json:"version"`
		} `json:"files"`
	}
	decodeJSON(t, rec, &state)
	require.Len(t, state.Files, 1)
	require.Equal(t, "C2", *state.Files[0].ContentEncrypted)
	require.Equal(t, int64(2), state.Files[0].Version)

	rec = doJSON(t, a, http.MethodDelete, "/api/room/RM000001/files/"+state.Files[0].ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var delResp deleteFileResponse
	decodeJSON(t, rec, &delResp)
	require.True(t, delResp.Success)
	require.Equal(t, int64(3), delResp.Version)

	rec = doJSON(t, a, http.MethodGet, "/api/room/RM000001?since=2", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var after struct {
		Files             []any    `json:"files"`
		DeletedPathHashes []string `json:"deleted_path_hashes"`
	}
	decodeJSON(t, rec, &after)
	require.Empty(t, after.Files)
	require.Equal(t, []string{"aa"}, after.DeletedPathHashes)
}

// TestOperationConflictOverHTTP mirrors scenario S3.
func TestOperationConflictOverHTTP(t *testing.T) {
	a := newTestAPI(t)
	doJSON(t, a, http.MethodPost, "/api/room/RM000001/files", map[string]any{
		"path_hash": "f1", "path_encrypted": "P1", "content_encrypted": "C1", "is_syncable": true,
	}, nil)

	rec := doJSON(t, a, http.MethodPost, "/api/room/RM000001/ops", map[string]any{
		"file_path_hash": "f1", "op_encrypted": "opA", "client_id": "A", "base_version": 1,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var opA submitOperationResponse
	decodeJSON(t, rec, &opA)
	require.Equal(t, int64(1), opA.Seq)

	rec = doJSON(t, a, http.MethodPost, "/api/room/RM000001/ops", map[string]any{
		"file_path_hash": "f1", "op_encrypted": "opB", "client_id": "B", "base_version": 1,
	}, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	var conflict conflictResponse
	decodeJSON(t, rec, &conflict)
	require.Equal(t, int64(2), conflict.CurrentVersion)
	require.Len(t, conflict.ConflictingOps, 1)
}

// TestPasswordGateOverHTTP mirrors scenario S6.
func TestPasswordGateOverHTTP(t *testing.T) {
	a := newTestAPI(t)

	digest := "d41d8cd98f00b204e9800998ecf8427e"
	rec := doJSON(t, a, http.MethodPost, "/api/room/RM000002/password", map[string]any{"new_digest": digest}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, a, http.MethodGet, "/api/room/RM000002", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var errBody errorBody
	decodeJSON(t, rec, &errBody)
	require.True(t, errBody.PasswordRequired)

	rec = doJSON(t, a, http.MethodGet, "/api/room/RM000002", nil, map[string]string{passwordHeader: digest})
	require.Equal(t, http.StatusOK, rec.Code)
}

// TestChangesetPartialOverHTTP mirrors scenario S5.
func TestChangesetPartialOverHTTP(t *testing.T) {
	a := newTestAPI(t)

	rec := doJSON(t, a, http.MethodPost, "/api/room/RM000001/changesets", map[string]any{
		"author_encrypted":  "author",
		"message_encrypted": "message",
		"changes": []map[string]any{
			{"path_hash": "g1", "file_path_encrypted": "G1", "new_content_encrypted": "NEW1"},
			{"path_hash": "g2", "file_path_encrypted": "G2", "new_content_encrypted": "NEW2"},
		},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var created struct {
		ID      string `json:"id"`
		Changes []struct {
			ID string `json:"id"`
		} `json:"changes"`
	}
	decodeJSON(t, rec, &created)
	require.Len(t, created.Changes, 2)

	rec = doJSON(t, a, http.MethodPost, "/api/room/RM000001/changes/"+created.Changes[0].ID+"/accept", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resolution changesetResolutionResponse
	decodeJSON(t, rec, &resolution)
}

func TestRoomInfoNeverLeaksExistenceBeyondPublicEndpoint(t *testing.T) {
	a := newTestAPI(t)
	rec := doJSON(t, a, http.MethodGet, "/api/room/RMABSENT1/info", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var info struct {
		HasPassword bool `json:"has_password"`
	}
	decodeJSON(t, rec, &info)
	require.False(t, info.HasPassword)
}

func TestDeleteUnknownFileReturns404(t *testing.T) {
	a := newTestAPI(t)
	rec := doJSON(t, a, http.MethodDelete, "/api/room/RM000001/files/nonexistent", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSyncChunkUnknownTokenReturns400(t *testing.T) {
	a := newTestAPI(t)
	rec := doJSON(t, a, http.MethodPost, "/api/room/RM000001/sync/chunk", map[string]any{
		"token": "bogus", "chunk_index": 0, "files": []any{},
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestPasswordQueryParamFallback mirrors §4.3: a client that can't set
// a custom header may present the digest as a query parameter instead.
func TestPasswordQueryParamFallback(t *testing.T) {
	a := newTestAPI(t)
	digest := "d41d8cd98f00b204e9800998ecf8427e"

	rec := doJSON(t, a, http.MethodPost, "/api/room/RM000003/password", map[string]any{"new_digest": digest}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, a, http.MethodGet, "/api/room/RM000003?password="+digest, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, a, http.MethodGet, "/api/room/RM000003?password=wrong-digest-value", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSetPasswordRejectsShortDigest(t *testing.T) {
	a := newTestAPI(t)
	rec := doJSON(t, a, http.MethodPost, "/api/room/RM000004/password", map[string]any{"new_digest": "abc"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	info := doJSON(t, a, http.MethodGet, "/api/room/RM000004/info", nil, nil)
	require.Equal(t, http.StatusOK, info.Code)
	var body struct {
		HasPassword bool `json:"has_password"`
	}
	decodeJSON(t, info, &body)
	require.False(t, body.HasPassword)
}
