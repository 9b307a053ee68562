package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cuemby/livepaste/pkg/auth"
	"github.com/cuemby/livepaste/pkg/manager"
	"github.com/cuemby/livepaste/pkg/storage"
)

// roomInfo answers GET /api/room/{id}/info — always unauthenticated,
// never reveals anything beyond presence and password-gating (§6, §7).
func (a *API) roomInfo(w http.ResponseWriter, r *http.Request) {
	info, err := a.manager.Info(roomIDFromRequest(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type setPasswordRequest struct {
	NewDigest string `json:"new_digest"`
}

// setPassword changes, sets or clears a room's password. requireAuth
// already demanded the current password's digest via X-Room-Password
// when the room has one, so reaching this handler means that check
// already passed (or there was nothing to check).
func (a *API) setPassword(w http.ResponseWriter, r *http.Request) {
	var req setPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	roomID := roomIDFromRequest(r)
	var newHash string
	if req.NewDigest != "" {
		if len(req.NewDigest) < auth.MinPasswordDigestLength {
			writeError(w, http.StatusBadRequest, "password digest too short")
			return
		}
		hashed, err := auth.Hash(req.NewDigest)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		newHash = hashed
	}

	if err := a.manager.SetPassword(roomID, newHash); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type verifyPasswordRequest struct {
	Digest string `json:"digest"`
}

// verifyPassword answers POST /api/room/{id}/verify-password: a plain
// digest check so the client UI can prompt before attempting a gated
// request, without relying on a 401 round-trip.
func (a *API) verifyPassword(w http.ResponseWriter, r *http.Request) {
	var req verifyPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	room, err := a.manager.GetRoom(roomIDFromRequest(r))
	if err == storage.ErrNotFound {
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": auth.Verify(room.PasswordHash, req.Digest)})
}

// roomState answers GET /api/room/{id}?since=&limit=&offset= (§4.5).
func (a *API) roomState(w http.ResponseWriter, r *http.Request) {
	q := parseStateQuery(r)
	state, err := a.manager.State(roomIDFromRequest(r), q)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func parseStateQuery(r *http.Request) manager.StateQuery {
	q := manager.StateQuery{Limit: manager.DefaultStateLimit, Offset: manager.DefaultStateOffset}
	if v := r.URL.Query().Get("since"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			q.Since = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			q.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			q.Offset = n
		}
	}
	return q
}

// roomVersion answers GET /api/room/{id}/version.
func (a *API) roomVersion(w http.ResponseWriter, r *http.Request) {
	version, err := a.manager.Version(roomIDFromRequest(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"version": version})
}

// deleteRoom answers DELETE /api/room/{id}, the kill switch.
func (a *API) deleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := a.manager.DeleteRoom(roomIDFromRequest(r)); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// redirectToNewRoom implements GET / -> 302 /room/{newId}.
func (a *API) redirectToNewRoom(w http.ResponseWriter, r *http.Request) {
	id, err := manager.GenerateRoomID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	http.Redirect(w, r, "/room/"+id, http.StatusFound)
}
