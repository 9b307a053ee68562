package api

import (
	"net/http"
	"time"
)

// HealthResponse is the /health liveness payload: 200 whenever the
// process is up, regardless of storage state.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// healthHandler implements GET /health, a pure liveness check.
func (a *API) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Timestamp: time.Now()})
}

// ReadyResponse is the /ready payload: ready only once the bbolt store
// answers a read.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// readyHandler implements GET /ready. Readiness here has one dependency:
// the embedded store. There is no cluster to be a follower of, so the
// check is a single CountRooms call rather than a leader-election probe.
func (a *API) readyHandler(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "ready"
	code := http.StatusOK

	if _, err := a.manager.Store().CountRooms(); err != nil {
		checks["storage"] = "error: " + err.Error()
		status = "not ready"
		code = http.StatusServiceUnavailable
	} else {
		checks["storage"] = "ok"
	}

	writeJSON(w, code, ReadyResponse{Status: status, Timestamp: time.Now(), Checks: checks})
}
