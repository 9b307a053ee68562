package api

import (
	"net/http"
	"time"

	"github.com/cuemby/livepaste/pkg/auth"
	"github.com/cuemby/livepaste/pkg/log"
	"github.com/cuemby/livepaste/pkg/metrics"
	"github.com/cuemby/livepaste/pkg/storage"
	"github.com/go-chi/chi/v5"
)

// passwordHeader carries the hex sha256 digest of the user's password;
// the server never sees the password itself (§6). A client that can't
// set a custom header falls back to the "password" query parameter.
const passwordHeader = "X-Room-Password"

func roomIDFromRequest(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// requireAuth is the auth gate (component C): the router applies it to
// every room endpoint except the public info and verify-password
// endpoints, and it demands a valid digest wherever a room exists and
// carries a password. A room that does not exist yet, or does not have a
// password, passes through untouched so the lazy-create and
// no-password paths behave identically to an unprotected request.
func (a *API) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := roomIDFromRequest(r)

		room, err := a.manager.GetRoom(roomID)
		if err == storage.ErrNotFound {
			next(w, r)
			return
		}
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if !room.HasPassword() {
			next(w, r)
			return
		}

		digest := r.Header.Get(passwordHeader)
		if digest == "" {
			digest = r.URL.Query().Get("password")
		}
		if digest == "" || len(digest) < auth.MinPasswordDigestLength {
			writePasswordRequired(w)
			return
		}
		if !auth.Verify(room.PasswordHash, digest) {
			writePasswordRequired(w)
			return
		}

		next(w, r)
	}
}

// instrument wraps a handler with request-count and latency metrics,
// labeled by the route pattern chi matched (not the raw path, to keep
// cardinality bounded).
func instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		metrics.APIRequestDuration.WithLabelValues(route).Observe(timer.Duration().Seconds())
		metrics.APIRequestsTotal.WithLabelValues(route, statusClass(rec.status)).Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// requestLog logs every request at debug level with method, path and
// latency; mirrors the teacher's WithComponent child-logger idiom.
func requestLog(next http.Handler) http.Handler {
	logger := log.WithComponent("api")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request handled")
	})
}
