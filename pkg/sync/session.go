// Package sync manages chunked-upload sync sessions: the process-local,
// mutex-guarded registry described in §4.6 and §9 of the design. It is
// deliberately node-local; nothing here survives a restart, and nothing
// here is shared across server processes.
package sync

import (
	"errors"
	"sync"
	"time"

	"github.com/cuemby/livepaste/pkg/log"
	"github.com/cuemby/livepaste/pkg/metrics"
	"github.com/cuemby/livepaste/pkg/types"
	"github.com/google/uuid"
)

// ErrSessionExpired is returned for an unknown or timed-out session
// token. Callers translate it to HTTP 400.
var ErrSessionExpired = errors.New("sync session expired or unknown")

// Expiry is the hard inactivity timeout for a session (§3, §4.6).
const Expiry = 5 * time.Minute

// sweepInterval is how often the background sweep runs (§4.6).
const sweepInterval = 60 * time.Second

// Registry is a mutex-guarded map from session token to session record,
// with a background sweep goroutine. Handlers must never hold its lock
// across a database call; they copy what they need out under the lock
// and release it before touching storage.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*types.SyncSession
	stopCh   chan struct{}
}

// NewRegistry creates an empty session registry. Call Start to begin the
// background sweep.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*types.SyncSession),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the 60-second expiry sweep in a background goroutine.
func (r *Registry) Start() {
	go r.run()
}

// Stop halts the sweep goroutine.
func (r *Registry) Stop() {
	close(r.stopCh)
}

func (r *Registry) run() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	logger := log.WithComponent("sync-sweep")
	logger.Info().Msg("sync session sweep started")

	for {
		select {
		case <-ticker.C:
			n := r.sweep()
			if n > 0 {
				logger.Debug().Int("expired", n).Msg("swept expired sync sessions")
			}
		case <-r.stopCh:
			logger.Info().Msg("sync session sweep stopped")
			return
		}
	}
}

func (r *Registry) sweep() int {
	cutoff := time.Now().Add(-Expiry)
	r.mu.Lock()
	defer r.mu.Unlock()

	expired := 0
	for token, sess := range r.sessions {
		if sess.LastSeenAt.Before(cutoff) {
			delete(r.sessions, token)
			expired++
		}
	}
	if expired > 0 {
		metrics.SyncSessionsExpiredTotal.Add(float64(expired))
	}
	return expired
}

// Begin allocates a new session token and initializes its bookkeeping.
func (r *Registry) Begin(roomID, clientID string, totalChunks, totalFiles int) *types.SyncSession {
	now := time.Now()
	sess := &types.SyncSession{
		Token:       uuid.NewString(),
		RoomID:      roomID,
		ClientID:    clientID,
		TotalChunks: totalChunks,
		TotalFiles:  totalFiles,
		PathHashes:  make(map[string]struct{}),
		StartedAt:   now,
		LastSeenAt:  now,
	}

	r.mu.Lock()
	r.sessions[sess.Token] = sess
	r.mu.Unlock()

	return sess
}

// SessionSnapshot is a read-only copy of the fields callers need once
// they have released the registry lock.
type SessionSnapshot struct {
	RoomID         string
	ReceivedChunks int
	TotalChunks    int
	PathHashes     map[string]struct{}
}

// RecordChunk marks a chunk received and adds its observed path hashes
// to the session's set, returning a snapshot for the caller to act on.
// A repeated chunk is accepted (see pkg/manager/sync.go): its path
// hashes are already in the set, but ReceivedChunks still advances, so a
// duplicate counts toward ChunksRemaining like a new chunk.
func (r *Registry) RecordChunk(token string, pathHashes []string) (SessionSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[token]
	if !ok {
		return SessionSnapshot{}, ErrSessionExpired
	}

	sess.LastSeenAt = time.Now()
	sess.ReceivedChunks++
	for _, h := range pathHashes {
		sess.PathHashes[h] = struct{}{}
	}

	snap := SessionSnapshot{
		RoomID:         sess.RoomID,
		ReceivedChunks: sess.ReceivedChunks,
		TotalChunks:    sess.TotalChunks,
		PathHashes:     make(map[string]struct{}, len(sess.PathHashes)),
	}
	for h := range sess.PathHashes {
		snap.PathHashes[h] = struct{}{}
	}
	return snap, nil
}

// Complete removes the session from the registry and returns its final
// snapshot for the caller to reconcile against the store.
func (r *Registry) Complete(token string) (SessionSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[token]
	if !ok {
		return SessionSnapshot{}, ErrSessionExpired
	}
	delete(r.sessions, token)

	snap := SessionSnapshot{
		RoomID:         sess.RoomID,
		ReceivedChunks: sess.ReceivedChunks,
		TotalChunks:    sess.TotalChunks,
		PathHashes:     sess.PathHashes,
	}
	return snap, nil
}

// RoomID returns the owning room for a still-live session, without
// mutating LastSeenAt.
func (r *Registry) RoomID(token string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[token]
	if !ok {
		return "", false
	}
	return sess.RoomID, true
}

// Count returns the number of live sessions, for metrics collection.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// ChunksRemaining exposes a session's progress for the Chunk handler's
// chunks_remaining response field.
func (t SessionSnapshot) ChunksRemaining() int {
	remaining := t.TotalChunks - t.ReceivedChunks
	if remaining < 0 {
		return 0
	}
	return remaining
}

// PathHashSet returns the touched snapshot's observed path hashes.
func (t SessionSnapshot) PathHashSet() map[string]struct{} {
	return t.PathHashes
}
