package manager

import (
	"time"

	"github.com/cuemby/livepaste/pkg/metrics"
	"github.com/cuemby/livepaste/pkg/storage"
	syncsess "github.com/cuemby/livepaste/pkg/sync"
)

// SyncFile is one file carried in a sync chunk or single-shot sync
// payload; it mirrors UpsertFileInput.
type SyncFile struct {
	PathHash         string
	PathEncrypted    string
	ContentEncrypted *string
	IsSyncable       bool
	SizeBytes        int64
}

// BeginSync allocates a chunked-upload session (§4.6 step 1).
func (m *Manager) BeginSync(roomID, clientID string, totalChunks, totalFiles int) (token string, expiresAt time.Time) {
	sess := m.sessions.Begin(roomID, clientID, totalChunks, totalFiles)
	metrics.SyncSessionsStartedTotal.Inc()
	return sess.Token, sess.StartedAt.Add(syncsess.Expiry)
}

// SyncChunkResult is returned to the chunk handler.
type SyncChunkResult struct {
	ChunksRemaining int
}

// ApplyChunk upserts every file in one chunk exactly as §4.4 does, then
// records the chunk against the session. Chunks are idempotent under
// retry on the same (session, path_hash): re-applying the same file
// payload re-upserts it, which is safe (§9 notes this bumps the file's
// version on each retry, a known and accepted tradeoff).
func (m *Manager) ApplyChunk(token string, files []SyncFile) (SyncChunkResult, error) {
	roomID, ok := m.sessions.RoomID(token)
	if !ok {
		return SyncChunkResult{}, syncsess.ErrSessionExpired
	}

	pathHashes := make([]string, 0, len(files))
	for _, f := range files {
		if _, _, err := m.store.UpsertFile(storage.UpsertFileParams{
			RoomID:           roomID,
			PathHash:         f.PathHash,
			PathEncrypted:    f.PathEncrypted,
			ContentEncrypted: f.ContentEncrypted,
			IsSyncable:       f.IsSyncable,
			SizeBytes:        f.SizeBytes,
		}); err != nil {
			return SyncChunkResult{}, err
		}
		pathHashes = append(pathHashes, f.PathHash)
	}

	snap, err := m.sessions.RecordChunk(token, pathHashes)
	if err != nil {
		return SyncChunkResult{}, err
	}
	return SyncChunkResult{ChunksRemaining: snap.ChunksRemaining()}, nil
}

// CompleteSync reconciles the room's files against everything the
// session observed: anything present in the room but never seen across
// any chunk is deleted and tombstoned in one transaction, and the room
// version advances at most once for the whole reconciliation (§4.6
// step 3). The session is removed regardless of outcome.
func (m *Manager) CompleteSync(token string) (*State, error) {
	snap, err := m.sessions.Complete(token)
	if err != nil {
		return nil, err
	}

	timer := metrics.NewTimer()
	_, _, err = m.store.ReconcileSync(snap.RoomID, snap.PathHashSet())
	timer.ObserveDuration(metrics.SyncReconcileDuration)
	if err != nil {
		return nil, err
	}

	return m.State(snap.RoomID, StateQuery{Since: 0, Limit: DefaultStateLimit})
}

// SyncSingleShot performs the single-request equivalent of
// begin+chunk+complete: every file is upserted, then the room is
// reconciled against exactly the set of path hashes in the payload.
func (m *Manager) SyncSingleShot(roomID string, files []SyncFile) (*State, error) {
	observed := make(map[string]struct{}, len(files))
	for _, f := range files {
		if _, _, err := m.store.UpsertFile(storage.UpsertFileParams{
			RoomID:           roomID,
			PathHash:         f.PathHash,
			PathEncrypted:    f.PathEncrypted,
			ContentEncrypted: f.ContentEncrypted,
			IsSyncable:       f.IsSyncable,
			SizeBytes:        f.SizeBytes,
		}); err != nil {
			return nil, err
		}
		observed[f.PathHash] = struct{}{}
	}

	if _, _, err := m.store.ReconcileSync(roomID, observed); err != nil {
		return nil, err
	}

	return m.State(roomID, StateQuery{Since: 0, Limit: DefaultStateLimit})
}
