package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBeginCreatesSession(t *testing.T) {
	r := NewRegistry()
	sess := r.Begin("RM000001", "client-a", 2, 3)

	require.NotEmpty(t, sess.Token)
	require.Equal(t, "RM000001", sess.RoomID)
	require.Equal(t, 1, r.Count())

	roomID, ok := r.RoomID(sess.Token)
	require.True(t, ok)
	require.Equal(t, "RM000001", roomID)
}

func TestRecordChunkAccumulatesPathHashes(t *testing.T) {
	r := NewRegistry()
	sess := r.Begin("RM000001", "client-a", 2, 3)

	snap, err := r.RecordChunk(sess.Token, []string{"x", "y"})
	require.NoError(t, err)
	require.Equal(t, 1, snap.ReceivedChunks)
	require.Len(t, snap.PathHashes, 2)

	snap2, err := r.RecordChunk(sess.Token, []string{"y", "z"})
	require.NoError(t, err)
	require.Equal(t, 2, snap2.ReceivedChunks)
	require.Len(t, snap2.PathHashes, 3) // x, y, z — idempotent union
	require.Equal(t, 0, snap2.ChunksRemaining())
}

func TestRecordChunkUnknownTokenExpired(t *testing.T) {
	r := NewRegistry()
	_, err := r.RecordChunk("bogus-token", []string{"x"})
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestCompleteRemovesSession(t *testing.T) {
	r := NewRegistry()
	sess := r.Begin("RM000001", "client-a", 1, 1)
	_, err := r.RecordChunk(sess.Token, []string{"x"})
	require.NoError(t, err)

	snap, err := r.Complete(sess.Token)
	require.NoError(t, err)
	require.Contains(t, snap.PathHashes, "x")
	require.Equal(t, 0, r.Count())

	_, err = r.Complete(sess.Token)
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestSweepExpiresIdleSessions(t *testing.T) {
	r := NewRegistry()
	sess := r.Begin("RM000001", "client-a", 1, 1)

	r.mu.Lock()
	r.sessions[sess.Token].LastSeenAt = time.Now().Add(-Expiry - time.Second)
	r.mu.Unlock()

	expired := r.sweep()
	require.Equal(t, 1, expired)
	require.Equal(t, 0, r.Count())
}
