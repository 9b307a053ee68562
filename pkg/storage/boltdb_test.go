package storage

import (
	"testing"
	"time"

	"github.com/cuemby/livepaste/pkg/types"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEnsureRoomLazyCreate(t *testing.T) {
	s := newTestStore(t)

	room, created, err := s.EnsureRoom("RM000001")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "RM000001", room.ID)
	require.Equal(t, int64(0), room.Version)

	again, created2, err := s.EnsureRoom("RM000001")
	require.NoError(t, err)
	require.False(t, created2)
	require.Equal(t, room.CreatedAt, again.CreatedAt)
}

func TestUpsertFileBumpsVersions(t *testing.T) {
	s := newTestStore(t)
	content := "C1"

	file, roomVersion, err := s.UpsertFile(UpsertFileParams{
		RoomID:           "RM000001",
		PathHash:         "aa",
		PathEncrypted:    "P1",
		ContentEncrypted: &content,
		IsSyncable:       true,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), file.Version)
	require.Equal(t, int64(1), roomVersion)

	content2 := "C2"
	file2, roomVersion2, err := s.UpsertFile(UpsertFileParams{
		RoomID:           "RM000001",
		PathHash:         "aa",
		PathEncrypted:    "P1",
		ContentEncrypted: &content2,
		IsSyncable:       true,
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), file2.Version)
	require.Equal(t, int64(2), roomVersion2)
	require.Equal(t, file.ID, file2.ID)
	require.Equal(t, "C2", *file2.ContentEncrypted)
}

// TestFileLifecycle mirrors scenario S1 from the specification.
func TestFileLifecycle(t *testing.T) {
	s := newTestStore(t)
	c1 := "C1"
	file, rv, err := s.UpsertFile(UpsertFileParams{RoomID: "RM000001", PathHash: "aa", PathEncrypted: "P1", ContentEncrypted: &c1, IsSyncable: true})
	require.NoError(t, err)
	require.Equal(t, int64(1), file.Version)
	require.Equal(t, int64(1), rv)

	c2 := "C2"
	file2, rv2, err := s.UpsertFile(UpsertFileParams{RoomID: "RM000001", PathHash: "aa", PathEncrypted: "P1", ContentEncrypted: &c2, IsSyncable: true})
	require.NoError(t, err)
	require.Equal(t, int64(2), file2.Version)
	require.Equal(t, int64(2), rv2)

	rv3, pathHash, err := s.DeleteFile("RM000001", file2.ID)
	require.NoError(t, err)
	require.Equal(t, int64(3), rv3)
	require.Equal(t, "aa", pathHash)

	files, hasMore, err := s.ListFilesSince("RM000001", 2, 1000, 0)
	require.NoError(t, err)
	require.Empty(t, files)
	require.False(t, hasMore)

	tombstones, err := s.ListTombstonesSince("RM000001", 2)
	require.NoError(t, err)
	require.Len(t, tombstones, 1)
	require.Equal(t, "aa", tombstones[0].PathHash)
}

func TestDeleteFileNotFound(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.DeleteFile("RM000001", "nonexistent")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRoomCascades(t *testing.T) {
	s := newTestStore(t)
	c1 := "C1"
	_, _, err := s.UpsertFile(UpsertFileParams{RoomID: "RM000001", PathHash: "aa", PathEncrypted: "P1", ContentEncrypted: &c1, IsSyncable: true})
	require.NoError(t, err)

	_, _, err = s.SubmitOperation(SubmitOperationParams{RoomID: "RM000001", FilePathHash: "aa", ClientID: "A", BaseVersion: 1, OpEncrypted: "op1"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteRoom("RM000001"))

	_, err = s.GetRoom("RM000001")
	require.ErrorIs(t, err, ErrNotFound)

	files, err := s.CountFiles()
	require.NoError(t, err)
	require.Zero(t, files)
}

// TestOperationConflict mirrors scenario S3: two clients racing on the
// same file with the same base_version; exactly one succeeds.
func TestOperationConflict(t *testing.T) {
	s := newTestStore(t)
	c1 := "C1"
	file, _, err := s.UpsertFile(UpsertFileParams{RoomID: "RM000001", PathHash: "f1", PathEncrypted: "P1", ContentEncrypted: &c1, IsSyncable: true})
	require.NoError(t, err)
	require.Equal(t, int64(1), file.Version)

	opA, currentVersionA, err := s.SubmitOperation(SubmitOperationParams{
		RoomID: "RM000001", FilePathHash: "f1", ClientID: "A", BaseVersion: 1, OpEncrypted: "opA",
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), opA.Seq)
	require.Equal(t, int64(2), currentVersionA)

	_, _, err = s.SubmitOperation(SubmitOperationParams{
		RoomID: "RM000001", FilePathHash: "f1", ClientID: "B", BaseVersion: 1, OpEncrypted: "opB",
	})
	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Equal(t, int64(2), conflictErr.CurrentVersion)
	require.Len(t, conflictErr.ConflictingOps, 1)
	require.Equal(t, int64(1), conflictErr.ConflictingOps[0].Seq)
}

// TestSnapshotPurgesOperations mirrors scenario S4.
func TestSnapshotPurgesOperations(t *testing.T) {
	s := newTestStore(t)
	c1 := "C1"
	_, _, err := s.UpsertFile(UpsertFileParams{RoomID: "RM000001", PathHash: "f2", PathEncrypted: "P2", ContentEncrypted: &c1, IsSyncable: true})
	require.NoError(t, err)

	var lastSeq int64
	for i := 0; i < 5; i++ {
		op, _, err := s.SubmitOperation(SubmitOperationParams{
			RoomID: "RM000001", FilePathHash: "f2", ClientID: "A", BaseVersion: 0, OpEncrypted: "op",
		})
		require.NoError(t, err)
		lastSeq = op.Seq
	}

	file, err := s.SnapshotFile("RM000001", "f2", "compacted", lastSeq)
	require.NoError(t, err)
	require.Equal(t, lastSeq, file.SnapshotSeq)

	ops, opSeq, hasMore, err := s.ListOperationsSince("RM000001", 0, "f2", 1000)
	require.NoError(t, err)
	require.Empty(t, ops)
	require.Equal(t, lastSeq, opSeq)
	require.False(t, hasMore)
}

// TestChangesetPartial mirrors scenario S5.
func TestChangesetPartial(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	cs := &types.Changeset{
		ID:     "cs1",
		RoomID: "RM000001",
		Status: types.ChangesetPending,
		Changes: []*types.Change{
			{ID: "c1", PathHash: "g1", FilePathEncrypted: "G1", NewContentEncrypted: "NEW1", Status: types.ChangePending},
			{ID: "c2", PathHash: "g2", FilePathEncrypted: "G2", NewContentEncrypted: "NEW2", Status: types.ChangePending},
		},
		CreatedAt: now,
	}
	require.NoError(t, s.CreateChangeset(cs))

	result, _, err := s.AcceptChange("RM000001", "c1")
	require.NoError(t, err)
	require.Equal(t, types.ChangesetPartial, result.Status)
	require.NotNil(t, result.ResolvedAt)

	var c2 *types.Change
	for _, ch := range result.Changes {
		if ch.ID == "c2" {
			c2 = ch
		}
	}
	require.NotNil(t, c2)
	require.Equal(t, types.ChangePending, c2.Status)

	file, err := s.GetFileByPathHash("RM000001", "g1")
	require.NoError(t, err)
	require.Equal(t, "NEW1", *file.ContentEncrypted)

	_, err = s.GetFileByPathHash("RM000001", "g2")
	require.ErrorIs(t, err, ErrNotFound)
}

// TestOperationConflictSameBaseVersion mirrors the exact two-client race
// from §4.7/S3: both submit base_version equal to the file's current
// version, with no prior op between them. The second must conflict.
func TestOperationConflictSameBaseVersion(t *testing.T) {
	s := newTestStore(t)
	c1 := "C1"
	file, _, err := s.UpsertFile(UpsertFileParams{RoomID: "RM000001", PathHash: "f1", PathEncrypted: "P1", ContentEncrypted: &c1, IsSyncable: true})
	require.NoError(t, err)
	require.Equal(t, int64(1), file.Version)

	_, currentVersion, err := s.SubmitOperation(SubmitOperationParams{
		RoomID: "RM000001", FilePathHash: "f1", ClientID: "A", BaseVersion: 1, OpEncrypted: "opA",
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), currentVersion)

	_, _, err = s.SubmitOperation(SubmitOperationParams{
		RoomID: "RM000001", FilePathHash: "f1", ClientID: "B", BaseVersion: 1, OpEncrypted: "opB",
	})
	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Equal(t, int64(2), conflictErr.CurrentVersion)

	file, err = s.GetFileByPathHash("RM000001", "f1")
	require.NoError(t, err)
	require.Equal(t, int64(2), file.Version, "SubmitOperation must persist the bumped file version")
}

// TestAcceptChangesetStaysPartialAfterMixedSingleActions mirrors the
// maintainer-reported gap: a single-change rejection must not be
// silently overwritten by a later whole-changeset accept.
func TestAcceptChangesetStaysPartialAfterMixedSingleActions(t *testing.T) {
	s := newTestStore(t)
	cs := &types.Changeset{
		ID:     "cs2",
		RoomID: "RM000001",
		Status: types.ChangesetPending,
		Changes: []*types.Change{
			{ID: "c3", PathHash: "h1", FilePathEncrypted: "H1", NewContentEncrypted: "NEW1", Status: types.ChangePending},
			{ID: "c4", PathHash: "h2", FilePathEncrypted: "H2", NewContentEncrypted: "NEW2", Status: types.ChangePending},
		},
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.CreateChangeset(cs))

	_, err := s.RejectChange("RM000001", "c3")
	require.NoError(t, err)

	result, _, err := s.AcceptChangeset("RM000001", "cs2")
	require.NoError(t, err)
	require.Equal(t, types.ChangesetPartial, result.Status, "mixed accept/reject children must never promote to accepted")

	var c3, c4 *types.Change
	for _, ch := range result.Changes {
		switch ch.ID {
		case "c3":
			c3 = ch
		case "c4":
			c4 = ch
		}
	}
	require.Equal(t, types.ChangeRejected, c3.Status)
	require.Equal(t, types.ChangeAccepted, c4.Status)
}

// TestRejectChangesetStaysPartialAfterMixedSingleActions is the mirror
// case: a prior single-change accept must block a whole-changeset
// reject from being stamped rejected.
func TestRejectChangesetStaysPartialAfterMixedSingleActions(t *testing.T) {
	s := newTestStore(t)
	cs := &types.Changeset{
		ID:     "cs3",
		RoomID: "RM000001",
		Status: types.ChangesetPending,
		Changes: []*types.Change{
			{ID: "c5", PathHash: "i1", FilePathEncrypted: "I1", NewContentEncrypted: "NEW1", Status: types.ChangePending},
			{ID: "c6", PathHash: "i2", FilePathEncrypted: "I2", NewContentEncrypted: "NEW2", Status: types.ChangePending},
		},
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.CreateChangeset(cs))

	_, _, err := s.AcceptChange("RM000001", "c5")
	require.NoError(t, err)

	result, err := s.RejectChangeset("RM000001", "cs3")
	require.NoError(t, err)
	require.Equal(t, types.ChangesetPartial, result.Status)
}

func TestReconcileSyncTombstonesAbsentFiles(t *testing.T) {
	s := newTestStore(t)
	for _, ph := range []string{"x", "y", "z"} {
		_, _, err := s.UpsertFile(UpsertFileParams{RoomID: "RM000001", PathHash: ph, PathEncrypted: ph, IsSyncable: false, SizeBytes: 1})
		require.NoError(t, err)
	}

	roomVersion, deleted, err := s.ReconcileSync("RM000001", map[string]struct{}{"x": {}, "y": {}})
	require.NoError(t, err)
	require.Equal(t, []string{"z"}, deleted)
	require.Equal(t, int64(4), roomVersion) // 3 upserts + 1 reconcile bump

	_, err = s.GetFileByPathHash("RM000001", "z")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReconcileSyncNoOpWhenNothingStale(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.UpsertFile(UpsertFileParams{RoomID: "RM000001", PathHash: "x", PathEncrypted: "x", IsSyncable: false, SizeBytes: 1})
	require.NoError(t, err)

	roomVersion, deleted, err := s.ReconcileSync("RM000001", map[string]struct{}{"x": {}})
	require.NoError(t, err)
	require.Empty(t, deleted)
	require.Equal(t, int64(1), roomVersion) // unchanged: no reconcile bump
}

func TestPruneTombstonesRespectsHorizon(t *testing.T) {
	s := newTestStore(t)
	for _, ph := range []string{"a", "b", "c"} {
		_, _, err := s.UpsertFile(UpsertFileParams{RoomID: "RM000001", PathHash: ph, PathEncrypted: ph, IsSyncable: false, SizeBytes: 1})
		require.NoError(t, err)
	}
	files, _, err := s.ListFilesSince("RM000001", 0, 1000, 0)
	require.NoError(t, err)
	for _, f := range files {
		_, _, err := s.DeleteFile("RM000001", f.ID)
		require.NoError(t, err)
	}

	room, err := s.GetRoom("RM000001")
	require.NoError(t, err)

	pruned, err := s.PruneTombstones("RM000001", room.Version)
	require.NoError(t, err)
	require.Equal(t, 3, pruned)

	remaining, err := s.ListTombstonesSince("RM000001", 0)
	require.NoError(t, err)
	require.Empty(t, remaining)
}
