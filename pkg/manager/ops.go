package manager

import (
	"github.com/cuemby/livepaste/pkg/metrics"
	"github.com/cuemby/livepaste/pkg/storage"
	"github.com/cuemby/livepaste/pkg/types"
)

// DefaultOpsLimit caps how many operations a single fetch returns (§4.7,
// §5: "operation batches cap at 1000 rows per request").
const DefaultOpsLimit = 1000

// SubmitOperationInput carries the body of an operation submission.
type SubmitOperationInput struct {
	FilePathHash string
	OpEncrypted  string
	ClientID     string
	BaseVersion  int64
}

// SubmitOperationResult is returned on success.
type SubmitOperationResult struct {
	Seq            int64
	CurrentVersion int64
}

// SubmitOperation runs the optimistic-concurrency protocol of §4.7: it
// acquires the room's serialization point (the bbolt transaction),
// checks for conflicting ops from other clients since the file's last
// snapshot, and either aborts with *storage.ConflictError or assigns the
// operation the next op_seq and bumps both room counters.
func (m *Manager) SubmitOperation(roomID string, in SubmitOperationInput) (SubmitOperationResult, *storage.ConflictError, error) {
	op, currentVersion, err := m.store.SubmitOperation(storage.SubmitOperationParams{
		RoomID:       roomID,
		FilePathHash: in.FilePathHash,
		ClientID:     in.ClientID,
		BaseVersion:  in.BaseVersion,
		OpEncrypted:  in.OpEncrypted,
	})
	if conflict, ok := err.(*storage.ConflictError); ok {
		metrics.OperationConflictsTotal.Inc()
		return SubmitOperationResult{}, conflict, nil
	}
	if err != nil {
		return SubmitOperationResult{}, nil, err
	}
	metrics.OperationsSubmittedTotal.Inc()
	return SubmitOperationResult{Seq: op.Seq, CurrentVersion: currentVersion}, nil, nil
}

// OperationsPage is the response shape of GET /ops.
type OperationsPage struct {
	Operations []*types.Operation `json:"operations"`
	OpSeq      int64              `json:"op_seq"`
	HasMore    bool               `json:"has_more"`
}

// FetchOperations answers GET /ops?since=&file= (§4.7).
func (m *Manager) FetchOperations(roomID string, sinceSeq int64, fileFilter string) (OperationsPage, error) {
	ops, opSeq, hasMore, err := m.store.ListOperationsSince(roomID, sinceSeq, fileFilter, DefaultOpsLimit)
	if err != nil {
		return OperationsPage{}, err
	}
	return OperationsPage{Operations: ops, OpSeq: opSeq, HasMore: hasMore}, nil
}

// SnapshotFile compacts the operation log for a file: the client has
// already materialized contentEncrypted from (previous snapshot + ops
// <= throughSeq); the server does not verify that, only stores the
// result and prunes the ops it supersedes (§4.7).
func (m *Manager) SnapshotFile(roomID, pathHash, contentEncrypted string, throughSeq int64) (*types.File, error) {
	file, err := m.store.SnapshotFile(roomID, pathHash, contentEncrypted, throughSeq)
	if err == nil {
		metrics.SnapshotsTotal.Inc()
	}
	return file, err
}
