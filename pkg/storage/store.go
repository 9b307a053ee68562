package storage

import (
	"errors"
	"time"

	"github.com/cuemby/livepaste/pkg/types"
)

// ErrNotFound is returned when a lookup by ID, path hash or room ID finds
// nothing. Callers translate it to HTTP 404.
var ErrNotFound = errors.New("not found")

// UpsertFileParams carries the inputs of a file upsert (component D and,
// indirectly, the chunked-sync and changeset-acceptance paths which
// upsert through the same method).
type UpsertFileParams struct {
	RoomID           string
	PathHash         string
	PathEncrypted    string
	ContentEncrypted *string
	IsSyncable       bool
	SizeBytes        int64
}

// SubmitOperationParams carries the inputs of an operation-log submission.
type SubmitOperationParams struct {
	RoomID       string
	FilePathHash string
	ClientID     string
	BaseVersion  int64
	OpEncrypted  string
}

// ConflictError is returned by SubmitOperation when a concurrent writer
// has advanced the file past the client's BaseVersion. It carries enough
// information for the client to rebase.
type ConflictError struct {
	CurrentVersion int64
	BaseVersion    int64
	ConflictingOps []*types.Operation
}

func (e *ConflictError) Error() string {
	return "operation conflict: base_version behind current_version"
}

// Store defines the persistence interface for the room store. A single
// implementation (BoltStore) backs it; every method that advances durable
// state executes as one bbolt transaction, which serializes writers the
// way the relational design calls for row-level locks.
type Store interface {
	// Rooms (component B)
	EnsureRoom(roomID string) (room *types.Room, created bool, err error)
	GetRoom(roomID string) (*types.Room, error)
	SetRoomPassword(roomID, passwordHash string) error
	DeleteRoom(roomID string) error
	ListRoomsOlderThan(cutoff time.Time) ([]string, error)
	ListAllRoomIDs() ([]string, error)
	CountRooms() (int, error)
	CountFiles() (int, error)
	CountPendingChangesets() (int, error)

	// Files (component D)
	UpsertFile(params UpsertFileParams) (file *types.File, roomVersion int64, err error)
	DeleteFile(roomID, fileID string) (roomVersion int64, pathHash string, err error)
	GetFileByPathHash(roomID, pathHash string) (*types.File, error)

	// Delta read (component E)
	ListFilesSince(roomID string, sinceVersion int64, limit, offset int) (files []*types.File, hasMore bool, err error)
	ListTombstonesSince(roomID string, sinceVersion int64) ([]*types.DeletedFile, error)

	// Chunked sync (component F)
	ListPathHashes(roomID string) (map[string]string, error) // path_hash -> file ID
	ReconcileSync(roomID string, observed map[string]struct{}) (roomVersion int64, deleted []string, err error)

	// Operation log (component G)
	SubmitOperation(params SubmitOperationParams) (op *types.Operation, currentVersion int64, err error)
	ListOperationsSince(roomID string, sinceSeq int64, fileFilter string, limit int) (ops []*types.Operation, opSeq int64, hasMore bool, err error)
	SnapshotFile(roomID, pathHash, contentEncrypted string, throughSeq int64) (*types.File, error)

	// Changesets (component H)
	CreateChangeset(cs *types.Changeset) error
	ListPendingChangesets(roomID string) ([]*types.Changeset, error)
	AcceptChangeset(roomID, changesetID string) (*types.Changeset, int64, error)
	RejectChangeset(roomID, changesetID string) (*types.Changeset, error)
	AcceptChange(roomID, changeID string) (*types.Changeset, int64, error)
	RejectChange(roomID, changeID string) (*types.Changeset, error)

	// Retention sweep (component B)
	PruneTombstones(roomID string, keepAboveVersion int64) (pruned int, err error)

	Close() error
}
