package manager

import (
	"github.com/cuemby/livepaste/pkg/metrics"
	"github.com/cuemby/livepaste/pkg/storage"
	"github.com/cuemby/livepaste/pkg/types"
)

// UpsertFileInput carries the body of a file upsert request.
type UpsertFileInput struct {
	PathHash         string
	PathEncrypted    string
	ContentEncrypted *string
	IsSyncable       bool
	SizeBytes        int64
}

// UpsertFile inserts or updates a file keyed by (room, path_hash),
// bumping the file's version on conflict and the room's version
// unconditionally (§4.4, §9: the design always bumps on upsert even for
// byte-identical payloads; this implementation preserves that simpler
// behavior, which testable property 4 does not forbid).
func (m *Manager) UpsertFile(roomID string, in UpsertFileInput) (*types.File, int64, error) {
	file, version, err := m.store.UpsertFile(storage.UpsertFileParams{
		RoomID:           roomID,
		PathHash:         in.PathHash,
		PathEncrypted:    in.PathEncrypted,
		ContentEncrypted: in.ContentEncrypted,
		IsSyncable:       in.IsSyncable,
		SizeBytes:        in.SizeBytes,
	})
	if err == nil {
		metrics.FileUpsertsTotal.Inc()
	}
	return file, version, err
}

// DeleteFile removes a file by its opaque ID within a room, writing a
// tombstone stamped with the new room version. Returns storage.ErrNotFound
// if the file ID is unknown in that room.
func (m *Manager) DeleteFile(roomID, fileID string) (int64, error) {
	version, _, err := m.store.DeleteFile(roomID, fileID)
	if err == nil {
		metrics.FileDeletesTotal.Inc()
	}
	return version, err
}
