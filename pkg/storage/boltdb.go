package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/cuemby/livepaste/pkg/types"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketRooms       = []byte("rooms")
	bucketFiles       = []byte("files")
	bucketFilesByPath = []byte("files_by_path")
	bucketOperations  = []byte("operations")
	bucketTombstones  = []byte("tombstones")
	bucketChangesets  = []byte("changesets")
	bucketChangeIndex = []byte("change_index")
)

// BoltStore implements Store on top of an embedded bbolt database. Every
// mutating method runs inside a single db.Update transaction; bbolt's
// single-writer transaction model is what stands in for the row-level
// locking ("SELECT ... FOR UPDATE") that the design calls for on the
// room tuple.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if necessary) the room store at
// <dataDir>/livepaste.db.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "livepaste.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketRooms,
			bucketFiles,
			bucketFilesByPath,
			bucketOperations,
			bucketTombstones,
			bucketChangesets,
			bucketChangeIndex,
		}
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// --- key encoding helpers ---

func fileIndexKey(roomID, pathHash string) []byte {
	return []byte(roomID + "\x00" + pathHash)
}

func roomPrefix(roomID string) []byte {
	return []byte(roomID + "\x00")
}

func opKey(roomID string, seq int64) []byte {
	prefix := roomPrefix(roomID)
	buf := make([]byte, len(prefix)+8)
	copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[len(prefix):], uint64(seq))
	return buf
}

func tombstoneKey(roomID string, version int64, pathHash string) []byte {
	prefix := roomPrefix(roomID)
	buf := make([]byte, 0, len(prefix)+8+1+len(pathHash))
	buf = append(buf, prefix...)
	var vbuf [8]byte
	binary.BigEndian.PutUint64(vbuf[:], uint64(version))
	buf = append(buf, vbuf[:]...)
	buf = append(buf, 0)
	buf = append(buf, pathHash...)
	return buf
}

// --- rooms (component B) ---

func getRoomTx(b *bolt.Bucket, roomID string) (*types.Room, error) {
	data := b.Get([]byte(roomID))
	if data == nil {
		return nil, ErrNotFound
	}
	var room types.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func putRoomTx(b *bolt.Bucket, room *types.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return b.Put([]byte(room.ID), data)
}

func (s *BoltStore) EnsureRoom(roomID string) (*types.Room, bool, error) {
	var room *types.Room
	var created bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRooms)
		existing, err := getRoomTx(b, roomID)
		if err == nil {
			room = existing
			return nil
		}
		if err != ErrNotFound {
			return err
		}
		now := time.Now()
		room = &types.Room{
			ID:        roomID,
			Version:   0,
			OpSeq:     0,
			CreatedAt: now,
			UpdatedAt: now,
		}
		created = true
		return putRoomTx(b, room)
	})
	return room, created, err
}

func (s *BoltStore) GetRoom(roomID string) (*types.Room, error) {
	var room *types.Room
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		room, err = getRoomTx(tx.Bucket(bucketRooms), roomID)
		return err
	})
	return room, err
}

func (s *BoltStore) SetRoomPassword(roomID, passwordHash string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRooms)
		room, err := getRoomTx(b, roomID)
		if err != nil {
			return err
		}
		room.PasswordHash = passwordHash
		room.Version++
		room.UpdatedAt = time.Now()
		return putRoomTx(b, room)
	})
}

func (s *BoltStore) ListRoomsOlderThan(cutoff time.Time) ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRooms)
		return b.ForEach(func(k, v []byte) error {
			var room types.Room
			if err := json.Unmarshal(v, &room); err != nil {
				return err
			}
			if room.UpdatedAt.Before(cutoff) {
				ids = append(ids, room.ID)
			}
			return nil
		})
	})
	return ids, err
}

func (s *BoltStore) ListAllRoomIDs() ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRooms).ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids, err
}

func (s *BoltStore) CountRooms() (int, error) {
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(bucketRooms).Stats().KeyN
		return nil
	})
	return count, err
}

// CountFiles returns the number of files stored across every room.
func (s *BoltStore) CountFiles() (int, error) {
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(bucketFiles).Stats().KeyN
		return nil
	})
	return count, err
}

// CountPendingChangesets returns the number of changesets still awaiting
// review across every room.
func (s *BoltStore) CountPendingChangesets() (int, error) {
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketChangesets).ForEach(func(_, v []byte) error {
			var cs types.Changeset
			if err := json.Unmarshal(v, &cs); err != nil {
				return err
			}
			if cs.Status == types.ChangesetPending {
				count++
			}
			return nil
		})
	})
	return count, err
}

// DeleteRoom cascades: every file, operation, tombstone and changeset
// belonging to the room is removed in the same transaction.
func (s *BoltStore) DeleteRoom(roomID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		rooms := tx.Bucket(bucketRooms)
		if _, err := getRoomTx(rooms, roomID); err != nil {
			return err
		}

		if err := deletePrefix(tx.Bucket(bucketFilesByPath), roomPrefix(roomID), func(_, v []byte) error {
			return tx.Bucket(bucketFiles).Delete(v)
		}); err != nil {
			return err
		}
		if err := deletePrefix(tx.Bucket(bucketOperations), roomPrefix(roomID), nil); err != nil {
			return err
		}
		if err := deletePrefix(tx.Bucket(bucketTombstones), roomPrefix(roomID), nil); err != nil {
			return err
		}

		changesets := tx.Bucket(bucketChangesets)
		changeIndex := tx.Bucket(bucketChangeIndex)
		var staleChangesets [][]byte
		err := changesets.ForEach(func(k, v []byte) error {
			var cs types.Changeset
			if err := json.Unmarshal(v, &cs); err != nil {
				return err
			}
			if cs.RoomID == roomID {
				staleChangesets = append(staleChangesets, append([]byte(nil), k...))
				for _, ch := range cs.Changes {
					if err := changeIndex.Delete([]byte(ch.ID)); err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range staleChangesets {
			if err := changesets.Delete(k); err != nil {
				return err
			}
		}

		return rooms.Delete([]byte(roomID))
	})
}

// deletePrefix deletes every key with the given prefix from b. If onDelete
// is non-nil it is invoked with (key, value) before deletion, letting the
// caller cascade into a second bucket (e.g. files_by_path -> files).
func deletePrefix(b *bolt.Bucket, prefix []byte, onDelete func(k, v []byte) error) error {
	c := b.Cursor()
	var keys [][]byte
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		if onDelete != nil {
			if err := onDelete(k, v); err != nil {
				return err
			}
		}
		keys = append(keys, append([]byte(nil), k...))
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// bumpRoomVersion increments the room's version, touches updated_at and
// persists it within the caller's transaction. Most mutating methods bump
// through it; ReconcileSync, SubmitOperation and SetRoomPassword apply the
// same increment inline on the room row they already hold.
func bumpRoomVersion(b *bolt.Bucket, roomID string) (*types.Room, error) {
	room, err := getRoomTx(b, roomID)
	if err != nil {
		return nil, err
	}
	room.Version++
	room.UpdatedAt = time.Now()
	if err := putRoomTx(b, room); err != nil {
		return nil, err
	}
	return room, nil
}

// ensureRoomTx lazily creates the room row if it doesn't exist yet, same
// as EnsureRoom but usable from within an already-open transaction.
func ensureRoomTx(b *bolt.Bucket, roomID string) (*types.Room, error) {
	room, err := getRoomTx(b, roomID)
	if err == ErrNotFound {
		now := time.Now()
		room = &types.Room{ID: roomID, CreatedAt: now, UpdatedAt: now}
		if err := putRoomTx(b, room); err != nil {
			return nil, err
		}
		return room, nil
	}
	return room, err
}

// --- files (component D) ---

func getFileTx(tx *bolt.Tx, roomID, pathHash string) (*types.File, error) {
	idxData := tx.Bucket(bucketFilesByPath).Get(fileIndexKey(roomID, pathHash))
	if idxData == nil {
		return nil, ErrNotFound
	}
	data := tx.Bucket(bucketFiles).Get(idxData)
	if data == nil {
		return nil, ErrNotFound
	}
	var f types.File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func putFileTx(tx *bolt.Tx, f *types.File) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	if err := tx.Bucket(bucketFiles).Put([]byte(f.ID), data); err != nil {
		return err
	}
	return tx.Bucket(bucketFilesByPath).Put(fileIndexKey(f.RoomID, f.PathHash), []byte(f.ID))
}

// upsertFileTx performs the insert-or-update-by-(room_id,path_hash) half
// of a file upsert without touching the room version, so callers that
// need to bump the room exactly once per logical write (plain upsert) or
// once per file (changeset acceptance) can compose it with
// bumpRoomVersion themselves.
func upsertFileTx(tx *bolt.Tx, p UpsertFileParams) (*types.File, error) {
	rooms := tx.Bucket(bucketRooms)
	if _, err := ensureRoomTx(rooms, p.RoomID); err != nil {
		return nil, err
	}

	existing, err := getFileTx(tx, p.RoomID, p.PathHash)
	now := time.Now()
	var file *types.File
	switch {
	case err == nil:
		existing.PathEncrypted = p.PathEncrypted
		existing.ContentEncrypted = p.ContentEncrypted
		existing.IsSyncable = p.IsSyncable
		existing.SizeBytes = p.SizeBytes
		existing.Version++
		existing.UpdatedAt = now
		file = existing
	case err == ErrNotFound:
		file = &types.File{
			ID:               uuid.NewString(),
			RoomID:           p.RoomID,
			PathHash:         p.PathHash,
			PathEncrypted:    p.PathEncrypted,
			ContentEncrypted: p.ContentEncrypted,
			IsSyncable:       p.IsSyncable,
			SizeBytes:        p.SizeBytes,
			Version:          1,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
	default:
		return nil, err
	}

	if err := putFileTx(tx, file); err != nil {
		return nil, err
	}
	return file, nil
}

func (s *BoltStore) UpsertFile(p UpsertFileParams) (*types.File, int64, error) {
	var file *types.File
	var roomVersion int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		f, err := upsertFileTx(tx, p)
		if err != nil {
			return err
		}
		file = f

		room, err := bumpRoomVersion(tx.Bucket(bucketRooms), p.RoomID)
		if err != nil {
			return err
		}
		roomVersion = room.Version
		return nil
	})
	return file, roomVersion, err
}

func (s *BoltStore) DeleteFile(roomID, fileID string) (int64, string, error) {
	var roomVersion int64
	var pathHash string
	err := s.db.Update(func(tx *bolt.Tx) error {
		files := tx.Bucket(bucketFiles)
		data := files.Get([]byte(fileID))
		if data == nil {
			return ErrNotFound
		}
		var f types.File
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		if f.RoomID != roomID {
			return ErrNotFound
		}
		pathHash = f.PathHash

		if err := files.Delete([]byte(fileID)); err != nil {
			return err
		}
		if err := tx.Bucket(bucketFilesByPath).Delete(fileIndexKey(roomID, pathHash)); err != nil {
			return err
		}

		room, err := bumpRoomVersion(tx.Bucket(bucketRooms), roomID)
		if err != nil {
			return err
		}
		roomVersion = room.Version

		tomb := types.DeletedFile{RoomID: roomID, PathHash: pathHash, DeletedAtVersion: roomVersion, DeletedAt: time.Now()}
		tData, err := json.Marshal(tomb)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketTombstones).Put(tombstoneKey(roomID, roomVersion, pathHash), tData)
	})
	return roomVersion, pathHash, err
}

func (s *BoltStore) GetFileByPathHash(roomID, pathHash string) (*types.File, error) {
	var file *types.File
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		file, err = getFileTx(tx, roomID, pathHash)
		return err
	})
	return file, err
}

// --- delta read (component E) ---

func (s *BoltStore) ListFilesSince(roomID string, sinceVersion int64, limit, offset int) ([]*types.File, bool, error) {
	var matched []*types.File
	err := s.db.View(func(tx *bolt.Tx) error {
		filesByPath := tx.Bucket(bucketFilesByPath)
		files := tx.Bucket(bucketFiles)
		c := filesByPath.Cursor()
		prefix := roomPrefix(roomID)
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			data := files.Get(v)
			if data == nil {
				continue
			}
			var f types.File
			if err := json.Unmarshal(data, &f); err != nil {
				return err
			}
			if f.Version > sinceVersion {
				matched = append(matched, &f)
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].PathEncrypted < matched[j].PathEncrypted })

	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	page := matched[offset:end]
	hasMore := len(page) == limit
	return page, hasMore, nil
}

func (s *BoltStore) ListTombstonesSince(roomID string, sinceVersion int64) ([]*types.DeletedFile, error) {
	if sinceVersion == 0 {
		return nil, nil
	}
	var out []*types.DeletedFile
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTombstones)
		c := b.Cursor()
		prefix := roomPrefix(roomID)
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var t types.DeletedFile
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}
			if t.DeletedAtVersion > sinceVersion {
				out = append(out, &t)
			}
		}
		return nil
	})
	return out, err
}

// --- chunked sync (component F) ---

func (s *BoltStore) ListPathHashes(roomID string) (map[string]string, error) {
	out := make(map[string]string)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFilesByPath)
		c := b.Cursor()
		prefix := roomPrefix(roomID)
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			pathHash := string(k[len(prefix):])
			out[pathHash] = string(v)
		}
		return nil
	})
	return out, err
}

// ReconcileSync deletes every file in the room whose path hash is absent
// from observed, tombstoning each, and bumps the room version exactly
// once if anything was deleted.
func (s *BoltStore) ReconcileSync(roomID string, observed map[string]struct{}) (int64, []string, error) {
	var roomVersion int64
	var deleted []string
	err := s.db.Update(func(tx *bolt.Tx) error {
		rooms := tx.Bucket(bucketRooms)
		room, err := getRoomTx(rooms, roomID)
		if err != nil {
			return err
		}
		roomVersion = room.Version

		filesByPath := tx.Bucket(bucketFilesByPath)
		files := tx.Bucket(bucketFiles)
		c := filesByPath.Cursor()
		prefix := roomPrefix(roomID)

		type stale struct {
			key, fileID []byte
			pathHash    string
		}
		var staleEntries []stale
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			pathHash := string(k[len(prefix):])
			if _, ok := observed[pathHash]; !ok {
				staleEntries = append(staleEntries, stale{append([]byte(nil), k...), append([]byte(nil), v...), pathHash})
			}
		}
		if len(staleEntries) == 0 {
			return nil
		}

		room.Version++
		room.UpdatedAt = time.Now()
		roomVersion = room.Version
		if err := putRoomTx(rooms, room); err != nil {
			return err
		}

		tombstones := tx.Bucket(bucketTombstones)
		for _, se := range staleEntries {
			if err := files.Delete(se.fileID); err != nil {
				return err
			}
			if err := filesByPath.Delete(se.key); err != nil {
				return err
			}
			tomb := types.DeletedFile{RoomID: roomID, PathHash: se.pathHash, DeletedAtVersion: roomVersion, DeletedAt: time.Now()}
			tData, err := json.Marshal(tomb)
			if err != nil {
				return err
			}
			if err := tombstones.Put(tombstoneKey(roomID, roomVersion, se.pathHash), tData); err != nil {
				return err
			}
			deleted = append(deleted, se.pathHash)
		}
		return nil
	})
	return roomVersion, deleted, err
}

// --- operation log (component G) ---

func (s *BoltStore) SubmitOperation(p SubmitOperationParams) (*types.Operation, int64, error) {
	var op *types.Operation
	var currentFileVersion int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		rooms := tx.Bucket(bucketRooms)
		if _, err := ensureRoomTx(rooms, p.RoomID); err != nil {
			return err
		}

		file, err := getFileTx(tx, p.RoomID, p.FilePathHash)
		var vFile, snapshotSeq int64
		if err == nil {
			vFile = file.Version
			snapshotSeq = file.SnapshotSeq
		} else if err != ErrNotFound {
			return err
		}
		currentFileVersion = vFile

		if p.BaseVersion > 0 || vFile > 0 {
			conflicting, err := listOpsAfterTx(tx, p.RoomID, snapshotSeq, p.FilePathHash, p.ClientID)
			if err != nil {
				return err
			}
			if len(conflicting) > 0 && p.BaseVersion < vFile {
				return &ConflictError{CurrentVersion: vFile, BaseVersion: p.BaseVersion, ConflictingOps: conflicting}
			}
		}

		room, err := getRoomTx(rooms, p.RoomID)
		if err != nil {
			return err
		}
		room.OpSeq++
		room.Version++
		room.UpdatedAt = time.Now()
		if err := putRoomTx(rooms, room); err != nil {
			return err
		}

		op = &types.Operation{
			ID:           uuid.NewString(),
			RoomID:       p.RoomID,
			FilePathHash: p.FilePathHash,
			Seq:          room.OpSeq,
			ClientID:     p.ClientID,
			BaseVersion:  p.BaseVersion,
			OpEncrypted:  p.OpEncrypted,
			CreatedAt:    time.Now(),
		}
		data, err := json.Marshal(op)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketOperations).Put(opKey(p.RoomID, op.Seq), data); err != nil {
			return err
		}

		currentFileVersion = vFile + 1
		if file != nil {
			file.Version = currentFileVersion
			file.UpdatedAt = time.Now()
			if err := putFileTx(tx, file); err != nil {
				return err
			}
		}
		return nil
	})
	return op, currentFileVersion, err
}

// listOpsAfterTx collects operations on fileHash with seq > afterSeq
// submitted by a client other than excludeClientID.
func listOpsAfterTx(tx *bolt.Tx, roomID string, afterSeq int64, fileHash, excludeClientID string) ([]*types.Operation, error) {
	var out []*types.Operation
	b := tx.Bucket(bucketOperations)
	c := b.Cursor()
	prefix := roomPrefix(roomID)
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		var op types.Operation
		if err := json.Unmarshal(v, &op); err != nil {
			return nil, err
		}
		if op.Seq <= afterSeq {
			continue
		}
		if op.FilePathHash != fileHash {
			continue
		}
		if op.ClientID == excludeClientID {
			continue
		}
		out = append(out, &op)
	}
	return out, nil
}

func (s *BoltStore) ListOperationsSince(roomID string, sinceSeq int64, fileFilter string, limit int) ([]*types.Operation, int64, bool, error) {
	var out []*types.Operation
	var opSeq int64
	err := s.db.View(func(tx *bolt.Tx) error {
		room, err := getRoomTx(tx.Bucket(bucketRooms), roomID)
		if err != nil {
			return err
		}
		opSeq = room.OpSeq

		b := tx.Bucket(bucketOperations)
		c := b.Cursor()
		prefix := roomPrefix(roomID)
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var op types.Operation
			if err := json.Unmarshal(v, &op); err != nil {
				return err
			}
			if op.Seq <= sinceSeq {
				continue
			}
			if fileFilter != "" && op.FilePathHash != fileFilter {
				continue
			}
			out = append(out, &op)
		}
		return nil
	})
	if err != nil {
		return nil, 0, false, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	hasMore := false
	if len(out) > limit {
		out = out[:limit]
		hasMore = true
	}
	return out, opSeq, hasMore, nil
}

func (s *BoltStore) SnapshotFile(roomID, pathHash, contentEncrypted string, throughSeq int64) (*types.File, error) {
	var file *types.File
	err := s.db.Update(func(tx *bolt.Tx) error {
		f, err := getFileTx(tx, roomID, pathHash)
		if err != nil {
			return err
		}
		content := contentEncrypted
		f.ContentEncrypted = &content
		f.SnapshotSeq = throughSeq
		f.Version++
		f.UpdatedAt = time.Now()
		if err := putFileTx(tx, f); err != nil {
			return err
		}
		file = f

		if _, err := bumpRoomVersion(tx.Bucket(bucketRooms), roomID); err != nil {
			return err
		}

		ops := tx.Bucket(bucketOperations)
		c := ops.Cursor()
		prefix := roomPrefix(roomID)
		var toDelete [][]byte
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var op types.Operation
			if err := json.Unmarshal(v, &op); err != nil {
				return err
			}
			if op.FilePathHash == pathHash && op.Seq <= throughSeq {
				toDelete = append(toDelete, append([]byte(nil), k...))
			}
		}
		for _, k := range toDelete {
			if err := ops.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	return file, err
}

// --- changesets (component H) ---

func getChangesetTx(b *bolt.Bucket, id string) (*types.Changeset, error) {
	data := b.Get([]byte(id))
	if data == nil {
		return nil, ErrNotFound
	}
	var cs types.Changeset
	if err := json.Unmarshal(data, &cs); err != nil {
		return nil, err
	}
	return &cs, nil
}

func putChangesetTx(b *bolt.Bucket, cs *types.Changeset) error {
	data, err := json.Marshal(cs)
	if err != nil {
		return err
	}
	return b.Put([]byte(cs.ID), data)
}

func (s *BoltStore) CreateChangeset(cs *types.Changeset) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		rooms := tx.Bucket(bucketRooms)
		if _, err := ensureRoomTx(rooms, cs.RoomID); err != nil {
			return err
		}
		if _, err := bumpRoomVersion(rooms, cs.RoomID); err != nil {
			return err
		}
		if err := putChangesetTx(tx.Bucket(bucketChangesets), cs); err != nil {
			return err
		}
		changeIndex := tx.Bucket(bucketChangeIndex)
		for _, ch := range cs.Changes {
			if err := changeIndex.Put([]byte(ch.ID), []byte(cs.ID)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) ListPendingChangesets(roomID string) ([]*types.Changeset, error) {
	var out []*types.Changeset
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketChangesets).ForEach(func(k, v []byte) error {
			var cs types.Changeset
			if err := json.Unmarshal(v, &cs); err != nil {
				return err
			}
			if cs.RoomID == roomID && cs.Status == types.ChangesetPending {
				out = append(out, &cs)
			}
			return nil
		})
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

// AcceptChangeset upserts every still-pending child's target file
// (advancing the file and room version through the same path as §4.4),
// marks each pending child accepted, and marks the changeset accepted —
// unless a prior single-change action already rejected a sibling, in
// which case the changeset stays partial rather than accepted.
func (s *BoltStore) AcceptChangeset(roomID, changesetID string) (*types.Changeset, int64, error) {
	var result *types.Changeset
	var roomVersion int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		changesets := tx.Bucket(bucketChangesets)
		cs, err := getChangesetTx(changesets, changesetID)
		if err != nil {
			return err
		}
		if cs.RoomID != roomID {
			return ErrNotFound
		}

		rooms := tx.Bucket(bucketRooms)
		now := time.Now()
		var roomAfter *types.Room
		for _, ch := range cs.Changes {
			if ch.Status != types.ChangePending {
				continue
			}
			content := ch.NewContentEncrypted
			if _, err := upsertFileTx(tx, UpsertFileParams{
				RoomID:           roomID,
				PathHash:         ch.PathHash,
				PathEncrypted:    ch.FilePathEncrypted,
				ContentEncrypted: &content,
				IsSyncable:       true,
			}); err != nil {
				return err
			}
			roomAfter, err = bumpRoomVersion(rooms, roomID)
			if err != nil {
				return err
			}
			ch.Status = types.ChangeAccepted
			ch.ResolvedAt = &now
		}
		cs.Status = wholeChangesetStatus(cs, types.ChangesetAccepted)
		cs.ResolvedAt = &now
		if err := putChangesetTx(changesets, cs); err != nil {
			return err
		}

		if roomAfter == nil {
			roomAfter, err = getRoomTx(rooms, roomID)
			if err != nil {
				return err
			}
		}
		roomVersion = roomAfter.Version
		result = cs
		return nil
	})
	return result, roomVersion, err
}

// RejectChangeset marks every still-pending child rejected and marks
// the changeset rejected — unless a prior single-change action already
// accepted a sibling, in which case the changeset stays partial.
func (s *BoltStore) RejectChangeset(roomID, changesetID string) (*types.Changeset, error) {
	var result *types.Changeset
	err := s.db.Update(func(tx *bolt.Tx) error {
		changesets := tx.Bucket(bucketChangesets)
		cs, err := getChangesetTx(changesets, changesetID)
		if err != nil {
			return err
		}
		if cs.RoomID != roomID {
			return ErrNotFound
		}
		now := time.Now()
		for _, ch := range cs.Changes {
			if ch.Status == types.ChangePending {
				ch.Status = types.ChangeRejected
				ch.ResolvedAt = &now
			}
		}
		if _, err := bumpRoomVersion(tx.Bucket(bucketRooms), roomID); err != nil {
			return err
		}
		cs.Status = wholeChangesetStatus(cs, types.ChangesetRejected)
		cs.ResolvedAt = &now
		if err := putChangesetTx(changesets, cs); err != nil {
			return err
		}
		result = cs
		return nil
	})
	return result, err
}

func findChangeTx(tx *bolt.Tx, changeID string) (*types.Changeset, *types.Change, error) {
	changesetID := tx.Bucket(bucketChangeIndex).Get([]byte(changeID))
	if changesetID == nil {
		return nil, nil, ErrNotFound
	}
	cs, err := getChangesetTx(tx.Bucket(bucketChangesets), string(changesetID))
	if err != nil {
		return nil, nil, err
	}
	for _, ch := range cs.Changes {
		if ch.ID == changeID {
			return cs, ch, nil
		}
	}
	return nil, nil, ErrNotFound
}

func (s *BoltStore) AcceptChange(roomID, changeID string) (*types.Changeset, int64, error) {
	var result *types.Changeset
	var roomVersion int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		cs, ch, err := findChangeTx(tx, changeID)
		if err != nil {
			return err
		}
		if cs.RoomID != roomID {
			return ErrNotFound
		}
		if ch.Status != types.ChangePending {
			return ErrNotFound
		}

		content := ch.NewContentEncrypted
		if _, err := upsertFileTx(tx, UpsertFileParams{
			RoomID:           roomID,
			PathHash:         ch.PathHash,
			PathEncrypted:    ch.FilePathEncrypted,
			ContentEncrypted: &content,
			IsSyncable:       true,
		}); err != nil {
			return err
		}
		room, err := bumpRoomVersion(tx.Bucket(bucketRooms), roomID)
		if err != nil {
			return err
		}
		roomVersion = room.Version

		now := time.Now()
		ch.Status = types.ChangeAccepted
		ch.ResolvedAt = &now
		resolveChangesetStatus(cs, &now)
		if err := putChangesetTx(tx.Bucket(bucketChangesets), cs); err != nil {
			return err
		}
		result = cs
		return nil
	})
	return result, roomVersion, err
}

func (s *BoltStore) RejectChange(roomID, changeID string) (*types.Changeset, error) {
	var result *types.Changeset
	err := s.db.Update(func(tx *bolt.Tx) error {
		cs, ch, err := findChangeTx(tx, changeID)
		if err != nil {
			return err
		}
		if cs.RoomID != roomID {
			return ErrNotFound
		}
		if _, err := bumpRoomVersion(tx.Bucket(bucketRooms), roomID); err != nil {
			return err
		}
		now := time.Now()
		ch.Status = types.ChangeRejected
		ch.ResolvedAt = &now
		resolveChangesetStatus(cs, &now)
		if err := putChangesetTx(tx.Bucket(bucketChangesets), cs); err != nil {
			return err
		}
		result = cs
		return nil
	})
	return result, err
}

// wholeChangesetStatus is what a whole-changeset accept/reject settles
// on once every child has been driven to target (or was already
// resolved by a prior single-change action): target itself, unless some
// child already carries the opposite resolution, in which case the
// changeset can never become fully accepted or rejected and stays
// partial instead.
func wholeChangesetStatus(cs *types.Changeset, target types.ChangesetStatus) types.ChangesetStatus {
	opposite := types.ChangeRejected
	if target == types.ChangesetRejected {
		opposite = types.ChangeAccepted
	}
	for _, ch := range cs.Changes {
		if ch.Status == opposite {
			return types.ChangesetPartial
		}
	}
	return target
}

// resolveChangesetStatus derives the parent status after a single child
// transitions: partial once at least one child has resolved and at
// least one remains pending; the changeset is never auto-promoted to
// accepted/rejected by single-change actions (only the whole-changeset
// endpoints do that).
func resolveChangesetStatus(cs *types.Changeset, now *time.Time) {
	pending, resolved := 0, 0
	for _, ch := range cs.Changes {
		if ch.Status == types.ChangePending {
			pending++
		} else {
			resolved++
		}
	}
	if pending == 0 {
		if cs.Status != types.ChangesetAccepted && cs.Status != types.ChangesetRejected {
			cs.Status = types.ChangesetPartial
			cs.ResolvedAt = now
		}
		return
	}
	if resolved > 0 {
		cs.Status = types.ChangesetPartial
		cs.ResolvedAt = now
	}
}

// --- retention sweep (component B) ---

func (s *BoltStore) PruneTombstones(roomID string, keepAboveVersion int64) (int, error) {
	pruned := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTombstones)
		c := b.Cursor()
		prefix := roomPrefix(roomID)
		var stale [][]byte
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var t types.DeletedFile
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}
			if t.DeletedAtVersion < keepAboveVersion {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			pruned++
		}
		return nil
	})
	return pruned, err
}
