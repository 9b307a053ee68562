package types

import "time"

// Room is the shared container keyed by an 8-character alphanumeric ID. It
// is the top-level concurrency and authorization boundary: every mutation
// that touches a room's files, operations or changesets bumps Version in
// the same transaction as the data change.
type Room struct {
	ID           string    `json:"id"`
	Version      int64     `json:"version"`
	OpSeq        int64     `json:"op_seq"`
	PasswordHash string    `json:"-"` // output of the slow hash function; empty means no password
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasPassword reports whether the room currently requires a password.
func (r *Room) HasPassword() bool {
	return r.PasswordHash != ""
}

// File belongs to exactly one room and is externally keyed by
// (RoomID, PathHash). ContentEncrypted is nil for non-syncable files
// (binary blobs the client displays but never edits through the
// operation log).
type File struct {
	ID               string    `json:"id"`
	RoomID           string    `json:"-"`
	PathHash         string    `json:"path_hash"`
	PathEncrypted    string    `json:"path_encrypted"`
	ContentEncrypted *string   `json:"content_encrypted,omitempty"`
	IsSyncable       bool      `json:"is_syncable"`
	SizeBytes        int64     `json:"size_bytes"`
	Version          int64     `json:"version"`
	SnapshotSeq      int64     `json:"snapshot_seq"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Operation is an opaque encrypted edit delta. The server never
// interprets OpEncrypted; it only sequences and stores it.
type Operation struct {
	ID           string    `json:"id"`
	RoomID       string    `json:"-"`
	FilePathHash string    `json:"file_path_hash"`
	Seq          int64     `json:"seq"`
	ClientID     string    `json:"client_id"`
	BaseVersion  int64     `json:"base_version"`
	OpEncrypted  string    `json:"op_encrypted"`
	CreatedAt    time.Time `json:"created_at"`
}

// DeletedFile is a tombstone written whenever a file is removed, so that
// delta-sync clients can learn about removals without re-fetching
// everything.
type DeletedFile struct {
	RoomID           string    `json:"-"`
	PathHash         string    `json:"path_hash"`
	DeletedAtVersion int64     `json:"deleted_at_version"`
	DeletedAt        time.Time `json:"deleted_at"`
}

// ChangesetStatus is the tagged status of a changeset. It is persisted as
// a short text field but modeled here as an explicit enumerated type
// rather than a free-form string.
type ChangesetStatus string

const (
	ChangesetPending  ChangesetStatus = "pending"
	ChangesetAccepted ChangesetStatus = "accepted"
	ChangesetRejected ChangesetStatus = "rejected"
	ChangesetPartial  ChangesetStatus = "partial"
)

// ChangeStatus is the tagged status of a single change within a
// changeset.
type ChangeStatus string

const (
	ChangePending  ChangeStatus = "pending"
	ChangeAccepted ChangeStatus = "accepted"
	ChangeRejected ChangeStatus = "rejected"
)

// Changeset is a named, proposed set of file replacements awaiting
// review (by a human collaborator or an AI agent).
type Changeset struct {
	ID               string          `json:"id"`
	RoomID           string          `json:"-"`
	AuthorEncrypted  string          `json:"author_encrypted"`
	MessageEncrypted string          `json:"message_encrypted"`
	Status           ChangesetStatus `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	ResolvedAt       *time.Time      `json:"resolved_at,omitempty"`
	Changes          []*Change       `json:"changes"`
}

// Change is one proposed file replacement inside a Changeset. PathHash
// identifies the target file the same way every other write path does
// (the server never parses file_path_encrypted); the client supplies it
// alongside the encrypted path at changeset-creation time.
type Change struct {
	ID                  string      `json:"id"`
	ChangesetID         string      `json:"changeset_id"`
	PathHash            string      `json:"path_hash"`
	FilePathEncrypted   string      `json:"file_path_encrypted"`
	OldContentEncrypted string      `json:"old_content_encrypted"`
	NewContentEncrypted string      `json:"new_content_encrypted"`
	DiffEncrypted       string      `json:"diff_encrypted"`
	Status              ChangeStatus `json:"status"`
	ResolvedAt          *time.Time  `json:"resolved_at,omitempty"`
}

// SyncSession is process-local, ephemeral bookkeeping for a chunked
// bulk-upload. It never touches the durable store directly; the manager
// applies each chunk's files through the same path as a single-file
// upsert.
type SyncSession struct {
	Token          string
	RoomID         string
	ClientID       string
	TotalChunks    int
	TotalFiles     int
	ReceivedChunks int
	PathHashes     map[string]struct{}
	StartedAt      time.Time
	LastSeenAt     time.Time
}
