/*
Package types defines LivePaste's data model: Room, File, Operation,
DeletedFile (tombstone), Changeset and Change, plus the process-local
SyncSession. Every user-origin text field on these types is opaque
ciphertext from the server's point of view; the server never parses
path or content fields, only stores and sequences them.

# Core types

Room is the top-level concurrency and authorization boundary, keyed by
an 8-character alphanumeric ID. Its Version and OpSeq counters are
bumped in the same transaction as any dependent write, which is what
lets a client do incremental delta-sync instead of refetching
everything.

File is keyed within a room by PathHash (a client-computed SHA-256 of
the plaintext path). ContentEncrypted is nil for non-syncable files —
binary blobs the editor displays but never edits through the operation
log.

Operation is one encrypted edit delta with a per-room strictly
increasing Seq, used for optimistic-concurrency conflict detection
(see pkg/manager's SubmitOperation) rather than any server-side
transformation.

DeletedFile is a tombstone: the only record that a path_hash was once
live in a room, stamped with the room version at the moment of
deletion so delta-sync clients can catch up.

Changeset/Change model a proposed multi-file replacement awaiting
review, with an explicit enumerated status (ChangesetStatus,
ChangeStatus) rather than a free-form string, even though the store
persists it as a short text field.

SyncSession is never persisted to the store; it lives only in
pkg/sync's in-memory registry for the lifetime of a chunked upload.

# See Also

  - pkg/storage for how these types are persisted in BoltDB
  - pkg/manager for the operations that create and mutate them
  - pkg/sync for SyncSession's owning registry
*/
package types
