/*
Package manager implements LivePaste's coordination engine: rooms, the
delta-sync read path, the chunked-upload session protocol, the
operation log with optimistic-concurrency conflict detection, and the
changeset review workflow. It is the thin layer between pkg/api's HTTP
handlers and pkg/storage's BoltDB-backed persistence.

# Architecture

Every server process owns its own data directory and its own in-memory
sync-session registry; there is no cluster membership or leader
election here, unlike a replicated control plane. Each request is
independent; correctness rests on the store's per-room transaction
boundary, not on a process-level lock.

	┌────────────────────────── pkg/api ─────────────────────────────┐
	│  decodes JSON, calls exactly one Manager method, encodes JSON  │
	└───────────────────────────┬─────────────────────────────────────┘
	                            │
	┌───────────────────────────▼───────────────────────────────────┐
	│                          Manager                               │
	│  - room lifecycle (EnsureRoom, Info, SetPassword, DeleteRoom) │
	│  - delta state (State, Version)                                │
	│  - file upsert/delete (UpsertFile, DeleteFile)                 │
	│  - chunked sync (BeginSync, ApplyChunk, CompleteSync,          │
	│    SyncSingleShot) backed by pkg/sync's session registry       │
	│  - operation log (SubmitOperation, FetchOperations,            │
	│    SnapshotFile)                                                │
	│  - changesets (CreateChangeset, Accept/RejectChangeset,        │
	│    Accept/RejectChange)                                         │
	│  - background retention sweep (sweepRetention)                 │
	└───────────────────────────┬───────────────────────────────────┘
	                            │
	┌───────────────────────────▼───────────────────────────────────┐
	│                     pkg/storage (BoltStore)                     │
	│  one bbolt transaction per mutating call; every transaction    │
	│  that advances durable state bumps the owning room's version   │
	│  in the same transaction as the data change                   │
	└─────────────────────────────────────────────────────────────────┘

# Background loops

Two independent goroutines run for the lifetime of a Manager, started
by Start and stopped by Stop:

  - the sync-session registry's own 60-second expiry sweep (pkg/sync),
    dropping sessions idle for more than 5 minutes;
  - the retention sweep, every 60 minutes, deleting rooms whose
    updated_at has aged past RetentionHours and pruning tombstones
    older than the configured horizon on every surviving room.

MetricsCollector (metrics_collector.go) runs as a third, separate
ticker that polls room/file/pending-changeset counts and the live
session count into the process's Prometheus gauges; it is started and
stopped independently of the Manager by the command that wires them
together.

# Conflict detection

SubmitOperation is the one place optimistic concurrency is enforced: a
client's base_version is checked against the file's current version,
and a conflicting write from another client_id aborts the whole
submission with a *storage.ConflictError carrying enough context for
the caller to rebase. The manager never attempts operational
transformation; see pkg/storage's SubmitOperation for the bbolt-level
serialization this depends on.

# See Also

  - pkg/api for the HTTP handlers that call into this package
  - pkg/storage for the persistence this package transacts against
  - pkg/sync for the chunked-upload session registry
  - pkg/metrics for the counters this package and its collector record
*/
package manager
