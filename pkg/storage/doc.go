/*
Package storage persists rooms, files, operations, tombstones and
changesets in an embedded bbolt database.

The design this package implements describes a relational schema with
row-level locks and ON CONFLICT upserts. bbolt has neither rows nor SQL,
but its single-writer-transaction model gives the same serialization
guarantee by construction: only one db.Update can be in flight at a
time, so the row lock on the room tuple the design calls for falls out
of doing every multi-step mutation inside one transaction.

# Bucket layout

	rooms          roomID                    -> Room (JSON)
	files          fileID                    -> File (JSON)
	files_by_path  roomID\x00pathHash        -> fileID
	operations     roomID\x00seq(8B BE)      -> Operation (JSON)
	tombstones     roomID\x00version\x00hash -> DeletedFile (JSON)
	changesets     changesetID               -> Changeset (JSON, children embedded)
	change_index   changeID                  -> changesetID

files_by_path and change_index are secondary indexes: a file lookup by
path hash or a change lookup by its own ID doesn't require scanning
every row in the room.

Every method that advances version or op_seq does so inside the same
db.Update as the data write it accompanies.
*/
package storage
