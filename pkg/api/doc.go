/*
Package api implements LivePaste's HTTP/JSON surface: a chi router over
the room, file, sync, operation-log and changeset operations exposed by
pkg/manager.

# Architecture

The API is a thin JSON adapter, not a second copy of the domain logic:

	┌──────────────── Browser client (zero-knowledge) ───────────────┐
	│  encrypts paths and content before every request; the server   │
	│  never sees plaintext.                                         │
	└───────────────────────────┬─────────────────────────────────────┘
	                            │ HTTP/JSON
	┌───────────────────────────▼───────────────────────────────────┐
	│                      pkg/api (this package)                   │
	│  - chi router, one route per manager operation                │
	│  - requireAuth: per-room password gate (X-Room-Password)      │
	│  - instrument: per-route Prometheus counters/histograms       │
	│  - requestLog: zerolog debug-level access log                 │
	└───────────────────────────┬───────────────────────────────────┘
	                            │
	┌───────────────────────────▼───────────────────────────────────┐
	│                         pkg/manager                            │
	│  room lifecycle, delta state, chunked sync, operation log,    │
	│  changesets — all transactional against pkg/storage            │
	└─────────────────────────────────────────────────────────────────┘

# Routes

Every handler decodes its request body (if any), calls exactly one
manager method, and encodes the result. Apart from the /ready
handler, which probes the store with a.manager.Store().CountRooms(),
no handler touches storage.Store directly.

Public (no password gate):
  - GET    /room/{id}                         static client asset
  - GET    /api/room/{id}/info                 {id, has_password}
  - POST   /api/room/{id}/verify-password      digest check

Password-gated when the room has one set:
  - POST   /api/room/{id}/password
  - GET    /api/room/{id}
  - GET    /api/room/{id}/version
  - DELETE /api/room/{id}
  - POST   /api/room/{id}/files
  - DELETE /api/room/{id}/files/{fileId}
  - POST   /api/room/{id}/files/{pathHash}/snapshot
  - POST   /api/room/{id}/sync[/begin|/chunk|/complete]
  - POST   /api/room/{id}/ops, GET /api/room/{id}/ops
  - POST   /api/room/{id}/changesets[...]
  - POST   /api/room/{id}/changes/{chid}/[accept|reject]

Operational:
  - GET /health   liveness
  - GET /ready    storage reachability
  - GET /metrics  Prometheus exposition

# Error taxonomy

400 malformed body or expired sync session, 401 with
{"password_required":true} on a failed or missing password digest, 404
room/file/changeset not found, 409 operation conflict (carries
current_version/base_version/conflicting_ops), 500 otherwise.

# See Also

  - pkg/manager for the operations these routes call into
  - pkg/storage for the BoltDB-backed persistence those operations use
  - pkg/metrics for the counters instrument() records
*/
package api
