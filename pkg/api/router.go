package api

import (
	"net/http"

	"github.com/cuemby/livepaste/pkg/manager"
	"github.com/cuemby/livepaste/pkg/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// API wires the LivePaste HTTP surface onto a Manager. Every handler
// method is a thin adapter: decode request, call into the manager,
// encode response. Apart from readyHandler's CountRooms probe, no handler
// touches storage.Store directly.
type API struct {
	manager *manager.Manager
	router  chi.Router
}

// New builds the full router: the public redirect/asset routes, the
// unauthenticated room-info endpoint, and every password-gated room
// endpoint, plus /health, /ready and /metrics (component C's gate is
// applied selectively, matching §6's table).
func New(mgr *manager.Manager) *API {
	a := &API{manager: mgr}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLog)

	r.Get("/", a.redirectToNewRoom)
	r.Get("/room/{id}", a.serveClientAsset)

	r.Get("/health", a.healthHandler)
	r.Get("/ready", a.readyHandler)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/room/{id}", func(r chi.Router) {
		r.Get("/info", instrument("room_info", a.roomInfo))
		r.Post("/password", instrument("set_password", a.requireAuth(a.setPassword)))
		r.Post("/verify-password", instrument("verify_password", a.verifyPassword))

		r.Get("/", instrument("room_state", a.requireAuth(a.roomState)))
		r.Get("/version", instrument("room_version", a.requireAuth(a.roomVersion)))
		r.Delete("/", instrument("room_delete", a.requireAuth(a.deleteRoom)))

		r.Post("/files", instrument("file_upsert", a.requireAuth(a.upsertFile)))
		r.Delete("/files/{fileId}", instrument("file_delete", a.requireAuth(a.deleteFile)))
		r.Post("/files/{pathHash}/snapshot", instrument("file_snapshot", a.requireAuth(a.snapshotFile)))

		r.Post("/sync", instrument("sync_single_shot", a.requireAuth(a.syncSingleShot)))
		r.Post("/sync/begin", instrument("sync_begin", a.requireAuth(a.syncBegin)))
		r.Post("/sync/chunk", instrument("sync_chunk", a.requireAuth(a.syncChunk)))
		r.Post("/sync/complete", instrument("sync_complete", a.requireAuth(a.syncComplete)))

		r.Post("/ops", instrument("ops_submit", a.requireAuth(a.submitOperation)))
		r.Get("/ops", instrument("ops_fetch", a.requireAuth(a.fetchOperations)))

		r.Post("/changesets", instrument("changeset_create", a.requireAuth(a.createChangeset)))
		r.Post("/changesets/{cid}/accept", instrument("changeset_accept", a.requireAuth(a.acceptChangeset)))
		r.Post("/changesets/{cid}/reject", instrument("changeset_reject", a.requireAuth(a.rejectChangeset)))
		r.Post("/changes/{chid}/accept", instrument("change_accept", a.requireAuth(a.acceptChange)))
		r.Post("/changes/{chid}/reject", instrument("change_reject", a.requireAuth(a.rejectChange)))
	})

	a.router = r
	return a
}

// ServeHTTP satisfies http.Handler so an *API can be passed straight to
// http.Server.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}
