package manager

import (
	"fmt"
	"os"
	"time"

	"github.com/cuemby/livepaste/pkg/log"
	"github.com/cuemby/livepaste/pkg/storage"
	syncsess "github.com/cuemby/livepaste/pkg/sync"
)

// retentionSweepInterval is how often the background retention sweep
// runs, fixed per §4.2.
const retentionSweepInterval = 60 * time.Minute

// Manager owns the room store, the chunked-sync session registry and
// the background retention sweep. It has no notion of cluster
// membership or leadership: every server process manages its own data
// directory and its own sessions.
type Manager struct {
	dataDir          string
	store            storage.Store
	sessions         *syncsess.Registry
	retentionHours   int
	tombstoneHorizon int64
	stopCh           chan struct{}
}

// Config holds configuration for creating a Manager.
type Config struct {
	DataDir string

	// RetentionHours clamps to [1, 120]; rooms whose updated_at is
	// older than this are deleted by the sweep (§4.2).
	RetentionHours int

	// TombstoneHorizon is the number of room-version increments a
	// tombstone survives before the sweep prunes it. Fixed at 100 per
	// the design, but kept configurable.
	TombstoneHorizon int64
}

// NewManager wires a BoltDB-backed room store and the sync session
// registry together.
func NewManager(cfg Config) (*Manager, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	retentionHours := cfg.RetentionHours
	if retentionHours < 1 {
		retentionHours = 1
	}
	if retentionHours > 120 {
		retentionHours = 120
	}

	horizon := cfg.TombstoneHorizon
	if horizon <= 0 {
		horizon = 100
	}

	sessions := syncsess.NewRegistry()

	return &Manager{
		dataDir:          cfg.DataDir,
		store:            store,
		sessions:         sessions,
		retentionHours:   retentionHours,
		tombstoneHorizon: horizon,
		stopCh:           make(chan struct{}),
	}, nil
}

// Start begins the sync-session registry's background sweep and the
// room retention sweep.
func (m *Manager) Start() {
	m.sessions.Start()
	go m.runRetentionSweep()
}

// Stop halts both background loops and closes the store.
func (m *Manager) Stop() error {
	m.sessions.Stop()
	close(m.stopCh)
	return m.store.Close()
}

// Store exposes the underlying Store for components (metrics collector,
// health checks) that need direct read access.
func (m *Manager) Store() storage.Store {
	return m.store
}

// Sessions exposes the sync session registry for metrics collection.
func (m *Manager) Sessions() *syncsess.Registry {
	return m.sessions
}

func (m *Manager) runRetentionSweep() {
	ticker := time.NewTicker(retentionSweepInterval)
	defer ticker.Stop()

	logger := log.WithComponent("retention-sweep")
	logger.Info().Int("retention_hours", m.retentionHours).Msg("retention sweep started")

	for {
		select {
		case <-ticker.C:
			if err := m.sweepRetention(); err != nil {
				logger.Error().Err(err).Msg("retention sweep cycle failed")
			}
		case <-m.stopCh:
			logger.Info().Msg("retention sweep stopped")
			return
		}
	}
}
