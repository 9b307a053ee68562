package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Room/file inventory metrics
	RoomsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "livepaste_rooms_total",
			Help: "Total number of rooms currently stored",
		},
	)

	FilesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "livepaste_files_total",
			Help: "Total number of files currently stored across all rooms",
		},
	)

	PendingChangesetsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "livepaste_pending_changesets_total",
			Help: "Total number of changesets awaiting review across all rooms",
		},
	)

	SyncSessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "livepaste_sync_sessions_active",
			Help: "Number of chunked sync sessions currently open",
		},
	)

	// HTTP API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livepaste_api_requests_total",
			Help: "Total number of API requests by route and status",
		},
		[]string{"route", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "livepaste_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// File and operation metrics
	FileUpsertsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "livepaste_file_upserts_total",
			Help: "Total number of file upserts across all rooms",
		},
	)

	FileDeletesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "livepaste_file_deletes_total",
			Help: "Total number of file deletes across all rooms",
		},
	)

	OperationsSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "livepaste_operations_submitted_total",
			Help: "Total number of CRDT/OT operations accepted into the log",
		},
	)

	OperationConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "livepaste_operation_conflicts_total",
			Help: "Total number of operation submissions rejected with a version conflict",
		},
	)

	SnapshotsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "livepaste_snapshots_total",
			Help: "Total number of file snapshots that compacted the operation log",
		},
	)

	// Sync metrics
	SyncSessionsStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "livepaste_sync_sessions_started_total",
			Help: "Total number of chunked sync sessions started",
		},
	)

	SyncSessionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "livepaste_sync_sessions_expired_total",
			Help: "Total number of chunked sync sessions reaped for inactivity",
		},
	)

	SyncReconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "livepaste_sync_reconcile_duration_seconds",
			Help:    "Time taken to reconcile a room's files at sync completion",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Changeset metrics
	ChangesetsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "livepaste_changesets_created_total",
			Help: "Total number of changesets proposed",
		},
	)

	ChangesetsResolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livepaste_changesets_resolved_total",
			Help: "Total number of changesets resolved by outcome",
		},
		[]string{"status"},
	)

	// Retention sweep metrics (pkg/manager's 60-minute reaper)
	RetentionSweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "livepaste_retention_sweep_duration_seconds",
			Help:    "Time taken for a room-retention sweep cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RetentionSweepCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "livepaste_retention_sweep_cycles_total",
			Help: "Total number of room-retention sweep cycles completed",
		},
	)

	RoomsReapedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "livepaste_rooms_reaped_total",
			Help: "Total number of rooms deleted for exceeding the inactivity retention window",
		},
	)

	TombstonesPrunedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "livepaste_tombstones_pruned_total",
			Help: "Total number of delete-tombstones pruned past the tombstone horizon",
		},
	)
)

func init() {
	prometheus.MustRegister(RoomsTotal)
	prometheus.MustRegister(FilesTotal)
	prometheus.MustRegister(PendingChangesetsTotal)
	prometheus.MustRegister(SyncSessionsActive)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)

	prometheus.MustRegister(FileUpsertsTotal)
	prometheus.MustRegister(FileDeletesTotal)
	prometheus.MustRegister(OperationsSubmittedTotal)
	prometheus.MustRegister(OperationConflictsTotal)
	prometheus.MustRegister(SnapshotsTotal)

	prometheus.MustRegister(SyncSessionsStartedTotal)
	prometheus.MustRegister(SyncSessionsExpiredTotal)
	prometheus.MustRegister(SyncReconcileDuration)

	prometheus.MustRegister(ChangesetsCreatedTotal)
	prometheus.MustRegister(ChangesetsResolvedTotal)

	prometheus.MustRegister(RetentionSweepDuration)
	prometheus.MustRegister(RetentionSweepCyclesTotal)
	prometheus.MustRegister(RoomsReapedTotal)
	prometheus.MustRegister(TombstonesPrunedTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
