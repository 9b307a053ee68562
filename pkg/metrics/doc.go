/*
Package metrics defines and registers every LivePaste Prometheus metric and
exposes them for scraping over HTTP.

All metrics are registered against the default Prometheus registry in this
package's init(), so importing the package for its side effects is enough to
make a metric visible at /metrics; callers never register anything
themselves.

# Catalog

Gauges (polled into shape by manager.MetricsCollector, see pkg/manager):

  - livepaste_rooms_total
  - livepaste_files_total
  - livepaste_pending_changesets_total
  - livepaste_sync_sessions_active

Counters and histograms (updated inline by the package that performs the
work):

  - livepaste_api_requests_total{route,status}, livepaste_api_request_duration_seconds{route}
    — pkg/api's instrument middleware
  - livepaste_file_upserts_total, livepaste_file_deletes_total,
    livepaste_operations_submitted_total, livepaste_operation_conflicts_total,
    livepaste_snapshots_total — pkg/manager's file and operation-log paths
  - livepaste_sync_sessions_started_total, livepaste_sync_reconcile_duration_seconds
    — pkg/manager's chunked-upload begin and reconciliation paths;
    livepaste_sync_sessions_expired_total — pkg/sync's expiry sweep
  - livepaste_changesets_created_total, livepaste_changesets_resolved_total{status}
    — pkg/manager's changeset review workflow
  - livepaste_retention_sweep_duration_seconds, livepaste_retention_sweep_cycles_total,
    livepaste_rooms_reaped_total, livepaste_tombstones_pruned_total —
    pkg/manager's background retention sweep

# Usage

	timer := metrics.NewTimer()
	// ... do the work ...
	timer.ObserveDuration(metrics.RetentionSweepDuration)

	metrics.FileUpsertsTotal.Inc()

The Handler function wraps promhttp.Handler for mounting at /metrics; see
pkg/api's router.

# See Also

  - pkg/manager's MetricsCollector for the gauge-polling loop
  - pkg/api's instrument middleware for the request counters/histogram
*/
package metrics
