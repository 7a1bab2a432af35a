// Package metrics defines the Prometheus instrumentation shared across the
// application. Collectors are registered on the default registry via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncRunsTotal counts sheet sync cycles by outcome ("succeeded", "failed", "skipped").
	SyncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dhanarjan_sync_runs_total",
		Help: "Sheet sync cycles by outcome.",
	}, []string{"status"})

	// SyncDuration observes the wall time of sheet sync cycles.
	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dhanarjan_sync_duration_seconds",
		Help:    "Duration of sheet sync cycles.",
		Buckets: prometheus.DefBuckets,
	})

	// SheetRows reports the row counts of the last successful snapshot per block.
	SheetRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dhanarjan_sheet_rows",
		Help: "Rows parsed from the last successful sheet snapshot, by block.",
	}, []string{"block"})

	// HTTPRequestsTotal counts API requests by method, path, and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dhanarjan_http_requests_total",
		Help: "HTTP requests served, by method, path, and status.",
	}, []string{"method", "path", "status"})
)
