// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the scrape pipeline.
type Metrics struct {
	// Run metrics
	RunsTotal   *prometheus.CounterVec // by outcome
	RunDuration prometheus.Histogram

	// Extraction metrics
	RowsParsed  prometheus.Counter
	RowsSkipped prometheus.Counter

	// Ingestion metrics
	RecordsInserted prometheus.Counter
	RecordsTouched  prometheus.Counter

	// Notification metrics
	NotificationsSent prometheus.Counter

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "nse_flow_watch"
	}

	return &Metrics{
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by outcome",
		}, []string{"outcome"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "End-to-end pipeline run duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
		RowsParsed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "rows_parsed_total",
			Help:      "Total number of table rows parsed",
		}),
		RowsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "rows_skipped_total",
			Help:      "Total number of rows dropped for parity or coercion failures",
		}),
		RecordsInserted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "records_inserted_total",
			Help:      "Total number of newly inserted flow records",
		}),
		RecordsTouched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "records_touched_total",
			Help:      "Total number of already-known records whose updated_at was refreshed",
		}),
		NotificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "notifications_sent_total",
			Help:      "Total number of notifications delivered",
		}),
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "last_successful_run_timestamp_seconds",
			Help:      "Unix timestamp of the last fully successful run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
