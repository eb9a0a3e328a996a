// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueriesTotal counts answered questions by execution path, template and error code ("" on success).
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_router_queries_total",
			Help: "Total number of questions answered",
		},
		[]string{"path", "template", "error_code"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "query_router_query_duration_seconds",
			Help:    "End to end question latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"path"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "query_router_stage_duration_seconds",
			Help:    "Duration of a single pipeline stage in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		},
		[]string{"stage"},
	)

	FallbackCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_router_fallback_calls_total",
			Help: "Calls to the generative query service",
		},
		[]string{"status"},
	)

	NormalizerRecognizer = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_router_normalizer_recognizer_total",
			Help: "Which recognizer accepted the generator output",
		},
		[]string{"recognizer"},
	)

	SnapshotRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_router_snapshot_refreshes_total",
			Help: "Identifier index and calendar snapshot refreshes",
		},
		[]string{"snapshot", "status"},
	)

	InflightQueries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "query_router_inflight_queries",
			Help: "Number of questions currently being processed",
		},
	)
)
