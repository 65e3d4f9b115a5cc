// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ClientsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renewal_clients_processed_total",
			Help: "Total number of client rows retired, by terminal status",
		},
		[]string{"status"},
	)

	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "renewal_step_duration_seconds",
			Help: "Duration of workflow step execution in seconds",
		},
		[]string{"step"},
	)

	StepRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renewal_step_retries_total",
			Help: "Stale-reference re-resolve retries per step",
		},
		[]string{"step"},
	)

	ResolverFallbacks = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "renewal_resolver_fallback_depth",
			Help:    "Index of the descriptor that finally matched (0 = primary)",
			Buckets: prometheus.LinearBuckets(0, 1, 6),
		},
		[]string{"element"},
	)
)
