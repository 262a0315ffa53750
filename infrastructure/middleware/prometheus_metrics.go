// Package middleware provides cross-cutting concerns for the challenge
// evaluation engine.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-arena/internal/ports"
)

// Compile-time verification that PrometheusMetrics implements
// MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It provides real-time monitoring of evaluation throughput,
// scorer plugin health, and leaderboard read performance.
type PrometheusMetrics struct {
	evaluationsTotal  *prometheus.CounterVec
	attemptsRecorded  *prometheus.CounterVec
	scorerFailures    *prometheus.CounterVec
	operationCounter  *prometheus.CounterVec
	operationLatency  *prometheus.HistogramVec
	systemGauges      *prometheus.GaugeVec
	scoreDistribution *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance and
// registers all required metrics in the global Prometheus registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		evaluationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "challenge_evaluations_total",
				Help: "Total number of challenge evaluations by mode and outcome.",
			},
			[]string{"mode", "succeeded"},
		),
		attemptsRecorded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "challenge_attempts_recorded_total",
				Help: "Total number of attempt records persisted.",
			},
			[]string{"succeeded"},
		),
		scorerFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "challenge_scorer_failures_total",
				Help: "Total number of scorer plugin failures by failure kind.",
			},
			[]string{"kind"},
		),
		operationCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "challenge_engine_operations_total",
				Help: "Total number of operations performed by the challenge engine.",
			},
			[]string{"operation", "status"},
		),
		operationLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "challenge_engine_operation_duration_seconds",
				Help:    "Execution time of challenge engine operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "strategy"},
		),
		systemGauges: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "challenge_engine_system_state",
				Help: "Current system state values for the challenge engine.",
			},
			[]string{"metric"},
		),
		scoreDistribution: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "challenge_scores",
				Help:    "Distribution of scores computed by custom scorers.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"plugin_id"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string, duration time.Duration, labels map[string]string,
) {
	strategy, ok := labels["strategy"]
	if !ok {
		strategy = "unknown"
	}
	pm.operationLatency.WithLabelValues(operation, strategy).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by
// incrementing Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case "evaluations_total":
		pm.evaluationsTotal.WithLabelValues(
			labels["mode"], labels["succeeded"],
		).Add(value)
	case "attempts_recorded_total":
		pm.attemptsRecorded.WithLabelValues(labels["succeeded"]).Add(value)
	case "scorer_failures_total":
		pm.scorerFailures.WithLabelValues(labels["kind"]).Add(value)
	default:
		status, ok := labels["status"]
		if !ok {
			status = "success"
		}
		pm.operationCounter.WithLabelValues(metric, status).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	pm.systemGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	if metric == "challenge_score" {
		pluginID, ok := labels["plugin_id"]
		if !ok {
			pluginID = "unknown"
		}
		pm.scoreDistribution.WithLabelValues(pluginID).Observe(value)
		return
	}

	strategy, ok := labels["strategy"]
	if !ok {
		strategy = "unknown"
	}
	pm.operationLatency.WithLabelValues(metric, strategy).Observe(value)
}
