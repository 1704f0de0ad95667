// Package middleware provides the observability backends for analyses:
// a Prometheus MetricsCollector and an OpenTelemetry analysis observer.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-tender/infrastructure/llm"
	"github.com/ahrav/go-tender/internal/ports"
)

// Metric names recorded by the router and orchestrator. Provider call
// metrics use the names exported by the llm package.
const (
	MetricCircuitState     = "provider_circuit_state"
	MetricProviderAttempts = "provider_attempts_total"
	MetricAnalyses         = "analyses_total"
	MetricAnalysisLatency  = "analysis_duration_seconds"
	MetricOverallScore     = "analysis_overall_score"
	MetricConfidence       = "analysis_confidence"
)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. Known metric names map onto dedicated vectors; anything else
// lands in a generic counter, gauge or histogram keyed by name.
type PrometheusMetrics struct {
	providerLatency  *prometheus.HistogramVec
	providerRequests *prometheus.CounterVec
	providerTokens   *prometheus.CounterVec
	providerAttempts *prometheus.CounterVec
	circuitState     *prometheus.GaugeVec
	analyses         *prometheus.CounterVec
	analysisLatency  *prometheus.HistogramVec
	overallScore     *prometheus.HistogramVec
	confidence       *prometheus.HistogramVec

	otherCounters   *prometheus.CounterVec
	otherGauges     *prometheus.GaugeVec
	otherHistograms *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance registered with
// the default Prometheus registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewPrometheusMetricsWithRegisterer registers all metrics with reg. Tests
// pass a fresh prometheus.NewRegistry() to avoid duplicate registration.
func NewPrometheusMetricsWithRegisterer(reg prometheus.Registerer) *PrometheusMetrics {
	f := promauto.With(reg)
	return &PrometheusMetrics{
		providerLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    llm.MetricProviderLatency,
				Help:    "Latency of provider calls.",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
			},
			[]string{"provider", "model", "status"},
		),
		providerRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: llm.MetricProviderRequests,
				Help: "Provider calls by outcome.",
			},
			[]string{"provider", "model", "status"},
		),
		providerTokens: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: llm.MetricProviderTokens,
				Help: "Tokens consumed by provider calls.",
			},
			[]string{"provider", "token_type"},
		),
		providerAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricProviderAttempts,
				Help: "Routing attempts per provider and outcome, including parse failures.",
			},
			[]string{"provider", "outcome"},
		),
		circuitState: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricCircuitState,
				Help: "Circuit breaker state per provider: 0 closed, 1 half-open, 2 open.",
			},
			[]string{"provider"},
		),
		analyses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricAnalyses,
				Help: "Completed analyses by mode and recommendation.",
			},
			[]string{"mode", "recommendation"},
		),
		analysisLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricAnalysisLatency,
				Help:    "End-to-end analysis time.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		overallScore: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricOverallScore,
				Help:    "Distribution of overall weighted scores.",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
			[]string{"mode"},
		),
		confidence: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricConfidence,
				Help:    "Distribution of analysis confidence.",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
			[]string{"mode"},
		),
		otherCounters: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tender_events_total",
				Help: "Counters without a dedicated metric.",
			},
			[]string{"metric"},
		),
		otherGauges: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tender_state",
				Help: "Gauges without a dedicated metric.",
			},
			[]string{"metric"},
		),
		otherHistograms: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tender_observations",
				Help:    "Histograms without a dedicated metric.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	switch operation {
	case llm.MetricProviderLatency:
		pm.providerLatency.WithLabelValues(
			label(labels, "provider"), label(labels, "model"), label(labels, "status"),
		).Observe(duration.Seconds())
	case MetricAnalysisLatency:
		pm.analysisLatency.WithLabelValues(label(labels, "mode")).Observe(duration.Seconds())
	default:
		pm.otherHistograms.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

// RecordCounter implements the MetricsCollector interface.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case llm.MetricProviderRequests:
		pm.providerRequests.WithLabelValues(
			label(labels, "provider"), label(labels, "model"), label(labels, "status"),
		).Add(value)
	case llm.MetricProviderTokens:
		pm.providerTokens.WithLabelValues(label(labels, "provider"), label(labels, "token_type")).Add(value)
	case MetricProviderAttempts:
		pm.providerAttempts.WithLabelValues(label(labels, "provider"), label(labels, "outcome")).Add(value)
	case MetricAnalyses:
		pm.analyses.WithLabelValues(label(labels, "mode"), label(labels, "recommendation")).Add(value)
	default:
		pm.otherCounters.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case MetricCircuitState:
		pm.circuitState.WithLabelValues(label(labels, "provider")).Set(value)
	default:
		pm.otherGauges.WithLabelValues(metric).Set(value)
	}
}

// RecordHistogram implements the MetricsCollector interface.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case MetricOverallScore:
		pm.overallScore.WithLabelValues(label(labels, "mode")).Observe(value)
	case MetricConfidence:
		pm.confidence.WithLabelValues(label(labels, "mode")).Observe(value)
	default:
		pm.otherHistograms.WithLabelValues(metric).Observe(value)
	}
}

func label(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return "unknown"
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
