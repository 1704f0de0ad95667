package ports

import (
	"time"

	"github.com/ahrav/go-tender/internal/domain"
)

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus, OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like provider errors and fallbacks.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	// This is useful for tracking values like circuit state.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like overall scores.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// Prompt is a rendered system/user prompt pair.
type Prompt struct {
	System string
	User   string
}

// PromptBuilder renders provider prompts for a request. The core only fills
// placeholders; template content is owned by the implementation.
type PromptBuilder interface {
	Build(req *domain.AnalysisRequest) (Prompt, error)
}
