package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
)

const observerTracerName = "github.com/ahrav/go-tender/analysis"

// AnalysisObserver watches one orchestration from start to result.
type AnalysisObserver interface {
	Start(ctx context.Context, req *domain.AnalysisRequest) (context.Context, AnalysisSpan)
}

// AnalysisSpan receives the events of a single analysis.
type AnalysisSpan interface {
	// Attempt is called once per provider attempt, in order.
	Attempt(a domain.Attempt)
	// Fallback is called when the analysis switches to extraction-only mode.
	Fallback(reason error)
	// Finish ends the span. result is nil only when err is non-nil.
	Finish(result *domain.AnalysisResult, err error)
}

var _ AnalysisObserver = (*OTelAnalysisObserver)(nil)

// OTelAnalysisObserver traces each analysis as an OpenTelemetry span and
// reports its outcome to a MetricsCollector.
type OTelAnalysisObserver struct {
	metrics ports.MetricsCollector
	tracer  trace.Tracer
}

// NewOTelAnalysisObserver creates an observer using the global tracer
// provider. metrics may be nil.
func NewOTelAnalysisObserver(metrics ports.MetricsCollector) *OTelAnalysisObserver {
	return NewOTelAnalysisObserverWithProvider(metrics, otel.GetTracerProvider())
}

// NewOTelAnalysisObserverWithProvider is NewOTelAnalysisObserver with an
// explicit TracerProvider.
func NewOTelAnalysisObserverWithProvider(metrics ports.MetricsCollector, tp trace.TracerProvider) *OTelAnalysisObserver {
	return &OTelAnalysisObserver{metrics: metrics, tracer: tp.Tracer(observerTracerName)}
}

// Start opens the "analysis" span.
func (o *OTelAnalysisObserver) Start(ctx context.Context, req *domain.AnalysisRequest) (context.Context, AnalysisSpan) {
	attrs := []attribute.KeyValue{
		attribute.String("analysis.depth", string(req.Depth())),
		attribute.Int("analysis.proposal_chars", len([]rune(req.Proposal()))),
		attribute.Int("analysis.reference_chars", len([]rune(req.Reference()))),
	}
	if mo := req.ModelOverride(); !mo.IsZero() {
		attrs = append(attrs, attribute.String("analysis.model_override", mo.String()))
	}
	ctx, span := o.tracer.Start(ctx, "analysis", trace.WithAttributes(attrs...))
	return ctx, &otelAnalysisSpan{span: span, metrics: o.metrics}
}

type otelAnalysisSpan struct {
	span    trace.Span
	metrics ports.MetricsCollector
}

func (s *otelAnalysisSpan) Attempt(a domain.Attempt) {
	s.span.AddEvent("provider.attempt", trace.WithAttributes(
		attribute.String("provider", a.Provider),
		attribute.String("model", a.Model),
		attribute.String("outcome", a.Outcome),
		attribute.Int64("latency_ms", a.Latency.Milliseconds()),
	))
	if s.metrics != nil {
		s.metrics.RecordCounter(MetricProviderAttempts, 1, map[string]string{
			"provider": a.Provider,
			"outcome":  a.Outcome,
		})
	}
}

func (s *otelAnalysisSpan) Fallback(reason error) {
	attrs := []attribute.KeyValue{}
	if reason != nil {
		attrs = append(attrs, attribute.String("reason", reason.Error()))
	}
	s.span.AddEvent("analysis.fallback", trace.WithAttributes(attrs...))
}

func (s *otelAnalysisSpan) Finish(result *domain.AnalysisResult, err error) {
	defer s.span.End()

	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
		return
	}

	mode := "ai"
	if result.FallbackMode {
		mode = "fallback"
	}
	s.span.SetAttributes(
		attribute.String("analysis.id", result.ID.String()),
		attribute.String("analysis.mode", mode),
		attribute.Float64("analysis.overall_score", result.OverallScore),
		attribute.String("analysis.recommendation", string(result.Recommendation)),
		attribute.String("analysis.confidence_level", string(result.ConfidenceLevel)),
		attribute.Int("analysis.evaluated_criteria", len(result.EvaluatedCriteria())),
		attribute.Int("analysis.discrepancies", len(result.Financials.Discrepancies)),
		attribute.Bool("analysis.partial", result.Partial),
	)
	for _, d := range result.Financials.Discrepancies {
		s.span.AddEvent("analysis.discrepancy", trace.WithAttributes(
			attribute.String("field", d.Field),
			attribute.Float64("ai_value", d.AIValue),
			attribute.Float64("extracted_value", d.Extracted),
		))
	}
	s.span.SetStatus(codes.Ok, "")

	if s.metrics == nil {
		return
	}
	labels := map[string]string{"mode": mode}
	s.metrics.RecordLatency(MetricAnalysisLatency, result.ProcessingTime, labels)
	s.metrics.RecordHistogram(MetricOverallScore, result.OverallScore, labels)
	s.metrics.RecordHistogram(MetricConfidence, result.Confidence, labels)
	s.metrics.RecordCounter(MetricAnalyses, 1, map[string]string{
		"mode":           mode,
		"recommendation": string(result.Recommendation),
	})
}

// CircuitStateValue maps a circuit state name to the provider_circuit_state
// gauge value.
func CircuitStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}
