package llm

import (
	"context"
	"time"

	"github.com/ahrav/go-tender/internal/ports"
)

// Metric names emitted by MetricsMiddleware.
const (
	MetricProviderLatency  = "provider_request_duration_seconds"
	MetricProviderRequests = "provider_requests_total"
	MetricProviderTokens   = "provider_tokens_total"
)

// metricsLLM records latency, outcome and token usage per call.
type metricsLLM struct {
	next      CoreLLM
	provider  string
	collector ports.MetricsCollector
}

// MetricsMiddleware creates middleware that reports every call to collector
// under the given provider label.
func MetricsMiddleware(provider string, collector ports.MetricsCollector) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &metricsLLM{
			next:      next,
			provider:  provider,
			collector: collector,
		}
	}
}

// DoRequest executes the request and records its outcome.
func (m *metricsLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	start := time.Now()
	response, tokensIn, tokensOut, err := m.next.DoRequest(ctx, prompt, opts)
	if m.collector == nil {
		return response, tokensIn, tokensOut, err
	}

	status := "success"
	if err != nil {
		status = string(ports.KindOf(err))
	}
	labels := map[string]string{
		"provider": m.provider,
		"model":    ExtractOptionalString(opts, OptModel, m.next.GetModel(), nonEmpty),
		"status":   status,
	}

	m.collector.RecordLatency(MetricProviderLatency, time.Since(start), labels)
	m.collector.RecordCounter(MetricProviderRequests, 1, labels)

	if err == nil {
		m.collector.RecordCounter(MetricProviderTokens, float64(tokensIn), withLabel(labels, "token_type", "input"))
		m.collector.RecordCounter(MetricProviderTokens, float64(tokensOut), withLabel(labels, "token_type", "output"))
	}

	return response, tokensIn, tokensOut, err
}

func withLabel(labels map[string]string, k, v string) map[string]string {
	out := make(map[string]string, len(labels)+1)
	for lk, lv := range labels {
		out[lk] = lv
	}
	out[k] = v
	return out
}

// GetModel returns the model name from the wrapped implementation.
func (m *metricsLLM) GetModel() string { return m.next.GetModel() }
