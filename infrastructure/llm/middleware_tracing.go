package llm

import (
	"context"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-tender/internal/ports"
)

const tracerName = "github.com/ahrav/go-tender/infrastructure/llm"

// tracedLLM wraps each call in an OpenTelemetry span.
type tracedLLM struct {
	next     CoreLLM
	provider string
	tracer   trace.Tracer
}

// TracingMiddleware creates middleware that opens a "provider.request" span
// per call using the global tracer provider.
func TracingMiddleware(provider string) Middleware {
	return TracingMiddlewareWithProvider(provider, otel.GetTracerProvider())
}

// TracingMiddlewareWithProvider is TracingMiddleware with an explicit
// TracerProvider, mainly for tests.
func TracingMiddlewareWithProvider(provider string, tp trace.TracerProvider) Middleware {
	tracer := tp.Tracer(tracerName)
	return func(next CoreLLM) CoreLLM {
		return &tracedLLM{next: next, provider: provider, tracer: tracer}
	}
}

// DoRequest executes the request within a span.
func (t *tracedLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	ctx, span := t.tracer.Start(ctx, "provider.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("provider.name", t.provider),
			attribute.String("provider.model", ExtractOptionalString(opts, OptModel, t.next.GetModel(), nonEmpty)),
			attribute.Int("prompt.chars", utf8.RuneCountInString(prompt)),
		),
	)
	defer span.End()

	response, tokensIn, tokensOut, err := t.next.DoRequest(ctx, prompt, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.kind", string(ports.KindOf(err))))
		return response, tokensIn, tokensOut, err
	}

	span.SetAttributes(
		attribute.Int("tokens.input", tokensIn),
		attribute.Int("tokens.output", tokensOut),
	)
	span.SetStatus(codes.Ok, "")
	return response, tokensIn, tokensOut, nil
}

// GetModel returns the model name from the wrapped implementation.
func (t *tracedLLM) GetModel() string { return t.next.GetModel() }
