package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// rateLimitedLLM paces requests to one provider with a token bucket.
type rateLimitedLLM struct {
	next       CoreLLM
	limiter    *rate.Limiter
	classifier *ErrorClassifier
}

// RateLimitMiddleware creates middleware that enforces a sustained rate of
// limit requests per second with bursts of up to burst. Waiting for a token
// counts against the call's deadline, and a deadline too short for the wait
// is reported as rate_limited.
func RateLimitMiddleware(provider string, limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)

	return func(next CoreLLM) CoreLLM {
		return &rateLimitedLLM{
			next:       next,
			limiter:    limiter,
			classifier: &ErrorClassifier{Provider: provider},
		}
	}
}

// DoRequest waits for a token before forwarding the request.
func (r *rateLimitedLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() == context.Canceled {
			return "", 0, 0, r.classifier.ClassifyContextError(ctx.Err())
		}
		// Wait fails early when the deadline cannot accommodate the delay.
		return "", 0, 0, r.classifier.ClassifyHTTPError(429, "local rate limit", nil, err)
	}
	return r.next.DoRequest(ctx, prompt, opts)
}

// GetModel returns the model name from the wrapped implementation.
func (r *rateLimitedLLM) GetModel() string { return r.next.GetModel() }
