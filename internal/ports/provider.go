// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"
	"time"
)

// GenerateRequest carries everything a provider needs for one call.
type GenerateRequest struct {
	System string
	User   string
	// Model replaces the client's default model when non-empty.
	Model       string
	MaxTokens   int
	Temperature float64
	// Timeout bounds this call. Zero means the client's configured timeout.
	Timeout time.Duration
}

// RawProviderReply is the unprocessed output of one provider call.
// It is consumed immediately by the response parser.
type RawProviderReply struct {
	Provider  string
	Model     string
	Text      string
	TokensIn  int
	TokensOut int
	Latency   time.Duration
	Success   bool
	// Err is set when Success is false.
	Err error
}

// ProviderClient is a uniform interface to a single AI text-generation
// backend. It knows nothing about analysis semantics.
//
// Implementations must enforce the request timeout themselves and translate
// provider-specific failures into *ProviderError. They must not retry;
// retries and fallback belong to the router.
type ProviderClient interface {
	// Name returns the provider identifier, e.g. "openai".
	Name() string

	// Model returns the default model name.
	Model() string

	// Generate performs one call. The returned reply is populated with
	// latency and usage even when err is non-nil.
	Generate(ctx context.Context, req GenerateRequest) (RawProviderReply, error)
}
