// Package llm adapts hosted text-generation APIs (OpenAI, Anthropic, Google
// Gemini) to ports.ProviderClient.
//
// Each provider is a CoreLLM that knows only its own wire format. Client wraps
// a CoreLLM with a middleware chain (rate limiting, metrics, tracing), enforces
// the per-call timeout itself, and translates every failure into a
// *ports.ProviderError. Client never retries; fallback between providers is
// the router's job.
//
// Basic usage:
//
//	client, err := llm.NewClient("openai", llm.ClientConfig{
//	    APIKey:  os.Getenv("OPENAI_API_KEY"),
//	    Model:   "gpt-4.1",
//	    Timeout: 30 * time.Second,
//	    Middleware: []llm.Middleware{
//	        llm.RateLimitMiddleware("openai", 2, 4),
//	        llm.TracingMiddleware("openai"),
//	    },
//	})
//	reply, err := client.Generate(ctx, ports.GenerateRequest{System: sys, User: user})
package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ahrav/go-tender/internal/ports"
)

// DefaultTimeout bounds a call when neither the request nor the client
// configuration sets a timeout.
const DefaultTimeout = 30 * time.Second

// CoreLLM defines the minimal interface that LLM providers must implement.
type CoreLLM interface {
	// DoRequest sends a prompt to the LLM provider and returns the response.
	// The opts map carries the Opt* keys. Providers must honor ctx and
	// should return *ports.ProviderError for API failures.
	DoRequest(
		ctx context.Context,
		prompt string,
		opts map[string]any,
	) (
		response string,
		tokensIn, tokensOut int,
		err error,
	)

	// GetModel returns the default model name.
	GetModel() string
}

// ClientConfig holds all configuration options for creating an LLM client.
type ClientConfig struct {
	// Name identifies the client in replies, errors and metrics. It defaults
	// to the provider type, and differs when one type is configured twice.
	Name string

	// APIKey authenticates requests to the LLM provider.
	APIKey string

	// Model specifies which LLM model to use for requests.
	Model string

	// BaseURL overrides the default API endpoint for the provider.
	BaseURL string

	// Timeout bounds each call. Zero means DefaultTimeout.
	Timeout time.Duration

	// MaxTokens is used when a request does not set its own limit.
	MaxTokens int

	// Middleware is applied in the order given; the first is outermost.
	Middleware []Middleware
}

// Middleware wraps a CoreLLM implementation to add cross-cutting functionality.
type Middleware func(CoreLLM) CoreLLM

// Client implements ports.ProviderClient on top of a CoreLLM.
type Client struct {
	name       string
	core       CoreLLM
	timeout    time.Duration
	maxTokens  int
	classifier *ErrorClassifier
}

var _ ports.ProviderClient = (*Client)(nil)

// NewClient creates a client for a registered provider type.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", providerType, ErrEmptyAPIKey)
	}

	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	if config.Name == "" {
		config.Name = providerType
	}
	return NewClientWithCore(core, config), nil
}

// NewClientWithCore wraps an existing CoreLLM. Only Name, Timeout, MaxTokens
// and Middleware are read from config.
func NewClientWithCore(core CoreLLM, config ClientConfig) *Client {
	// Apply middleware in reverse order so the first middleware is the outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		name:       config.Name,
		core:       core,
		timeout:    timeout,
		maxTokens:  config.MaxTokens,
		classifier: &ErrorClassifier{Provider: config.Name},
	}
}

// Name returns the provider identifier.
func (c *Client) Name() string { return c.name }

// Model returns the default model name.
func (c *Client) Model() string { return c.core.GetModel() }

// Timeout returns the configured per-call timeout.
func (c *Client) Timeout() time.Duration { return c.timeout }

type coreResult struct {
	text      string
	tokensIn  int
	tokensOut int
	err       error
}

// Generate performs one provider call bounded by the request timeout. The
// deadline is enforced here even if the provider ignores ctx.
func (c *Client) Generate(ctx context.Context, req ports.GenerateRequest) (ports.RawProviderReply, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	model := req.Model
	if model == "" {
		model = c.core.GetModel()
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	opts := map[string]any{
		OptSystem:      req.System,
		OptModel:       model,
		OptTemperature: req.Temperature,
	}
	if maxTokens > 0 {
		opts[OptMaxTokens] = maxTokens
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	done := make(chan coreResult, 1)
	go func() {
		text, in, out, err := c.core.DoRequest(callCtx, req.User, opts)
		done <- coreResult{text: text, tokensIn: in, tokensOut: out, err: err}
	}()

	var res coreResult
	select {
	case res = <-done:
	case <-callCtx.Done():
		res.err = callCtx.Err()
	}

	reply := ports.RawProviderReply{
		Provider:  c.name,
		Model:     model,
		Text:      res.text,
		TokensIn:  res.tokensIn,
		TokensOut: res.tokensOut,
		Latency:   time.Since(start),
	}
	if res.err == nil && strings.TrimSpace(res.text) == "" {
		res.err = ErrEmptyResponse
	}
	if res.err != nil {
		perr := c.classify(ctx, callCtx, res.err)
		reply.Text = ""
		reply.Err = perr
		return reply, perr
	}
	reply.Success = true
	return reply, nil
}

// classify decides between caller cancellation, our own deadline, and a
// provider failure.
func (c *Client) classify(parent, call context.Context, err error) *ports.ProviderError {
	switch {
	case parent.Err() != nil:
		return ports.NewProviderError(c.name, ports.KindCanceled, 0, "request canceled by caller", parent.Err())
	case call.Err() == context.DeadlineExceeded:
		return ports.NewProviderError(c.name, ports.KindTimeout, 0, "request timed out", err)
	}
	perr := *c.classifier.Classify(err)
	perr.Provider = c.name
	return &perr
}

// ProviderFactory creates a CoreLLM implementation from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

// providerFactories maps provider types to their constructors. Providers
// register themselves from init.
var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory allows registration of custom LLM provider factories.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}

// ProviderTypes returns the registered provider types.
func ProviderTypes() []string {
	types := make([]string, 0, len(providerFactories))
	for t := range providerFactories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
