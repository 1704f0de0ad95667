package llm

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-tender/internal/ports"
)

// ProviderDefaults holds the per-type settings used when a ProviderConfig
// leaves them empty.
type ProviderDefaults struct {
	// EnvVar is the environment variable holding the API key.
	EnvVar string
	// DefaultModel is used when no model is configured.
	DefaultModel string
}

// DefaultProviders lists the built-in provider types.
var DefaultProviders = map[string]ProviderDefaults{
	"openai":    {EnvVar: "OPENAI_API_KEY", DefaultModel: OpenAIDefaultModel},
	"anthropic": {EnvVar: "ANTHROPIC_API_KEY", DefaultModel: AnthropicDefaultModel},
	"google":    {EnvVar: "GOOGLE_API_KEY", DefaultModel: GoogleDefaultModel},
}

// ProviderConfig describes one provider entry in priority order.
type ProviderConfig struct {
	// Name identifies the provider; it defaults to Type.
	Name string
	// Type selects the adapter: openai, anthropic or google.
	Type string
	// Model overrides the type's default model.
	Model string
	// APIKeyEnv overrides the type's API key variable.
	APIKeyEnv string
	// BaseURL overrides the provider endpoint.
	BaseURL string
	// Timeout bounds each call.
	Timeout time.Duration
	// MaxTokens is the default generation limit.
	MaxTokens int
	// RequestsPerSecond enables client-side pacing when positive.
	RequestsPerSecond float64
	// Burst is the token bucket size; it defaults to 1.
	Burst int
	// Middleware is applied inside the registry's standard middleware.
	Middleware []Middleware
}

// RegistryConfig holds configuration for the provider registry.
type RegistryConfig struct {
	// Providers in priority order.
	Providers []ProviderConfig
	// DefaultMiddleware is applied to every provider after the built-in
	// tracing, metrics and rate-limit middleware.
	DefaultMiddleware []Middleware
	// Metrics, when set, enables MetricsMiddleware for every provider.
	Metrics ports.MetricsCollector
	// Tracing enables TracingMiddleware for every provider.
	Tracing bool
	// Logger receives build-time events. Nil means no logging.
	Logger *zap.Logger
	// LookupEnv resolves API keys; it defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Registry builds and holds the provider clients in priority order.
// Providers whose API key is absent are skipped, not treated as errors.
type Registry struct {
	mu      sync.RWMutex
	clients []*Client
	byName  map[string]*Client
	skipped []string
	logger  *zap.Logger
}

// NewRegistry creates clients for every configured provider that has an API
// key, in the given order. Configuration errors such as an unknown type or
// a duplicate name fail the whole build.
func NewRegistry(config RegistryConfig) (*Registry, error) {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	lookup := config.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	r := &Registry{byName: make(map[string]*Client), logger: logger}
	for _, pc := range config.Providers {
		defaults, ok := DefaultProviders[pc.Type]
		if _, registered := providerFactories[pc.Type]; !registered {
			return nil, fmt.Errorf("provider %q: unknown type %q", pc.Name, pc.Type)
		}
		if pc.Name == "" {
			pc.Name = pc.Type
		}
		if _, dup := r.byName[pc.Name]; dup {
			return nil, fmt.Errorf("provider %q configured twice", pc.Name)
		}

		envVar := pc.APIKeyEnv
		if envVar == "" && ok {
			envVar = defaults.EnvVar
		}
		apiKey, found := lookup(envVar)
		if !found || apiKey == "" {
			logger.Info("provider skipped: API key not set",
				zap.String("provider", pc.Name), zap.String("env", envVar))
			r.skipped = append(r.skipped, pc.Name)
			continue
		}

		model := pc.Model
		if model == "" {
			model = defaults.DefaultModel
		}

		client, err := NewClient(pc.Type, ClientConfig{
			Name:       pc.Name,
			APIKey:     apiKey,
			Model:      model,
			BaseURL:    pc.BaseURL,
			Timeout:    pc.Timeout,
			MaxTokens:  pc.MaxTokens,
			Middleware: r.middlewareFor(pc, config),
		})
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", pc.Name, err)
		}
		r.add(client)
		logger.Debug("provider registered",
			zap.String("provider", pc.Name), zap.String("model", model), zap.Duration("timeout", client.Timeout()))
	}
	return r, nil
}

func (r *Registry) middlewareFor(pc ProviderConfig, config RegistryConfig) []Middleware {
	var mw []Middleware
	if config.Tracing {
		mw = append(mw, TracingMiddleware(pc.Name))
	}
	if config.Metrics != nil {
		mw = append(mw, MetricsMiddleware(pc.Name, config.Metrics))
	}
	if pc.RequestsPerSecond > 0 {
		burst := pc.Burst
		if burst <= 0 {
			burst = 1
		}
		mw = append(mw, RateLimitMiddleware(pc.Name, rate.Limit(pc.RequestsPerSecond), burst))
	}
	mw = append(mw, config.DefaultMiddleware...)
	return append(mw, pc.Middleware...)
}

func (r *Registry) add(c *Client) {
	r.clients = append(r.clients, c)
	r.byName[c.Name()] = c
}

// Register appends an already built client at the lowest priority.
func (r *Registry) Register(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byName[c.Name()]; dup {
		return fmt.Errorf("provider %q already registered", c.Name())
	}
	r.add(c)
	return nil
}

// Clients returns the registered clients in priority order.
func (r *Registry) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, len(r.clients))
	copy(out, r.clients)
	return out
}

// Client returns the client registered under name.
func (r *Registry) Client(name string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[name]
	return c, ok
}

// Skipped lists providers left out because their API key was not set.
func (r *Registry) Skipped() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.skipped...)
}
