package application

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ahrav/go-tender/infrastructure/extract"
	"github.com/ahrav/go-tender/infrastructure/llm"
	"github.com/ahrav/go-tender/infrastructure/middleware"
	"github.com/ahrav/go-tender/infrastructure/parser"
	"github.com/ahrav/go-tender/infrastructure/prompts"
	"github.com/ahrav/go-tender/infrastructure/scoring"
	"github.com/ahrav/go-tender/internal/ports"
)

// AnalyzerOptions carries the process-level collaborators NewAnalyzer
// cannot read from Config.
type AnalyzerOptions struct {
	Logger  *zap.Logger
	Metrics ports.MetricsCollector
	// Tracing wraps every provider call in a span.
	Tracing bool
	// LookupEnv resolves provider API keys; it defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
	// Clients are routed after the configured providers, e.g. local mocks.
	Clients []ProviderSpec
}

// NewAnalyzer builds a ready Orchestrator from a validated Config.
// Providers without an API key are left out; with none left every analysis
// runs in fallback mode.
func NewAnalyzer(cfg *Config, opts AnalyzerOptions) (*Orchestrator, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ex, err := extract.New(cfg.Currencies, extract.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("extractor: %w", err)
	}
	p := parser.New(ex, parser.WithMinCriteria(cfg.Parser.MinCriteria), parser.WithLogger(logger))

	scorer, err := scoring.New(cfg.Scoring)
	if err != nil {
		return nil, fmt.Errorf("scorer: %w", err)
	}

	profile, ok := cfg.Profile(cfg.DefaultProfile)
	if !ok {
		return nil, fmt.Errorf("default profile %q is not defined", cfg.DefaultProfile)
	}
	pm, err := prompts.New(
		prompts.WithMaxDocumentChars(cfg.Prompts.MaxDocumentChars),
		prompts.WithDefaultProfile(profile),
	)
	if err != nil {
		return nil, fmt.Errorf("prompts: %w", err)
	}

	specs, err := buildProviders(cfg, opts, logger)
	if err != nil {
		return nil, err
	}

	routerOpts := []RouterOption{WithRouterLogger(logger), WithRouterMetrics(opts.Metrics)}
	if cfg.Router.Mode == ModeRace {
		routerOpts = append(routerOpts, WithRaceMode(cfg.Router.RaceWidth))
	}
	router, err := NewFallbackRouter(specs, cfg.Router.FailureThreshold, cfg.Router.Cooldown, routerOpts...)
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}
	if len(specs) == 0 {
		logger.Warn("no provider has an API key; analyses will run in fallback mode")
	}

	return NewOrchestrator(router, pm, p, ex, scorer, profile,
		WithOrchestratorLogger(logger),
		WithObserver(middleware.NewOTelAnalysisObserver(opts.Metrics)),
	)
}

// buildProviders creates clients for the configured providers through the
// llm registry and pairs each with its routing settings.
func buildProviders(cfg *Config, opts AnalyzerOptions, logger *zap.Logger) ([]ProviderSpec, error) {
	entries := make([]llm.ProviderConfig, 0, len(cfg.Providers))
	byID := make(map[string]ProviderConfig, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		entries = append(entries, llm.ProviderConfig{
			Name:              pc.ID(),
			Type:              pc.Type,
			Model:             pc.Model,
			APIKeyEnv:         pc.APIKeyEnv,
			BaseURL:           pc.BaseURL,
			Timeout:           pc.Timeout,
			MaxTokens:         pc.MaxTokens,
			RequestsPerSecond: pc.RequestsPerSecond,
			Burst:             pc.Burst,
		})
		byID[pc.ID()] = pc
	}

	registry, err := llm.NewRegistry(llm.RegistryConfig{
		Providers: entries,
		Metrics:   opts.Metrics,
		Tracing:   opts.Tracing,
		Logger:    logger,
		LookupEnv: opts.LookupEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("providers: %w", err)
	}

	specs := make([]ProviderSpec, 0, len(entries)+len(opts.Clients))
	for _, client := range registry.Clients() {
		pc := byID[client.Name()]
		specs = append(specs, ProviderSpec{
			Client:           client,
			MaxTokens:        pc.MaxTokens,
			Temperature:      pc.Temperature,
			Timeout:          client.Timeout(),
			CostPerToken:     pc.CostPerToken,
			FailureThreshold: pc.FailureThreshold,
			Cooldown:         pc.Cooldown,
		})
	}
	return append(specs, opts.Clients...), nil
}
