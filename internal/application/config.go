// Package application wires the analysis pipeline: configuration, the
// provider fallback router and the analysis orchestrator.
package application

import (
	"time"

	"github.com/ahrav/go-tender/infrastructure/extract"
	"github.com/ahrav/go-tender/infrastructure/llm"
	"github.com/ahrav/go-tender/infrastructure/parser"
	"github.com/ahrav/go-tender/infrastructure/prompts"
	"github.com/ahrav/go-tender/infrastructure/scoring"
	"github.com/ahrav/go-tender/internal/domain"
)

// Router modes.
const (
	ModeSequential = "sequential"
	ModeRace       = "race"
)

// Router defaults.
const (
	DefaultFailureThreshold = 5
	DefaultCooldown         = 60 * time.Second
	DefaultRaceWidth        = 2
)

// Config is the complete analyzer configuration. It is decoded from YAML on
// top of DefaultConfig, so a file only needs the keys it changes.
type Config struct {
	// Providers are listed in priority order.
	Providers []ProviderConfig `yaml:"providers" validate:"required,min=1,dive"`
	Router    RouterConfig     `yaml:"router"`
	Scoring   scoring.Config   `yaml:"scoring"`
	// Profiles adds or replaces weight presets by name.
	Profiles       map[string]map[domain.Criterion]float64 `yaml:"profiles" validate:"dive,weightsum"`
	DefaultProfile string                                  `yaml:"default_profile" validate:"required"`
	Currencies     []extract.CurrencyDef                   `yaml:"currencies" validate:"required,min=1,dive"`
	Prompts        PromptConfig                            `yaml:"prompts"`
	Parser         ParserConfig                            `yaml:"parser"`
	Logging        LoggingConfig                           `yaml:"logging"`
}

// ProviderConfig configures one provider and its circuit breaker.
type ProviderConfig struct {
	// Name identifies the provider; it defaults to Type.
	Name string `yaml:"name"`
	Type string `yaml:"type" validate:"required,provider_type"`
	// Model overrides the provider type's default model.
	Model string `yaml:"model"`
	// APIKeyEnv names the environment variable holding the key.
	APIKeyEnv   string        `yaml:"api_key_env"`
	BaseURL     string        `yaml:"base_url" validate:"omitempty,url"`
	Timeout     time.Duration `yaml:"timeout" validate:"gte=0"`
	MaxTokens   int           `yaml:"max_tokens" validate:"gte=0"`
	Temperature float64       `yaml:"temperature" validate:"gte=0,lte=2"`
	// CostPerToken prices usage for EstimatedCost.
	CostPerToken      float64 `yaml:"cost_per_token" validate:"gte=0"`
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int     `yaml:"burst" validate:"gte=0"`
	// FailureThreshold and Cooldown override the router defaults when set.
	FailureThreshold int           `yaml:"failure_threshold" validate:"gte=0"`
	Cooldown         time.Duration `yaml:"cooldown" validate:"gte=0"`
}

// ID returns the provider name, falling back to its type.
func (p ProviderConfig) ID() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Type
}

// RouterConfig configures provider selection.
type RouterConfig struct {
	Mode string `yaml:"mode" validate:"oneof=sequential race"`
	// RaceWidth is the number of providers raced in race mode.
	RaceWidth        int           `yaml:"race_width" validate:"gte=0"`
	FailureThreshold int           `yaml:"failure_threshold" validate:"gte=1"`
	Cooldown         time.Duration `yaml:"cooldown" validate:"gt=0"`
}

// PromptConfig configures prompt rendering.
type PromptConfig struct {
	MaxDocumentChars int `yaml:"max_document_chars" validate:"gte=0"`
}

// ParserConfig configures reply parsing.
type ParserConfig struct {
	// MinCriteria is the number of valid criterion scores a reply needs.
	MinCriteria int `yaml:"min_criteria" validate:"gte=1,lte=10"`
}

// LoggingConfig configures the logger built by the CLI.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=json console"`
}

// DefaultConfig returns a complete configuration: openai, then anthropic,
// then google; sequential routing; the balanced profile.
func DefaultConfig() *Config {
	return &Config{
		Providers: []ProviderConfig{
			{Type: "openai", Model: llm.OpenAIDefaultModel, Timeout: llm.DefaultTimeout, MaxTokens: llm.DefaultMaxTokens, Temperature: 0.2, CostPerToken: 0.0000016},
			{Type: "anthropic", Model: llm.AnthropicDefaultModel, Timeout: llm.DefaultTimeout, MaxTokens: llm.DefaultMaxTokens, Temperature: 0.2, CostPerToken: 0.000015},
			{Type: "google", Model: llm.GoogleDefaultModel, Timeout: llm.DefaultTimeout, MaxTokens: llm.DefaultMaxTokens, Temperature: 0.2, CostPerToken: 0.0000025},
		},
		Router: RouterConfig{
			Mode:             ModeSequential,
			RaceWidth:        DefaultRaceWidth,
			FailureThreshold: DefaultFailureThreshold,
			Cooldown:         DefaultCooldown,
		},
		Scoring:        scoring.DefaultConfig(),
		DefaultProfile: domain.PresetBalanced,
		Currencies:     extract.DefaultCurrencies(),
		Prompts:        PromptConfig{MaxDocumentChars: prompts.DefaultMaxDocumentChars},
		Parser:         ParserConfig{MinCriteria: parser.DefaultMinCriteria},
		Logging:        LoggingConfig{Level: "info", Format: "json"},
	}
}

// WeightProfiles returns the built-in presets merged with the configured
// profiles.
func (c *Config) WeightProfiles() map[string]domain.WeightProfile {
	out := domain.DefaultPresets()
	for name, weights := range c.Profiles {
		p := domain.WeightProfile{Name: name, Weights: make(map[domain.Criterion]float64, len(weights))}
		for k, w := range weights {
			p.Weights[k] = w
		}
		out[name] = p
	}
	return out
}

// Profile returns the named weight profile.
func (c *Config) Profile(name string) (domain.WeightProfile, bool) {
	p, ok := c.WeightProfiles()[name]
	return p, ok
}
