package application

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-tender/infrastructure/extract"
	"github.com/ahrav/go-tender/infrastructure/scoring"
	"github.com/ahrav/go-tender/internal/ports"
)

// Environment variables applied on top of the loaded file.
const (
	EnvProviderOrder        = "TENDER_PROVIDER_ORDER"
	EnvDiscrepancyTolerance = "TENDER_DISCREPANCY_TOLERANCE"
	EnvRouterMode           = "TENDER_ROUTER_MODE"
	EnvLogLevel             = "TENDER_LOG_LEVEL"
)

// ConfigLoader decodes, overrides and validates analyzer configurations.
// Validated configs are cached by content hash, and concurrent loads of the
// same content share one validation. Returned configs are shared and must
// not be modified.
type ConfigLoader struct {
	validator *validator.Validate
	lookupEnv func(string) (string, bool)

	cache   map[string]*Config // SHA256 hash -> validated config
	cacheMu sync.RWMutex
	sf      singleflight.Group
}

// LoaderOption configures a ConfigLoader.
type LoaderOption func(*ConfigLoader)

// WithEnvLookup replaces os.LookupEnv for environment overrides.
func WithEnvLookup(fn func(string) (string, bool)) LoaderOption {
	return func(cl *ConfigLoader) {
		if fn != nil {
			cl.lookupEnv = fn
		}
	}
}

// NewConfigLoader creates a loader with the custom validators registered.
func NewConfigLoader(opts ...LoaderOption) (*ConfigLoader, error) {
	v := validator.New()
	if err := registerCustomValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	cl := &ConfigLoader{
		validator: v,
		lookupEnv: os.LookupEnv,
		cache:     make(map[string]*Config),
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl, nil
}

// LoadFromFile loads a YAML configuration file.
func (cl *ConfigLoader) LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return cl.load(data)
}

// LoadFromReader loads a YAML configuration from r.
func (cl *ConfigLoader) LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return cl.load(data)
}

// LoadDefault returns DefaultConfig with environment overrides applied.
func (cl *ConfigLoader) LoadDefault() (*Config, error) {
	return cl.load(nil)
}

func (cl *ConfigLoader) load(data []byte) (*Config, error) {
	config, err := cl.parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cl.applyEnv(config); err != nil {
		return nil, err
	}

	hash, err := cl.calculateConfigHash(config)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}

	v, err, _ := cl.sf.Do(hash, func() (any, error) {
		if cached, ok := cl.getCached(hash); ok {
			return cached, nil
		}
		if err := cl.Validate(config); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}
		cl.putCached(hash, config)
		return config, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Config), nil
}

// parseYAML decodes data on top of DefaultConfig in strict mode.
func (cl *ConfigLoader) parseYAML(data []byte) (*Config, error) {
	config := DefaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Strict mode - fail on unknown fields.

	if err := decoder.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}
	return config, nil
}

// applyEnv applies the TENDER_* overrides.
func (cl *ConfigLoader) applyEnv(config *Config) error {
	if v, ok := cl.env(EnvProviderOrder); ok {
		order, err := reorderProviders(config.Providers, strings.Split(v, ","))
		if err != nil {
			return ports.NewConfigError(EnvProviderOrder, err)
		}
		config.Providers = order
	}
	if v, ok := cl.env(EnvDiscrepancyTolerance); ok {
		tol, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return ports.NewConfigError(EnvDiscrepancyTolerance, err)
		}
		config.Scoring.DiscrepancyTolerance = tol
	}
	if v, ok := cl.env(EnvRouterMode); ok {
		config.Router.Mode = strings.ToLower(v)
	}
	if v, ok := cl.env(EnvLogLevel); ok {
		config.Logging.Level = strings.ToLower(v)
	}
	return nil
}

func (cl *ConfigLoader) env(key string) (string, bool) {
	v, ok := cl.lookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// reorderProviders moves the named providers to the front in the given
// order; unnamed providers keep their relative order after them.
func reorderProviders(providers []ProviderConfig, names []string) ([]ProviderConfig, error) {
	byID := make(map[string]int, len(providers))
	for i, p := range providers {
		byID[p.ID()] = i
	}

	out := make([]ProviderConfig, 0, len(providers))
	used := make(map[int]bool, len(providers))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		i, ok := byID[name]
		if !ok {
			return nil, fmt.Errorf("unknown provider %q", name)
		}
		if used[i] {
			continue
		}
		used[i] = true
		out = append(out, providers[i])
	}
	for i, p := range providers {
		if !used[i] {
			out = append(out, p)
		}
	}
	return out, nil
}

// Validate runs struct and semantic validation on config.
func (cl *ConfigLoader) Validate(config *Config) error {
	if err := cl.validator.Struct(config); err != nil {
		return fmt.Errorf("struct validation failed: %w", err)
	}

	if err := cl.validateSemantics(config); err != nil {
		return fmt.Errorf("semantic validation failed: %w", err)
	}

	return nil
}

func (cl *ConfigLoader) validateSemantics(config *Config) error {
	seen := make(map[string]struct{}, len(config.Providers))
	for _, p := range config.Providers {
		if _, dup := seen[p.ID()]; dup {
			return fmt.Errorf("duplicate provider %q", p.ID())
		}
		seen[p.ID()] = struct{}{}
	}

	profiles := config.WeightProfiles()
	if _, ok := profiles[config.DefaultProfile]; !ok {
		return fmt.Errorf("default profile %q is not defined", config.DefaultProfile)
	}
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return err
		}
	}

	if _, err := scoring.New(config.Scoring); err != nil {
		return err
	}
	if _, err := extract.New(config.Currencies); err != nil {
		return fmt.Errorf("currencies: %w", err)
	}
	return nil
}

// calculateConfigHash hashes the normalized YAML form of config.
func (cl *ConfigLoader) calculateConfigHash(config *Config) (string, error) {
	data, err := yaml.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func (cl *ConfigLoader) getCached(hash string) (*Config, bool) {
	cl.cacheMu.RLock()
	defer cl.cacheMu.RUnlock()
	c, ok := cl.cache[hash]
	return c, ok
}

func (cl *ConfigLoader) putCached(hash string, config *Config) {
	cl.cacheMu.Lock()
	defer cl.cacheMu.Unlock()
	cl.cache[hash] = config
}
