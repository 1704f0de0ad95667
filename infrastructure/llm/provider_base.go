package llm

import "unicode/utf8"

// BaseProvider holds the configured default model. Per-request models are
// passed through the options map, so the provider itself is never mutated
// after construction and is safe for concurrent use.
type BaseProvider struct {
	model string
}

// GetModel returns the name of the model configured for the provider.
func (b *BaseProvider) GetModel() string { return b.model }

// RequestOptions represents a standardized set of configuration parameters for an LLM request.
type RequestOptions struct {
	// MaxTokens specifies the maximum number of tokens to generate.
	MaxTokens int
	// Model is the identifier of the language model to use for the request.
	Model string
	// Temperature controls the randomness of the output.
	// A nil value indicates that the provider's default should be used.
	Temperature *float64
	// System provides instructions to the model, kept apart from the user
	// prompt for providers that support a separate system role.
	System string
}

// ParseRequestOptions extracts LLM request parameters from a map, using
// defaults for any missing or invalid entries.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	options := RequestOptions{
		MaxTokens: ExtractOptionalInt(opts, OptMaxTokens, DefaultMaxTokens, positive),
		Model:     ExtractOptionalString(opts, OptModel, defaultModel, nonEmpty),
		System:    ExtractOptionalString(opts, OptSystem, "", nil),
	}
	if temp, ok := ExtractOptionalFloat64(opts, OptTemperature, validTemperature); ok {
		options.Temperature = &temp
	}
	return options
}

// TokenCounter estimates token counts when a provider omits usage data.
type TokenCounter struct {
	// CharactersPerToken is the average number of characters per token.
	CharactersPerToken float64
}

// NewTokenCounter creates a TokenCounter with a ratio that suits mixed
// Cyrillic and Latin text.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{CharactersPerToken: 3.0}
}

// EstimateTokens calculates an estimated token count for text.
func (tc *TokenCounter) EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := int(float64(utf8.RuneCountInString(text)) / tc.CharactersPerToken)
	if n == 0 {
		n = 1
	}
	return n
}

// GetTokenCount returns the actual token count if it is positive and an
// estimate from text otherwise.
func (tc *TokenCounter) GetTokenCount(actualCount int, text string) int {
	if actualCount > 0 {
		return actualCount
	}
	return tc.EstimateTokens(text)
}
