package ports

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors shared by the router, parser and orchestrator.
var (
	// ErrUnparseableResponse indicates that a provider reply did not yield the
	// minimum viable set of fields. Routing treats it as a provider failure.
	ErrUnparseableResponse = errors.New("unparseable response")

	// ErrNoProviderAvailable indicates that every provider was tried or
	// ineligible. It triggers extraction-only fallback.
	ErrNoProviderAvailable = errors.New("no provider available")

	// ErrExtractionLowConfidence indicates that deterministic extraction found
	// nothing usable. It is non-fatal and lowers confidence only.
	ErrExtractionLowConfidence = errors.New("extraction low confidence")
)

// ErrorKind classifies a provider failure for routing decisions.
type ErrorKind string

const (
	// KindAuth means credentials were rejected. The provider is disabled.
	KindAuth ErrorKind = "auth"
	// KindRateLimited means the provider throttled us. The circuit is untouched.
	KindRateLimited ErrorKind = "rate_limited"
	// KindTimeout means the call exceeded its own deadline.
	KindTimeout ErrorKind = "timeout"
	// KindTransient covers server errors and network faults.
	KindTransient ErrorKind = "transient"
	// KindFatal covers malformed requests, unknown models and policy blocks.
	KindFatal ErrorKind = "fatal"
	// KindCanceled means the caller abandoned the request.
	KindCanceled ErrorKind = "canceled"
	// KindUnparseable means the reply arrived but could not be parsed.
	KindUnparseable ErrorKind = "unparseable"
	// KindUnknown is returned by KindOf for errors outside the taxonomy.
	KindUnknown ErrorKind = "unknown"
)

// PenalizesCircuit reports whether a failure of this kind counts against the
// provider's consecutive-failure counter.
func (k ErrorKind) PenalizesCircuit() bool {
	switch k {
	case KindTimeout, KindTransient, KindUnparseable, KindUnknown:
		return true
	default:
		return false
	}
}

// OpensCircuitImmediately reports whether a single failure of this kind
// should disable the provider without waiting for the threshold.
func (k ErrorKind) OpensCircuitImmediately() bool {
	return k == KindAuth || k == KindFatal
}

// ProviderError is the normalized form of any failure returned by a
// ProviderClient. Provider-specific errors are translated into it at the
// adapter boundary.
type ProviderError struct {
	// Kind classifies the failure.
	Kind ErrorKind
	// Provider is the name of the provider that failed.
	Provider string
	// StatusCode holds the HTTP status, if any.
	StatusCode int
	// RetryAfter is the provider's requested back-off for rate limits.
	RetryAfter *time.Duration
	// Message is a short human-readable description.
	Message string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface for ProviderError.
func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s error [%s]", e.Provider, e.Kind)
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.RetryAfter != nil {
		msg += fmt.Sprintf(", retry_after=%v", *e.RetryAfter)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError creates a new ProviderError with the given details.
func NewProviderError(provider string, kind ErrorKind, statusCode int, message string, err error) *ProviderError {
	return &ProviderError{
		Kind:       kind,
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// KindOf classifies any error returned along the provider path.
// Context errors are recognized even when they were not wrapped in a
// ProviderError.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	switch {
	case errors.Is(err, ErrUnparseableResponse):
		return KindUnparseable
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	}
	return KindUnknown
}

// RetryAfterOf returns the retry-after hint carried by err, if any.
func RetryAfterOf(err error) (time.Duration, bool) {
	var perr *ProviderError
	if errors.As(err, &perr) && perr.RetryAfter != nil {
		return *perr.RetryAfter, true
	}
	return 0, false
}

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key that was involved in the failed
	// operation.
	ConfigKey string

	// Err is the underlying error that caused the configuration operation
	// to fail.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}
