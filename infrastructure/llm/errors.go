package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ahrav/go-tender/internal/ports"
)

// Common errors returned by the LLM client and providers.
var (
	// ErrEmptyAPIKey indicates that an API key was required but not provided.
	ErrEmptyAPIKey = errors.New("API key cannot be empty")
	// ErrEmptyResponse indicates that the provider's API returned an empty or nil response body.
	ErrEmptyResponse = errors.New("empty response from API")
	// ErrNoResponseChoice indicates that the provider's response contained no valid choices.
	ErrNoResponseChoice = errors.New("no response choices returned")
)

// ErrorClassifier translates provider-specific failures into
// *ports.ProviderError so the router can decide what to do next.
type ErrorClassifier struct {
	// Provider is the name of the LLM provider for which this classifier works.
	Provider string
}

// ClassifyHTTPError creates a ProviderError from an HTTP status code.
// header may be nil; when present, Retry-After is read from it.
func (ec *ErrorClassifier) ClassifyHTTPError(statusCode int, message string, header http.Header, err error) *ports.ProviderError {
	var kind ports.ErrorKind
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		kind = ports.KindAuth
		message = fmt.Sprintf("%s authentication failed", ec.Provider)
	case statusCode == http.StatusTooManyRequests:
		kind = ports.KindRateLimited
		message = fmt.Sprintf("%s rate limit exceeded", ec.Provider)
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		kind = ports.KindTimeout
	case statusCode >= 500:
		kind = ports.KindTransient
	case statusCode >= 400:
		kind = ports.KindFatal
	default:
		kind = ports.KindTransient
	}

	perr := ports.NewProviderError(ec.Provider, kind, statusCode, message, err)
	if kind == ports.KindRateLimited {
		if d, ok := parseRetryAfter(header, time.Now()); ok {
			perr.RetryAfter = &d
		}
	}
	return perr
}

// ClassifyContextError classifies context.DeadlineExceeded as a timeout and
// context.Canceled as caller cancellation.
func (ec *ErrorClassifier) ClassifyContextError(err error) *ports.ProviderError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ports.NewProviderError(ec.Provider, ports.KindTimeout, 0, "deadline exceeded", err)
	case errors.Is(err, context.Canceled):
		return ports.NewProviderError(ec.Provider, ports.KindCanceled, 0, "request canceled", err)
	default:
		return ports.NewProviderError(ec.Provider, ports.KindTransient, 0, "", err)
	}
}

// Classify normalizes any error. Errors that are already a ProviderError
// keep their kind; everything unrecognized is treated as transient.
func (ec *ErrorClassifier) Classify(err error) *ports.ProviderError {
	if err == nil {
		return nil
	}
	var perr *ports.ProviderError
	if errors.As(err, &perr) {
		return perr
	}
	if isContextError(err) {
		return ec.ClassifyContextError(err)
	}
	return ports.NewProviderError(ec.Provider, ports.KindTransient, 0, "request failed", err)
}

// parseRetryAfter reads a Retry-After header given either in seconds or as
// an HTTP date.
func parseRetryAfter(h http.Header, now time.Time) (time.Duration, bool) {
	if h == nil {
		return 0, false
	}
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
		return time.Duration(secs * float64(time.Second)), true
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}

// isContextError checks if an error is a context-related error, such as a
// deadline exceeded or cancellation.
func isContextError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
