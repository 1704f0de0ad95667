package ports

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProviderError(t *testing.T) {
	t.Run("message", func(t *testing.T) {
		retryAfter := 30 * time.Second
		err := NewProviderError("openai", KindRateLimited, 429, "slow down", errors.New("boom"))
		err.RetryAfter = &retryAfter

		assert.Equal(t, "openai error [rate_limited] (HTTP 429): slow down, retry_after=30s: boom", err.Error())
		got, ok := RetryAfterOf(fmt.Errorf("attempt: %w", err))
		assert.True(t, ok)
		assert.Equal(t, retryAfter, got)
	})

	t.Run("unwrap", func(t *testing.T) {
		err := NewProviderError("anthropic", KindTimeout, 0, "", context.DeadlineExceeded)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "provider error", err: NewProviderError("google", KindAuth, 401, "", nil), want: KindAuth},
		{name: "wrapped provider error", err: fmt.Errorf("x: %w", NewProviderError("google", KindFatal, 400, "", nil)), want: KindFatal},
		{name: "unparseable", err: fmt.Errorf("parse: %w", ErrUnparseableResponse), want: KindUnparseable},
		{name: "canceled", err: context.Canceled, want: KindCanceled},
		{name: "deadline", err: context.DeadlineExceeded, want: KindTimeout},
		{name: "other", err: errors.New("?"), want: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorKindCircuitPolicy(t *testing.T) {
	tests := []struct {
		kind      ErrorKind
		penalizes bool
		opens     bool
	}{
		{KindAuth, false, true},
		{KindFatal, false, true},
		{KindRateLimited, false, false},
		{KindCanceled, false, false},
		{KindTimeout, true, false},
		{KindTransient, true, false},
		{KindUnparseable, true, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.penalizes, tt.kind.PenalizesCircuit())
			assert.Equal(t, tt.opens, tt.kind.OpensCircuitImmediately())
		})
	}
}

func TestConfigError(t *testing.T) {
	base := errors.New("missing")
	err := NewConfigError("providers", base)
	assert.Equal(t, "config error: key=providers, err=missing", err.Error())
	assert.True(t, errors.Is(err, base))
}
