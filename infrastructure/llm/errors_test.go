package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tender/internal/ports"
)

func TestClassifyHTTPError(t *testing.T) {
	ec := &ErrorClassifier{Provider: "openai"}
	tests := []struct {
		status int
		want   ports.ErrorKind
	}{
		{http.StatusUnauthorized, ports.KindAuth},
		{http.StatusForbidden, ports.KindAuth},
		{http.StatusTooManyRequests, ports.KindRateLimited},
		{http.StatusRequestTimeout, ports.KindTimeout},
		{http.StatusGatewayTimeout, ports.KindTimeout},
		{http.StatusInternalServerError, ports.KindTransient},
		{http.StatusBadGateway, ports.KindTransient},
		{529, ports.KindTransient},
		{http.StatusBadRequest, ports.KindFatal},
		{http.StatusNotFound, ports.KindFatal},
		{0, ports.KindTransient},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			perr := ec.ClassifyHTTPError(tt.status, "msg", nil, nil)
			assert.Equal(t, tt.want, perr.Kind)
			assert.Equal(t, tt.status, perr.StatusCode)
			assert.Equal(t, "openai", perr.Provider)
		})
	}
}

func TestClassifyHTTPErrorRetryAfter(t *testing.T) {
	ec := &ErrorClassifier{Provider: "anthropic"}
	h := http.Header{}
	h.Set("Retry-After", "12")

	perr := ec.ClassifyHTTPError(http.StatusTooManyRequests, "", h, nil)
	require.NotNil(t, perr.RetryAfter)
	assert.Equal(t, 12*time.Second, *perr.RetryAfter)

	// Only rate limits carry the hint.
	perr = ec.ClassifyHTTPError(http.StatusServiceUnavailable, "", h, nil)
	assert.Nil(t, perr.RetryAfter)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		value string
		want  time.Duration
		ok    bool
	}{
		{name: "seconds", value: "30", want: 30 * time.Second, ok: true},
		{name: "fractional", value: "1.5", want: 1500 * time.Millisecond, ok: true},
		{name: "http date", value: now.Add(90 * time.Second).Format(http.TimeFormat), want: 90 * time.Second, ok: true},
		{name: "past date", value: now.Add(-time.Minute).Format(http.TimeFormat), want: 0, ok: true},
		{name: "garbage", value: "soon", ok: false},
		{name: "empty", value: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.value != "" {
				h.Set("Retry-After", tt.value)
			}
			got, ok := parseRetryAfter(h, now)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := parseRetryAfter(nil, now)
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	ec := &ErrorClassifier{Provider: "google"}

	assert.Nil(t, ec.Classify(nil))

	existing := ports.NewProviderError("google", ports.KindAuth, 401, "", nil)
	assert.Same(t, existing, ec.Classify(fmt.Errorf("wrapped: %w", existing)))

	assert.Equal(t, ports.KindTimeout, ec.Classify(context.DeadlineExceeded).Kind)
	assert.Equal(t, ports.KindCanceled, ec.Classify(context.Canceled).Kind)
	assert.Equal(t, ports.KindTransient, ec.Classify(errors.New("EOF")).Kind)
}
