package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampTemperature(t *testing.T) {
	assert.Equal(t, 1.0, clampTemperature("anthropic", 1.7))
	assert.Equal(t, 1.7, clampTemperature("openai", 1.7))
	assert.Equal(t, MaxTemperature, clampTemperature("google", 3))
	assert.Equal(t, 0.0, clampTemperature("openai", -0.5))
}

func TestNormalizeBaseURL(t *testing.T) {
	got, err := normalizeBaseURL("")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = normalizeBaseURL("https://proxy.internal/v1")
	require.NoError(t, err)
	assert.Equal(t, "https://proxy.internal/v1", got)

	for _, bad := range []string{"ftp://host", "localhost:8080", "https://", "://"} {
		_, err := normalizeBaseURL(bad)
		assert.Error(t, err, bad)
	}
}

func TestHTTPBackstop(t *testing.T) {
	assert.Zero(t, httpBackstop(0))
	assert.Equal(t, 31*time.Second, httpBackstop(30*time.Second))
	assert.Equal(t, maxCallTimeout+httpTimeoutSlack, httpBackstop(time.Hour))
}
