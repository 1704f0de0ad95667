package llm

import (
	"fmt"
	"net/url"
	"time"
)

// DefaultMaxTokens is used when neither the request nor the provider
// configuration sets a limit.
const DefaultMaxTokens = 2048

// MaxTemperature is the highest temperature any adapter forwards. Anthropic
// caps it lower; see temperatureLimit.
const MaxTemperature = 2.0

// httpTimeoutSlack is added to the call timeout for the HTTP client backstop.
const httpTimeoutSlack = time.Second

// maxCallTimeout bounds a configured call timeout.
const maxCallTimeout = 10 * time.Minute

// temperatureLimit returns the highest temperature the provider type accepts.
func temperatureLimit(providerType string) float64 {
	if providerType == "anthropic" {
		return 1.0
	}
	return MaxTemperature
}

// clampTemperature brings t into the provider type's accepted range.
func clampTemperature(providerType string, t float64) float64 {
	return max(0, min(t, temperatureLimit(providerType)))
}

func validTemperature(t float64) bool { return t >= 0 && t <= MaxTemperature }

func positive(n int) bool { return n > 0 }

func nonEmpty(s string) bool { return s != "" }

// normalizeBaseURL checks an endpoint override. Empty means the SDK default.
func normalizeBaseURL(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	u, err := url.Parse(raw)
	switch {
	case err != nil:
		return "", fmt.Errorf("invalid base URL: %w", err)
	case u.Scheme != "http" && u.Scheme != "https":
		return "", fmt.Errorf("base URL %q: scheme must be http or https", raw)
	case u.Host == "":
		return "", fmt.Errorf("base URL %q has no host", raw)
	}
	return u.String(), nil
}

// httpBackstop returns the HTTP client timeout for a call timeout, or zero
// when no timeout is configured.
func httpBackstop(callTimeout time.Duration) time.Duration {
	if callTimeout <= 0 {
		return 0
	}
	return min(callTimeout, maxCallTimeout) + httpTimeoutSlack
}
