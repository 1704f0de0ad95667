package application

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tender/infrastructure/middleware"
	"github.com/ahrav/go-tender/internal/testutils"
)

func TestNewAnalyzerRoutesProvidersWithKeys(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Router.Mode = ModeRace

	o, err := NewAnalyzer(cfg, AnalyzerOptions{
		LookupEnv: envMap(map[string]string{"OPENAI_API_KEY": "sk-test"}),
		Clients:   []ProviderSpec{{Client: testutils.NewMockProvider("local")}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"openai", "local"}, o.Router().Providers())
	assert.False(t, o.Router().Has("anthropic"))
	assert.Equal(t, ModeRace, o.Router().mode)
}

func TestNewAnalyzerEndToEndWithLocalProvider(t *testing.T) {
	reply := `{"technical_compliance": {"score": 70}, "legal_compliance": {"score": 64}}`
	local := testutils.NewMockProvider("local", testutils.Reply(reply))
	metrics := middleware.NewPrometheusMetricsWithRegisterer(prometheus.NewRegistry())

	o, err := NewAnalyzer(DefaultConfig(), AnalyzerOptions{
		Metrics:   metrics,
		LookupEnv: envMap(nil),
		Clients:   []ProviderSpec{{Client: local, MaxTokens: 800}},
	})
	require.NoError(t, err)

	res, err := o.Analyze(context.Background(), newRequest(t, proposalText))
	require.NoError(t, err)
	assert.True(t, res.UsingRealAI)
	assert.Equal(t, []string{"local/local-model"}, res.ModelsUsed)
	assert.Equal(t, 800, local.Requests()[0].MaxTokens)
}

func TestNewAnalyzerWithoutKeysRunsInFallback(t *testing.T) {
	o, err := NewAnalyzer(DefaultConfig(), AnalyzerOptions{LookupEnv: envMap(nil)})
	require.NoError(t, err)
	assert.Empty(t, o.Router().Providers())

	res, err := o.Analyze(context.Background(), newRequest(t, proposalText))
	require.NoError(t, err)
	assert.True(t, res.FallbackMode)
}

func TestNewAnalyzerRejectsUnknownDefaultProfile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultProfile = "missing"
	_, err := NewAnalyzer(cfg, AnalyzerOptions{LookupEnv: envMap(nil)})
	assert.Error(t, err)
}
