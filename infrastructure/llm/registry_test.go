package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func envMap(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestNewRegistryOrderAndSkips(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r, err := NewRegistry(RegistryConfig{
		Providers: []ProviderConfig{
			{Type: "anthropic"},
			{Type: "openai", Model: "gpt-4.1", Timeout: 5 * time.Second},
			{Type: "google"},
		},
		Logger:    zap.New(core),
		LookupEnv: envMap(map[string]string{"OPENAI_API_KEY": "sk-1", "GOOGLE_API_KEY": "g-1", "ANTHROPIC_API_KEY": ""}),
	})
	require.NoError(t, err)

	clients := r.Clients()
	require.Len(t, clients, 2)
	assert.Equal(t, "openai", clients[0].Name())
	assert.Equal(t, "gpt-4.1", clients[0].Model())
	assert.Equal(t, 5*time.Second, clients[0].Timeout())
	assert.Equal(t, "google", clients[1].Name())
	assert.Equal(t, GoogleDefaultModel, clients[1].Model())

	assert.Equal(t, []string{"anthropic"}, r.Skipped())
	skipped := logs.FilterMessage("provider skipped: API key not set").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, "anthropic", skipped[0].ContextMap()["provider"])
}

func TestNewRegistryNamedProviders(t *testing.T) {
	r, err := NewRegistry(RegistryConfig{
		Providers: []ProviderConfig{
			{Name: "openai-fast", Type: "openai", Model: "gpt-4.1-mini"},
			{Name: "openai-strong", Type: "openai", Model: "gpt-4.1", APIKeyEnv: "STRONG_KEY", RequestsPerSecond: 2},
		},
		Tracing:   true,
		Metrics:   &recordingCollector{},
		LookupEnv: envMap(map[string]string{"OPENAI_API_KEY": "a", "STRONG_KEY": "b"}),
	})
	require.NoError(t, err)

	c, ok := r.Client("openai-strong")
	require.True(t, ok)
	assert.Equal(t, "gpt-4.1", c.Model())
	_, ok = r.Client("openai")
	assert.False(t, ok)
}

func TestNewRegistryErrors(t *testing.T) {
	env := envMap(map[string]string{"OPENAI_API_KEY": "a"})

	_, err := NewRegistry(RegistryConfig{Providers: []ProviderConfig{{Type: "mistral"}}, LookupEnv: env})
	assert.ErrorContains(t, err, "unknown type")

	_, err = NewRegistry(RegistryConfig{Providers: []ProviderConfig{{Type: "openai"}, {Type: "openai"}}, LookupEnv: env})
	assert.ErrorContains(t, err, "configured twice")

	_, err = NewRegistry(RegistryConfig{Providers: []ProviderConfig{{Type: "openai", BaseURL: "not a url"}}, LookupEnv: env})
	assert.Error(t, err)
}

func TestRegistryRegister(t *testing.T) {
	r, err := NewRegistry(RegistryConfig{LookupEnv: envMap(nil)})
	require.NoError(t, err)
	assert.Empty(t, r.Clients())

	require.NoError(t, r.Register(NewClientWithCore(NewMockCoreLLM(), ClientConfig{Name: "mock"})))
	assert.Error(t, r.Register(NewClientWithCore(NewMockCoreLLM(), ClientConfig{Name: "mock"})))
	assert.Len(t, r.Clients(), 1)
}
