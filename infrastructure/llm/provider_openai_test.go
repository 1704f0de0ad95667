package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tender/internal/ports"
)

func TestOpenAIProviderDoRequest(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4.1-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"criteria\": {}}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 42, "completion_tokens": 7, "total_tokens": 49}
		}`))
	}))
	defer server.Close()

	core, err := newOpenAIProvider(ClientConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	text, in, out, err := core.DoRequest(context.Background(), "analyze this", map[string]any{
		OptSystem:      "you are an analyst",
		OptModel:       "gpt-4.1",
		OptMaxTokens:   500,
		OptTemperature: 0.1,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"criteria": {}}`, text)
	assert.Equal(t, 42, in)
	assert.Equal(t, 7, out)

	assert.Equal(t, "gpt-4.1", got["model"])
	assert.EqualValues(t, 500, got["max_tokens"])
	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "analyze this", messages[1].(map[string]any)["content"])
}

func TestOpenAIProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   ports.ErrorKind
	}{
		{name: "bad key", status: http.StatusUnauthorized, want: ports.KindAuth},
		{name: "throttled", status: http.StatusTooManyRequests, want: ports.KindRateLimited},
		{name: "server error", status: http.StatusInternalServerError, want: ports.KindTransient},
		{name: "bad request", status: http.StatusBadRequest, want: ports.KindFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error": {"message": "nope", "type": "invalid_request_error"}}`))
			}))
			defer server.Close()

			core, err := newOpenAIProvider(ClientConfig{APIKey: "test-key", BaseURL: server.URL})
			require.NoError(t, err)

			_, _, _, err = core.DoRequest(context.Background(), "x", nil)
			require.Error(t, err)
			assert.Equal(t, tt.want, ports.KindOf(err))
		})
	}
}

func TestOpenAIProviderRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "slow down", "type": "requests"}}`))
	}))
	defer server.Close()

	core, err := newOpenAIProvider(ClientConfig{APIKey: "test-key", BaseURL: server.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	_, _, _, err = core.DoRequest(context.Background(), "x", nil)
	require.Error(t, err)
	assert.Equal(t, ports.KindRateLimited, ports.KindOf(err))
	d, ok := ports.RetryAfterOf(err)
	require.True(t, ok)
	assert.Equal(t, 7*time.Second, d)
}

func TestOpenAIProviderNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "choices": [], "usage": {}}`))
	}))
	defer server.Close()

	core, err := newOpenAIProvider(ClientConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, _, _, err = core.DoRequest(context.Background(), "x", nil)
	assert.ErrorIs(t, err, ErrNoResponseChoice)
}

func TestOpenAIProviderConfig(t *testing.T) {
	_, err := newOpenAIProvider(ClientConfig{})
	assert.ErrorIs(t, err, ErrEmptyAPIKey)

	_, err = newOpenAIProvider(ClientConfig{APIKey: "k", BaseURL: "ftp://example.com"})
	assert.Error(t, err)

	core, err := newOpenAIProvider(ClientConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, OpenAIDefaultModel, core.GetModel())
}

func TestOpenAIBuildRequestClampsTemperature(t *testing.T) {
	p := &openAIProvider{BaseProvider: BaseProvider{model: "m"}}
	temp := 5.0
	req := p.buildChatCompletionRequest("u", RequestOptions{Model: "m", MaxTokens: 10, Temperature: &temp})
	assert.InDelta(t, MaxTemperature, req.Temperature, 1e-6)
	require.Len(t, req.Messages, 1, "no system message when the system prompt is empty")
}
