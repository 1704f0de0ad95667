package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tender/internal/ports"
)

func TestClientGenerateSuccess(t *testing.T) {
	mock := NewMockCoreLLM()
	mock.Response = `{"criteria": {}}`
	client := NewClientWithCore(mock, ClientConfig{Name: "primary", MaxTokens: 900})

	reply, err := client.Generate(context.Background(), ports.GenerateRequest{
		System:      "be terse",
		User:        "analyze",
		Temperature: 0.2,
	})
	require.NoError(t, err)

	assert.True(t, reply.Success)
	assert.Equal(t, "primary", reply.Provider)
	assert.Equal(t, "test-model", reply.Model)
	assert.Equal(t, `{"criteria": {}}`, reply.Text)
	assert.Equal(t, 10, reply.TokensIn)
	assert.Equal(t, 20, reply.TokensOut)
	assert.Positive(t, int64(reply.Latency))
	assert.Nil(t, reply.Err)

	opts := mock.GetLastOpts()
	assert.Equal(t, "be terse", opts[OptSystem])
	assert.Equal(t, "test-model", opts[OptModel])
	assert.Equal(t, 0.2, opts[OptTemperature])
	assert.Equal(t, 900, opts[OptMaxTokens])
	assert.Equal(t, "analyze", mock.LastPrompt)
}

func TestClientGenerateRequestOverrides(t *testing.T) {
	mock := NewMockCoreLLM()
	client := NewClientWithCore(mock, ClientConfig{Name: "primary", MaxTokens: 900})

	reply, err := client.Generate(context.Background(), ports.GenerateRequest{
		User:      "analyze",
		Model:     "override-model",
		MaxTokens: 300,
	})
	require.NoError(t, err)
	assert.Equal(t, "override-model", reply.Model)
	assert.Equal(t, "override-model", mock.GetLastOpts()[OptModel])
	assert.Equal(t, 300, mock.GetLastOpts()[OptMaxTokens])
	assert.Equal(t, "test-model", client.Model(), "override must not change the client default")
}

// The deadline holds even when the provider ignores ctx.
func TestClientEnforcesTimeout(t *testing.T) {
	mock := NewMockCoreLLM()
	mock.ResponseDelay = 500 * time.Millisecond
	mock.IgnoreContext = true
	client := NewClientWithCore(mock, ClientConfig{Name: "slow", Timeout: 20 * time.Millisecond})

	start := time.Now()
	reply, err := client.Generate(context.Background(), ports.GenerateRequest{User: "x"})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Less(t, elapsed, 300*time.Millisecond)
	assert.Equal(t, ports.KindTimeout, ports.KindOf(err))
	assert.False(t, reply.Success)
	assert.Equal(t, err, reply.Err)
	assert.Equal(t, "slow", reply.Provider)
}

func TestClientRequestTimeoutWins(t *testing.T) {
	mock := NewMockCoreLLM()
	mock.ResponseDelay = 200 * time.Millisecond
	client := NewClientWithCore(mock, ClientConfig{Name: "p", Timeout: time.Minute})

	_, err := client.Generate(context.Background(), ports.GenerateRequest{User: "x", Timeout: 10 * time.Millisecond})
	assert.Equal(t, ports.KindTimeout, ports.KindOf(err))
}

func TestClientCallerCancellation(t *testing.T) {
	mock := NewMockCoreLLM()
	mock.ResponseDelay = time.Second
	client := NewClientWithCore(mock, ClientConfig{Name: "p"})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := client.Generate(ctx, ports.GenerateRequest{User: "x"})
	require.Error(t, err)
	assert.Equal(t, ports.KindCanceled, ports.KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientClassifiesProviderErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ports.ErrorKind
	}{
		{name: "auth", err: ports.NewProviderError("openai", ports.KindAuth, 401, "bad key", nil), want: ports.KindAuth},
		{name: "rate limited", err: ports.NewProviderError("openai", ports.KindRateLimited, 429, "", nil), want: ports.KindRateLimited},
		{name: "plain error", err: errors.New("connection reset"), want: ports.KindTransient},
		{name: "empty reply", err: nil, want: ports.KindTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockCoreLLM()
			mock.Error = tt.err
			if tt.err == nil {
				mock.Response = "   "
			}
			client := NewClientWithCore(mock, ClientConfig{Name: "backup"})

			reply, err := client.Generate(context.Background(), ports.GenerateRequest{User: "x"})
			require.Error(t, err)
			assert.Equal(t, tt.want, ports.KindOf(err))
			assert.Empty(t, reply.Text)

			var perr *ports.ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, "backup", perr.Provider)
		})
	}
}

func TestClientDoesNotMutateSharedErrors(t *testing.T) {
	shared := ports.NewProviderError("openai", ports.KindFatal, 400, "bad request", nil)
	mock := NewMockCoreLLM()
	mock.Error = shared
	client := NewClientWithCore(mock, ClientConfig{Name: "renamed"})

	_, err := client.Generate(context.Background(), ports.GenerateRequest{User: "x"})
	require.Error(t, err)
	assert.Equal(t, "openai", shared.Provider)
}

func TestClientMiddlewareOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next CoreLLM) CoreLLM {
			return coreFunc{next: next, fn: func() { order = append(order, name) }}
		}
	}
	client := NewClientWithCore(NewMockCoreLLM(), ClientConfig{Name: "p", Middleware: []Middleware{tag("outer"), tag("inner")}})

	_, err := client.Generate(context.Background(), ports.GenerateRequest{User: "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

type coreFunc struct {
	next CoreLLM
	fn   func()
}

func (c coreFunc) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	c.fn()
	return c.next.DoRequest(ctx, prompt, opts)
}

func (c coreFunc) GetModel() string { return c.next.GetModel() }

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("openai", ClientConfig{})
	assert.ErrorIs(t, err, ErrEmptyAPIKey)

	_, err = NewClient("nonexistent", ClientConfig{APIKey: "k"})
	assert.ErrorContains(t, err, "unknown provider")

	c, err := NewClient("openai", ClientConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())
	assert.Equal(t, OpenAIDefaultModel, c.Model())
	assert.Equal(t, DefaultTimeout, c.Timeout())

	assert.Equal(t, []string{"anthropic", "google", "openai"}, ProviderTypes())
}
