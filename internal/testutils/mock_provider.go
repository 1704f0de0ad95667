// Package testutils provides scripted collaborators for router and
// orchestrator tests.
package testutils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ahrav/go-tender/internal/ports"
)

// MockStep scripts one call to a MockProvider.
type MockStep struct {
	// Text is returned on success.
	Text string
	// Kind, when set, makes the call fail with a ProviderError of this kind.
	Kind ports.ErrorKind
	// RetryAfter is attached to rate-limit failures.
	RetryAfter time.Duration
	// Delay is waited before answering. The wait honors ctx and the request
	// timeout.
	Delay     time.Duration
	TokensIn  int
	TokensOut int
}

// Reply is a successful step returning text.
func Reply(text string) MockStep {
	return MockStep{Text: text, TokensIn: 100, TokensOut: 50}
}

// Fail is a failing step of the given kind.
func Fail(kind ports.ErrorKind) MockStep {
	return MockStep{Kind: kind}
}

// Slow is a successful step answering after d.
func Slow(d time.Duration, text string) MockStep {
	s := Reply(text)
	s.Delay = d
	return s
}

// MockProvider implements ports.ProviderClient by replaying scripted steps.
// The last step repeats once the script is exhausted. It is safe for
// concurrent use.
type MockProvider struct {
	mu       sync.Mutex
	name     string
	model    string
	steps    []MockStep
	calls    int
	canceled int
	requests []ports.GenerateRequest
}

var _ ports.ProviderClient = (*MockProvider)(nil)

// NewMockProvider creates a provider named name that answers with steps.
// Without steps every call fails as transient.
func NewMockProvider(name string, steps ...MockStep) *MockProvider {
	return &MockProvider{name: name, model: name + "-model", steps: steps}
}

// WithModel sets the default model name.
func (m *MockProvider) WithModel(model string) *MockProvider {
	m.model = model
	return m
}

// Script replaces the remaining steps.
func (m *MockProvider) Script(steps ...MockStep) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = steps
	m.calls = 0
}

// Name returns the provider name.
func (m *MockProvider) Name() string { return m.name }

// Model returns the default model name.
func (m *MockProvider) Model() string { return m.model }

// Generate replays the next step.
func (m *MockProvider) Generate(ctx context.Context, req ports.GenerateRequest) (ports.RawProviderReply, error) {
	m.mu.Lock()
	step := MockStep{Kind: ports.KindTransient}
	if len(m.steps) > 0 {
		step = m.steps[min(m.calls, len(m.steps)-1)]
	}
	m.calls++
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	model := req.Model
	if model == "" {
		model = m.model
	}
	reply := ports.RawProviderReply{Provider: m.name, Model: model}
	start := time.Now()

	callCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	if step.Delay > 0 {
		timer := time.NewTimer(step.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-callCtx.Done():
			reply.Latency = time.Since(start)
			var err error
			if ctx.Err() != nil {
				m.mu.Lock()
				m.canceled++
				m.mu.Unlock()
				err = ports.NewProviderError(m.name, ports.KindCanceled, 0, "request canceled by caller", ctx.Err())
			} else {
				err = ports.NewProviderError(m.name, ports.KindTimeout, 0, "request timed out", callCtx.Err())
			}
			reply.Err = err
			return reply, err
		}
	}

	reply.Latency = time.Since(start)
	reply.TokensIn, reply.TokensOut = step.TokensIn, step.TokensOut
	if step.Kind != "" {
		perr := ports.NewProviderError(m.name, step.Kind, 0, "scripted failure", errors.New(string(step.Kind)))
		if step.RetryAfter > 0 {
			d := step.RetryAfter
			perr.RetryAfter = &d
		}
		reply.Err = perr
		return reply, perr
	}
	reply.Text = step.Text
	reply.Success = true
	return reply, nil
}

// Calls returns the number of Generate calls.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Canceled returns how many calls were abandoned because ctx was canceled.
func (m *MockProvider) Canceled() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canceled
}

// Requests returns a copy of every request received.
func (m *MockProvider) Requests() []ports.GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.GenerateRequest(nil), m.requests...)
}
