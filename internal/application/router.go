package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-tender/infrastructure/llm"
	"github.com/ahrav/go-tender/infrastructure/middleware"
	"github.com/ahrav/go-tender/infrastructure/parser"
	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
)

// maxTokenScale caps the depth-scaled token budget relative to the
// provider's configured max tokens.
const maxTokenScale = 2.0

// errRaceWon stops the remaining racers once one has produced a usable reply.
var errRaceWon = errors.New("race won")

// RouteRequest is one analysis prompt to be routed.
type RouteRequest struct {
	System   string
	User     string
	Depth    domain.Depth
	Override domain.ModelOverride
	// Observe, when set, receives every attempt as it completes.
	Observe func(domain.Attempt)
}

// ParseFunc turns a provider reply into an analysis. An error marks the
// attempt failed; ports.ErrUnparseableResponse is the expected one.
type ParseFunc func(reply ports.RawProviderReply) (*parser.ParsedAnalysis, error)

// RouteResult is the accepted reply and the record of how it was obtained.
type RouteResult struct {
	Reply         ports.RawProviderReply
	Parsed        *parser.ParsedAnalysis
	Attempts      []domain.Attempt
	EstimatedCost float64
}

// FallbackRouter tries providers in priority order, skipping those whose
// circuit is open, until one returns a parseable reply.
type FallbackRouter struct {
	descriptors []*ProviderDescriptor
	byName      map[string]*ProviderDescriptor
	mode        string
	raceWidth   int
	logger      *zap.Logger
	metrics     ports.MetricsCollector
	now         func() time.Time
}

// RouterOption configures a FallbackRouter.
type RouterOption func(*FallbackRouter)

// WithRouterLogger sets the logger.
func WithRouterLogger(l *zap.Logger) RouterOption {
	return func(r *FallbackRouter) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRouterMetrics reports circuit states to m.
func WithRouterMetrics(m ports.MetricsCollector) RouterOption {
	return func(r *FallbackRouter) { r.metrics = m }
}

// WithClock replaces time.Now for circuit-breaker timing.
func WithClock(now func() time.Time) RouterOption {
	return func(r *FallbackRouter) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRaceMode races the top width eligible providers before falling back
// to sequential tries of the rest.
func WithRaceMode(width int) RouterOption {
	return func(r *FallbackRouter) {
		r.mode = ModeRace
		if width > 1 {
			r.raceWidth = width
		}
	}
}

// NewFallbackRouter creates a router over specs in priority order.
// threshold and cooldown apply to providers that do not set their own.
func NewFallbackRouter(specs []ProviderSpec, threshold int, cooldown time.Duration, opts ...RouterOption) (*FallbackRouter, error) {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}

	r := &FallbackRouter{
		byName:    make(map[string]*ProviderDescriptor, len(specs)),
		mode:      ModeSequential,
		raceWidth: DefaultRaceWidth,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, spec := range specs {
		if spec.Client == nil {
			return nil, fmt.Errorf("provider spec without client")
		}
		d := newProviderDescriptor(spec, threshold, cooldown)
		if _, dup := r.byName[d.name]; dup {
			return nil, fmt.Errorf("provider %q registered twice", d.name)
		}
		r.descriptors = append(r.descriptors, d)
		r.byName[d.name] = d
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Providers returns the provider names in priority order.
func (r *FallbackRouter) Providers() []string {
	names := make([]string, len(r.descriptors))
	for i, d := range r.descriptors {
		names[i] = d.name
	}
	return names
}

// Has reports whether name is routed.
func (r *FallbackRouter) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Snapshot returns the state of every provider in priority order.
func (r *FallbackRouter) Snapshot() []DescriptorSnapshot {
	now := r.now()
	out := make([]DescriptorSnapshot, len(r.descriptors))
	for i, d := range r.descriptors {
		out[i] = d.Snapshot(now)
	}
	return out
}

// Reset closes every circuit.
func (r *FallbackRouter) Reset() {
	for _, d := range r.descriptors {
		d.reset()
		r.reportState(d.name, CircuitClosed)
	}
}

// SelectNext returns the highest-priority eligible provider not in
// excluded, or ports.ErrNoProviderAvailable. A provider returned in the
// half-open state is reserved for the caller's single trial call, which
// must be reported through Record.
func (r *FallbackRouter) SelectNext(excluded map[string]bool) (*ProviderDescriptor, error) {
	return r.selectFrom(r.descriptors, excluded)
}

// Record reports the outcome of a call made to a selected provider.
// err is nil on success.
func (r *FallbackRouter) Record(d *ProviderDescriptor, err error) {
	r.applyTransition(d, d.record(ports.KindOf(err), r.now()))
}

func (r *FallbackRouter) selectFrom(order []*ProviderDescriptor, excluded map[string]bool) (*ProviderDescriptor, error) {
	now := r.now()
	for _, d := range order {
		if excluded[d.name] {
			continue
		}
		ok, t := d.acquire(now)
		r.applyTransition(d, t)
		if ok {
			return d, nil
		}
	}
	return nil, ports.ErrNoProviderAvailable
}

func (r *FallbackRouter) applyTransition(d *ProviderDescriptor, t transition) {
	if !t.changed() {
		return
	}
	r.logger.Info("circuit state changed",
		zap.String("provider", d.name),
		zap.String("from", string(t.from)),
		zap.String("to", string(t.to)))
	r.reportState(d.name, t.to)
}

func (r *FallbackRouter) reportState(provider string, state CircuitState) {
	if r.metrics != nil {
		r.metrics.RecordGauge(middleware.MetricCircuitState, middleware.CircuitStateValue(string(state)),
			map[string]string{"provider": provider})
	}
}

// order returns the providers in priority order, with an override's
// provider moved to the front.
func (r *FallbackRouter) order(o domain.ModelOverride) ([]*ProviderDescriptor, error) {
	if o.Provider == "" {
		return r.descriptors, nil
	}
	first, ok := r.byName[o.Provider]
	if !ok {
		verr := domain.NewValidationError("ModelOverride")
		verr.AddError(fmt.Sprintf("provider %q is not configured or has no API key", o.Provider))
		return nil, verr
	}
	out := make([]*ProviderDescriptor, 0, len(r.descriptors))
	out = append(out, first)
	for _, d := range r.descriptors {
		if d != first {
			out = append(out, d)
		}
	}
	return out, nil
}

// Route obtains one parsed analysis. It returns ports.ErrNoProviderAvailable
// (wrapping the last failure) when every provider failed or was ineligible,
// the caller's context error when ctx ended, and a *domain.ValidationError
// for an override naming an unknown provider.
func (r *FallbackRouter) Route(ctx context.Context, req RouteRequest, parse ParseFunc) (RouteResult, error) {
	var res RouteResult

	order, err := r.order(req.Override)
	if err != nil {
		return res, err
	}
	if len(order) == 0 {
		return res, ports.ErrNoProviderAvailable
	}

	tried := make(map[string]bool, len(order))
	var lastErr error

	if r.mode == ModeRace {
		won, err := r.race(ctx, order, tried, req, parse, &res)
		if won {
			return res, nil
		}
		lastErr = err
	}

	for {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("analysis canceled: %w", err)
		}
		d, err := r.selectFrom(order, tried)
		if err != nil {
			break
		}
		tried[d.name] = true

		o := r.attempt(ctx, d, order[0], req, parse)
		res.add(o, req.Observe)
		if o.err == nil {
			res.Reply, res.Parsed = o.reply, o.parsed
			return res, nil
		}
		lastErr = o.err
	}

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("analysis canceled: %w", err)
	}
	if lastErr != nil {
		return res, fmt.Errorf("%w: last failure: %v", ports.ErrNoProviderAvailable, lastErr)
	}
	return res, ports.ErrNoProviderAvailable
}

// race calls up to raceWidth eligible providers at once. The first usable
// reply cancels the others; their calls end as canceled and do not count
// against their circuits. It reports whether a racer won, and otherwise the
// last failure.
func (r *FallbackRouter) race(
	ctx context.Context,
	order []*ProviderDescriptor,
	tried map[string]bool,
	req RouteRequest,
	parse ParseFunc,
	res *RouteResult,
) (bool, error) {
	var racers []*ProviderDescriptor
	for len(racers) < r.raceWidth {
		d, err := r.selectFrom(order, tried)
		if err != nil {
			break
		}
		tried[d.name] = true
		racers = append(racers, d)
	}
	if len(racers) == 0 {
		return false, nil
	}

	outcomes := make(chan attemptOutcome, len(racers))
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range racers {
		g.Go(func() error {
			o := r.attempt(gctx, d, order[0], req, parse)
			outcomes <- o
			if o.err == nil {
				return errRaceWon
			}
			return nil
		})
	}
	_ = g.Wait()
	close(outcomes)

	won := false
	var lastErr error
	for o := range outcomes {
		res.add(o, req.Observe)
		switch {
		case o.err == nil && !won:
			won = true
			res.Reply, res.Parsed = o.reply, o.parsed
		case o.err != nil && ports.KindOf(o.err) != ports.KindCanceled:
			lastErr = o.err
		}
	}
	return won, lastErr
}

// attemptOutcome is the result of one provider call plus parsing.
type attemptOutcome struct {
	descriptor *ProviderDescriptor
	model      string
	reply      ports.RawProviderReply
	parsed     *parser.ParsedAnalysis
	kind       ports.ErrorKind
	err        error
}

// attempt makes one call to d and records its outcome on d's circuit.
// primary is the provider an override model applies to.
func (r *FallbackRouter) attempt(
	ctx context.Context,
	d, primary *ProviderDescriptor,
	req RouteRequest,
	parse ParseFunc,
) attemptOutcome {
	gen := ports.GenerateRequest{
		System:      req.System,
		User:        req.User,
		Model:       d.spec.Model,
		MaxTokens:   scaledMaxTokens(d.spec.MaxTokens, req.Depth),
		Temperature: d.spec.Temperature,
		Timeout:     d.spec.Timeout,
	}
	if req.Override.Model != "" && d == primary {
		gen.Model = req.Override.Model
	}

	o := attemptOutcome{descriptor: d, model: gen.Model}
	o.reply, o.err = d.spec.Client.Generate(ctx, gen)
	if o.err == nil {
		o.parsed, o.err = parse(o.reply)
	}
	if o.reply.Model != "" {
		o.model = o.reply.Model
	}

	o.kind = ports.KindOf(o.err)
	if o.err != nil && ctx.Err() != nil {
		// Whatever the provider said, the call ended because we stopped it.
		o.kind = ports.KindCanceled
	}
	r.applyTransition(d, d.record(o.kind, r.now()))

	if o.err == nil {
		r.logger.Debug("provider attempt succeeded",
			zap.String("provider", d.name),
			zap.String("model", o.model),
			zap.Duration("latency", o.reply.Latency),
			zap.String("parse_method", o.parsed.Method))
	} else {
		r.logger.Warn("provider attempt failed",
			zap.String("provider", d.name),
			zap.String("model", o.model),
			zap.String("kind", string(o.kind)),
			zap.Duration("latency", o.reply.Latency),
			zap.Error(o.err))
	}
	return o
}

// add appends an attempt record and its cost.
func (res *RouteResult) add(o attemptOutcome, observe func(domain.Attempt)) {
	a := domain.Attempt{
		Provider:  o.descriptor.name,
		Model:     o.model,
		Outcome:   domain.OutcomeSuccess,
		Latency:   o.reply.Latency,
		TokensIn:  o.reply.TokensIn,
		TokensOut: o.reply.TokensOut,
	}
	if o.err != nil {
		a.Outcome = string(o.kind)
		a.Error = o.err.Error()
	}
	res.Attempts = append(res.Attempts, a)
	res.EstimatedCost += float64(a.TokensIn+a.TokensOut) * o.descriptor.spec.CostPerToken
	if observe != nil {
		observe(a)
	}
}

// scaledMaxTokens applies the depth's token scale to the provider's max
// tokens, capped at maxTokenScale times the configured value.
func scaledMaxTokens(base int, depth domain.Depth) int {
	if base <= 0 {
		base = llm.DefaultMaxTokens
	}
	scale := math.Min(depth.TokenScale(), maxTokenScale)
	return max(1, int(math.Round(float64(base)*scale)))
}
