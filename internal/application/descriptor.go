package application

import (
	"sync"
	"time"

	"github.com/ahrav/go-tender/internal/ports"
)

// CircuitState is the availability state of one provider.
type CircuitState string

// Circuit states.
const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half-open"
)

// ProviderSpec is the static description of a routed provider.
type ProviderSpec struct {
	Client ports.ProviderClient
	// Model defaults to Client.Model().
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	// CostPerToken prices input and output tokens alike.
	CostPerToken float64
	// FailureThreshold and Cooldown default to the router's values.
	FailureThreshold int
	Cooldown         time.Duration
}

// ProviderDescriptor holds the routing configuration and circuit-breaker
// state of one provider. The state is changed only through acquire and
// record, under the descriptor's own lock; no lock is held across a call.
type ProviderDescriptor struct {
	spec      ProviderSpec
	name      string
	threshold int
	cooldown  time.Duration

	mu          sync.Mutex
	state       CircuitState
	failures    int
	lastFailure time.Time
	// trial is set while the single half-open probe is in flight.
	trial bool
}

func newProviderDescriptor(spec ProviderSpec, threshold int, cooldown time.Duration) *ProviderDescriptor {
	if spec.Model == "" {
		spec.Model = spec.Client.Model()
	}
	if spec.FailureThreshold > 0 {
		threshold = spec.FailureThreshold
	}
	if spec.Cooldown > 0 {
		cooldown = spec.Cooldown
	}
	return &ProviderDescriptor{
		spec:      spec,
		name:      spec.Client.Name(),
		threshold: threshold,
		cooldown:  cooldown,
		state:     CircuitClosed,
	}
}

// Name returns the provider name.
func (d *ProviderDescriptor) Name() string { return d.name }

// DescriptorSnapshot is a point-in-time copy of a descriptor's state.
type DescriptorSnapshot struct {
	Name        string
	Model       string
	State       CircuitState
	Failures    int
	LastFailure time.Time
}

// Snapshot returns the current state; an expired open circuit is reported
// as half-open.
func (d *ProviderDescriptor) Snapshot(now time.Time) DescriptorSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	state := d.state
	if state == CircuitOpen && now.Sub(d.lastFailure) >= d.cooldown {
		state = CircuitHalfOpen
	}
	return DescriptorSnapshot{
		Name:        d.name,
		Model:       d.spec.Model,
		State:       state,
		Failures:    d.failures,
		LastFailure: d.lastFailure,
	}
}

// transition describes a state change made by acquire or record.
type transition struct {
	from, to CircuitState
}

func (t transition) changed() bool { return t.from != t.to }

// acquire reports whether a call may be made now. An open circuit whose
// cooldown has elapsed becomes half-open and admits exactly one call until
// that call is recorded.
func (d *ProviderDescriptor) acquire(now time.Time) (bool, transition) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := transition{from: d.state, to: d.state}
	switch d.state {
	case CircuitClosed:
		return true, t
	case CircuitOpen:
		if now.Sub(d.lastFailure) < d.cooldown {
			return false, t
		}
		d.state, d.trial = CircuitHalfOpen, true
		t.to = CircuitHalfOpen
		return true, t
	default:
		if d.trial {
			return false, t
		}
		d.trial = true
		return true, t
	}
}

// record applies the outcome of an acquired call. kind is empty on success.
func (d *ProviderDescriptor) record(kind ports.ErrorKind, now time.Time) transition {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := transition{from: d.state}
	d.trial = false

	switch {
	case kind == "":
		d.state, d.failures = CircuitClosed, 0
	case kind.OpensCircuitImmediately():
		d.failures++
		d.state, d.lastFailure = CircuitOpen, now
	case kind.PenalizesCircuit():
		d.failures++
		d.lastFailure = now
		if d.state == CircuitHalfOpen || d.failures >= d.threshold {
			d.state = CircuitOpen
		}
	default:
		// Rate limits and cancellations leave the counters alone. A
		// half-open probe that ended this way may be retried.
	}

	t.to = d.state
	return t
}

// reset closes the circuit and clears the counters.
func (d *ProviderDescriptor) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state, d.failures, d.trial, d.lastFailure = CircuitClosed, 0, false, time.Time{}
}
