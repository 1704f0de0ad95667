package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Depth controls how much detail the provider is asked to return.
type Depth string

const (
	// DepthBasic requests scores only.
	DepthBasic Depth = "basic"
	// DepthDetailed requests scores, rationale and key findings.
	DepthDetailed Depth = "detailed"
	// DepthFull additionally requests per-criterion recommendations and a summary.
	DepthFull Depth = "full"
)

// Valid reports whether d is a known depth.
func (d Depth) Valid() bool {
	switch d {
	case DepthBasic, DepthDetailed, DepthFull:
		return true
	}
	return false
}

// TokenScale returns the multiplier applied to a provider's configured max
// tokens for this depth.
func (d Depth) TokenScale() float64 {
	switch d {
	case DepthBasic:
		return 0.5
	case DepthFull:
		return 1.5
	default:
		return 1.0
	}
}

// ModelOverride names a model to use for one request. Provider is empty when
// the override was given as a bare model name.
type ModelOverride struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model"`
}

// IsZero reports whether no override was requested.
func (m ModelOverride) IsZero() bool { return m.Provider == "" && m.Model == "" }

// String renders the override in "provider/model" form.
func (m ModelOverride) String() string {
	if m.Provider == "" {
		return m.Model
	}
	return m.Provider + "/" + m.Model
}

// ParseModelOverride accepts "provider/model" or a bare "model".
// An empty string yields the zero override.
func ParseModelOverride(s string) (ModelOverride, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ModelOverride{}, nil
	}
	provider, model, found := strings.Cut(s, "/")
	if !found {
		return ModelOverride{Model: s}, nil
	}
	provider, model = strings.TrimSpace(provider), strings.TrimSpace(model)
	if provider == "" || model == "" {
		return ModelOverride{}, fmt.Errorf("model override %q: want provider/model", s)
	}
	return ModelOverride{Provider: provider, Model: model}, nil
}

// AnalysisRequest is the input to one orchestration call. Fields are
// unexported so a request cannot change after NewAnalysisRequest validates it.
type AnalysisRequest struct {
	reference string
	proposal  string
	depth     Depth
	override  ModelOverride
	weights   *WeightProfile
}

// RequestOption configures optional AnalysisRequest fields.
type RequestOption func(*AnalysisRequest)

// WithDepth sets the analysis depth. The default is DepthDetailed.
func WithDepth(d Depth) RequestOption {
	return func(r *AnalysisRequest) { r.depth = d }
}

// WithModelOverride requests a specific model for this request only.
func WithModelOverride(m ModelOverride) RequestOption {
	return func(r *AnalysisRequest) { r.override = m }
}

// WithWeights sets a custom per-request weight profile. The profile is copied.
func WithWeights(p WeightProfile) RequestOption {
	return func(r *AnalysisRequest) {
		c := p.Clone()
		r.weights = &c
	}
}

// NewAnalysisRequest validates and builds an immutable request.
// The proposal text is required; the reference text may be empty when no
// requirements document is available.
func NewAnalysisRequest(reference, proposal string, opts ...RequestOption) (*AnalysisRequest, error) {
	r := &AnalysisRequest{
		reference: reference,
		proposal:  proposal,
		depth:     DepthDetailed,
	}
	for _, opt := range opts {
		opt(r)
	}

	verr := NewValidationError("AnalysisRequest")
	if strings.TrimSpace(r.proposal) == "" {
		verr.AddError("proposal text is required")
	}
	if !utf8.ValidString(r.proposal) || !utf8.ValidString(r.reference) {
		verr.AddError("documents must be valid UTF-8")
	}
	if !r.depth.Valid() {
		verr.AddError(fmt.Sprintf("unknown depth %q", r.depth))
	}
	if r.override.Provider != "" && r.override.Model == "" {
		verr.AddError("model override names a provider without a model")
	}
	if r.weights != nil {
		if err := r.weights.Validate(); err != nil {
			verr.AddError(err.Error())
		}
	}
	if verr.HasErrors() {
		return nil, verr
	}
	return r, nil
}

// Reference returns the reference requirements text.
func (r *AnalysisRequest) Reference() string { return r.reference }

// Proposal returns the commercial-proposal text.
func (r *AnalysisRequest) Proposal() string { return r.proposal }

// Depth returns the requested analysis depth.
func (r *AnalysisRequest) Depth() Depth { return r.depth }

// ModelOverride returns the requested model override, if any.
func (r *AnalysisRequest) ModelOverride() ModelOverride { return r.override }

// Weights returns a copy of the per-request weight profile and true, or the
// zero profile and false when the request uses the configured preset.
func (r *AnalysisRequest) Weights() (WeightProfile, bool) {
	if r.weights == nil {
		return WeightProfile{}, false
	}
	return r.weights.Clone(), true
}
