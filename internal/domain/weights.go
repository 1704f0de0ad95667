package domain

import (
	"fmt"
	"math"
	"sort"
)

// WeightTolerance is the floating tolerance applied when checking that a
// WeightProfile sums to 1.0.
const WeightTolerance = 1e-6

// PresetBalanced is the name of the default weight profile.
const PresetBalanced = "balanced"

// WeightProfile maps each criterion to its contribution to the overall score.
// A valid profile has non-negative weights over known criteria that sum to 1.0
// within WeightTolerance.
type WeightProfile struct {
	// Name identifies the profile, e.g. "balanced".
	Name string `json:"name" yaml:"name"`
	// Weights holds the per-criterion weights.
	Weights map[Criterion]float64 `json:"weights" yaml:"weights"`
}

// Validate checks the profile invariants and returns a *ValidationError
// listing every violation found.
func (p WeightProfile) Validate() error {
	verr := NewValidationError("WeightProfile " + p.Name)
	if len(p.Weights) == 0 {
		verr.AddError("profile has no weights")
		return verr
	}

	var sum float64
	for _, c := range sortedCriteria(p.Weights) {
		w := p.Weights[c]
		if !c.Valid() {
			verr.AddError(fmt.Sprintf("unknown criterion %q", c))
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			verr.AddError(fmt.Sprintf("weight for %s must be a finite non-negative number, got %v", c, w))
			continue
		}
		sum += w
	}

	if math.Abs(sum-1.0) > WeightTolerance {
		verr.AddError(fmt.Sprintf("weights must sum to 1.0, got %.6f", sum))
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// Weight returns the weight for c, or zero when c is not in the profile.
func (p WeightProfile) Weight(c Criterion) float64 { return p.Weights[c] }

// Renormalize returns the weights restricted to the given criteria, scaled so
// that they sum to 1.0. Criteria absent from the profile contribute nothing.
// When the restricted weights sum to zero the result is empty, signalling that
// no evaluated criterion carries weight.
func (p WeightProfile) Renormalize(present []Criterion) map[Criterion]float64 {
	var total float64
	seen := make(map[Criterion]struct{}, len(present))
	for _, c := range present {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		total += p.Weights[c]
	}

	out := make(map[Criterion]float64, len(seen))
	if total <= 0 {
		return out
	}
	for c := range seen {
		if w := p.Weights[c]; w > 0 {
			out[c] = w / total
		}
	}
	return out
}

// Coverage returns the share of the profile's total weight carried by the
// given criteria, in [0, 1].
func (p WeightProfile) Coverage(present []Criterion) float64 {
	var covered, total float64
	for _, w := range p.Weights {
		total += w
	}
	if total <= 0 {
		return 0
	}
	seen := make(map[Criterion]struct{}, len(present))
	for _, c := range present {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		covered += p.Weights[c]
	}
	return covered / total
}

// Clone returns a deep copy of the profile.
func (p WeightProfile) Clone() WeightProfile {
	weights := make(map[Criterion]float64, len(p.Weights))
	for c, w := range p.Weights {
		weights[c] = w
	}
	return WeightProfile{Name: p.Name, Weights: weights}
}

// DefaultPresets returns the built-in weight profiles keyed by name.
func DefaultPresets() map[string]WeightProfile {
	return map[string]WeightProfile{
		PresetBalanced: {
			Name: PresetBalanced,
			Weights: map[Criterion]float64{
				CriterionTechnicalCompliance:   0.15,
				CriterionBudgetRealism:         0.15,
				CriterionTimelineFeasibility:   0.10,
				CriterionQualityStandards:      0.10,
				CriterionInnovationLevel:       0.05,
				CriterionRiskAssessment:        0.10,
				CriterionVendorReliability:     0.10,
				CriterionLegalCompliance:       0.10,
				CriterionMarketCompetitiveness: 0.10,
				CriterionSustainability:        0.05,
			},
		},
		"cost_focused": {
			Name: "cost_focused",
			Weights: map[Criterion]float64{
				CriterionTechnicalCompliance:   0.10,
				CriterionBudgetRealism:         0.30,
				CriterionTimelineFeasibility:   0.10,
				CriterionQualityStandards:      0.05,
				CriterionInnovationLevel:       0.05,
				CriterionRiskAssessment:        0.10,
				CriterionVendorReliability:     0.10,
				CriterionLegalCompliance:       0.05,
				CriterionMarketCompetitiveness: 0.10,
				CriterionSustainability:        0.05,
			},
		},
		"technical_focused": {
			Name: "technical_focused",
			Weights: map[Criterion]float64{
				CriterionTechnicalCompliance:   0.30,
				CriterionBudgetRealism:         0.10,
				CriterionTimelineFeasibility:   0.10,
				CriterionQualityStandards:      0.15,
				CriterionInnovationLevel:       0.10,
				CriterionRiskAssessment:        0.05,
				CriterionVendorReliability:     0.05,
				CriterionLegalCompliance:       0.05,
				CriterionMarketCompetitiveness: 0.05,
				CriterionSustainability:        0.05,
			},
		},
	}
}

func sortedCriteria(weights map[Criterion]float64) []Criterion {
	keys := make([]Criterion, 0, len(weights))
	for c := range weights {
		keys = append(keys, c)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
