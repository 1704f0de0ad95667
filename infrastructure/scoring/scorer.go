// Package scoring combines per-criterion judgments and extracted figures into
// a weighted overall score, a recommendation and a confidence estimate.
package scoring

import (
	"fmt"
	"math"

	"github.com/ahrav/go-tender/internal/domain"
)

// Thresholds map the overall score onto a recommendation.
type Thresholds struct {
	Accept float64 `yaml:"accept" json:"accept" validate:"gte=0,lte=100"`
	Revise float64 `yaml:"revise" json:"revise" validate:"gte=0,lte=100,ltefield=Accept"`
}

// Config holds the scoring policy.
type Config struct {
	Thresholds Thresholds `yaml:"thresholds" json:"thresholds"`
	// DiscrepancyTolerance is the relative difference above which an
	// AI-reported figure is overridden by the extracted one.
	DiscrepancyTolerance float64 `yaml:"discrepancy_tolerance" json:"discrepancy_tolerance" validate:"gt=0,lt=1"`
	// FallbackConfidencePenalty is subtracted from confidence in fallback mode.
	FallbackConfidencePenalty float64 `yaml:"fallback_confidence_penalty" json:"fallback_confidence_penalty" validate:"gte=0,lte=1"`
	// FallbackMaxRecommendation caps the verdict when no AI analysis ran.
	FallbackMaxRecommendation domain.Recommendation `yaml:"fallback_max_recommendation" json:"fallback_max_recommendation" validate:"oneof=accept revise reject"`
	// CrossCheckGap is the score gap between an AI score and the rule-based
	// score for a measurable criterion that is reported as a finding.
	CrossCheckGap float64 `yaml:"cross_check_gap" json:"cross_check_gap" validate:"gte=0,lte=100"`
}

// DefaultConfig returns the default scoring policy.
func DefaultConfig() Config {
	return Config{
		Thresholds:                Thresholds{Accept: 80, Revise: 50},
		DiscrepancyTolerance:      0.15,
		FallbackConfidencePenalty: 0.4,
		FallbackMaxRecommendation: domain.RecommendRevise,
		CrossCheckGap:             30,
	}
}

// Scorer applies a Config. It holds no mutable state.
type Scorer struct {
	cfg Config
}

// New creates a Scorer after checking the policy for internal consistency.
func New(cfg Config) (*Scorer, error) {
	verr := domain.NewValidationError("scoring.Config")
	if cfg.Thresholds.Revise > cfg.Thresholds.Accept {
		verr.AddError(fmt.Sprintf("revise threshold %.1f exceeds accept threshold %.1f",
			cfg.Thresholds.Revise, cfg.Thresholds.Accept))
	}
	if cfg.DiscrepancyTolerance <= 0 {
		verr.AddError("discrepancy tolerance must be positive")
	}
	if !cfg.FallbackMaxRecommendation.Valid() {
		verr.AddError(fmt.Sprintf("unknown fallback max recommendation %q", cfg.FallbackMaxRecommendation))
	}
	if verr.HasErrors() {
		return nil, verr
	}
	return &Scorer{cfg: cfg}, nil
}

// Config returns the active policy.
func (s *Scorer) Config() Config { return s.cfg }

// Aggregation is the outcome of weighting the evaluated criteria.
type Aggregation struct {
	Overall float64
	// Criteria holds all ten criteria; evaluated ones carry their applied
	// weight, the others are not_evaluated with zero weight.
	Criteria map[domain.Criterion]domain.CriterionScore
	// Evaluated lists scored criteria in canonical order.
	Evaluated []domain.Criterion
	// Coverage is the share of profile weight carried by Evaluated.
	Coverage float64
}

// Aggregate computes the weighted overall score over the evaluated criteria,
// renormalizing the profile so that missing criteria are excluded rather
// than counted as zero. notEvaluatedReason is used as the rationale for
// criteria without a score.
func (s *Scorer) Aggregate(scores map[domain.Criterion]domain.CriterionScore, profile domain.WeightProfile, notEvaluatedReason string) Aggregation {
	agg := Aggregation{Criteria: make(map[domain.Criterion]domain.CriterionScore, len(domain.AllCriteria()))}

	for _, c := range domain.AllCriteria() {
		if sc, ok := scores[c]; ok && sc.Evaluated() && !math.IsNaN(sc.Score) {
			agg.Evaluated = append(agg.Evaluated, c)
		}
	}
	weights := profile.Renormalize(agg.Evaluated)
	agg.Coverage = profile.Coverage(agg.Evaluated)

	for _, c := range domain.AllCriteria() {
		sc, ok := scores[c]
		w, weighted := weights[c]
		if !ok || !sc.Evaluated() || !weighted {
			agg.Criteria[c] = notEvaluated(c, sc, notEvaluatedReason)
			continue
		}
		sc.Criterion = c
		sc.Score = clamp(sc.Score, 0, 100)
		sc.Weight = w
		agg.Criteria[c] = sc
		agg.Overall += w * sc.Score
	}

	// Drop criteria whose profile weight is zero from the evaluated list so
	// callers see only what contributed.
	contributing := agg.Evaluated[:0]
	for _, c := range agg.Evaluated {
		if _, ok := weights[c]; ok {
			contributing = append(contributing, c)
		}
	}
	agg.Evaluated = contributing
	agg.Overall = round1(agg.Overall)
	return agg
}

func notEvaluated(c domain.Criterion, prev domain.CriterionScore, reason string) domain.CriterionScore {
	rationale := reason
	if prev.Evaluated() {
		rationale = "criterion carries no weight in the active profile"
	} else if prev.Rationale != "" {
		rationale = prev.Rationale
	}
	return domain.CriterionScore{
		Criterion: c,
		Status:    domain.StatusNotEvaluated,
		Rationale: rationale,
		Source:    prev.Source,
	}
}

// Recommend maps an overall score to a recommendation. With nothing
// evaluated there is no basis to accept or reject, so the verdict is revise.
func (s *Scorer) Recommend(overall float64, anyEvaluated bool) domain.Recommendation {
	switch {
	case !anyEvaluated:
		return domain.RecommendRevise
	case overall >= s.cfg.Thresholds.Accept:
		return domain.RecommendAccept
	case overall >= s.cfg.Thresholds.Revise:
		return domain.RecommendRevise
	default:
		return domain.RecommendReject
	}
}

// CapFallback applies the fallback-mode ceiling to r.
func (s *Scorer) CapFallback(r domain.Recommendation) domain.Recommendation {
	return r.Cap(s.cfg.FallbackMaxRecommendation)
}

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }

func round1(v float64) float64 { return math.Round(v*10) / 10 }
