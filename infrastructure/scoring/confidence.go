package scoring

import (
	"math"

	"github.com/ahrav/go-tender/internal/domain"
)

// Confidence penalties.
const (
	partialPenalty       = 0.2
	lowExtractionPenalty = 0.15
	discrepancyPenalty   = 0.1

	highConfidence   = 0.75
	mediumConfidence = 0.45
)

// ConfidenceInput describes what the result was built from.
type ConfidenceInput struct {
	// Coverage is the share of profile weight carried by evaluated criteria.
	Coverage      float64
	Partial       bool
	LowConfidence bool
	Discrepancies int
	FallbackMode  bool
}

// Confidence returns the numeric confidence in [0, 1] and its level.
func (s *Scorer) Confidence(in ConfidenceInput) (float64, domain.ConfidenceLevel) {
	c := clamp(in.Coverage, 0, 1)
	if in.Partial {
		c -= partialPenalty
	}
	if in.LowConfidence {
		c -= lowExtractionPenalty
	}
	c -= discrepancyPenalty * float64(in.Discrepancies)
	if in.FallbackMode {
		c -= s.cfg.FallbackConfidencePenalty
	}
	c = clamp(c, 0, 1)
	c = math.Round(c*100) / 100
	return c, Level(c)
}

// Level buckets a numeric confidence.
func Level(c float64) domain.ConfidenceLevel {
	switch {
	case c >= highConfidence:
		return domain.ConfidenceHigh
	case c >= mediumConfidence:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}
