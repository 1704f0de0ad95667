// Package domain contains pure domain models for commercial-proposal analysis.
// Types here carry no transport or provider knowledge; they describe requests,
// criteria, weight profiles, extracted figures, and the final analysis result.
package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Criterion identifies one of the ten fixed evaluation dimensions used to
// score a commercial proposal.
type Criterion string

// The ten evaluation criteria. The string values double as the JSON keys the
// providers are asked to emit.
const (
	CriterionTechnicalCompliance   Criterion = "technical_compliance"
	CriterionBudgetRealism         Criterion = "budget_realism"
	CriterionTimelineFeasibility   Criterion = "timeline_feasibility"
	CriterionQualityStandards      Criterion = "quality_standards"
	CriterionInnovationLevel       Criterion = "innovation_level"
	CriterionRiskAssessment        Criterion = "risk_assessment"
	CriterionVendorReliability     Criterion = "vendor_reliability"
	CriterionLegalCompliance       Criterion = "legal_compliance"
	CriterionMarketCompetitiveness Criterion = "market_competitiveness"
	CriterionSustainability        Criterion = "sustainability"
)

// allCriteria fixes the canonical ordering used in prompts and results.
var allCriteria = []Criterion{
	CriterionTechnicalCompliance,
	CriterionBudgetRealism,
	CriterionTimelineFeasibility,
	CriterionQualityStandards,
	CriterionInnovationLevel,
	CriterionRiskAssessment,
	CriterionVendorReliability,
	CriterionLegalCompliance,
	CriterionMarketCompetitiveness,
	CriterionSustainability,
}

// AllCriteria returns the ten criteria in canonical order.
// The returned slice is a copy and may be modified by the caller.
func AllCriteria() []Criterion {
	out := make([]Criterion, len(allCriteria))
	copy(out, allCriteria)
	return out
}

// MeasurableCriteria returns the criteria that can be scored from
// deterministically extracted figures alone.
func MeasurableCriteria() []Criterion {
	return []Criterion{CriterionBudgetRealism, CriterionTimelineFeasibility}
}

// IsMeasurable reports whether c can be scored without an AI provider.
func (c Criterion) IsMeasurable() bool {
	return c == CriterionBudgetRealism || c == CriterionTimelineFeasibility
}

// Valid reports whether c is one of the ten fixed criteria.
func (c Criterion) Valid() bool {
	for _, known := range allCriteria {
		if c == known {
			return true
		}
	}
	return false
}

// Title returns a human-readable name, e.g. "Budget Realism".
// A fresh Caser is built per call because Casers are stateful.
func (c Criterion) Title() string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(c), "_", " "))
}
