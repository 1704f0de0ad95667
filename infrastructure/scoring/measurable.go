package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/ahrav/go-tender/internal/domain"
)

// Figures are the proposal and reference values the measurable criteria are
// scored from.
type Figures struct {
	Cost           *float64
	Currency       domain.Currency
	Months         *float64
	Budget         *float64
	BudgetCurrency domain.Currency
	RequiredMonths *float64
}

// FiguresFromExtraction builds Figures purely from extracted text.
func FiguresFromExtraction(proposal, reference domain.ExtractedFinancials) Figures {
	var f Figures
	if amount, cur, ok := proposal.PrimaryAmount(); ok {
		f.Cost, f.Currency = &amount, cur
	}
	if m, ok := proposal.Months(); ok {
		f.Months = &m
	}
	if amount, cur, ok := reference.PrimaryAmount(); ok {
		f.Budget, f.BudgetCurrency = &amount, cur
	}
	if m, ok := reference.Months(); ok {
		f.RequiredMonths = &m
	}
	return f
}

// MeasurableScores scores budget realism and timeline feasibility from
// figures alone. A criterion whose inputs are missing is not_evaluated.
func (s *Scorer) MeasurableScores(f Figures) map[domain.Criterion]domain.CriterionScore {
	return map[domain.Criterion]domain.CriterionScore{
		domain.CriterionBudgetRealism:       budgetScore(f),
		domain.CriterionTimelineFeasibility: timelineScore(f),
	}
}

func budgetScore(f Figures) domain.CriterionScore {
	c := domain.CriterionBudgetRealism
	switch {
	case f.Cost == nil:
		return ruleNotEvaluated(c, "no proposal cost could be extracted")
	case f.Budget == nil:
		return ruleNotEvaluated(c, "no budget ceiling found in the reference document")
	case *f.Budget <= 0:
		return ruleNotEvaluated(c, "reference budget is zero")
	case f.Currency != f.BudgetCurrency:
		return ruleNotEvaluated(c, fmt.Sprintf("proposal is in %s but the budget is in %s", f.Currency, f.BudgetCurrency))
	}

	r := *f.Cost / *f.Budget
	var score float64
	switch {
	case r >= 0.7 && r <= 1.0:
		score = 90
	case r >= 0.5 && r < 0.7:
		score = 70
	case r < 0.5:
		score = 45
	case r <= 1.15:
		score = 60
	default:
		score = math.Max(10, 60-(r-1.15)*200)
	}

	return domain.CriterionScore{
		Criterion: c,
		Status:    domain.StatusEvaluated,
		Score:     round1(score),
		Rationale: fmt.Sprintf("proposed %s %s is %.0f%% of the %s %s budget",
			formatAmount(*f.Cost), f.Currency, r*100, formatAmount(*f.Budget), f.BudgetCurrency),
		Source: domain.SourceExtractor,
	}
}

func timelineScore(f Figures) domain.CriterionScore {
	c := domain.CriterionTimelineFeasibility
	switch {
	case f.Months == nil:
		return ruleNotEvaluated(c, "no proposal timeline could be extracted")
	case f.RequiredMonths == nil:
		return ruleNotEvaluated(c, "no required timeline found in the reference document")
	case *f.RequiredMonths <= 0:
		return ruleNotEvaluated(c, "required timeline is zero")
	}

	q := *f.Months / *f.RequiredMonths
	var score float64
	switch {
	case q >= 0.5 && q <= 1.0:
		score = 90
	case q < 0.5:
		score = 70
	case q <= 1.1:
		score = 65
	default:
		score = math.Max(10, 65-(q-1.1)*150)
	}

	return domain.CriterionScore{
		Criterion: c,
		Status:    domain.StatusEvaluated,
		Score:     round1(score),
		Rationale: fmt.Sprintf("proposed %.1f months against %.1f required", *f.Months, *f.RequiredMonths),
		Source:    domain.SourceExtractor,
	}
}

func ruleNotEvaluated(c domain.Criterion, reason string) domain.CriterionScore {
	return domain.CriterionScore{
		Criterion: c,
		Status:    domain.StatusNotEvaluated,
		Rationale: reason,
		Source:    domain.SourceExtractor,
	}
}

// CrossCheck compares AI scores for the measurable criteria with the
// rule-based ones and describes gaps wider than the configured limit.
func (s *Scorer) CrossCheck(ai map[domain.Criterion]domain.CriterionScore, f Figures) []string {
	var findings []string
	for c, rule := range s.MeasurableScores(f) {
		got, ok := ai[c]
		if !ok || !got.Evaluated() || !rule.Evaluated() {
			continue
		}
		if gap := math.Abs(got.Score - rule.Score); gap > s.cfg.CrossCheckGap {
			findings = append(findings, fmt.Sprintf("%s: AI score %.0f differs from rule-based %.0f (%s)",
				c.Title(), got.Score, rule.Score, rule.Rationale))
		}
	}
	sort.Strings(findings)
	return findings
}
