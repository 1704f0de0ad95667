package scoring

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ahrav/go-tender/internal/domain"
)

// AIFigures are the figures a provider reported for the proposal.
type AIFigures struct {
	CompanyName    string
	TotalCost      *float64
	Currency       domain.Currency
	TimelineMonths *float64
}

// Reconciliation is the merged financial view and the findings it produced.
type Reconciliation struct {
	Summary  domain.FinancialSummary
	Figures  Figures
	Findings []string
}

// Reconcile merges AI-reported figures with extracted ones. When both exist
// and diverge by more than the tolerance, the extracted figure is used and a
// discrepancy is recorded. Extracted figures are never overridden by AI prose.
func (s *Scorer) Reconcile(ai *AIFigures, proposal, reference domain.ExtractedFinancials) Reconciliation {
	var rec Reconciliation
	sum := &rec.Summary

	if amount, _, ok := reference.PrimaryAmount(); ok {
		sum.ReferenceBudget = ptr(amount)
	}
	if m, ok := reference.Months(); ok {
		sum.RequiredMonths = ptr(m)
	}

	if ai == nil {
		ai = &AIFigures{}
	}

	// Company name: the provider usually reads it better than the regexes.
	sum.CompanyName = strings.TrimSpace(ai.CompanyName)
	if sum.CompanyName == "" {
		sum.CompanyName = proposal.CompanyName()
	}

	extCost, extCur, hasExt := proposal.PrimaryAmount()
	if ai.TotalCost != nil {
		sum.AIReportedCost = ptr(*ai.TotalCost)
	}
	if hasExt {
		sum.ExtractedCost = ptr(extCost)
	}

	switch {
	case hasExt && ai.TotalCost != nil:
		sum.TotalCost, sum.Currency = ptr(extCost), extCur
		if ai.Currency != "" && ai.Currency != extCur {
			sum.CostSource = domain.FigureFromExtractor
			rec.Findings = append(rec.Findings, fmt.Sprintf(
				"AI reported the cost in %s but the document states %s; using the document figure %s %s",
				ai.Currency, extCur, formatAmount(extCost), extCur))
			break
		}
		if d, diverges := s.diverges("total_cost", *ai.TotalCost, extCost); diverges {
			sum.CostSource = domain.FigureFromExtractor
			sum.Discrepancies = append(sum.Discrepancies, d)
			rec.Findings = append(rec.Findings, fmt.Sprintf(
				"AI-reported total cost %s differs from the document figure %s %s by %.0f%%; using the document figure",
				formatAmount(*ai.TotalCost), formatAmount(extCost), extCur, d.RelativeDiff*100))
		} else {
			sum.CostSource = domain.FigureAgreed
		}
	case hasExt:
		sum.TotalCost, sum.Currency, sum.CostSource = ptr(extCost), extCur, domain.FigureFromExtractor
	case ai.TotalCost != nil:
		sum.TotalCost, sum.Currency, sum.CostSource = ptr(*ai.TotalCost), ai.Currency, domain.FigureFromAI
	}

	extMonths, hasMonths := proposal.Months()
	switch {
	case hasMonths && ai.TimelineMonths != nil:
		sum.TimelineMonths = ptr(extMonths)
		if d, diverges := s.diverges("timeline_months", *ai.TimelineMonths, extMonths); diverges {
			sum.TimelineSource = domain.FigureFromExtractor
			sum.Discrepancies = append(sum.Discrepancies, d)
			rec.Findings = append(rec.Findings, fmt.Sprintf(
				"AI-reported timeline of %.1f months differs from the document's %.1f months; using the document figure",
				*ai.TimelineMonths, extMonths))
		} else {
			sum.TimelineSource = domain.FigureAgreed
		}
	case hasMonths:
		sum.TimelineMonths, sum.TimelineSource = ptr(extMonths), domain.FigureFromExtractor
	case ai.TimelineMonths != nil:
		sum.TimelineMonths, sum.TimelineSource = ptr(*ai.TimelineMonths), domain.FigureFromAI
	}

	rec.Figures = Figures{
		Cost:           sum.TotalCost,
		Currency:       sum.Currency,
		Months:         sum.TimelineMonths,
		RequiredMonths: sum.RequiredMonths,
	}
	if amount, cur, ok := reference.PrimaryAmount(); ok {
		rec.Figures.Budget, rec.Figures.BudgetCurrency = ptr(amount), cur
	}
	return rec
}

func (s *Scorer) diverges(field string, ai, extracted float64) (domain.Discrepancy, bool) {
	if extracted == 0 {
		return domain.Discrepancy{}, false
	}
	rel := math.Abs(ai-extracted) / math.Abs(extracted)
	if rel <= s.cfg.DiscrepancyTolerance {
		return domain.Discrepancy{}, false
	}
	return domain.Discrepancy{
		Field:        field,
		AIValue:      ai,
		Extracted:    extracted,
		RelativeDiff: rel,
		Resolved:     extracted,
	}, true
}

func ptr(v float64) *float64 { return &v }

// formatAmount renders 25000000 as "25 000 000".
func formatAmount(v float64) string {
	whole := strconv.FormatFloat(math.Trunc(v), 'f', 0, 64)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	if frac := v - math.Trunc(v); frac > 0.005 {
		b.WriteString(strconv.FormatFloat(frac, 'f', 2, 64)[1:])
	}
	return b.String()
}
