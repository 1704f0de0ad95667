package scoring

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tender/internal/domain"
)

func extracted(amount float64, cur domain.Currency, months float64, names ...string) domain.ExtractedFinancials {
	m := domain.MoneyMatch{Amount: decimal.NewFromFloat(amount), Currency: cur, Raw: formatAmount(amount)}
	f := domain.ExtractedFinancials{
		Matches:          []domain.MoneyMatch{m},
		Primary:          &m,
		DominantCurrency: cur,
		CompanyNames:     names,
	}
	if months > 0 {
		f.TimelineMonths = f64(months)
	}
	return f
}

func TestReconcilePrefersExtractedOnDiscrepancy(t *testing.T) {
	s := newScorer(t)
	proposal := extracted(25_000_000, domain.CurrencyRUB, 0)
	ai := &AIFigures{TotalCost: f64(2_500_000), Currency: domain.CurrencyRUB}

	rec := s.Reconcile(ai, proposal, domain.ExtractedFinancials{})

	require.NotNil(t, rec.Summary.TotalCost)
	assert.InDelta(t, 25_000_000, *rec.Summary.TotalCost, 1e-6)
	assert.Equal(t, domain.FigureFromExtractor, rec.Summary.CostSource)
	assert.InDelta(t, 2_500_000, *rec.Summary.AIReportedCost, 1e-6)
	assert.InDelta(t, 25_000_000, *rec.Summary.ExtractedCost, 1e-6)

	require.Len(t, rec.Summary.Discrepancies, 1)
	d := rec.Summary.Discrepancies[0]
	assert.Equal(t, "total_cost", d.Field)
	assert.InDelta(t, 0.9, d.RelativeDiff, 1e-9)
	assert.InDelta(t, 25_000_000, d.Resolved, 1e-6)

	require.Len(t, rec.Findings, 1)
	assert.Contains(t, rec.Findings[0], "2 500 000")
	assert.Contains(t, rec.Findings[0], "25 000 000")
}

func TestReconcileAgreement(t *testing.T) {
	s := newScorer(t)
	proposal := extracted(8_000_000, domain.CurrencyRUB, 10, "ТехСофт")
	ai := &AIFigures{TotalCost: f64(7_500_000), TimelineMonths: f64(10)}

	rec := s.Reconcile(ai, proposal, extracted(10_000_000, domain.CurrencyRUB, 12))

	assert.Equal(t, domain.FigureAgreed, rec.Summary.CostSource)
	assert.Equal(t, domain.FigureAgreed, rec.Summary.TimelineSource)
	assert.Empty(t, rec.Summary.Discrepancies)
	assert.Empty(t, rec.Findings)
	assert.Equal(t, "ТехСофт", rec.Summary.CompanyName)
	assert.InDelta(t, 10_000_000, *rec.Summary.ReferenceBudget, 1e-6)
	assert.InDelta(t, 12, *rec.Summary.RequiredMonths, 1e-9)

	// Figures feed the measurable rules.
	require.NotNil(t, rec.Figures.Budget)
	assert.Equal(t, domain.CurrencyRUB, rec.Figures.BudgetCurrency)
	assert.InDelta(t, 8_000_000, *rec.Figures.Cost, 1e-6)
}

func TestReconcileSingleSource(t *testing.T) {
	s := newScorer(t)

	t.Run("extractor only", func(t *testing.T) {
		rec := s.Reconcile(nil, extracted(8_000_000, domain.CurrencyRUB, 10), domain.ExtractedFinancials{})
		assert.Equal(t, domain.FigureFromExtractor, rec.Summary.CostSource)
		assert.Equal(t, domain.FigureFromExtractor, rec.Summary.TimelineSource)
		assert.Nil(t, rec.Summary.AIReportedCost)
	})

	t.Run("ai only", func(t *testing.T) {
		ai := &AIFigures{CompanyName: " Альфа ", TotalCost: f64(3_000_000), Currency: domain.CurrencyUSD, TimelineMonths: f64(6)}
		rec := s.Reconcile(ai, domain.ExtractedFinancials{LowConfidence: true}, domain.ExtractedFinancials{})
		assert.Equal(t, domain.FigureFromAI, rec.Summary.CostSource)
		assert.Equal(t, domain.CurrencyUSD, rec.Summary.Currency)
		assert.Equal(t, domain.FigureFromAI, rec.Summary.TimelineSource)
		assert.Equal(t, "Альфа", rec.Summary.CompanyName)
	})

	t.Run("neither", func(t *testing.T) {
		rec := s.Reconcile(nil, domain.ExtractedFinancials{}, domain.ExtractedFinancials{})
		assert.Nil(t, rec.Summary.TotalCost)
		assert.Nil(t, rec.Summary.TimelineMonths)
		assert.Empty(t, rec.Summary.CostSource)
	})
}

func TestReconcileCurrencyMismatch(t *testing.T) {
	s := newScorer(t)
	ai := &AIFigures{TotalCost: f64(8_000_000), Currency: domain.CurrencyUSD}

	rec := s.Reconcile(ai, extracted(8_000_000, domain.CurrencyRUB, 0), domain.ExtractedFinancials{})

	assert.Equal(t, domain.CurrencyRUB, rec.Summary.Currency)
	assert.Equal(t, domain.FigureFromExtractor, rec.Summary.CostSource)
	require.Len(t, rec.Findings, 1)
	assert.Contains(t, rec.Findings[0], "USD")
}

func TestReconcileTimelineDiscrepancy(t *testing.T) {
	s := newScorer(t)
	ai := &AIFigures{TimelineMonths: f64(24)}

	rec := s.Reconcile(ai, extracted(1_000_000, domain.CurrencyRUB, 10), domain.ExtractedFinancials{})

	assert.InDelta(t, 10, *rec.Summary.TimelineMonths, 1e-9)
	assert.Equal(t, domain.FigureFromExtractor, rec.Summary.TimelineSource)
	require.Len(t, rec.Summary.Discrepancies, 1)
	assert.Equal(t, "timeline_months", rec.Summary.Discrepancies[0].Field)
}

func TestFormatAmount(t *testing.T) {
	tests := map[float64]string{
		0:          "0",
		999:        "999",
		1000:       "1 000",
		25_000_000: "25 000 000",
		1234.5:     "1 234.50",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatAmount(in))
	}
}

func TestConfidence(t *testing.T) {
	s := newScorer(t)
	tests := []struct {
		name      string
		in        ConfidenceInput
		want      float64
		wantLevel domain.ConfidenceLevel
	}{
		{name: "full coverage", in: ConfidenceInput{Coverage: 1}, want: 1, wantLevel: domain.ConfidenceHigh},
		{name: "partial", in: ConfidenceInput{Coverage: 1, Partial: true}, want: 0.8, wantLevel: domain.ConfidenceHigh},
		{name: "discrepancies", in: ConfidenceInput{Coverage: 0.9, Discrepancies: 2}, want: 0.7, wantLevel: domain.ConfidenceMedium},
		{name: "low extraction", in: ConfidenceInput{Coverage: 0.6, LowConfidence: true}, want: 0.45, wantLevel: domain.ConfidenceMedium},
		{name: "fallback", in: ConfidenceInput{Coverage: 0.25, FallbackMode: true}, want: 0, wantLevel: domain.ConfidenceLow},
		{name: "clamped above", in: ConfidenceInput{Coverage: 3}, want: 1, wantLevel: domain.ConfidenceHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, level := s.Confidence(tt.in)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.Equal(t, tt.wantLevel, level)
		})
	}
}
