package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ahrav/go-tender/infrastructure/extract"
	"github.com/ahrav/go-tender/infrastructure/parser"
	"github.com/ahrav/go-tender/infrastructure/prompts"
	"github.com/ahrav/go-tender/infrastructure/scoring"
	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
	"github.com/ahrav/go-tender/internal/testutils"
)

const (
	referenceText = "Бюджет проекта до 10 000 000 рублей. Срок выполнения 12 месяцев."
	proposalText  = "ТехСофт предлагает разработку за 8 000 000 рублей в течение 10 месяцев"
)

func newTestOrchestrator(t *testing.T, logger *zap.Logger, providers ...*testutils.MockProvider) *Orchestrator {
	t.Helper()
	ex := extract.NewDefault()
	scorer, err := scoring.New(scoring.DefaultConfig())
	require.NoError(t, err)
	pm, err := prompts.New()
	require.NoError(t, err)
	router, err := NewFallbackRouter(specsFor(providers...), 5, time.Minute)
	require.NoError(t, err)

	profile := domain.DefaultPresets()[domain.PresetBalanced]
	o, err := NewOrchestrator(router, pm, parser.New(ex), ex, scorer, profile,
		WithOrchestratorLogger(logger))
	require.NoError(t, err)
	return o
}

func newRequest(t *testing.T, proposal string, opts ...domain.RequestOption) *domain.AnalysisRequest {
	t.Helper()
	req, err := domain.NewAnalysisRequest(referenceText, proposal, opts...)
	require.NoError(t, err)
	return req
}

func TestAnalyzeFallsBackToExtraction(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	o := newTestOrchestrator(t, zap.New(core),
		testutils.NewMockProvider("openai", testutils.Fail(ports.KindAuth)),
		testutils.NewMockProvider("anthropic", testutils.Fail(ports.KindTimeout)),
	)

	res, err := o.Analyze(context.Background(), newRequest(t, proposalText))
	require.NoError(t, err)

	assert.True(t, res.FallbackMode)
	assert.False(t, res.UsingRealAI)
	assert.Empty(t, res.ModelsUsed)
	assert.Len(t, res.Attempts, 2)

	fin := res.Financials
	assert.Equal(t, "ТехСофт", fin.CompanyName)
	require.NotNil(t, fin.TotalCost)
	assert.Equal(t, 8_000_000.0, *fin.TotalCost)
	assert.Equal(t, domain.CurrencyRUB, fin.Currency)
	require.NotNil(t, fin.TimelineMonths)
	assert.Equal(t, 10.0, *fin.TimelineMonths)

	assert.ElementsMatch(t, []domain.Criterion{
		domain.CriterionBudgetRealism,
		domain.CriterionTimelineFeasibility,
	}, res.EvaluatedCriteria())
	tech := res.Criteria[domain.CriterionTechnicalCompliance]
	assert.Equal(t, domain.StatusNotEvaluated, tech.Status)
	assert.Zero(t, tech.Score)
	assert.Len(t, res.Criteria, len(domain.AllCriteria()))

	// Both measurable criteria score 90, but fallback caps the verdict.
	assert.Equal(t, 90.0, res.OverallScore)
	assert.Equal(t, domain.RecommendRevise, res.Recommendation)
	assert.Equal(t, domain.ConfidenceLow, res.ConfidenceLevel)
	require.NotEmpty(t, res.Findings)
	assert.Contains(t, res.Findings[0], "AI analysis unavailable")

	assert.Equal(t, 1, logs.FilterMessage("no provider produced a usable analysis; using extraction only").Len())
}

func TestAnalyzeWithoutProviders(t *testing.T) {
	o := newTestOrchestrator(t, zap.NewNop())

	res, err := o.Analyze(context.Background(), newRequest(t, proposalText))
	require.NoError(t, err)
	assert.True(t, res.FallbackMode)
	assert.Empty(t, res.Attempts)
}

func TestAnalyzeUsesAIReply(t *testing.T) {
	reply := `Here is the evaluation:
{
  "company_name": "ТехСофт",
  "total_cost": 8000000,
  "currency": "RUB",
  "timeline_months": 10,
  "technical_compliance": {"score": 85, "rationale": "covers all modules"},
  "budget_realism": {"score": 88, "rationale": "within budget"},
  "summary": "Solid proposal",
  "recommendations": ["Clarify the support terms"]
}`
	o := newTestOrchestrator(t, zap.NewNop(),
		testutils.NewMockProvider("openai", testutils.Reply(reply)),
	)
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.FixedZone("MSK", 3*3600))
	WithOrchestratorClock(func() time.Time { return now })(o)

	res, err := o.Analyze(context.Background(), newRequest(t, proposalText, domain.WithDepth(domain.DepthFull)))
	require.NoError(t, err)

	assert.False(t, res.FallbackMode)
	assert.True(t, res.UsingRealAI)
	assert.Equal(t, []string{"openai/openai-model"}, res.ModelsUsed)
	assert.Equal(t, []domain.Criterion{
		domain.CriterionTechnicalCompliance,
		domain.CriterionBudgetRealism,
	}, res.EvaluatedCriteria())
	// 0.15 and 0.15 renormalize to 0.5 each.
	assert.InDelta(t, 86.5, res.OverallScore, 1e-9)
	assert.Equal(t, domain.RecommendAccept, res.Recommendation)
	assert.Equal(t, domain.SourceAI, res.Criteria[domain.CriterionBudgetRealism].Source)
	assert.Equal(t, domain.FigureAgreed, res.Financials.CostSource)
	assert.Empty(t, res.Financials.Discrepancies)
	assert.Equal(t, "Solid proposal", res.Summary)
	assert.Equal(t, []string{"Clarify the support terms"}, res.Recommendations)

	assert.NotEqual(t, uuid.Nil, res.ID)
	assert.Equal(t, domain.DepthFull, res.Depth)
	assert.Equal(t, domain.PresetBalanced, res.Profile)
	assert.Equal(t, now.UTC(), res.CreatedAt)
	assert.Equal(t, time.UTC, res.CreatedAt.Location())
	assert.Zero(t, res.ProcessingTime)
}

func TestAnalyzeOverridesDivergentAICost(t *testing.T) {
	proposal := strings.Replace(proposalText, "8 000 000", "25 000 000", 1)
	reply := `{"total_cost": 2500000, "currency": "RUB", "timeline_months": 10,
"technical_compliance": {"score": 80}, "budget_realism": {"score": 75}}`
	o := newTestOrchestrator(t, zap.NewNop(),
		testutils.NewMockProvider("openai", testutils.Reply(reply)),
	)

	res, err := o.Analyze(context.Background(), newRequest(t, proposal))
	require.NoError(t, err)

	fin := res.Financials
	require.NotNil(t, fin.TotalCost)
	assert.Equal(t, 25_000_000.0, *fin.TotalCost)
	assert.Equal(t, domain.FigureFromExtractor, fin.CostSource)
	require.NotNil(t, fin.AIReportedCost)
	assert.Equal(t, 2_500_000.0, *fin.AIReportedCost)
	require.Len(t, fin.Discrepancies, 1)
	assert.Equal(t, "total_cost", fin.Discrepancies[0].Field)
	assert.Equal(t, 25_000_000.0, fin.Discrepancies[0].Resolved)

	var found bool
	for _, f := range res.Findings {
		if strings.Contains(f, "using the document figure") {
			found = true
		}
	}
	assert.True(t, found, "findings: %v", res.Findings)
}

func TestAnalyzeFallsBackAfterUnparseableReplies(t *testing.T) {
	o := newTestOrchestrator(t, zap.NewNop(),
		testutils.NewMockProvider("openai", testutils.Reply("Sorry, I can't help with that.")),
	)

	res, err := o.Analyze(context.Background(), newRequest(t, proposalText))
	require.NoError(t, err)
	assert.True(t, res.FallbackMode)
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, string(ports.KindUnparseable), res.Attempts[0].Outcome)
}

func TestAnalyzeCustomWeights(t *testing.T) {
	reply := `{"technical_compliance": 60, "budget_realism": 90}`
	o := newTestOrchestrator(t, zap.NewNop(),
		testutils.NewMockProvider("openai", testutils.Reply(reply)),
	)

	weights := domain.WeightProfile{Weights: map[domain.Criterion]float64{
		domain.CriterionTechnicalCompliance: 0.75,
		domain.CriterionBudgetRealism:       0.25,
	}}
	res, err := o.Analyze(context.Background(), newRequest(t, proposalText, domain.WithWeights(weights)))
	require.NoError(t, err)
	assert.InDelta(t, 67.5, res.OverallScore, 1e-9)
	assert.Equal(t, "custom", res.Profile)
	assert.InDelta(t, 0.75, res.Criteria[domain.CriterionTechnicalCompliance].Weight, 1e-9)
}

func TestAnalyzeErrors(t *testing.T) {
	t.Run("canceled context", func(t *testing.T) {
		o := newTestOrchestrator(t, zap.NewNop(), testutils.NewMockProvider("openai", testutils.Reply(okReply)))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res, err := o.Analyze(ctx, newRequest(t, proposalText))
		require.Error(t, err)
		assert.Nil(t, res)
		assert.True(t, errors.Is(err, context.Canceled))
	})

	t.Run("unknown override provider", func(t *testing.T) {
		o := newTestOrchestrator(t, zap.NewNop(), testutils.NewMockProvider("openai", testutils.Reply(okReply)))

		res, err := o.Analyze(context.Background(), newRequest(t, proposalText,
			domain.WithModelOverride(domain.ModelOverride{Provider: "mistral", Model: "large"})))
		require.Error(t, err)
		assert.Nil(t, res)
		assert.True(t, domain.IsValidationError(err))
	})

	t.Run("nil request", func(t *testing.T) {
		o := newTestOrchestrator(t, zap.NewNop())
		_, err := o.Analyze(context.Background(), nil)
		assert.Error(t, err)
	})
}

func TestNewOrchestratorValidation(t *testing.T) {
	ex := extract.NewDefault()
	scorer, err := scoring.New(scoring.DefaultConfig())
	require.NoError(t, err)
	pm, err := prompts.New()
	require.NoError(t, err)
	router, err := NewFallbackRouter(nil, 0, 0)
	require.NoError(t, err)

	_, err = NewOrchestrator(nil, pm, parser.New(ex), ex, scorer, domain.DefaultPresets()[domain.PresetBalanced])
	assert.Error(t, err)

	bad := domain.WeightProfile{Name: "bad", Weights: map[domain.Criterion]float64{domain.CriterionBudgetRealism: 0.4}}
	_, err = NewOrchestrator(router, pm, parser.New(ex), ex, scorer, bad)
	assert.Error(t, err)
}
