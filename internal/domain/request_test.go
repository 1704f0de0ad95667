package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnalysisRequest(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		req, err := NewAnalysisRequest("ref", "proposal")
		require.NoError(t, err)
		assert.Equal(t, DepthDetailed, req.Depth())
		assert.True(t, req.ModelOverride().IsZero())
		_, ok := req.Weights()
		assert.False(t, ok)
	})

	t.Run("options", func(t *testing.T) {
		profile := DefaultPresets()["cost_focused"]
		req, err := NewAnalysisRequest("ref", "proposal",
			WithDepth(DepthFull),
			WithModelOverride(ModelOverride{Provider: "anthropic", Model: "claude-x"}),
			WithWeights(profile),
		)
		require.NoError(t, err)
		assert.Equal(t, DepthFull, req.Depth())
		assert.Equal(t, "anthropic/claude-x", req.ModelOverride().String())

		w, ok := req.Weights()
		require.True(t, ok)
		assert.Equal(t, "cost_focused", w.Name)

		// Mutating the returned profile must not leak into the request.
		w.Weights[CriterionBudgetRealism] = 0
		again, _ := req.Weights()
		assert.InDelta(t, 0.30, again.Weights[CriterionBudgetRealism], 1e-9)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := NewAnalysisRequest("ref", "   ",
			WithDepth("deep"),
			WithWeights(WeightProfile{Name: "bad", Weights: map[Criterion]float64{CriterionBudgetRealism: 0.2}}),
		)
		require.Error(t, err)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Len(t, verr.Errors, 3)
	})
}

func TestParseModelOverride(t *testing.T) {
	tests := []struct {
		in      string
		want    ModelOverride
		wantErr bool
	}{
		{in: "", want: ModelOverride{}},
		{in: "gpt-4o", want: ModelOverride{Model: "gpt-4o"}},
		{in: "openai/gpt-4o-mini", want: ModelOverride{Provider: "openai", Model: "gpt-4o-mini"}},
		{in: " google / gemini-2.0-flash ", want: ModelOverride{Provider: "google", Model: "gemini-2.0-flash"}},
		{in: "openai/", wantErr: true},
		{in: "/gpt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseModelOverride(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDepthTokenScale(t *testing.T) {
	assert.InDelta(t, 0.5, DepthBasic.TokenScale(), 1e-9)
	assert.InDelta(t, 1.0, DepthDetailed.TokenScale(), 1e-9)
	assert.InDelta(t, 1.5, DepthFull.TokenScale(), 1e-9)
}

func TestRecommendationCap(t *testing.T) {
	assert.Equal(t, RecommendRevise, RecommendAccept.Cap(RecommendRevise))
	assert.Equal(t, RecommendReject, RecommendReject.Cap(RecommendRevise))
	assert.Equal(t, RecommendRevise, RecommendRevise.Cap(RecommendAccept))
}

func TestCriterion(t *testing.T) {
	assert.Len(t, AllCriteria(), 10)
	assert.True(t, CriterionBudgetRealism.IsMeasurable())
	assert.False(t, CriterionLegalCompliance.IsMeasurable())
	assert.True(t, CriterionSustainability.Valid())
	assert.False(t, Criterion("price").Valid())
	assert.Equal(t, "Market Competitiveness", CriterionMarketCompetitiveness.Title())

	all := AllCriteria()
	all[0] = "mutated"
	assert.Equal(t, CriterionTechnicalCompliance, AllCriteria()[0])
}
