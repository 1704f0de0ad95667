package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tender/internal/domain"
)

func request(t *testing.T, reference, proposal string, opts ...domain.RequestOption) *domain.AnalysisRequest {
	t.Helper()
	req, err := domain.NewAnalysisRequest(reference, proposal, opts...)
	require.NoError(t, err)
	return req
}

func TestBuildListsAllCriteria(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	p, err := m.Build(request(t, "budget ≤10M RUB, 12 months", "ТехСофт предлагает разработку за 8 000 000 рублей"))
	require.NoError(t, err)

	assert.Contains(t, p.System, "single JSON object")
	assert.Contains(t, p.User, "budget ≤10M RUB, 12 months")
	assert.Contains(t, p.User, "8 000 000 рублей")
	for _, c := range domain.AllCriteria() {
		assert.Contains(t, p.User, string(c))
	}
	assert.Contains(t, p.User, "1. technical_compliance: Technical Compliance (15%)")
	assert.Contains(t, p.User, "10. sustainability: Sustainability (5%)")
}

func TestBuildByDepth(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	basic, err := m.Build(request(t, "", "proposal", domain.WithDepth(domain.DepthBasic)))
	require.NoError(t, err)
	assert.Contains(t, basic.User, `"technical_compliance": 0, "budget_realism": 0`)
	assert.NotContains(t, basic.User, "rationale")
	assert.Contains(t, basic.User, "no reference document supplied")

	detailed, err := m.Build(request(t, "", "proposal"))
	require.NoError(t, err)
	assert.Contains(t, detailed.User, "key_findings")
	assert.NotContains(t, detailed.User, `"recommendation": "revise"`)

	full, err := m.Build(request(t, "", "proposal", domain.WithDepth(domain.DepthFull)))
	require.NoError(t, err)
	assert.Contains(t, full.User, `"recommendation": "revise"`)
}

func TestBuildUsesRequestWeights(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	profile := domain.DefaultPresets()["cost_focused"]
	p, err := m.Build(request(t, "", "proposal", domain.WithWeights(profile)))
	require.NoError(t, err)
	assert.Contains(t, p.User, "Budget Realism (30%)")
}

func TestBuildTruncatesDocuments(t *testing.T) {
	m, err := New(WithMaxDocumentChars(10))
	require.NoError(t, err)

	p, err := m.Build(request(t, "", strings.Repeat("я", 50)))
	require.NoError(t, err)
	assert.Contains(t, p.User, strings.Repeat("я", 10)+TruncationMarker)
	assert.NotContains(t, p.User, strings.Repeat("я", 11))
}

func TestCustomTemplates(t *testing.T) {
	m, err := New(
		WithSystemTemplate("system for {{.Depth}}"),
		WithTemplate(domain.DepthBasic, "{{upper .Proposal}}"),
	)
	require.NoError(t, err)

	p, err := m.Build(request(t, "", "proposal", domain.WithDepth(domain.DepthBasic)))
	require.NoError(t, err)
	assert.Equal(t, "system for basic", p.System)
	assert.Equal(t, "PROPOSAL", p.User)
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(WithTemplate(domain.DepthBasic, "{{.Proposal"))
	assert.Error(t, err)

	_, err = New(WithTemplate("deep", "x"))
	assert.Error(t, err)

	_, err = New(WithMaxDocumentChars(0))
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel" + TruncationMarker},
		{"привет", 2, "пр" + TruncationMarker},
		{"hello", 0, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncate(tt.in, tt.n))
	}
}
