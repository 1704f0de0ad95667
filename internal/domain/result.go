package domain

import (
	"time"

	"github.com/google/uuid"
)

// ScoreStatus tells whether a criterion received a score.
type ScoreStatus string

const (
	StatusEvaluated    ScoreStatus = "evaluated"
	StatusNotEvaluated ScoreStatus = "not_evaluated"
)

// CriterionScore is the assessment of one criterion. Score is meaningful only
// when Status is StatusEvaluated; a not-evaluated criterion never carries a
// placeholder number.
type CriterionScore struct {
	Criterion       Criterion   `json:"criterion"`
	Status          ScoreStatus `json:"status"`
	Score           float64     `json:"score"`
	Rationale       string      `json:"rationale,omitempty"`
	KeyFindings     []string    `json:"key_findings,omitempty"`
	Recommendations []string    `json:"recommendations,omitempty"`
	// Weight is the renormalized weight applied during aggregation.
	Weight float64 `json:"weight"`
	// Source is "ai" or "extractor".
	Source string `json:"source,omitempty"`
}

// Evaluated reports whether the criterion has a score.
func (s CriterionScore) Evaluated() bool { return s.Status == StatusEvaluated }

// Score sources.
const (
	SourceAI        = "ai"
	SourceExtractor = "extractor"
)

// Recommendation is the final verdict category.
type Recommendation string

const (
	RecommendAccept Recommendation = "accept"
	RecommendRevise Recommendation = "revise"
	RecommendReject Recommendation = "reject"
)

// rank orders recommendations from least to most favourable.
func (r Recommendation) rank() int {
	switch r {
	case RecommendAccept:
		return 2
	case RecommendRevise:
		return 1
	default:
		return 0
	}
}

// Valid reports whether r is a known recommendation.
func (r Recommendation) Valid() bool {
	return r == RecommendAccept || r == RecommendRevise || r == RecommendReject
}

// Cap returns the less favourable of r and limit.
func (r Recommendation) Cap(limit Recommendation) Recommendation {
	if r.rank() > limit.rank() {
		return limit
	}
	return r
}

// ConfidenceLevel buckets the numeric confidence.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// Discrepancy records a disagreement between an AI-reported figure and the
// figure extracted from the document text.
type Discrepancy struct {
	// Field is "total_cost" or "timeline_months".
	Field     string  `json:"field"`
	AIValue   float64 `json:"ai_value"`
	Extracted float64 `json:"extracted_value"`
	// RelativeDiff is |ai - extracted| / extracted.
	RelativeDiff float64 `json:"relative_diff"`
	// Resolved is the value used in the final summary.
	Resolved float64 `json:"resolved_value"`
}

// Figure sources reported in FinancialSummary.
const (
	FigureFromExtractor = "extractor"
	FigureFromAI        = "ai"
	FigureAgreed        = "ai+extractor"
)

// FinancialSummary is the reconciled view of the proposal's figures.
type FinancialSummary struct {
	TotalCost      *float64 `json:"total_cost,omitempty"`
	Currency       Currency `json:"currency,omitempty"`
	CostSource     string   `json:"cost_source,omitempty"`
	AIReportedCost *float64 `json:"ai_reported_cost,omitempty"`
	ExtractedCost  *float64 `json:"extracted_cost,omitempty"`
	// ReferenceBudget is the ceiling found in the reference document.
	ReferenceBudget *float64 `json:"reference_budget,omitempty"`
	TimelineMonths  *float64 `json:"timeline_months,omitempty"`
	TimelineSource  string   `json:"timeline_source,omitempty"`
	// RequiredMonths is the duration found in the reference document.
	RequiredMonths *float64      `json:"required_months,omitempty"`
	CompanyName    string        `json:"company_name,omitempty"`
	Discrepancies  []Discrepancy `json:"discrepancies,omitempty"`
}

// Attempt records one provider call made while serving a request.
type Attempt struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	// Outcome is "success", an error kind such as "timeout", or "unparseable".
	Outcome   string        `json:"outcome"`
	Latency   time.Duration `json:"latency"`
	TokensIn  int           `json:"tokens_in"`
	TokensOut int           `json:"tokens_out"`
	Error     string        `json:"error,omitempty"`
}

// OutcomeSuccess marks a successful attempt.
const OutcomeSuccess = "success"

// AnalysisResult is the only artifact handed to external collaborators.
// It is assembled once per request and not modified afterwards.
type AnalysisResult struct {
	ID              uuid.UUID                    `json:"id"`
	OverallScore    float64                      `json:"overall_score"`
	Criteria        map[Criterion]CriterionScore `json:"criteria"`
	Financials      FinancialSummary             `json:"financials"`
	Recommendation  Recommendation               `json:"recommendation"`
	ConfidenceLevel ConfidenceLevel              `json:"confidence_level"`
	Confidence      float64                      `json:"confidence"`
	FallbackMode    bool                         `json:"fallback_mode"`
	UsingRealAI     bool                         `json:"using_real_ai"`
	ModelsUsed      []string                     `json:"models_used,omitempty"`
	Attempts        []Attempt                    `json:"attempts,omitempty"`
	Findings        []string                     `json:"findings,omitempty"`
	Summary         string                       `json:"summary,omitempty"`
	Recommendations []string                     `json:"recommendations,omitempty"`
	Partial         bool                         `json:"partial"`
	EstimatedCost   float64                      `json:"estimated_cost"`
	Depth           Depth                        `json:"depth"`
	Profile         string                       `json:"weight_profile"`
	ProcessingTime  time.Duration                `json:"processing_time"`
	CreatedAt       time.Time                    `json:"created_at"`
}

// EvaluatedCriteria returns the criteria that received a score, in canonical
// order.
func (r *AnalysisResult) EvaluatedCriteria() []Criterion {
	out := make([]Criterion, 0, len(r.Criteria))
	for _, c := range allCriteria {
		if s, ok := r.Criteria[c]; ok && s.Evaluated() {
			out = append(out, c)
		}
	}
	return out
}
