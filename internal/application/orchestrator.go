package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ahrav/go-tender/infrastructure/extract"
	"github.com/ahrav/go-tender/infrastructure/middleware"
	"github.com/ahrav/go-tender/infrastructure/parser"
	"github.com/ahrav/go-tender/infrastructure/scoring"
	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
)

const (
	reasonNotReported  = "not reported in the AI analysis"
	reasonNeedsAI      = "requires AI analysis; no provider produced a usable reply"
	defaultProfileName = "custom"
)

// Orchestrator runs one analysis: prompts, routing, parsing, extraction,
// reconciliation and scoring. It never invents AI output: when no provider
// produced a usable reply the result is built from extraction alone and
// marked as fallback.
type Orchestrator struct {
	router    *FallbackRouter
	prompts   ports.PromptBuilder
	parser    *parser.Parser
	extractor *extract.Extractor
	scorer    *scoring.Scorer
	profile   domain.WeightProfile
	observer  middleware.AnalysisObserver
	logger    *zap.Logger
	now       func() time.Time
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithOrchestratorLogger sets the logger.
func WithOrchestratorLogger(l *zap.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver sets the analysis observer.
func WithObserver(obs middleware.AnalysisObserver) OrchestratorOption {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithOrchestratorClock replaces time.Now for timestamps.
func WithOrchestratorClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// NewOrchestrator assembles an Orchestrator. profile is used for requests
// that carry no weights of their own.
func NewOrchestrator(
	router *FallbackRouter,
	prompts ports.PromptBuilder,
	p *parser.Parser,
	ex *extract.Extractor,
	scorer *scoring.Scorer,
	profile domain.WeightProfile,
	opts ...OrchestratorOption,
) (*Orchestrator, error) {
	if router == nil || prompts == nil || p == nil || ex == nil || scorer == nil {
		return nil, errors.New("orchestrator: router, prompts, parser, extractor and scorer are required")
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("default profile: %w", err)
	}

	o := &Orchestrator{
		router:    router,
		prompts:   prompts,
		parser:    p,
		extractor: ex,
		scorer:    scorer,
		profile:   profile.Clone(),
		observer:  middleware.NewOTelAnalysisObserver(nil),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Router returns the orchestrator's router.
func (o *Orchestrator) Router() *FallbackRouter { return o.router }

// Analyze runs one analysis. Degraded outcomes such as unavailable providers
// produce a complete fallback result, not an error. Errors are returned for
// invalid input or configuration and when ctx ends first.
func (o *Orchestrator) Analyze(ctx context.Context, req *domain.AnalysisRequest) (result *domain.AnalysisResult, err error) {
	if req == nil {
		return nil, errors.New("analysis request is nil")
	}
	start := o.now()

	ctx, span := o.observer.Start(ctx, req)
	defer func() { span.Finish(result, err) }()

	profile, ok := req.Weights()
	if !ok {
		profile = o.profile.Clone()
	}
	if profile.Name == "" {
		profile.Name = defaultProfileName
	}

	proposal := o.extractor.Extract(req.Proposal())
	reference := o.extractor.Extract(req.Reference())
	if proposal.LowConfidence {
		o.logger.Info("proposal extraction is low confidence",
			zap.Error(ports.ErrExtractionLowConfidence),
			zap.Strings("warnings", proposal.Warnings))
	}

	prompt, err := o.prompts.Build(req)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	routed, rerr := o.router.Route(ctx, RouteRequest{
		System:   prompt.System,
		User:     prompt.User,
		Depth:    req.Depth(),
		Override: req.ModelOverride(),
		Observe:  span.Attempt,
	}, o.parseReply)

	switch {
	case rerr == nil:
		result = o.fromAI(routed, proposal, reference, profile)
	case ctx.Err() != nil:
		return nil, rerr
	case domain.IsValidationError(rerr):
		return nil, rerr
	default:
		o.logger.Warn("no provider produced a usable analysis; using extraction only",
			zap.Error(rerr), zap.Int("attempts", len(routed.Attempts)))
		span.Fallback(rerr)
		result = o.fromExtraction(rerr, proposal, reference, profile)
	}

	result.ID = uuid.New()
	result.Attempts = routed.Attempts
	result.EstimatedCost = routed.EstimatedCost
	result.Depth = req.Depth()
	result.Profile = profile.Name
	result.CreatedAt = o.now().UTC()
	result.ProcessingTime = o.now().Sub(start)
	return result, nil
}

func (o *Orchestrator) parseReply(reply ports.RawProviderReply) (*parser.ParsedAnalysis, error) {
	return o.parser.Parse(reply.Text)
}

// fromAI scores a parsed provider reply, reconciled against the extracted
// figures.
func (o *Orchestrator) fromAI(routed RouteResult, proposal, reference domain.ExtractedFinancials, profile domain.WeightProfile) *domain.AnalysisResult {
	parsed := routed.Parsed

	rec := o.scorer.Reconcile(&scoring.AIFigures{
		CompanyName:    parsed.CompanyName,
		TotalCost:      parsed.TotalCost,
		Currency:       parsed.Currency,
		TimelineMonths: parsed.TimelineMonths,
	}, proposal, reference)
	for _, d := range rec.Summary.Discrepancies {
		o.logger.Info("AI figure overridden by extracted figure",
			zap.String("field", d.Field),
			zap.Float64("ai_value", d.AIValue),
			zap.Float64("extracted_value", d.Extracted))
	}

	agg := o.scorer.Aggregate(parsed.Criteria, profile, reasonNotReported)
	confidence, level := o.scorer.Confidence(scoring.ConfidenceInput{
		Coverage:      agg.Coverage,
		Partial:       parsed.Partial,
		LowConfidence: proposal.LowConfidence,
		Discrepancies: len(rec.Summary.Discrepancies),
	})

	findings := append([]string(nil), rec.Findings...)
	findings = append(findings, o.scorer.CrossCheck(parsed.Criteria, rec.Figures)...)
	if parsed.Partial {
		findings = append(findings, "the AI reply was incomplete; only the fields it contained were used")
	}
	findings = append(findings, proposal.Warnings...)

	return &domain.AnalysisResult{
		OverallScore:    agg.Overall,
		Criteria:        agg.Criteria,
		Financials:      rec.Summary,
		Recommendation:  o.scorer.Recommend(agg.Overall, len(agg.Evaluated) > 0),
		ConfidenceLevel: level,
		Confidence:      confidence,
		UsingRealAI:     true,
		ModelsUsed:      []string{routed.Reply.Provider + "/" + routed.Reply.Model},
		Findings:        findings,
		Summary:         parsed.Summary,
		Recommendations: parsed.Recommendations,
		Partial:         parsed.Partial,
	}
}

// fromExtraction builds the fallback result: only the measurable criteria
// are scored, from extracted figures, and everything else is not_evaluated.
func (o *Orchestrator) fromExtraction(cause error, proposal, reference domain.ExtractedFinancials, profile domain.WeightProfile) *domain.AnalysisResult {
	rec := o.scorer.Reconcile(nil, proposal, reference)
	agg := o.scorer.Aggregate(o.scorer.MeasurableScores(rec.Figures), profile, reasonNeedsAI)
	confidence, level := o.scorer.Confidence(scoring.ConfidenceInput{
		Coverage:      agg.Coverage,
		LowConfidence: proposal.LowConfidence,
		FallbackMode:  true,
	})

	findings := []string{fmt.Sprintf("AI analysis unavailable (%v); scores are based on extracted figures only", cause)}
	findings = append(findings, proposal.Warnings...)

	return &domain.AnalysisResult{
		OverallScore:    agg.Overall,
		Criteria:        agg.Criteria,
		Financials:      rec.Summary,
		Recommendation:  o.scorer.CapFallback(o.scorer.Recommend(agg.Overall, len(agg.Evaluated) > 0)),
		ConfidenceLevel: level,
		Confidence:      confidence,
		FallbackMode:    true,
		UsingRealAI:     false,
		Findings:        findings,
	}
}
