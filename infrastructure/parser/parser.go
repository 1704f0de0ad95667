// Package parser turns free-form provider replies into typed analyses. It
// tolerates code fences, prose around the payload, trailing commas,
// truncated output and misspelled criterion keys, and falls back to
// field-by-field recovery before declaring a reply unparseable.
package parser

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ahrav/go-tender/infrastructure/extract"
	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
)

// Parse methods, reported in ParsedAnalysis.Method.
const (
	MethodStrict   = "strict"
	MethodLenient  = "lenient"
	MethodRepaired = "repaired"
	MethodRecovery = "regex_recovery"
)

// DefaultMinCriteria is the minimum number of valid criterion scores a reply
// must yield.
const DefaultMinCriteria = 1

// ParsedAnalysis is the typed content of one provider reply.
type ParsedAnalysis struct {
	CompanyName     string
	TotalCost       *float64
	Currency        domain.Currency
	TimelineMonths  *float64
	Criteria        map[domain.Criterion]domain.CriterionScore
	Summary         string
	Recommendations []string
	// Recommendation is the provider's own verdict, if it gave a valid one.
	Recommendation domain.Recommendation
	// Partial is set when the reply was truncated or recovered field by
	// field, so absent fields may simply not have been emitted.
	Partial bool
	Method  string
	// Dropped lists entries rejected during validation.
	Dropped []string
}

// criterionEntry is the validated shape of one criterion in a reply.
type criterionEntry struct {
	Score           *float64 `validate:"required,gte=0,lte=100"`
	Rationale       string
	KeyFindings     []string `validate:"dive,max=2000"`
	Recommendations []string `validate:"dive,max=2000"`
}

// Parser parses provider replies. It is safe for concurrent use.
type Parser struct {
	extractor   *extract.Extractor
	validate    *validator.Validate
	minCriteria int
	logger      *zap.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithMinCriteria sets the minimum number of criterion scores for a reply to
// be viable.
func WithMinCriteria(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.minCriteria = n
		}
	}
}

// WithLogger sets the parser logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Parser. Numeric money fields are canonicalized by ex.
func New(ex *extract.Extractor, opts ...Option) *Parser {
	p := &Parser{
		extractor:   ex,
		validate:    validator.New(),
		minCriteria: DefaultMinCriteria,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse extracts a ParsedAnalysis from reply. Stages are tried in order and
// the first that yields a viable analysis wins: strict decoding of the
// located object, decoding after trailing-comma cleanup, truncation repair,
// then regex recovery. It returns an error wrapping
// ports.ErrUnparseableResponse when no stage yields a viable analysis.
func (p *Parser) Parse(reply string) (*ParsedAnalysis, error) {
	obj, complete := extractObject(reply)

	if obj != "" && complete {
		if doc, err := decodeObject(obj); err == nil {
			if pa := p.fromDocument(doc, MethodStrict); p.viable(pa) {
				return pa, nil
			}
		}
		if doc, err := decodeObject(stripTrailingCommas(obj)); err == nil {
			if pa := p.fromDocument(doc, MethodLenient); p.viable(pa) {
				return pa, nil
			}
		}
	}

	if obj != "" && !complete {
		for _, candidate := range repairCandidates(obj) {
			doc, err := decodeObject(stripTrailingCommas(candidate))
			if err != nil {
				continue
			}
			pa := p.fromDocument(doc, MethodRepaired)
			pa.Partial = true
			if p.viable(pa) {
				p.logger.Debug("repaired truncated reply",
					zap.Int("reply_len", len(reply)),
					zap.Int("kept_len", len(candidate)),
				)
				return pa, nil
			}
		}
	}

	if pa := p.recoverFields(reply); p.viable(pa) {
		return pa, nil
	}

	return nil, fmt.Errorf("%w: fewer than %d criterion scores in %d-byte reply",
		ports.ErrUnparseableResponse, p.minCriteria, len(reply))
}

func (p *Parser) viable(pa *ParsedAnalysis) bool {
	return pa != nil && len(pa.Criteria) >= p.minCriteria
}

func decodeObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// fromDocument maps a decoded object onto ParsedAnalysis. Criteria may be
// nested under "criteria" (or a near spelling) or appear at the top level.
func (p *Parser) fromDocument(doc map[string]any, method string) *ParsedAnalysis {
	pa := &ParsedAnalysis{
		Criteria: make(map[domain.Criterion]domain.CriterionScore),
		Method:   method,
	}

	for key, value := range doc {
		nk := normalizeKey(key)
		if obj, isObj := value.(map[string]any); isObj && !isCriteriaContainer(nk) &&
			(!isFigureKey(nk) || hasScoreMember(obj)) {
			if _, ok := resolveCriterion(key); ok {
				p.addCriterion(pa, key, value)
				continue
			}
		}

		switch nk {
		case "company_name", "company", "vendor", "supplier", "bidder":
			if s, ok := value.(string); ok {
				pa.CompanyName = strings.TrimSpace(s)
			}
		case "total_cost", "cost", "price", "total_price", "amount":
			p.setCost(pa, value)
		case "currency":
			if s, ok := value.(string); ok {
				pa.Currency = domain.Currency(strings.ToUpper(strings.TrimSpace(s)))
			}
		case "timeline_months", "timeline", "duration_months", "duration", "months":
			if months, ok := p.months(value); ok {
				pa.TimelineMonths = &months
			}
		case "summary", "overall_summary", "conclusion":
			if s, ok := value.(string); ok {
				pa.Summary = strings.TrimSpace(s)
			}
		case "recommendations":
			pa.Recommendations = stringList(value)
		case "recommendation", "verdict", "decision":
			if s, ok := value.(string); ok {
				if r := domain.Recommendation(strings.ToLower(strings.TrimSpace(s))); r.Valid() {
					pa.Recommendation = r
				}
			}
		case "criteria", "criteria_scores", "scores", "evaluation":
			if nested, ok := value.(map[string]any); ok {
				for ck, cv := range nested {
					p.addCriterion(pa, ck, cv)
				}
			}
			if list, ok := value.([]any); ok {
				p.addCriterionList(pa, list)
			}
		default:
			if _, ok := resolveCriterion(key); ok && !isFigureKey(nk) {
				p.addCriterion(pa, key, value)
			}
		}
	}
	sort.Strings(pa.Dropped)
	return pa
}

func isCriteriaContainer(key string) bool {
	switch key {
	case "criteria", "criteria_scores", "scores", "evaluation":
		return true
	}
	return false
}

// addCriterionList handles [{"criterion": "...", "score": ...}, ...].
func (p *Parser) addCriterionList(pa *ParsedAnalysis, list []any) {
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for _, nameKey := range []string{"criterion", "name", "id", "key"} {
			if name, ok := m[nameKey].(string); ok {
				p.addCriterion(pa, name, m)
				break
			}
		}
	}
}

func (p *Parser) addCriterion(pa *ParsedAnalysis, key string, value any) {
	c, ok := resolveCriterion(key)
	if !ok {
		pa.Dropped = append(pa.Dropped, fmt.Sprintf("unknown criterion key %q", key))
		return
	}

	var entry criterionEntry
	switch v := value.(type) {
	case map[string]any:
		for k, fv := range v {
			switch normalizeKey(k) {
			case "score", "value", "rating", "points":
				if s, ok := parseScore(fv); ok {
					entry.Score = &s
				}
			case "rationale", "reasoning", "justification", "comment", "explanation":
				if s, ok := fv.(string); ok {
					entry.Rationale = strings.TrimSpace(s)
				}
			case "key_findings", "findings":
				entry.KeyFindings = stringList(fv)
			case "recommendations", "suggestions":
				entry.Recommendations = stringList(fv)
			}
		}
	default:
		if s, ok := parseScore(v); ok {
			entry.Score = &s
		}
	}

	if err := p.validate.Struct(entry); err != nil {
		pa.Dropped = append(pa.Dropped, fmt.Sprintf("%s: %v", c, err))
		return
	}
	if _, dup := pa.Criteria[c]; dup {
		pa.Dropped = append(pa.Dropped, fmt.Sprintf("%s: duplicate key %q ignored", c, key))
		return
	}

	pa.Criteria[c] = domain.CriterionScore{
		Criterion:       c,
		Status:          domain.StatusEvaluated,
		Score:           *entry.Score,
		Rationale:       entry.Rationale,
		KeyFindings:     entry.KeyFindings,
		Recommendations: entry.Recommendations,
		Source:          domain.SourceAI,
	}
}

// setCost canonicalizes a cost given as a JSON number or a formatted string.
func (p *Parser) setCost(pa *ParsedAnalysis, value any) {
	var amount float64
	var currency domain.Currency
	var ok bool

	switch v := value.(type) {
	case json.Number:
		amount, ok = numberValue(v)
	case string:
		var d decimal.Decimal
		d, currency, ok = p.extractor.ParseMoney(v)
		amount = d.InexactFloat64()
	case map[string]any:
		// {"amount": ..., "currency": ...}
		for k, fv := range v {
			switch normalizeKey(k) {
			case "amount", "value", "total":
				p.setCost(pa, fv)
			case "currency":
				if s, isStr := fv.(string); isStr {
					pa.Currency = domain.Currency(strings.ToUpper(strings.TrimSpace(s)))
				}
			}
		}
		return
	}
	if !ok || amount <= 0 || math.IsInf(amount, 0) {
		return
	}
	pa.TotalCost = &amount
	if currency != "" && pa.Currency == "" {
		pa.Currency = currency
	}
}

func (p *Parser) months(value any) (float64, bool) {
	var m float64
	var ok bool
	switch v := value.(type) {
	case json.Number:
		m, ok = numberValue(v)
	case string:
		// "10 месяцев", "1.5 years" and bare "10" are all accepted.
		if doc := p.extractor.Extract(v); doc.TimelineMonths != nil {
			return *doc.TimelineMonths, true
		}
		if loc := leadingNumberRe.FindString(v); loc != "" {
			m, ok = parseNumber(loc)
		}
	case map[string]any:
		// {"months": 10} or {"value": 10, "unit": "months"}
		for k, fv := range v {
			switch normalizeKey(k) {
			case "months", "value", "duration", "duration_months", "total_months":
				return p.months(fv)
			}
		}
	}
	return m, ok && m > 0
}

var leadingNumberRe = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// numberValue reads a JSON number literal. JSON has no grouping marks, so
// 1.500 is one and a half.
func numberValue(n json.Number) (float64, bool) {
	v, err := n.Float64()
	return v, err == nil && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// parseNumber reads a number written in prose, where "2 500" and "2.500" are
// both grouped thousands.
func parseNumber(s string) (float64, bool) {
	if v, err := extract.ParseAmount(s); err == nil {
		return v.InexactFloat64(), true
	}
	// Exponent forms such as 2.5e6 are not locale-formatted.
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil && !math.IsNaN(v)
}

// scoreRe matches "85", "85.5", "85/100", "8/10" and "85%".
var scoreRe = regexp.MustCompile(`^\s*(\d+(?:[.,]\d+)?)\s*(?:(/)\s*(\d+))?\s*%?\s*$`)

// parseScore reads a 0..100 score from a number or string. "x/N" is rescaled
// to 100.
func parseScore(value any) (float64, bool) {
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case string:
		m := scoreRe.FindStringSubmatch(v)
		if m == nil {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
		if err != nil {
			return 0, false
		}
		if m[2] == "/" {
			scale, err := strconv.ParseFloat(m[3], 64)
			if err != nil || scale <= 0 {
				return 0, false
			}
			f = f / scale * 100
		}
		return f, true
	}
	return 0, false
}

func stringList(value any) []string {
	switch v := value.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	}
	return nil
}
