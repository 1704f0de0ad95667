package parser

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ahrav/go-tender/internal/domain"
)

var (
	companyFieldRe  = regexp.MustCompile(`"company(?:_name)?"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	costFieldRe     = regexp.MustCompile(`"total_cost"\s*:\s*(?:"((?:[^"\\]|\\.)*)"|([\d][\d.,\s\x{00A0}]*))`)
	currencyFieldRe = regexp.MustCompile(`"currency"\s*:\s*"([A-Za-z]{3})"`)
	timelineFieldRe = regexp.MustCompile(`"timeline(?:_months)?"\s*:\s*"?(\d+(?:[.,]\d+)?)`)
	summaryFieldRe  = regexp.MustCompile(`"summary"\s*:\s*"((?:[^"\\]|\\.)*)"`)

	// "budget_realism": 70, "budget_realism": "70/100" or
	// "budget_realism": {"score": 70, ...}
	jsonScoreRe = regexp.MustCompile(`"([A-Za-z][A-Za-z _-]{2,40})"\s*:\s*(?:\{[^{}]*?"score"\s*:\s*)?"?(\d{1,3}(?:[.,]\d+)?(?:\s*/\s*\d+)?)`)

	// Technical Compliance: 85/100, budget realism - 70
	proseScoreRe = regexp.MustCompile(`(?im)^[ \t*#>\-\d.)]*([A-Za-z][A-Za-z _-]{2,40}?)\**[ \t]*[:\-–—][ \t]*\**[ \t]*(\d{1,3}(?:[.,]\d+)?(?:[ \t]*/[ \t]*\d+)?)`)

	rationaleFieldRe = regexp.MustCompile(`"rationale"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

// recoverFields scans the raw reply for known fields one at a time. It is
// the last resort for replies that are neither valid nor repairable JSON,
// and always marks the result partial.
func (p *Parser) recoverFields(reply string) *ParsedAnalysis {
	pa := &ParsedAnalysis{
		Criteria: make(map[domain.Criterion]domain.CriterionScore),
		Partial:  true,
		Method:   MethodRecovery,
	}

	if m := companyFieldRe.FindStringSubmatch(reply); m != nil {
		pa.CompanyName = strings.TrimSpace(unescape(m[1]))
	}
	if m := currencyFieldRe.FindStringSubmatch(reply); m != nil {
		pa.Currency = domain.Currency(strings.ToUpper(m[1]))
	}
	if m := costFieldRe.FindStringSubmatch(reply); m != nil {
		raw := m[1]
		if raw == "" {
			raw = strings.TrimRight(m[2], " ,.\t\r\n ")
		}
		p.setCost(pa, raw)
	}
	if m := timelineFieldRe.FindStringSubmatch(reply); m != nil {
		if months, ok := parseNumber(m[1]); ok && months > 0 {
			pa.TimelineMonths = &months
		}
	}
	if m := summaryFieldRe.FindStringSubmatch(reply); m != nil {
		pa.Summary = strings.TrimSpace(unescape(m[1]))
	}

	p.recoverScores(pa, reply, jsonScoreRe)
	if len(pa.Criteria) == 0 {
		p.recoverScores(pa, reply, proseScoreRe)
	}
	sort.Strings(pa.Dropped)
	return pa
}

func (p *Parser) recoverScores(pa *ParsedAnalysis, reply string, re *regexp.Regexp) {
	for _, loc := range re.FindAllStringSubmatchIndex(reply, -1) {
		key := reply[loc[2]:loc[3]]
		// "timeline": 10 is a duration; only {"score": ...} under it is a score.
		if isFigureKey(key) && !strings.Contains(reply[loc[0]:loc[4]], "{") {
			continue
		}
		if _, ok := resolveCriterion(key); !ok {
			continue
		}
		value := map[string]any{"score": reply[loc[4]:loc[5]]}

		// A rationale inside the same object, if the object closed.
		rest := reply[loc[1]:]
		if end := strings.IndexByte(rest, '}'); end >= 0 {
			if m := rationaleFieldRe.FindStringSubmatch(rest[:end]); m != nil {
				value["rationale"] = unescape(m[1])
			}
		}
		p.addCriterion(pa, key, value)
	}
}

func unescape(s string) string {
	return strings.NewReplacer(`\"`, `"`, `\n`, "\n", `\t`, "\t", `\\`, `\`).Replace(s)
}
