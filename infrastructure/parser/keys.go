package parser

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/ahrav/go-tender/internal/domain"
)

// maxKeyDistance is the largest edit distance at which a reply key is still
// mapped onto a criterion id.
const maxKeyDistance = 2

// figureKeys name reply fields that carry a cost or a duration. Some share a
// leading word with a criterion id ("timeline", "budget").
var figureKeys = map[string]bool{
	"timeline": true, "timeline_months": true, "duration": true, "duration_months": true, "months": true,
	"budget": true, "cost": true, "total_cost": true, "price": true, "total_price": true, "amount": true,
	"currency": true,
}

// isFigureKey reports whether key names a cost or duration field.
func isFigureKey(key string) bool { return figureKeys[normalizeKey(key)] }

// hasScoreMember reports whether an object carries a score. Such an object is
// a criterion entry even under a figure key.
func hasScoreMember(m map[string]any) bool {
	for k := range m {
		switch normalizeKey(k) {
		case "score", "rating", "points":
			return true
		}
	}
	return false
}

// normalizeKey folds case and unifies word separators: "Budget-Realism" and
// "budget realism" both become "budget_realism".
func normalizeKey(key string) string {
	k := cases.Fold().String(strings.TrimSpace(key))
	k = strings.NewReplacer(" ", "_", "-", "_", ".", "_").Replace(k)
	for strings.Contains(k, "__") {
		k = strings.ReplaceAll(k, "__", "_")
	}
	return strings.Trim(k, "_")
}

// resolveCriterion maps a reply key to one of the ten criteria. It accepts
// exact ids, a unique leading word ("budget"), and near misses within
// maxKeyDistance edits ("tecnical_compliance"). Ambiguous keys are rejected.
func resolveCriterion(key string) (domain.Criterion, bool) {
	k := normalizeKey(key)
	if k == "" {
		return "", false
	}
	if c := domain.Criterion(k); c.Valid() {
		return c, true
	}

	var byLead []domain.Criterion
	for _, c := range domain.AllCriteria() {
		lead, _, _ := strings.Cut(string(c), "_")
		if k == lead {
			byLead = append(byLead, c)
		}
	}
	if len(byLead) == 1 {
		return byLead[0], true
	}

	best, bestDist, tie := domain.Criterion(""), maxKeyDistance+1, false
	for _, c := range domain.AllCriteria() {
		d := levenshtein.ComputeDistance(k, string(c))
		switch {
		case d < bestDist:
			best, bestDist, tie = c, d, false
		case d == bestDist:
			tie = true
		}
	}
	if bestDist > maxKeyDistance || tie {
		return "", false
	}
	return best, true
}
