// Package extract implements deterministic extraction of monetary amounts,
// timelines and company names from proposal text. Nothing here depends on
// AI output, and nothing here returns an error for malformed documents:
// extraction degrades to an empty, low-confidence result instead.
package extract

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount indicates that a string could not be canonicalized into a
// number.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount canonicalizes a locale-formatted number such as "5 500 000",
// "2,500,000.00", "2.500.000,00" or "1,5" into an exact decimal.
//
// Whitespace of any kind (including NBSP and narrow NBSP) and apostrophes are
// grouping separators. For commas and periods:
//   - when both appear, the rightmost one is the decimal mark;
//   - when one of them appears more than once, it is a grouping mark and
//     every group after the first must have exactly three digits;
//   - when one of them appears once, it is a grouping mark if exactly three
//     digits follow it and the integer part is not "0", otherwise a decimal
//     mark.
func ParseAmount(s string) (decimal.Decimal, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '\'', r == '’', r == '_':
		default:
			return decimal.Zero, fmt.Errorf("%w: unexpected %q in %q", ErrInvalidAmount, r, s)
		}
	}

	clean := b.String()
	if clean == "" || strings.Trim(clean, ".,") == "" {
		return decimal.Zero, fmt.Errorf("%w: no digits in %q", ErrInvalidAmount, s)
	}
	if strings.ContainsAny(clean[:1], ".,") || strings.ContainsAny(clean[len(clean)-1:], ".,") {
		return decimal.Zero, fmt.Errorf("%w: dangling separator in %q", ErrInvalidAmount, s)
	}

	canonical, err := canonicalize(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}

	v, err := decimal.NewFromString(canonical)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	return v, nil
}

// canonicalize rewrites a digits-and-separators string into plain decimal form.
func canonicalize(clean string) (string, error) {
	commas, dots := strings.Count(clean, ","), strings.Count(clean, ".")

	switch {
	case commas > 0 && dots > 0:
		dec := max(strings.LastIndex(clean, ","), strings.LastIndex(clean, "."))
		intPart, frac := clean[:dec], clean[dec+1:]
		if strings.ContainsAny(frac, ".,") {
			return "", errors.New("separator after decimal mark")
		}
		// The grouping mark must be the other character.
		group := ","
		if clean[dec] == ',' {
			group = "."
		}
		if strings.Contains(intPart, string(clean[dec])) {
			return "", errors.New("decimal mark repeated")
		}
		if err := checkGroups(intPart, group); err != nil {
			return "", err
		}
		return strings.ReplaceAll(intPart, group, "") + "." + frac, nil

	case commas > 1 || dots > 1:
		sep := ","
		if dots > 1 {
			sep = "."
		}
		if err := checkGroups(clean, sep); err != nil {
			return "", err
		}
		return strings.ReplaceAll(clean, sep, ""), nil

	case commas == 1 || dots == 1:
		sep := ","
		if dots == 1 {
			sep = "."
		}
		before, after, _ := strings.Cut(clean, sep)
		if len(after) == 3 && before != "0" {
			return before + after, nil
		}
		return before + "." + after, nil
	}
	return clean, nil
}

// checkGroups verifies thousands grouping: a leading group of one to three
// digits followed by groups of exactly three.
func checkGroups(s, sep string) error {
	groups := strings.Split(s, sep)
	if len(groups) == 1 {
		return nil
	}
	if n := len(groups[0]); n == 0 || n > 3 {
		return fmt.Errorf("leading group %q", groups[0])
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return fmt.Errorf("group %q is not three digits", g)
		}
	}
	return nil
}
