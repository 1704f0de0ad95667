package prompts

import (
	"strings"
	"text/template"
	"unicode/utf8"
)

// TruncationMarker is appended to a document cut to the configured length.
const TruncationMarker = "\n[... document truncated ...]"

// FuncMap returns the helpers available to prompt templates. The functions
// are stateless and safe to share across concurrent executions.
//
//	{{range $i, $c := .Criteria}}{{add $i 1}}. {{$c.Title}}{{end}}
func FuncMap() template.FuncMap {
	return template.FuncMap{
		// Template usage: {{add $index 1}}
		"add": func(a, b int) int { return a + b },
		// Template usage: {{percent $c.Weight}}
		"percent": func(w float64) int { return int(w*100 + 0.5) },
		"lower":   strings.ToLower,
		"upper":   strings.ToUpper,
		"trim":    strings.TrimSpace,
		"join":    strings.Join,
		// truncate cuts s to n runes and appends TruncationMarker.
		// Template usage: {{truncate .Proposal 12000}}
		"truncate": truncate,
	}
}

// truncate limits s to n runes. It never splits a multi-byte rune and
// returns "" when n <= 0.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos] + TruncationMarker
		}
		i++
	}
	return s
}
