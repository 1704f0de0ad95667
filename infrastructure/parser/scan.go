package parser

import (
	"strings"
)

// extractObject locates the JSON object in a model reply. It prefers the
// contents of a fenced code block, then scans for the first '{' whose
// balanced closing '}' can be found while respecting string literals.
//
// complete is false when an opening brace was found but the reply ended
// before it was closed; the returned text then runs to the end of input and
// is a candidate for truncation repair.
func extractObject(reply string) (obj string, complete bool) {
	reply = strings.TrimSpace(reply)
	if body, ok := fencedBody(reply); ok {
		if obj, complete := scanBalanced(body); obj != "" {
			return obj, complete
		}
	}

	// Prose before the payload may itself contain braces; keep the first
	// truncated candidate in case nothing closes.
	var truncated string
	for off := 0; off < len(reply); {
		i := strings.IndexByte(reply[off:], '{')
		if i < 0 {
			break
		}
		obj, complete := scanBalanced(reply[off+i:])
		if complete && looksLikeObject(obj) {
			return obj, true
		}
		if !complete && truncated == "" {
			truncated = obj
		}
		off += i + 1
	}
	return truncated, false
}

// fencedBody returns the contents of the first ``` block, skipping an
// optional language tag. An unterminated fence yields everything after it.
func fencedBody(reply string) (string, bool) {
	start := strings.Index(reply, "```")
	if start < 0 {
		return "", false
	}
	body := reply[start+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{}") {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body), true
}

// scanBalanced returns s from its first '{' to the matching '}'. When the
// input ends first, it returns everything from the '{' with complete=false.
func scanBalanced(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return s[start:], false
}

// looksLikeObject filters out brace pairs in prose such as "{placeholder}".
func looksLikeObject(s string) bool {
	inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}"))
	return inner == "" || inner[0] == '"'
}

// stripTrailingCommas removes commas that directly precede a closing brace
// or bracket outside string literals.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			b.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = true
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && isJSONSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isJSONSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

// repairCandidates yields progressively shorter closings of a truncated
// object: first the text as-is with its open containers closed, then the
// text cut back to each earlier top-level or nested comma, newest first.
// Every candidate keeps only members that were fully present.
func repairCandidates(s string) []string {
	type cut struct {
		pos     int
		closers string
	}

	var stack []byte
	var cuts []cut
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case ',':
			if len(stack) > 0 {
				cuts = append(cuts, cut{pos: i, closers: reverse(stack)})
			}
		}
	}

	var out []string
	if !inString && len(stack) > 0 {
		trimmed := strings.TrimRight(s, " \t\r\n")
		// A trailing number may itself be cut short, so only a closed
		// string, container or literal is kept as-is.
		if endsWithCompleteValue(trimmed) {
			out = append(out, trimmed+reverse(stack))
		}
	}
	for i := len(cuts) - 1; i >= 0; i-- {
		out = append(out, s[:cuts[i].pos]+cuts[i].closers)
	}
	return out
}

func endsWithCompleteValue(s string) bool {
	if s == "" {
		return false
	}
	switch s[len(s)-1] {
	case '"', '}', ']':
		return true
	}
	return strings.HasSuffix(s, "true") || strings.HasSuffix(s, "false") || strings.HasSuffix(s, "null")
}

func reverse(stack []byte) string {
	b := make([]byte, len(stack))
	for i, c := range stack {
		b[len(stack)-1-i] = c
	}
	return string(b)
}
