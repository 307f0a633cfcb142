// Package outputfmt cleans generated text before it is posted.
package outputfmt

import (
	"encoding/json"
	"strings"
)

// NormalizeDraft trims model output, unwraps a JSON string literal or a
// single fenced block, and turns literal \n sequences back into line breaks
// when the model escaped the whole draft.
func NormalizeDraft(raw string) string {
	s := stripCodeFence(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	if text, ok := unquoteJSON(s); ok {
		s = strings.TrimSpace(text)
	}
	return strings.TrimSpace(unescapeBreaks(s))
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	// Drop a language tag on the opening fence line.
	if first, rest, ok := strings.Cut(inner, "\n"); ok && !strings.ContainsAny(strings.TrimSpace(first), " \t") {
		inner = rest
	}
	return strings.TrimSpace(inner)
}

func unquoteJSON(s string) (string, bool) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", false
	}
	var text string
	if err := json.Unmarshal([]byte(s), &text); err != nil {
		return "", false
	}
	return text, true
}

// unescapeBreaks rewrites escaped line breaks. One stray escape is left
// alone; two are enough when the text has no real line break, otherwise it
// takes three.
func unescapeBreaks(s string) string {
	escaped := strings.Count(s, `\n`) + strings.Count(s, `\r`)
	need := 2
	if strings.ContainsAny(s, "\r\n") {
		need = 3
	}
	if escaped < need {
		return s
	}
	s = strings.ReplaceAll(s, `\r\n`, `\n`)
	s = strings.ReplaceAll(s, `\r`, `\n`)
	return strings.ReplaceAll(s, `\n`, "\n")
}
