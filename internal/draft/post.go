// Package draft formats draft posts, finds the latest draft in a thread, and
// builds the prompts used to write or refine one.
package draft

import (
	"regexp"
	"strings"

	"github.com/quailyquaily/inboxdraft/internal/chat"
	"github.com/quailyquaily/inboxdraft/internal/classify"
	"github.com/quailyquaily/inboxdraft/internal/command"
)

const (
	// HeaderMarker is present in every draft post and nowhere else.
	HeaderMarker = "Draft Response"
	// RefineMarker starts the footer line that lists refinement commands.
	RefineMarker = "Refine:"
	Separator    = "---"

	urgentEmoji = ":rotating_light:"
	normalEmoji = ":memo:"
)

var draftBodyPattern = regexp.MustCompile(`(?s)` + HeaderMarker + `[^\n]*\n(.*?)\n` + Separator)

// FormatPost renders the thread reply that carries a draft.
func FormatPost(body string, c classify.Classification, persona string) string {
	emoji := normalEmoji
	if c.Priority.IsUrgent() {
		emoji = urgentEmoji
	}
	refinements := make([]string, 0, len(command.Refinements))
	for _, r := range command.Refinements {
		refinements = append(refinements, r.String())
	}

	var b strings.Builder
	b.WriteString(emoji + " *" + HeaderMarker + "* (" + string(c.Priority) + ")\n\n")
	b.WriteString(strings.TrimSpace(body) + "\n\n")
	b.WriteString(Separator + "\n")
	b.WriteString("_AI-generated draft in " + strings.TrimSpace(persona) + "'s style. Review before sending._\n")
	b.WriteString("_" + RefineMarker + " mention me with " + strings.Join(refinements, " | ") + "_")
	return b.String()
}

// IsPost reports whether text is a draft post.
func IsPost(text string) bool {
	return strings.Contains(text, HeaderMarker)
}

// Extract returns the body of the most recent draft in thread.
func Extract(thread []chat.Message) (string, bool) {
	for _, msg := range chat.NewestFirst(thread) {
		if IsPost(msg.Text) {
			return ExtractText(msg.Text)
		}
	}
	return "", false
}

// ExtractText returns the body of a single draft post.
func ExtractText(text string) (string, bool) {
	if !IsPost(text) {
		return "", false
	}
	body := extractBody(text)
	return body, body != ""
}

func extractBody(text string) string {
	if m := draftBodyPattern.FindStringSubmatch(text); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return scanBody(text)
}

func scanBody(text string) string {
	idx := strings.Index(text, HeaderMarker)
	if idx < 0 {
		return ""
	}
	_, rest, ok := strings.Cut(text[idx:], "\n")
	if !ok {
		return ""
	}
	var lines []string
	for _, line := range strings.Split(rest, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, Separator) || strings.Contains(trimmed, RefineMarker) {
			break
		}
		if trimmed == "" {
			continue
		}
		lines = append(lines, trimmed)
	}
	return strings.Join(lines, "\n")
}
