// Package command recognizes what a user asks for when they mention the bot.
package command

import (
	"regexp"
	"strings"
)

type Command string

const (
	NewDraft Command = "new_draft"
	Shorter  Command = "shorter"
	Longer   Command = "longer"
	Formal   Command = "formal"
	Casual   Command = "casual"
	Rewrite  Command = "rewrite"
)

// Refinements lists the commands that transform an existing draft, in the
// order they are advertised to users.
var Refinements = []Command{Shorter, Longer, Formal, Casual, Rewrite}

// IsRefinement is true for every command except NewDraft.
func (c Command) IsRefinement() bool {
	switch c {
	case Shorter, Longer, Formal, Casual, Rewrite:
		return true
	default:
		return false
	}
}

func (c Command) String() string {
	return string(c)
}

var mentionPattern = regexp.MustCompile(`<@([A-Z0-9]+)(?:\|[^>]+)?>`)

const trailingPunct = ".,!?;:"

// Mention builds the marker the transport uses when a message mentions userID.
func Mention(userID string) string {
	return "<@" + strings.TrimSpace(userID) + ">"
}

// Mentions reports whether text mentions userID, in either the bare or the
// labelled form.
func Mentions(text, userID string) bool {
	_, ok := mentionEnd(text, userID)
	return ok
}

// Recognize maps the text after the first mention of botUserID to a command.
// A bare mention or an unknown word asks for a new draft. Without a mention
// the whole text is treated as the instruction.
func Recognize(text, botUserID string) Command {
	rest := text
	if end, ok := mentionEnd(text, botUserID); ok {
		rest = text[end:]
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return NewDraft
	}
	word := strings.ToLower(strings.TrimRight(fields[0], trailingPunct))
	for _, c := range Refinements {
		if word == string(c) {
			return c
		}
	}
	return NewDraft
}

func mentionEnd(text, userID string) (int, bool) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, false
	}
	for _, loc := range mentionPattern.FindAllStringSubmatchIndex(text, -1) {
		if len(loc) >= 4 && text[loc[2]:loc[3]] == userID {
			return loc[1], true
		}
	}
	return 0, false
}
