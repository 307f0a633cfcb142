package draft

import (
	_ "embed"
	"fmt"
	"text/template"

	"github.com/quailyquaily/inboxdraft/internal/classify"
	"github.com/quailyquaily/inboxdraft/internal/command"
	"github.com/quailyquaily/inboxdraft/internal/notification"
	"github.com/quailyquaily/inboxdraft/internal/prompttmpl"
	"github.com/quailyquaily/inboxdraft/internal/style"
)

//go:embed prompts/new_draft.tmpl
var newDraftTemplateSource string

//go:embed prompts/refine_draft.tmpl
var refineDraftTemplateSource string

var (
	newDraftTemplate    = prompttmpl.MustParse("new_draft", newDraftTemplateSource, template.FuncMap{})
	refineDraftTemplate = prompttmpl.MustParse("refine_draft", refineDraftTemplateSource, template.FuncMap{})
)

var refineInstructions = map[command.Command]string{
	command.Shorter: "Make the draft shorter. Keep only the essential point, two sentences at most.",
	command.Longer:  "Make the draft a little longer with one or two more useful sentences. Do not invent facts; use \"[Need info: ...]\" for anything unknown.",
	command.Formal:  "Make the draft more formal while staying brief and direct.",
	command.Casual:  "Make the draft more casual and warm.",
	command.Rewrite: "Write a fresh alternative with different wording and the same intent.",
}

type newDraftData struct {
	Profile        style.Profile
	Email          notification.Email
	Classification classify.Classification
}

type refineDraftData struct {
	Profile     style.Profile
	Email       notification.Email
	Draft       string
	Instruction string
}

// NewPrompt builds the prompt for a first draft of a reply to e.
func NewPrompt(p style.Profile, e notification.Email, c classify.Classification) (string, error) {
	return prompttmpl.Render(newDraftTemplate, newDraftData{
		Profile:        p,
		Email:          e,
		Classification: c,
	})
}

// RefinePrompt builds the prompt that applies cmd to an existing draft.
func RefinePrompt(p style.Profile, e notification.Email, current string, cmd command.Command) (string, error) {
	instruction, ok := RefineInstruction(cmd)
	if !ok {
		return "", fmt.Errorf("command %q is not a refinement", cmd)
	}
	return prompttmpl.Render(refineDraftTemplate, refineDraftData{
		Profile:     p,
		Email:       e,
		Draft:       current,
		Instruction: instruction,
	})
}

func RefineInstruction(cmd command.Command) (string, bool) {
	s, ok := refineInstructions[cmd]
	return s, ok
}
