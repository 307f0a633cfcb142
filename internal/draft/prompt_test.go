package draft

import (
	"strings"
	"testing"

	"github.com/quailyquaily/inboxdraft/internal/classify"
	"github.com/quailyquaily/inboxdraft/internal/command"
	"github.com/quailyquaily/inboxdraft/internal/notification"
	"github.com/quailyquaily/inboxdraft/internal/style"
)

func TestNewPrompt(t *testing.T) {
	t.Parallel()

	email := notification.Email{Sender: "Jane Doe <jane@x.org>", Subject: "Budget", BodyPreview: "Can you send the Q3 numbers?"}
	prompt, err := NewPrompt(style.Default(), email, classify.Classify(email))
	if err != nil {
		t.Fatalf("NewPrompt() error = %v", err)
	}
	for _, want := range []string{
		"in the style of Laura Paris, Executive Director at Coalition for Hispanic Family Services.",
		"## Laura's Writing Style:",
		"**From:** Jane Doe <jane@x.org>",
		"**Subject:** Budget",
		"**Body Preview:** Can you send the Q3 numbers?",
		"- Priority: NORMAL",
		"- Type: request",
		"- From Laura: false",
		"End with just \"Laura\"",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if !strings.HasSuffix(prompt, "Draft reply:") {
		t.Fatalf("prompt should end with the reply cue")
	}
}

func TestRefinePrompt(t *testing.T) {
	t.Parallel()

	email := notification.Email{Sender: "a@x.org", Subject: "Hi", BodyPreview: "hello"}
	for _, cmd := range command.Refinements {
		prompt, err := RefinePrompt(style.Default(), email, "Sounds good!\nLaura", cmd)
		if err != nil {
			t.Fatalf("RefinePrompt(%s) error = %v", cmd, err)
		}
		instruction, _ := RefineInstruction(cmd)
		if !strings.Contains(prompt, instruction) || !strings.Contains(prompt, "Sounds good!\nLaura") {
			t.Fatalf("RefinePrompt(%s) missing draft or instruction:\n%s", cmd, prompt)
		}
	}
	if _, err := RefinePrompt(style.Default(), email, "x", command.NewDraft); err == nil {
		t.Fatalf("expected error for non-refinement command")
	}
}
