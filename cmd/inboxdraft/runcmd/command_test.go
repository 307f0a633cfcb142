package runcmd

import (
	"strings"
	"testing"

	"github.com/quailyquaily/inboxdraft/internal/config"
	"github.com/quailyquaily/inboxdraft/internal/style"
)

func TestStartupMessage(t *testing.T) {
	p := style.Default()
	got := StartupMessage(p, true)
	want := ":robot_face: *AI Draft Service Started*\n\nI'll automatically draft responses in Laura's style when new emails arrive."
	if got != want {
		t.Fatalf("StartupMessage(auto) = %q, want %q", got, want)
	}
	if got := StartupMessage(p, false); !strings.Contains(got, "Mention me") {
		t.Fatalf("StartupMessage(mention) = %q", got)
	}
}

func TestRunFailsBeforeNetworkOnMissingConfig(t *testing.T) {
	for _, name := range []string{"SLACK_BOT_TOKEN", "SLACK_CHANNEL_ID", "GEMINI_API_KEY", "INBOXDRAFT_SLACK_BOT_TOKEN", "INBOXDRAFT_SLACK_CHANNEL_ID", "INBOXDRAFT_GEMINI_API_KEY"} {
		t.Setenv(name, "")
	}
	cmd := NewCommand(config.New(), "test")
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "missing required environment variables") {
		t.Fatalf("Execute() error = %v, want missing variables", err)
	}
}
