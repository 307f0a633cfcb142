// Package triagecmd explains offline how the dispatcher would read a
// message. It makes no network calls.
package triagecmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quailyquaily/inboxdraft/internal/classify"
	"github.com/quailyquaily/inboxdraft/internal/command"
	"github.com/quailyquaily/inboxdraft/internal/draft"
	"github.com/quailyquaily/inboxdraft/internal/notification"
	"github.com/quailyquaily/inboxdraft/internal/style"
)

type Result struct {
	Notification   *notification.Email      `json:"notification,omitempty"`
	Classification *classify.Classification `json:"classification,omitempty"`
	Mentioned      bool                     `json:"mentioned"`
	Command        string                   `json:"command,omitempty"`
	IsDraftPost    bool                     `json:"is_draft_post"`
	Draft          string                   `json:"draft,omitempty"`
}

func NewCommand() *cobra.Command {
	var botUserID, profilePath string
	cmd := &cobra.Command{
		Use:   "triage [text]",
		Short: "Parse, classify and recognize a message without contacting Slack",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if strings.TrimSpace(text) == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("no message text given")
			}
			profile, err := style.Load(profilePath)
			if err != nil {
				return err
			}
			res := Triage(text, strings.TrimSpace(botUserID), classify.Classifier{Owner: profile.DisplayName(), PrioritySenders: profile.PrioritySenders})
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&botUserID, "bot-user", "", "bot user id used to recognize mentions")
	cmd.Flags().StringVar(&profilePath, "profile", "", "style profile YAML, embedded default when empty")
	return cmd
}

func Triage(text, botUserID string, c classify.Classifier) Result {
	var res Result
	if email, ok := notification.Parse(text); ok {
		class := c.Classify(email)
		res.Notification = &email
		res.Classification = &class
	}
	if botUserID != "" && command.Mentions(text, botUserID) {
		res.Mentioned = true
		res.Command = command.Recognize(text, botUserID).String()
	}
	res.IsDraftPost = draft.IsPost(text)
	if res.IsDraftPost {
		res.Draft, _ = draft.ExtractText(text)
	}
	return res
}
