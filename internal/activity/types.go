package activity

import (
	"strings"
	"time"
)

type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomePosted  Outcome = "posted"
	OutcomeFailed  Outcome = "failed"
	// OutcomeNoEmail means the mention's thread had no notification to answer.
	OutcomeNoEmail Outcome = "no_email"
)

// Record is one mention or auto-draft the dispatcher acted on.
type Record struct {
	ID         string     `json:"id"`
	Outcome    Outcome    `json:"outcome"`
	MessageID  string     `json:"message_id"`
	ThreadID   string     `json:"thread_id"`
	Command    string     `json:"command"`
	Refined    bool       `json:"refined"`
	Sender     string     `json:"sender,omitempty"`
	Subject    string     `json:"subject,omitempty"`
	Priority   string     `json:"priority,omitempty"`
	Category   string     `json:"category,omitempty"`
	PostID     string     `json:"post_id,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// CycleInfo summarizes the most recent poll cycle.
type CycleInfo struct {
	CycleID   string    `json:"cycle_id"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	Watermark time.Time `json:"watermark"`
	Messages  int       `json:"messages"`
	Seen      int       `json:"seen"`
	Error     string    `json:"error,omitempty"`
}

func ParseOutcome(raw string) (Outcome, bool) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "":
		return "", true
	case string(OutcomePending):
		return OutcomePending, true
	case string(OutcomePosted):
		return OutcomePosted, true
	case string(OutcomeFailed):
		return OutcomeFailed, true
	case string(OutcomeNoEmail):
		return OutcomeNoEmail, true
	default:
		return "", false
	}
}
