package classify

import (
	"strings"

	"github.com/quailyquaily/inboxdraft/internal/notification"
)

type Priority string

// DefaultOwner names the profile owner when a Classifier has none.
const DefaultOwner = "Laura"

const urgentFromPrefix = "URGENT - FROM "

const (
	PriorityNormal             Priority = "NORMAL"
	PriorityUrgent             Priority = "URGENT"
	PriorityUrgentFromPriority Priority = urgentFromPrefix + "LAURA"
)

// UrgentFrom is the priority of mail sent by owner.
func UrgentFrom(owner string) Priority {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		owner = DefaultOwner
	}
	return Priority(urgentFromPrefix + strings.ToUpper(owner))
}

// IsUrgent is true for URGENT and every URGENT - FROM priority.
func (p Priority) IsUrgent() bool {
	return p == PriorityUrgent || strings.HasPrefix(string(p), urgentFromPrefix)
}

type Category string

const (
	CategoryGeneral        Category = "general"
	CategoryScheduling     Category = "scheduling"
	CategoryQuestion       Category = "question"
	CategoryRequest        Category = "request"
	CategoryFyi            Category = "fyi"
	CategoryAcknowledgment Category = "acknowledgment"
)

type Classification struct {
	Priority       Priority `json:"priority"`
	Category       Category `json:"category"`
	IsFromPriority bool     `json:"is_from_priority"`
}

// DefaultPrioritySenders are the sender aliases of DefaultOwner. They apply
// whenever a Classifier lists no aliases of its own.
var DefaultPrioritySenders = []string{"laura.paris", "lparis", "laura paris"}

var urgentKeywords = []string{"urgent", "asap", "immediately", "emergency", "critical", "deadline today"}

type categoryRule struct {
	category Category
	keywords []string
	// subjectKeywords only match the subject line.
	subjectKeywords []string
}

// Checked in order; the first hit wins, so earlier rules mask later ones.
// A question mark only marks a question when it is in the subject: body
// previews end most polite requests with one.
var categoryRules = []categoryRule{
	{category: CategoryScheduling, keywords: []string{"meeting", "schedule", "calendar", "time"}},
	{category: CategoryQuestion, keywords: []string{"question"}, subjectKeywords: []string{"?"}},
	{category: CategoryRequest, keywords: []string{"please", "request", "need", "can you"}},
	{category: CategoryFyi, keywords: []string{"fyi", "update", "information", "attached"}},
	{category: CategoryAcknowledgment, keywords: []string{"thank", "congrat", "great job", "well done"}},
}

// Classifier holds the profile owner and the sender aliases used for
// IsFromPriority. The zero value classifies for DefaultOwner with
// DefaultPrioritySenders.
type Classifier struct {
	Owner           string
	PrioritySenders []string
}

// Classify uses the default sender aliases.
func Classify(e notification.Email) Classification {
	return Classifier{}.Classify(e)
}

func (c Classifier) Classify(e notification.Email) Classification {
	subject := strings.ToLower(e.Subject)
	body := strings.ToLower(e.BodyPreview)

	fromPriority := c.IsPrioritySender(e.Sender)
	urgent := containsAny(subject, urgentKeywords) || containsAny(body, urgentKeywords)

	priority := PriorityNormal
	switch {
	case fromPriority:
		priority = UrgentFrom(c.Owner)
	case urgent:
		priority = PriorityUrgent
	}

	return Classification{
		Priority:       priority,
		Category:       categorize(subject, body),
		IsFromPriority: fromPriority,
	}
}

func (c Classifier) IsPrioritySender(sender string) bool {
	aliases := c.PrioritySenders
	if len(aliases) == 0 {
		aliases = DefaultPrioritySenders
	}
	sender = strings.ToLower(sender)
	for _, alias := range aliases {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if alias != "" && strings.Contains(sender, alias) {
			return true
		}
	}
	return false
}

func categorize(subject, body string) Category {
	text := subject + body
	for _, rule := range categoryRules {
		if containsAny(text, rule.keywords) || containsAny(subject, rule.subjectKeywords) {
			return rule.category
		}
	}
	return CategoryGeneral
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
