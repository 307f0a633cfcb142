// Package dispatch runs the poll cycle: it reads the channel, decides what
// each unseen message asks for, and posts drafts into threads.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/quailyquaily/inboxdraft/internal/activity"
	"github.com/quailyquaily/inboxdraft/internal/chat"
	"github.com/quailyquaily/inboxdraft/internal/classify"
	"github.com/quailyquaily/inboxdraft/internal/command"
	"github.com/quailyquaily/inboxdraft/internal/draft"
	"github.com/quailyquaily/inboxdraft/internal/generation"
	"github.com/quailyquaily/inboxdraft/internal/notification"
	"github.com/quailyquaily/inboxdraft/internal/style"
	"github.com/quailyquaily/inboxdraft/internal/telemetry"
)

const (
	DefaultLookback = 6 * time.Hour

	// NoEmailNotice answers a mention whose thread has no notification.
	NoEmailNotice = ":warning: I couldn't find an email notification in this thread. Mention me in the thread of an email notification to get a draft."
)

// Transport is the chat API the dispatcher needs.
type Transport interface {
	History(ctx context.Context, channelID string, oldest time.Time) ([]chat.Message, error)
	Replies(ctx context.Context, channelID, threadID string) ([]chat.Message, error)
	Post(ctx context.Context, channelID, threadID, text string) (string, error)
}

// Drafter turns a prompt into draft text. On failure it still returns text
// that can be posted.
type Drafter interface {
	Draft(ctx context.Context, prompt string) (string, error)
}

type Deps struct {
	Transport  Transport
	Drafter    Drafter
	ChannelID  string
	BotUserID  string
	BotID      string
	Profile    style.Profile
	Classifier classify.Classifier
	Lookback   time.Duration
	// AutoDraft drafts new top-level notifications without a mention.
	AutoDraft bool

	Activity *activity.Store
	Metrics  *telemetry.Metrics
	Logger   *slog.Logger
	Now      func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d Deps) lookback() time.Duration {
	if d.Lookback > 0 {
		return d.Lookback
	}
	return DefaultLookback
}

func (d Deps) isSelf(msg chat.Message) bool {
	if d.BotUserID != "" && msg.UserID == d.BotUserID {
		return true
	}
	return d.BotID != "" && msg.BotID == d.BotID
}

var tracer = otel.Tracer("github.com/quailyquaily/inboxdraft/internal/dispatch")

// Step runs one poll cycle. A history failure aborts the cycle and leaves the
// watermark untouched; failures on single messages are logged and skipped.
func Step(ctx context.Context, deps Deps, state *State) error {
	if deps.Transport == nil || deps.Drafter == nil {
		return fmt.Errorf("dispatch deps are incomplete")
	}
	if state == nil || state.Seen == nil {
		return fmt.Errorf("dispatch state is not initialized")
	}
	cycleID := uuid.NewString()
	logger := deps.logger().With("cycle_id", cycleID)
	started := deps.now()

	ctx, span := tracer.Start(ctx, "dispatch.cycle", trace.WithAttributes(attribute.String("cycle_id", cycleID)))
	defer span.End()

	oldest := state.Watermark.Add(-deps.lookback())
	msgs, err := deps.Transport.History(ctx, deps.ChannelID, oldest)
	if err != nil {
		logger.Error("dispatch_message_error", "stage", "history", "error", err.Error())
		span.SetStatus(codes.Error, "history")
		deps.Metrics.Cycle(ctx, false)
		deps.Activity.SetLastCycle(activity.CycleInfo{
			CycleID:   cycleID,
			StartedAt: started,
			Duration:  deps.now().Sub(started).String(),
			Watermark: state.Watermark,
			Seen:      state.Seen.Len(),
			Error:     err.Error(),
		})
		return fmt.Errorf("list history: %w", err)
	}

	c := &cycle{deps: deps, state: state, logger: logger}
	threads := make(map[string][]chat.Message)

	for _, msg := range msgs {
		if !msg.IsTopLevel() || msg.ReplyCount == 0 {
			continue
		}
		thread, err := deps.Transport.Replies(ctx, deps.ChannelID, msg.ID)
		if err != nil {
			logger.Warn("dispatch_message_error", "stage", "replies", "message_id", msg.ID, "error", err.Error())
			continue
		}
		for i := 0; i < len(thread); i++ {
			reply := thread[i]
			if reply.ID == msg.ID {
				continue
			}
			thread = c.handle(ctx, reply, thread)
		}
		threads[msg.ID] = thread
	}

	for _, msg := range msgs {
		if !msg.IsTopLevel() {
			continue
		}
		thread, ok := threads[msg.ID]
		if !ok {
			thread = []chat.Message{msg}
		}
		threads[msg.ID] = c.handle(ctx, msg, thread)
	}

	state.Watermark = deps.now()
	state.Cycles++
	deps.Metrics.Cycle(ctx, true)
	deps.Activity.SetLastCycle(activity.CycleInfo{
		CycleID:   cycleID,
		StartedAt: started,
		Duration:  state.Watermark.Sub(started).String(),
		Watermark: state.Watermark,
		Messages:  len(msgs),
		Seen:      state.Seen.Len(),
	})
	logger.Debug("dispatch_cycle_done",
		"messages", len(msgs),
		"threads", len(threads),
		"seen", state.Seen.Len(),
		"drafts", c.posted,
	)
	return nil
}

type cycle struct {
	deps   Deps
	state  *State
	logger *slog.Logger
	posted int
}

// handle processes one message and returns the thread, extended with
// anything posted into it.
func (c *cycle) handle(ctx context.Context, msg chat.Message, thread []chat.Message) []chat.Message {
	if msg.ID == "" || c.state.Seen.Has(msg.ID) || c.state.Seen.Forgotten(msg.ID) {
		return thread
	}
	defer c.markSeen(ctx, msg.ID)

	switch {
	case draft.IsPost(msg.Text), c.deps.isSelf(msg):
		return thread
	case command.Mentions(msg.Text, c.deps.BotUserID):
		cmd := command.Recognize(msg.Text, c.deps.BotUserID)
		return c.respond(ctx, msg, thread, cmd)
	case c.deps.AutoDraft && msg.IsTopLevel() && !msg.Time().Before(c.state.Started) && notification.IsNotification(msg.Text):
		return c.respond(ctx, msg, thread, command.NewDraft)
	default:
		return thread
	}
}

func (c *cycle) markSeen(ctx context.Context, id string) {
	if c.state.Seen.Add(id) {
		c.deps.Metrics.MessageSeen(ctx)
	}
}

func (c *cycle) respond(ctx context.Context, msg chat.Message, thread []chat.Message, cmd command.Command) []chat.Message {
	threadID := msg.ThreadKey()
	logger := c.logger.With("message_id", msg.ID, "thread_ts", threadID, "command", cmd.String())

	ctx, span := tracer.Start(ctx, "dispatch.respond", trace.WithAttributes(
		attribute.String("message_id", msg.ID),
		attribute.String("command", cmd.String()),
	))
	defer span.End()

	rec := activity.Record{
		ID:        uuid.NewString(),
		Outcome:   activity.OutcomePending,
		MessageID: msg.ID,
		ThreadID:  threadID,
		Command:   cmd.String(),
		CreatedAt: c.deps.now(),
	}
	c.deps.Activity.Upsert(rec)

	email, ok := findNotification(thread)
	if !ok {
		logger.Info("dispatch_no_notification")
		rec.Outcome = activity.OutcomeNoEmail
		postID, err := c.post(ctx, logger, threadID, NoEmailNotice)
		if err != nil {
			rec.Outcome = activity.OutcomeFailed
			rec.Error = err.Error()
			c.finish(rec)
			return thread
		}
		rec.PostID = postID
		c.finish(rec)
		return c.appendPost(thread, postID, threadID, NoEmailNotice)
	}

	class := c.deps.Classifier.Classify(email)
	rec.Sender = email.Sender
	rec.Subject = email.Subject
	rec.Priority = string(class.Priority)
	rec.Category = string(class.Category)

	prompt, refined, err := c.buildPrompt(email, class, thread, cmd, logger)
	var body string
	if err != nil {
		logger.Error("dispatch_message_error", "stage", "prompt", "error", err.Error())
		body = generation.Placeholder(err.Error())
	} else {
		body, err = c.deps.Drafter.Draft(ctx, prompt)
		if err != nil {
			logger.Warn("dispatch_message_error", "stage", "generate", "error", err.Error())
			c.deps.Metrics.GenerationError(ctx, errors.Is(err, generation.ErrRateLimited))
			span.RecordError(err)
		}
	}
	if err != nil {
		rec.Error = err.Error()
	}
	rec.Refined = refined

	text := draft.FormatPost(body, class, c.deps.Profile.DisplayName())
	postID, postErr := c.post(ctx, logger, threadID, text)
	if postErr != nil {
		rec.Outcome = activity.OutcomeFailed
		rec.Error = postErr.Error()
		span.SetStatus(codes.Error, "post")
		c.finish(rec)
		return thread
	}
	rec.Outcome = activity.OutcomePosted
	rec.PostID = postID
	c.finish(rec)
	c.posted++
	c.deps.Metrics.DraftPosted(ctx, cmd.String(), string(class.Priority))
	logger.Info("dispatch_draft_posted",
		"priority", string(class.Priority),
		"category", string(class.Category),
		"refined", refined,
		"post_id", postID,
	)
	return c.appendPost(thread, postID, threadID, text)
}

// buildPrompt picks the refinement prompt when cmd refines and a previous
// draft exists, and the new-draft prompt otherwise.
func (c *cycle) buildPrompt(email notification.Email, class classify.Classification, thread []chat.Message, cmd command.Command, logger *slog.Logger) (string, bool, error) {
	if cmd.IsRefinement() {
		current, ok := draft.Extract(thread)
		if ok && !generation.IsPlaceholder(current) {
			prompt, err := draft.RefinePrompt(c.deps.Profile, email, current, cmd)
			return prompt, true, err
		}
		logger.Info("dispatch_refine_without_draft")
	}
	prompt, err := draft.NewPrompt(c.deps.Profile, email, class)
	return prompt, false, err
}

func (c *cycle) post(ctx context.Context, logger *slog.Logger, threadID, text string) (string, error) {
	postID, err := c.deps.Transport.Post(ctx, c.deps.ChannelID, threadID, text)
	if err != nil {
		logger.Error("dispatch_message_error", "stage", "post", "error", err.Error())
		return "", err
	}
	postID = strings.TrimSpace(postID)
	if postID != "" {
		c.state.Seen.Add(postID)
	}
	return postID, nil
}

func (c *cycle) finish(rec activity.Record) {
	now := c.deps.now()
	rec.FinishedAt = &now
	if !c.deps.Activity.Update(rec.ID, func(r *activity.Record) { *r = rec }) {
		c.deps.Activity.Upsert(rec)
	}
}

// appendPost makes a post visible to later messages of the same cycle, so
// that a refinement right after a draft sees it.
func (c *cycle) appendPost(thread []chat.Message, postID, threadID, text string) []chat.Message {
	if postID == "" {
		postID = chat.FormatTS(c.deps.now())
	}
	return append(thread, chat.Message{
		ID:       postID,
		Text:     text,
		ThreadID: threadID,
		UserID:   c.deps.BotUserID,
		BotID:    c.deps.BotID,
	})
}

// findNotification returns the first message of the thread, in thread order,
// that parses as a notification.
func findNotification(thread []chat.Message) (notification.Email, bool) {
	for _, msg := range thread {
		if email, ok := notification.Parse(msg.Text); ok {
			return email, true
		}
	}
	return notification.Email{}, false
}
