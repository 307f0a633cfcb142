// Package slackclient is the chat transport: it reads channel history and
// threads and posts replies through the Slack Web API.
package slackclient

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/quailyquaily/inboxdraft/internal/chat"
)

const (
	DefaultHistoryLimit = 100
	DefaultMaxPages     = 10

	maxAttempts = 3
)

type Options struct {
	// APIURL overrides https://slack.com/api/. Used by tests.
	APIURL       string
	HTTPClient   *http.Client
	HistoryLimit int
	MaxPages     int
}

// Identity is who the bot token authenticates as.
type Identity struct {
	UserID string
	BotID  string
	TeamID string
	Team   string
}

type Client struct {
	api          *slack.Client
	historyLimit int
	maxPages     int
	sleep        func(ctx context.Context, d time.Duration) error
}

func New(botToken string, opts Options) *Client {
	var slackOpts []slack.Option
	if u := strings.TrimSpace(opts.APIURL); u != "" {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		slackOpts = append(slackOpts, slack.OptionAPIURL(u))
	}
	if opts.HTTPClient != nil {
		slackOpts = append(slackOpts, slack.OptionHTTPClient(opts.HTTPClient))
	}
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	pages := opts.MaxPages
	if pages <= 0 {
		pages = DefaultMaxPages
	}
	return &Client{
		api:          slack.New(strings.TrimSpace(botToken), slackOpts...),
		historyLimit: limit,
		maxPages:     pages,
		sleep:        sleepWithContext,
	}
}

func (c *Client) Identify(ctx context.Context) (Identity, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return Identity{}, fmt.Errorf("slack auth.test: %w", err)
	}
	id := Identity{
		UserID: strings.TrimSpace(resp.UserID),
		BotID:  strings.TrimSpace(resp.BotID),
		TeamID: strings.TrimSpace(resp.TeamID),
		Team:   strings.TrimSpace(resp.Team),
	}
	if id.UserID == "" {
		return Identity{}, fmt.Errorf("slack auth.test returned empty user_id")
	}
	return id, nil
}

// History lists channel messages newer than oldest, oldest first.
func (c *Client) History(ctx context.Context, channelID string, oldest time.Time) ([]chat.Message, error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return nil, fmt.Errorf("channel_id is required")
	}
	params := &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Oldest:    chat.FormatTS(oldest),
		Limit:     c.historyLimit,
	}
	var out []chat.Message
	for page := 0; page < c.maxPages; page++ {
		var resp *slack.GetConversationHistoryResponse
		err := c.withRetry(ctx, func() error {
			var err error
			resp, err = c.api.GetConversationHistoryContext(ctx, params)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("slack conversations.history: %w", err)
		}
		for _, msg := range resp.Messages {
			out = append(out, convertMessage(msg))
		}
		next := strings.TrimSpace(resp.ResponseMetaData.NextCursor)
		if !resp.HasMore || next == "" {
			break
		}
		params.Cursor = next
	}
	// Slack pages newest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Replies lists a thread, parent first.
func (c *Client) Replies(ctx context.Context, channelID, threadID string) ([]chat.Message, error) {
	channelID = strings.TrimSpace(channelID)
	threadID = strings.TrimSpace(threadID)
	if channelID == "" || threadID == "" {
		return nil, fmt.Errorf("channel_id and thread_ts are required")
	}
	params := &slack.GetConversationRepliesParameters{
		ChannelID: channelID,
		Timestamp: threadID,
		Limit:     c.historyLimit,
	}
	var out []chat.Message
	for page := 0; page < c.maxPages; page++ {
		var (
			msgs    []slack.Message
			hasMore bool
			next    string
		)
		err := c.withRetry(ctx, func() error {
			var err error
			msgs, hasMore, next, err = c.api.GetConversationRepliesContext(ctx, params)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("slack conversations.replies: %w", err)
		}
		for _, msg := range msgs {
			out = append(out, convertMessage(msg))
		}
		next = strings.TrimSpace(next)
		if !hasMore || next == "" {
			break
		}
		params.Cursor = next
	}
	return out, nil
}

// Post sends text to the channel, inside threadID when it is set, and
// returns the new message id.
func (c *Client) Post(ctx context.Context, channelID, threadID, text string) (string, error) {
	channelID = strings.TrimSpace(channelID)
	threadID = strings.TrimSpace(threadID)
	text = strings.TrimSpace(text)
	if channelID == "" {
		return "", fmt.Errorf("channel_id is required")
	}
	if text == "" {
		return "", fmt.Errorf("text is required")
	}
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadID != "" {
		opts = append(opts, slack.MsgOptionTS(threadID))
	}

	var ts string
	err := c.withRetry(ctx, func() error {
		var err error
		_, ts, err = c.api.PostMessageContext(ctx, channelID, opts...)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("slack chat.postMessage: %w", err)
	}
	return ts, nil
}

// withRetry runs call up to maxAttempts times, waiting between attempts on
// rate limits and 5xx responses.
func (c *Client) withRetry(ctx context.Context, call func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = call(); err == nil {
			return nil
		}
		if attempt >= maxAttempts {
			break
		}
		wait, retryable := retryDelay(err, attempt)
		if !retryable {
			break
		}
		if serr := c.sleep(ctx, wait); serr != nil {
			return serr
		}
	}
	return err
}

func convertMessage(msg slack.Message) chat.Message {
	return chat.Message{
		ID:         strings.TrimSpace(msg.Timestamp),
		Text:       html.UnescapeString(msg.Text),
		ThreadID:   strings.TrimSpace(msg.ThreadTimestamp),
		ReplyCount: msg.ReplyCount,
		UserID:     strings.TrimSpace(msg.User),
		BotID:      strings.TrimSpace(msg.BotID),
	}
}

func retryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimited *slack.RateLimitedError
	if errors.As(err, &rateLimited) {
		if rateLimited.RetryAfter <= 0 {
			return 1 * time.Second, true
		}
		return rateLimited.RetryAfter, true
	}
	var status slack.StatusCodeError
	if errors.As(err, &status) && status.Code >= 500 && status.Code <= 599 {
		switch attempt {
		case 1:
			return 300 * time.Millisecond, true
		case 2:
			return 1 * time.Second, true
		default:
			return 2 * time.Second, true
		}
	}
	return 0, false
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
