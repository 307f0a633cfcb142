package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/quailyquaily/inboxdraft/internal/activity"
	"github.com/quailyquaily/inboxdraft/internal/chat"
	"github.com/quailyquaily/inboxdraft/internal/style"
)

const (
	testChannel = "C1"
	testBotUser = "U0BOT"
	testBotID   = "B0BOT"
)

type postCall struct {
	channelID string
	threadID  string
	text      string
}

type fakeTransport struct {
	mu       sync.Mutex
	top      []chat.Message
	replies  map[string][]chat.Message
	posts    []postCall
	oldest   []time.Time
	nextTS   int
	histErr  error
	postErrs map[string]error
	onHist   func()
	onPost   func(threadID string)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		replies:  map[string][]chat.Message{},
		postErrs: map[string]error{},
		nextTS:   1000,
	}
}

func (f *fakeTransport) addTop(id, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.top = append(f.top, chat.Message{ID: id, Text: text, UserID: "UAUTO"})
}

func (f *fakeTransport) addReply(parentID, id, text, user string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[parentID] = append(f.replies[parentID], chat.Message{ID: id, Text: text, ThreadID: parentID, UserID: user})
	for i := range f.top {
		if f.top[i].ID == parentID {
			f.top[i].ThreadID = parentID
			f.top[i].ReplyCount++
		}
	}
}

func (f *fakeTransport) History(_ context.Context, channelID string, oldest time.Time) ([]chat.Message, error) {
	if f.onHist != nil {
		f.onHist()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.oldest = append(f.oldest, oldest)
	if f.histErr != nil {
		return nil, f.histErr
	}
	if channelID != testChannel {
		return nil, fmt.Errorf("unexpected channel %q", channelID)
	}
	return append([]chat.Message(nil), f.top...), nil
}

func (f *fakeTransport) Replies(_ context.Context, _ string, threadID string) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []chat.Message
	for _, m := range f.top {
		if m.ID == threadID {
			out = append(out, m)
		}
	}
	return append(out, f.replies[threadID]...), nil
}

func (f *fakeTransport) Post(_ context.Context, channelID, threadID, text string) (string, error) {
	if f.onPost != nil {
		f.onPost(threadID)
	}
	f.mu.Lock()
	if err := f.postErrs[threadID]; err != nil {
		f.mu.Unlock()
		return "", err
	}
	f.posts = append(f.posts, postCall{channelID: channelID, threadID: threadID, text: text})
	f.nextTS++
	ts := fmt.Sprintf("%d.000001", f.nextTS)
	f.mu.Unlock()
	f.addReply(threadID, ts, text, testBotUser)
	return ts, nil
}

func (f *fakeTransport) postsSnapshot() []postCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]postCall(nil), f.posts...)
}

type fakeDrafter struct {
	mu      sync.Mutex
	prompts []string
	err     error
}

func (d *fakeDrafter) Draft(_ context.Context, prompt string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prompts = append(d.prompts, prompt)
	if d.err != nil {
		return "[Error drafting response: " + d.err.Error() + "]", d.err
	}
	return fmt.Sprintf("Draft %d\nLaura", len(d.prompts)), nil
}

func (d *fakeDrafter) promptsSnapshot() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.prompts...)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestDeps(tr *fakeTransport, dr *fakeDrafter, clock *testClock) Deps {
	return Deps{
		Transport: tr,
		Drafter:   dr,
		ChannelID: testChannel,
		BotUserID: testBotUser,
		BotID:     testBotID,
		Profile:   style.Default(),
		Activity:  activity.NewStore(100),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:       clock.Now,
	}
}

var errBoom = errors.New("boom")

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
