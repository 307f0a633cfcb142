// Package generation calls the text-generation backend and turns its failures
// into placeholder drafts.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quailyquaily/inboxdraft/internal/outputfmt"
)

// ErrRateLimited marks a failure the backend asked us to back off from.
var ErrRateLimited = errors.New("generation rate limited")

// ErrEmptyResponse is returned when the backend produced no usable text.
var ErrEmptyResponse = errors.New("empty response")

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second

	placeholderPrefix = "[Error drafting response: "
	maxReasonChars    = 300
)

// Drafter retries rate-limited generations with exponential backoff and
// never returns an empty draft.
type Drafter struct {
	Generator   Generator
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *slog.Logger

	// Sleep defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Draft returns the normalized generated text. On failure it returns a
// placeholder that is safe to post together with the error that caused it.
func (d *Drafter) Draft(ctx context.Context, prompt string) (string, error) {
	if d == nil || d.Generator == nil {
		err := fmt.Errorf("generator is not configured")
		return Placeholder(err.Error()), err
	}
	maxAttempts := d.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	delay := d.BaseDelay
	if delay <= 0 {
		delay = DefaultBaseDelay
	}
	sleep := d.Sleep
	if sleep == nil {
		sleep = sleepWithContext
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, err := d.Generator.Generate(ctx, prompt)
		if err == nil {
			text = outputfmt.NormalizeDraft(text)
			if text == "" {
				return Placeholder(ErrEmptyResponse.Error()), ErrEmptyResponse
			}
			return text, nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return Placeholder(err.Error()), err
		}
		if attempt >= maxAttempts {
			break
		}
		logger.Warn("generation_rate_limited",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"retry_in", delay.String(),
		)
		if err := sleep(ctx, delay); err != nil {
			return Placeholder(err.Error()), err
		}
		delay *= 2
	}
	err := fmt.Errorf("rate limited after %d attempts: %w", maxAttempts, ErrRateLimited)
	return Placeholder(fmt.Sprintf("rate limited after %d attempts", maxAttempts)), err
}

// Placeholder is the text posted instead of a draft when generation failed.
func Placeholder(reason string) string {
	reason = strings.Join(strings.Fields(reason), " ")
	if reason == "" {
		reason = "unknown error"
	}
	if r := []rune(reason); len(r) > maxReasonChars {
		reason = string(r[:maxReasonChars]) + "..."
	}
	return placeholderPrefix + reason + "]"
}

// IsPlaceholder reports whether text is a failure placeholder.
func IsPlaceholder(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), placeholderPrefix)
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
