package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

const DefaultInterval = 30 * time.Second

// Run calls Step every interval until ctx is done. Cycle errors and panics are
// logged and never stop the loop.
func Run(ctx context.Context, deps Deps, state *State, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := deps.logger()
	logger.Info("dispatch_loop_start",
		"channel_id", deps.ChannelID,
		"interval", interval.String(),
		"lookback", deps.lookback().String(),
		"auto_draft", deps.AutoDraft,
	)
	for {
		if ctx.Err() != nil {
			logger.Info("dispatch_loop_stop", "cycles", state.Cycles)
			return nil
		}
		if err := safeStep(ctx, deps, state); err != nil && ctx.Err() == nil {
			logger.Error("dispatch_cycle_error", "error", err.Error())
		}
		if err := sleepWithContext(ctx, interval); err != nil {
			logger.Info("dispatch_loop_stop", "cycles", state.Cycles)
			return nil
		}
	}
}

func safeStep(ctx context.Context, deps Deps, state *State) (err error) {
	defer func() {
		if r := recover(); r != nil {
			deps.logger().Error("dispatch_cycle_panic", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			err = fmt.Errorf("dispatch cycle panic: %v", r)
		}
	}()
	return Step(ctx, deps, state)
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
