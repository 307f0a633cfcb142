package dispatch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunRecoversAndStopsOnCancel(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	tr.addTop("100.000001", budgetNotification)
	tr.addReply("100.000001", "101.000001", "<@U0BOT>", "UHUMAN")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	tr.onHist = func() {
		n := calls.Add(1)
		if n == 1 {
			panic("transport exploded")
		}
		if n >= 3 {
			cancel()
		}
	}
	clock := newClock()
	deps := newTestDeps(tr, &fakeDrafter{}, clock)
	state := NewState(10, clock.Now())

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, deps, state, time.Millisecond)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run() did not stop after cancel")
	}
	if calls.Load() < 3 {
		t.Fatalf("history calls = %d, want >= 3", calls.Load())
	}
	if n := len(tr.postsSnapshot()); n != 1 {
		t.Fatalf("posts = %d, want 1", n)
	}
}
