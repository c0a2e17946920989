package ratelimit

import (
	"context"
	"testing"
	"time"
)

// fakeClock drives the limiter deterministically: sleeping advances the
// clock instead of waiting.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.now = c.now.Add(d)
	return nil
}

func newTestLimiter(quota int, window, spacing time.Duration) (*Limiter, *fakeClock) {
	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := New(quota, window, spacing)
	l.now = clk.Now
	l.sleep = clk.Sleep
	return l, clk
}

func TestAcquireEnforcesMinSpacing(t *testing.T) {
	l, clk := newTestLimiter(100, time.Minute, 2*time.Second)
	ctx := context.Background()

	var grants []time.Time
	for i := 0; i < 5; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		grants = append(grants, clk.now)
	}

	for i := 1; i < len(grants); i++ {
		gap := grants[i].Sub(grants[i-1])
		if gap < 2*time.Second {
			t.Errorf("grants %d and %d only %v apart", i-1, i, gap)
		}
	}
}

func TestAcquireEnforcesWindowQuota(t *testing.T) {
	const quota = 3
	window := time.Minute
	l, clk := newTestLimiter(quota, window, 0)
	ctx := context.Background()

	var grants []time.Time
	for i := 0; i < 10; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		grants = append(grants, clk.now)
	}

	// No sliding window of `window` duration may contain more than quota grants.
	for i := range grants {
		count := 0
		for j := i; j < len(grants); j++ {
			if grants[j].Sub(grants[i]) < window {
				count++
			}
		}
		if count > quota {
			t.Errorf("window starting at grant %d holds %d calls, quota is %d", i, count, quota)
		}
	}
}

func TestAcquireImmediateWhenIdle(t *testing.T) {
	l, clk := newTestLimiter(5, time.Minute, time.Second)
	start := clk.now

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !clk.now.Equal(start) {
		t.Errorf("first acquire should not wait, clock moved by %v", clk.now.Sub(start))
	}
}

func TestAcquireCancelledContext(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute, 0)
	ctx := context.Background()
	if err := l.Acquire(ctx); err != nil {
		t.Fatal(err)
	}

	// Quota is now full; a cancelled context must abort the wait without
	// recording a call.
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	l.sleep = sleepCtx // real sleep honors cancellation
	if err := l.Acquire(cancelled); err == nil {
		t.Fatal("expected context error")
	}
	if got := l.Pending(); got != 1 {
		t.Errorf("cancelled acquire mutated state: %d calls recorded", got)
	}
}

func TestPendingDoesNotMutate(t *testing.T) {
	l, _ := newTestLimiter(2, time.Minute, 0)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if got := l.Pending(); got != 1 {
			t.Fatalf("expected 1 pending call, got %d", got)
		}
	}
}
