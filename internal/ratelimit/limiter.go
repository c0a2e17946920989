package ratelimit

import (
	"context"
	"sync"
	"time"
)

// safetyMargin is added to computed waits so that a timestamp sitting exactly
// on the window boundary has definitely expired by the time we re-check.
const safetyMargin = 50 * time.Millisecond

// Limiter enforces a sliding-window call quota plus a minimum spacing
// between consecutive calls. It is safe for concurrent use.
type Limiter struct {
	mu         sync.Mutex
	quota      int
	window     time.Duration
	minSpacing time.Duration
	calls      []time.Time
	last       time.Time

	// Injectable for tests with a simulated clock.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Limiter allowing at most quota calls per window, with at
// least minSpacing between any two calls.
func New(quota int, window, minSpacing time.Duration) *Limiter {
	if quota < 1 {
		quota = 1
	}
	return &Limiter{
		quota:      quota,
		window:     window,
		minSpacing: minSpacing,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Acquire blocks until one call may safely be issued, then records it.
// State is only updated on grant; callers that time out via ctx consume
// nothing. The wait is re-evaluated after every sleep because other
// goroutines may have been granted slots in the meantime.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.prune(now)

		var wait time.Duration
		if len(l.calls) >= l.quota {
			wait = l.calls[0].Add(l.window).Sub(now) + safetyMargin
		}
		if !l.last.IsZero() {
			if gap := l.last.Add(l.minSpacing).Sub(now); gap > wait {
				wait = gap
			}
		}

		if wait <= 0 {
			l.calls = append(l.calls, now)
			l.last = now
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// prune drops timestamps that have left the sliding window.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.calls) && !l.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.calls = append(l.calls[:0], l.calls[i:]...)
	}
}

// Pending reports how many calls currently occupy the window. Inspection
// only; it never mutates limiter state.
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	n := 0
	cutoff := now.Add(-l.window)
	for _, c := range l.calls {
		if c.After(cutoff) {
			n++
		}
	}
	return n
}
