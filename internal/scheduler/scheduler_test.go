package scheduler_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"modwatch/internal/scheduler"
)

// fakeClock advances only when the scheduler sleeps, keeping timing
// assertions deterministic.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newScheduler(c *fakeClock, maxRetries int) *scheduler.Scheduler {
	return scheduler.New(
		3500*time.Millisecond,
		6*time.Second,
		15*time.Second,
		maxRetries,
		scheduler.WithClock(c.Now),
		scheduler.WithSleeper(c.Sleep),
	)
}

func TestDoFirstRequestRunsImmediately(t *testing.T) {
	clock := newFakeClock()
	sched := newScheduler(clock, 5)

	calls := 0
	err := sched.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("expected no sleeps, got %v", clock.sleeps)
	}
}

func TestDoEnforcesPacingFloor(t *testing.T) {
	clock := newFakeClock()
	sched := newScheduler(clock, 5)

	ok := func(context.Context) error { return nil }
	if err := sched.Do(context.Background(), ok); err != nil {
		t.Fatalf("first Do: %v", err)
	}

	clock.Advance(1 * time.Second)
	if err := sched.Do(context.Background(), ok); err != nil {
		t.Fatalf("second Do: %v", err)
	}

	if len(clock.sleeps) != 1 {
		t.Fatalf("expected one floor sleep, got %v", clock.sleeps)
	}
	if got, want := clock.sleeps[0], 2500*time.Millisecond; got != want {
		t.Fatalf("expected floor sleep of %v, got %v", want, got)
	}
}

func TestDoSkipsFloorAfterEnoughElapsed(t *testing.T) {
	clock := newFakeClock()
	sched := newScheduler(clock, 5)

	ok := func(context.Context) error { return nil }
	if err := sched.Do(context.Background(), ok); err != nil {
		t.Fatalf("first Do: %v", err)
	}

	clock.Advance(4 * time.Second)
	if err := sched.Do(context.Background(), ok); err != nil {
		t.Fatalf("second Do: %v", err)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("expected no sleeps, got %v", clock.sleeps)
	}
}

func TestDoRetriesThrottledWithEscalatingDelays(t *testing.T) {
	clock := newFakeClock()
	sched := newScheduler(clock, 5)

	calls := 0
	err := sched.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("status 429: %w", scheduler.ErrThrottled)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}

	want := []time.Duration{6 * time.Second, 15 * time.Second}
	if len(clock.sleeps) != len(want) {
		t.Fatalf("expected sleeps %v, got %v", want, clock.sleeps)
	}
	for i := range want {
		if clock.sleeps[i] != want[i] {
			t.Fatalf("sleep %d: expected %v, got %v", i, want[i], clock.sleeps[i])
		}
	}
}

func TestDoExhaustsRetriesAndReportsRateLimit(t *testing.T) {
	clock := newFakeClock()
	sched := newScheduler(clock, 5)

	calls := 0
	err := sched.Do(context.Background(), func(context.Context) error {
		calls++
		return fmt.Errorf("status 429: %w", scheduler.ErrThrottled)
	})
	if !errors.Is(err, scheduler.ErrRateLimitExceeded) {
		t.Fatalf("expected ErrRateLimitExceeded, got %v", err)
	}
	if calls != 6 {
		t.Fatalf("expected initial call plus 5 retries, got %d calls", calls)
	}
	if len(clock.sleeps) != 5 {
		t.Fatalf("expected 5 retry sleeps, got %d", len(clock.sleeps))
	}
}

func TestDoTagsNonThrottledFailuresAsTransport(t *testing.T) {
	clock := newFakeClock()
	sched := newScheduler(clock, 1)

	boom := errors.New("connection refused")
	err := sched.Do(context.Background(), func(context.Context) error {
		return boom
	})
	if !errors.Is(err, scheduler.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if errors.Is(err, scheduler.ErrRateLimitExceeded) {
		t.Fatalf("transport failure must not report rate limiting: %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestResetClearsFloorOnly(t *testing.T) {
	clock := newFakeClock()
	sched := newScheduler(clock, 5)

	ok := func(context.Context) error { return nil }
	if err := sched.Do(context.Background(), ok); err != nil {
		t.Fatalf("first Do: %v", err)
	}

	sched.Reset()
	if err := sched.Do(context.Background(), ok); err != nil {
		t.Fatalf("Do after reset: %v", err)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("expected no sleeps after reset, got %v", clock.sleeps)
	}
}

func TestDoHonorsContextDuringRetryWait(t *testing.T) {
	clock := newFakeClock()
	ctx, cancel := context.WithCancel(context.Background())

	sched := scheduler.New(
		3500*time.Millisecond,
		6*time.Second,
		15*time.Second,
		5,
		scheduler.WithClock(clock.Now),
		scheduler.WithSleeper(func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		}),
	)

	err := sched.Do(ctx, func(context.Context) error {
		return fmt.Errorf("status 429: %w", scheduler.ErrThrottled)
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
