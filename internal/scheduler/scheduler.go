package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrThrottled marks a request the remote service refused for pacing
// reasons. Request functions wrap it when they see a throttling status.
var ErrThrottled = errors.New("request throttled")

// ErrRateLimitExceeded reports that a request stayed throttled through
// every retry attempt.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// ErrTransport reports a request that failed for a non-throttling
// reason after all attempts.
var ErrTransport = errors.New("request failed")

// RequestFunc performs one attempt of an outbound request.
type RequestFunc func(ctx context.Context) error

// Scheduler serializes outbound requests behind a pacing floor and a
// bounded retry loop. It is not safe for concurrent use; callers run
// one logical request sequence at a time.
type Scheduler struct {
	floor           time.Duration
	initialRetry    time.Duration
	subsequentRetry time.Duration
	maxRetries      int

	last  time.Time
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option adjusts scheduler construction.
type Option func(*Scheduler)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSleeper replaces the sleep function, for tests.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Scheduler) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// New builds a scheduler with the given pacing parameters.
func New(floor, initialRetry, subsequentRetry time.Duration, maxRetries int, opts ...Option) *Scheduler {
	s := &Scheduler{
		floor:           floor,
		initialRetry:    initialRetry,
		subsequentRetry: subsequentRetry,
		maxRetries:      maxRetries,
		now:             time.Now,
		sleep:           sleepContext,
	}
	if s.maxRetries < 0 {
		s.maxRetries = 0
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Do runs fn, waiting out the pacing floor first and retrying throttled
// attempts with escalating delays. The first retry waits the initial
// delay; every later retry waits the subsequent delay. The pacing clock
// restarts after each retry wait so a following request still honors
// the floor.
func (s *Scheduler) Do(ctx context.Context, fn RequestFunc) error {
	if err := s.waitForSlot(ctx); err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := s.subsequentRetry
			if attempt == 1 {
				delay = s.initialRetry
			}
			if err := s.sleep(ctx, delay); err != nil {
				return err
			}
		}

		s.last = s.now()
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if errors.Is(lastErr, ErrThrottled) {
		return fmt.Errorf("%w: %w", ErrRateLimitExceeded, lastErr)
	}
	return fmt.Errorf("%w: %w", ErrTransport, lastErr)
}

// Reset clears the pacing floor so the next request runs immediately.
// Retry delays are unaffected.
func (s *Scheduler) Reset() {
	s.last = time.Time{}
}

func (s *Scheduler) waitForSlot(ctx context.Context) error {
	if s.last.IsZero() || s.floor <= 0 {
		return nil
	}
	elapsed := s.now().Sub(s.last)
	if elapsed >= s.floor {
		return nil
	}
	return s.sleep(ctx, s.floor-elapsed)
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
