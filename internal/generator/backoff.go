package generator

import (
	"context"
	"time"
)

// DefaultBackoffBase is the production backoff step.
const DefaultBackoffBase = 100 * time.Millisecond

// maxBackoffShift caps the exponent so the shift cannot overflow.
const maxBackoffShift = 20

// BackoffFunc returns the delay to wait after the given (1-based) failed attempt.
type BackoffFunc func(attempt int) time.Duration

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// ExponentialBackoff returns a BackoffFunc computing 2^attempt × base.
func ExponentialBackoff(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		if attempt < 0 {
			attempt = 0
		}
		if attempt > maxBackoffShift {
			attempt = maxBackoffShift
		}
		return time.Duration(1<<uint(attempt)) * base
	}
}

// NoBackoff never waits.
func NoBackoff(int) time.Duration { return 0 }

// SleepContext blocks for d, returning early with ctx.Err() if ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
