package apierr

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig bounds RetryWithBackoff. MaxAttempts is the total call
// budget, not a retry count: a value of 3 means at most three calls to
// fn before giving up.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// normalize clamps out-of-range fields so every config yields at least
// one attempt and positive delays.
func (c *RetryConfig) normalize() {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = c.BaseDelay
	}
}

// RetryWithBackoff calls fn until it succeeds, shouldRetry rejects its
// error, or the attempt budget is spent. The first call is made
// unconditionally; each later attempt waits for the current backoff
// delay, which doubles per attempt up to MaxDelay. A context cancelled
// during the wait aborts with ctx.Err. Exhaustion wraps the last error,
// so sentinel checks with errors.Is keep working.
func RetryWithBackoff[T any](
	ctx context.Context,
	cfg RetryConfig,
	fn func() (T, error),
	shouldRetry func(error) bool,
) (T, error) {
	cfg.normalize()

	var zero T
	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := waitBackoff(ctx, delay); err != nil {
				return zero, err
			}
			delay = min(delay*2, cfg.MaxDelay)
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !shouldRetry(lastErr) {
			return zero, lastErr
		}
	}

	return zero, fmt.Errorf("attempts exhausted (%d): %w", cfg.MaxAttempts, lastErr)
}

// waitBackoff blocks for d or until ctx is cancelled.
func waitBackoff(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		if !timer.Stop() {
			<-timer.C
		}
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
