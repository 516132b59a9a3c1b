package ratelimit_test

// Coverage Notes:
// - All timing runs on a simulated clock: the sleep hook advances the clock,
//   so tests are deterministic and complete instantly.
// - Covers both budgets (calls, tokens), sliding expiry, exact wait length,
//   the too-large guard, cancellation, and config validation.

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alnah/go-polish/internal/ratelimit"
)

// ---------------------------------------------------------------------------
// simulatedClock - deterministic time source for limiter tests
// ---------------------------------------------------------------------------

type simulatedClock struct {
	now time.Time
}

func newSimulatedClock() *simulatedClock {
	return &simulatedClock{now: time.Date(2026, 1, 26, 14, 30, 0, 0, time.UTC)}
}

func (c *simulatedClock) Now() time.Time {
	return c.now
}

func (c *simulatedClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// simulatedLimiter builds a limiter whose waits advance the clock instead of
// sleeping. Returns the limiter, its clock, and the recorded wait durations.
func simulatedLimiter(t *testing.T, cfg ratelimit.Config) (*ratelimit.Limiter, *simulatedClock, *[]time.Duration) {
	t.Helper()

	clock := newSimulatedClock()
	var slept []time.Duration

	l, err := ratelimit.NewLimiter(cfg,
		ratelimit.WithNow(clock.Now),
		ratelimit.WithSleep(func(ctx context.Context, d time.Duration) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			slept = append(slept, d)
			clock.Advance(d)
			return nil
		}),
	)
	if err != nil {
		t.Fatalf("NewLimiter() unexpected error: %v", err)
	}
	return l, clock, &slept
}

// ---------------------------------------------------------------------------
// TestNewLimiter - config validation
// ---------------------------------------------------------------------------

func TestNewLimiter(t *testing.T) {
	t.Parallel()

	t.Run("valid config", func(t *testing.T) {
		t.Parallel()

		l, err := ratelimit.NewLimiter(ratelimit.DefaultConfig())
		if err != nil {
			t.Fatalf("NewLimiter() unexpected error: %v", err)
		}
		if l == nil {
			t.Fatal("NewLimiter() returned nil limiter")
		}
	})

	t.Run("invalid configs rejected", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			cfg  ratelimit.Config
		}{
			{"zero max calls", ratelimit.Config{MaxCalls: 0, MaxTokens: 100, Window: time.Minute}},
			{"negative max calls", ratelimit.Config{MaxCalls: -1, MaxTokens: 100, Window: time.Minute}},
			{"zero max tokens", ratelimit.Config{MaxCalls: 10, MaxTokens: 0, Window: time.Minute}},
			{"zero window", ratelimit.Config{MaxCalls: 10, MaxTokens: 100, Window: 0}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				if _, err := ratelimit.NewLimiter(tt.cfg); !errors.Is(err, ratelimit.ErrInvalidConfig) {
					t.Errorf("error = %v, want ErrInvalidConfig", err)
				}
			})
		}
	})
}

// ---------------------------------------------------------------------------
// TestAcquire - admission under both budgets
// ---------------------------------------------------------------------------

func TestAcquireUnderBudgetDoesNotWait(t *testing.T) {
	t.Parallel()

	l, _, slept := simulatedLimiter(t, ratelimit.Config{MaxCalls: 5, MaxTokens: 1000, Window: time.Minute})

	for i := 0; i < 5; i++ {
		if err := l.Acquire(context.Background(), 100); err != nil {
			t.Fatalf("Acquire(%d) unexpected error: %v", i, err)
		}
	}

	if len(*slept) != 0 {
		t.Errorf("slept %v, want no waits under budget", *slept)
	}
}

func TestAcquireBlocksOnCallBudget(t *testing.T) {
	t.Parallel()

	l, clock, slept := simulatedLimiter(t, ratelimit.Config{MaxCalls: 2, MaxTokens: 100000, Window: time.Minute})

	if err := l.Acquire(context.Background(), 10); err != nil {
		t.Fatalf("Acquire() unexpected error: %v", err)
	}
	clock.Advance(10 * time.Second)
	if err := l.Acquire(context.Background(), 10); err != nil {
		t.Fatalf("Acquire() unexpected error: %v", err)
	}

	// Both call slots are taken. The third call must wait exactly until
	// the first entry leaves the window: 60s - 10s elapsed = 50s.
	if err := l.Acquire(context.Background(), 10); err != nil {
		t.Fatalf("Acquire() unexpected error: %v", err)
	}

	if len(*slept) != 1 || (*slept)[0] != 50*time.Second {
		t.Errorf("slept %v, want exactly [50s]", *slept)
	}
}

func TestAcquireBlocksOnTokenBudget(t *testing.T) {
	t.Parallel()

	l, _, slept := simulatedLimiter(t, ratelimit.Config{MaxCalls: 100, MaxTokens: 100, Window: time.Minute})

	if err := l.Acquire(context.Background(), 60); err != nil {
		t.Fatalf("Acquire() unexpected error: %v", err)
	}

	// 60 + 60 > 100: the second call waits the full window for the first
	// entry's tokens to be released.
	if err := l.Acquire(context.Background(), 60); err != nil {
		t.Fatalf("Acquire() unexpected error: %v", err)
	}

	if len(*slept) != 1 || (*slept)[0] != time.Minute {
		t.Errorf("slept %v, want exactly [1m]", *slept)
	}
}

func TestAcquireSlidingExpiry(t *testing.T) {
	t.Parallel()

	// Entries expire individually as the window slides, not all at once
	// at a fixed boundary.
	l, clock, slept := simulatedLimiter(t, ratelimit.Config{MaxCalls: 2, MaxTokens: 100000, Window: time.Minute})

	if err := l.Acquire(context.Background(), 10); err != nil { // t=0
		t.Fatalf("Acquire() unexpected error: %v", err)
	}
	clock.Advance(30 * time.Second)
	if err := l.Acquire(context.Background(), 10); err != nil { // t=30s
		t.Fatalf("Acquire() unexpected error: %v", err)
	}
	clock.Advance(31 * time.Second)

	// t=61s: the t=0 entry has expired, one slot is free, no wait.
	if err := l.Acquire(context.Background(), 10); err != nil {
		t.Fatalf("Acquire() unexpected error: %v", err)
	}
	if len(*slept) != 0 {
		t.Errorf("slept %v, want no waits after oldest entry expired", *slept)
	}

	// t=61s: both slots taken again (t=30s and t=61s entries). The next
	// call waits until the t=30s entry expires at t=90s: 29s.
	if err := l.Acquire(context.Background(), 10); err != nil {
		t.Fatalf("Acquire() unexpected error: %v", err)
	}
	if len(*slept) != 1 || (*slept)[0] != 29*time.Second {
		t.Errorf("slept %v, want exactly [29s]", *slept)
	}
}

func TestAcquireMultipleWaits(t *testing.T) {
	t.Parallel()

	// Releasing the oldest entry may not be enough; the limiter keeps
	// waiting one expiry at a time until the request fits.
	l, clock, slept := simulatedLimiter(t, ratelimit.Config{MaxCalls: 100, MaxTokens: 100, Window: time.Minute})

	if err := l.Acquire(context.Background(), 40); err != nil { // t=0
		t.Fatalf("Acquire() unexpected error: %v", err)
	}
	clock.Advance(10 * time.Second)
	if err := l.Acquire(context.Background(), 40); err != nil { // t=10s
		t.Fatalf("Acquire() unexpected error: %v", err)
	}

	// 90 tokens needed, 80 in flight: waits for t=0 (50s), still 40+90 > 100,
	// then waits for t=10s (10s more), then admits at t=70s.
	if err := l.Acquire(context.Background(), 90); err != nil {
		t.Fatalf("Acquire() unexpected error: %v", err)
	}

	want := []time.Duration{50 * time.Second, 10 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("slept %v, want %v", *slept, want)
	}
	for i := range want {
		if (*slept)[i] != want[i] {
			t.Errorf("slept[%d] = %v, want %v", i, (*slept)[i], want[i])
		}
	}
}

func TestAcquireExactWindowBoundary(t *testing.T) {
	t.Parallel()

	// An entry is live during [T, T+Window): exactly Window later it is gone.
	l, clock, slept := simulatedLimiter(t, ratelimit.Config{MaxCalls: 1, MaxTokens: 100, Window: time.Minute})

	if err := l.Acquire(context.Background(), 10); err != nil {
		t.Fatalf("Acquire() unexpected error: %v", err)
	}
	clock.Advance(time.Minute)

	if err := l.Acquire(context.Background(), 10); err != nil {
		t.Fatalf("Acquire() unexpected error: %v", err)
	}
	if len(*slept) != 0 {
		t.Errorf("slept %v, want no wait at exact window boundary", *slept)
	}
}

// ---------------------------------------------------------------------------
// TestAcquireRequestTooLarge - unsatisfiable requests fail fast
// ---------------------------------------------------------------------------

func TestAcquireRequestTooLarge(t *testing.T) {
	t.Parallel()

	l, _, slept := simulatedLimiter(t, ratelimit.Config{MaxCalls: 10, MaxTokens: 100, Window: time.Minute})

	err := l.Acquire(context.Background(), 101)
	if !errors.Is(err, ratelimit.ErrRequestTooLarge) {
		t.Errorf("error = %v, want ErrRequestTooLarge", err)
	}
	if len(*slept) != 0 {
		t.Errorf("slept %v, want no wait for an unsatisfiable request", *slept)
	}

	// The limiter state is untouched: a fitting request still admits freely.
	if err := l.Acquire(context.Background(), 100); err != nil {
		t.Errorf("Acquire() after rejection unexpected error: %v", err)
	}
}

func TestAcquireNegativeTokensCountAsZero(t *testing.T) {
	t.Parallel()

	l, _, slept := simulatedLimiter(t, ratelimit.Config{MaxCalls: 10, MaxTokens: 10, Window: time.Minute})

	if err := l.Acquire(context.Background(), -5); err != nil {
		t.Fatalf("Acquire(-5) unexpected error: %v", err)
	}
	if err := l.Acquire(context.Background(), 10); err != nil {
		t.Fatalf("Acquire() unexpected error: %v", err)
	}
	if len(*slept) != 0 {
		t.Errorf("slept %v, want no waits (negative weight is zero)", *slept)
	}
}

// ---------------------------------------------------------------------------
// TestAcquireCancellation - blocked waits honor ctx
// ---------------------------------------------------------------------------

func TestAcquireCancelledWhileBlocked(t *testing.T) {
	t.Parallel()

	l, _, _ := simulatedLimiter(t, ratelimit.Config{MaxCalls: 1, MaxTokens: 100, Window: time.Minute})

	if err := l.Acquire(context.Background(), 10); err != nil {
		t.Fatalf("Acquire() unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.Acquire(ctx, 10); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

// ---------------------------------------------------------------------------
// TestWait - non-admitting preview of the blocking time
// ---------------------------------------------------------------------------

func TestWait(t *testing.T) {
	t.Parallel()

	t.Run("zero when free", func(t *testing.T) {
		t.Parallel()

		l, _, _ := simulatedLimiter(t, ratelimit.Config{MaxCalls: 2, MaxTokens: 100, Window: time.Minute})
		if got := l.Wait(50); got != 0 {
			t.Errorf("Wait() = %v, want 0", got)
		}
	})

	t.Run("reports time until oldest blocking entry expires", func(t *testing.T) {
		t.Parallel()

		l, clock, _ := simulatedLimiter(t, ratelimit.Config{MaxCalls: 1, MaxTokens: 1000, Window: time.Minute})
		if err := l.Acquire(context.Background(), 10); err != nil {
			t.Fatalf("Acquire() unexpected error: %v", err)
		}
		clock.Advance(20 * time.Second)

		if got := l.Wait(10); got != 40*time.Second {
			t.Errorf("Wait() = %v, want 40s", got)
		}
	})

	t.Run("does not admit", func(t *testing.T) {
		t.Parallel()

		l, _, _ := simulatedLimiter(t, ratelimit.Config{MaxCalls: 1, MaxTokens: 1000, Window: time.Minute})
		if err := l.Acquire(context.Background(), 10); err != nil {
			t.Fatalf("Acquire() unexpected error: %v", err)
		}

		first := l.Wait(10)
		second := l.Wait(10)
		if first != second {
			t.Errorf("repeated Wait() changed state: %v then %v", first, second)
		}
	})

	t.Run("accumulates expiries for heavy requests", func(t *testing.T) {
		t.Parallel()

		l, clock, _ := simulatedLimiter(t, ratelimit.Config{MaxCalls: 100, MaxTokens: 100, Window: time.Minute})
		if err := l.Acquire(context.Background(), 40); err != nil { // t=0
			t.Fatalf("Acquire() unexpected error: %v", err)
		}
		clock.Advance(10 * time.Second)
		if err := l.Acquire(context.Background(), 40); err != nil { // t=10s
			t.Fatalf("Acquire() unexpected error: %v", err)
		}

		// 90 tokens need both entries released; the second expires at t=70s.
		if got := l.Wait(90); got != time.Minute {
			t.Errorf("Wait(90) = %v, want 1m", got)
		}
	})
}
