// Package ratelimit provides a sliding-window rate limiter with dual
// budgets: a maximum number of calls and a maximum number of tokens per
// rolling window. It paces outbound API requests so the local process
// stays under provider limits instead of discovering them as 429s.
//
// The limiter is deliberately not safe for concurrent use: the
// processing pipeline is single-threaded and owns the limiter, which
// keeps accounting deterministic. Wrap it in a mutex before sharing.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Default window parameters, chosen to stay well under the entry-level
// limits of hosted inference APIs.
const (
	DefaultMaxCalls  = 10
	DefaultMaxTokens = 30000
	DefaultWindow    = time.Minute
)

// Sentinel errors for limiter misuse.
var (
	// ErrInvalidConfig indicates non-positive window parameters.
	ErrInvalidConfig = errors.New("invalid rate limit configuration")

	// ErrRequestTooLarge indicates a single request that exceeds the
	// window token budget and therefore could never be admitted.
	ErrRequestTooLarge = errors.New("request exceeds window token budget")
)

// Config holds the sliding-window parameters.
// All fields must be positive.
type Config struct {
	MaxCalls  int           // admitted calls per window
	MaxTokens int           // admitted tokens per window
	Window    time.Duration // rolling window length
}

// DefaultConfig returns the standard window parameters.
func DefaultConfig() Config {
	return Config{
		MaxCalls:  DefaultMaxCalls,
		MaxTokens: DefaultMaxTokens,
		Window:    DefaultWindow,
	}
}

// validate checks that all config fields are positive.
func (c Config) validate() error {
	if c.MaxCalls <= 0 {
		return fmt.Errorf("max calls must be positive, got %d: %w", c.MaxCalls, ErrInvalidConfig)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d: %w", c.MaxTokens, ErrInvalidConfig)
	}
	if c.Window <= 0 {
		return fmt.Errorf("window must be positive, got %v: %w", c.Window, ErrInvalidConfig)
	}
	return nil
}

// entry records one admitted call. An entry occupies the window for
// exactly Config.Window after its timestamp.
type entry struct {
	at     time.Time
	tokens int
}

// Limiter admits calls against the dual sliding-window budget.
// Not safe for concurrent use.
type Limiter struct {
	cfg    Config
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	window []entry // admitted entries, oldest first
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithNow sets the clock used for window accounting (for testing).
func WithNow(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithSleep sets the wait function used while blocked (for testing).
// The function must honor ctx cancellation.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Limiter) {
		if sleep != nil {
			l.sleep = sleep
		}
	}
}

// NewLimiter creates a Limiter with the given window parameters.
// Returns ErrInvalidConfig if any parameter is non-positive.
func NewLimiter(cfg Config, opts ...Option) (*Limiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	l := &Limiter{
		cfg:   cfg,
		now:   time.Now,
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Acquire blocks until the request can be admitted under both budgets,
// then records it. Requests are admitted strictly in call order.
//
// tokens is the estimated token weight of the request; values below
// zero count as zero. A request whose weight exceeds the window token
// budget returns ErrRequestTooLarge immediately: no amount of waiting
// would admit it. Blocking waits end early with ctx.Err() when the
// context is cancelled.
func (l *Limiter) Acquire(ctx context.Context, tokens int) error {
	if tokens < 0 {
		tokens = 0
	}
	if tokens > l.cfg.MaxTokens {
		return fmt.Errorf("request of %d tokens cannot fit window budget of %d: %w",
			tokens, l.cfg.MaxTokens, ErrRequestTooLarge)
	}

	for {
		now := l.now()
		l.evict(now)

		if len(l.window) < l.cfg.MaxCalls && l.usedTokens()+tokens <= l.cfg.MaxTokens {
			l.window = append(l.window, entry{at: now, tokens: tokens})
			return nil
		}

		// Blocked: both budget checks passed the too-large guard, so at
		// least one live entry is in the way. The earliest state change
		// is the oldest entry expiring; wait exactly that long.
		wait := l.window[0].at.Add(l.cfg.Window).Sub(now)
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Wait reports how long Acquire would block right now for a request of
// the given weight, without admitting anything. Zero means immediate
// admission. Used by dry runs to preview pacing.
func (l *Limiter) Wait(tokens int) time.Duration {
	if tokens < 0 {
		tokens = 0
	}
	if tokens > l.cfg.MaxTokens {
		return 0
	}

	now := l.now()
	l.evict(now)

	var wait time.Duration
	calls := len(l.window)
	used := l.usedTokens()
	for _, e := range l.window {
		if calls < l.cfg.MaxCalls && used+tokens <= l.cfg.MaxTokens {
			break
		}
		// Entry e expires at e.at+Window, releasing its call slot and tokens.
		wait = e.at.Add(l.cfg.Window).Sub(now)
		calls--
		used -= e.tokens
	}
	return wait
}

// evict drops entries that have left the rolling window.
// An entry at time T is live during [T, T+Window).
func (l *Limiter) evict(now time.Time) {
	cutoff := now.Add(-l.cfg.Window)
	i := 0
	for i < len(l.window) && !l.window[i].at.After(cutoff) {
		i++
	}
	if i > 0 {
		l.window = append(l.window[:0], l.window[i:]...)
	}
}

// usedTokens sums the token weight of all live entries.
func (l *Limiter) usedTokens() int {
	total := 0
	for _, e := range l.window {
		total += e.tokens
	}
	return total
}

// sleepContext blocks for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
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
