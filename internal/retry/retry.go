// Package retry wraps calls to flaky external services with exponential
// backoff. The Gemini generation and embedding paths use it; vector-store
// cache writes deliberately do not.
package retry

import (
	"context"
	"log/slog"
	"time"
)

// Config parameterizes a retry loop.
type Config struct {
	// Attempts is the total number of tries, including the first.
	// Values below 1 are treated as 1.
	Attempts int
	// BaseDelay is the wait before the second attempt; it doubles after
	// every failure up to MaxDelay.
	BaseDelay time.Duration
	// MaxDelay caps the backoff.
	MaxDelay time.Duration
	// Retryable classifies errors. A nil predicate retries everything.
	Retryable func(error) bool
}

// Default matches the observed external-call policy: three attempts with a
// short initial backoff.
var Default = Config{
	Attempts:  3,
	BaseDelay: 2 * time.Second,
	MaxDelay:  15 * time.Second,
}

func (c Config) normalized() Config {
	if c.Attempts < 1 {
		c.Attempts = 1
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = Default.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = Default.MaxDelay
	}
	if c.Retryable == nil {
		c.Retryable = func(error) bool { return true }
	}
	return c
}

// Do runs fn until it succeeds, the error is classified non-retryable, the
// attempt budget is spent, or ctx is done. The last error is returned.
func Do(ctx context.Context, cfg Config, op string, fn func() error) error {
	cfg = cfg.normalized()

	delay := cfg.BaseDelay
	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt >= cfg.Attempts || !cfg.Retryable(lastErr) {
			return lastErr
		}

		slog.Debug("retrying after failure",
			"op", op, "attempt", attempt, "of", cfg.Attempts, "delay", delay, "err", lastErr)

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(delay):
		}
		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
}
