// Package retry provides exponential backoff for transient failures.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	focuserrors "github.com/focusd/focusd/internal/errors"
)

// Config holds backoff parameters.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
}

// DefaultConfig returns sensible retry defaults for model-service calls.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Jitter:      true,
	}
}

// Do executes fn with exponential backoff, stopping early if fn's error is
// not retryable per internal/errors.IsRetryable.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !focuserrors.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := Backoff(cfg.BaseDelay, cfg.MaxDelay, attempt, cfg.Jitter)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

// Backoff computes the exponential delay for attempt (0-indexed), capped at
// maxDelay, optionally jittered to [0.5, 1.0) of the computed value.
func Backoff(base, maxDelay time.Duration, attempt int, jitter bool) time.Duration {
	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if delay > maxDelay {
		delay = maxDelay
	}
	if jitter {
		delay = time.Duration(float64(delay) * (0.5 + rand.Float64()*0.5))
	}
	return delay
}

// JobBackoff implements the job queue's lease-retry backoff: min(2^attempts
// * 30s, 1h), matching the durable queue's documented ceiling.
func JobBackoff(attempts int) time.Duration {
	seconds := math.Min(math.Pow(2, float64(attempts))*30, 3600)
	return time.Duration(seconds) * time.Second
}
