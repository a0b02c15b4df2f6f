package utils

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rotisserie/eris"
)

// RetryConfig holds the parameters for the retry strategy.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// MaxDelay caps a single backoff. Zero means no cap.
	MaxDelay time.Duration
	// Jitter adds a random extra delay of up to Jitter*delay. It only ever
	// lengthens the wait, so consecutive backoffs stay strictly increasing.
	Jitter float64
	// ShouldRetry decides whether an error is worth another attempt. Nil retries everything.
	ShouldRetry func(err error) bool
	// Sleep waits between attempts. Nil uses a context-aware timer.
	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *Logger
}

// Do executes fn with exponential back-off retry logic.
func (r *RetryConfig) Do(ctx context.Context, operationName string, fn func(ctx context.Context) error) error {
	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return eris.Wrapf(lastErr, "%s aborted", operationName)
		}
		if r.ShouldRetry != nil && !r.ShouldRetry(lastErr) {
			return eris.Wrapf(lastErr, "%s failed with a permanent error", operationName)
		}

		if attempt < attempts {
			delay := r.Backoff(attempt)
			if r.Logger != nil {
				r.Logger.Warn("[retry] %s failed (attempt %d/%d): %v, retrying in %v",
					operationName, attempt, attempts, lastErr, delay)
			}
			if err := sleep(ctx, delay); err != nil {
				return eris.Wrapf(lastErr, "%s aborted while waiting", operationName)
			}
		}
	}

	return eris.Wrapf(lastErr, "%s failed after %d attempts", operationName, attempts)
}

// Backoff returns the delay before the attempt following the given (1-based) attempt.
func (r *RetryConfig) Backoff(attempt int) time.Duration {
	delay := float64(r.BaseDelay) * math.Pow(2, float64(attempt-1))
	if r.MaxDelay > 0 && delay > float64(r.MaxDelay) {
		delay = float64(r.MaxDelay)
	}
	if r.Jitter > 0 {
		delay += delay * r.Jitter * rand.Float64()
	}
	return time.Duration(delay)
}

// SleepContext blocks for d or until ctx is done.
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
