package extract

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// RetryPolicy retries an operation with exponential backoff. The zero
// value means a single attempt with no retries.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy matches the documented defaults: three attempts,
// delays of 1s and 2s between them, capped at 30s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
	}
}

// Do runs op until it succeeds, attempts are exhausted, or the context
// is cancelled. The last error is returned on exhaustion.
func (p RetryPolicy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	delay := p.BaseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if attempt == attempts {
			break
		}

		wait := delay
		if wait > 0 {
			// Up to 25% jitter so concurrent chunks don't retry in
			// lockstep against the same endpoint.
			wait += time.Duration(rand.Int63n(int64(wait)/4 + 1))
		}
		slog.Warn("retrying after failure",
			"attempt", attempt,
			"max_attempts", attempts,
			"wait", wait,
			"error", err)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return err
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return err
}
