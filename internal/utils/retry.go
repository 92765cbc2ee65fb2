// internal/utils/retry.go
package utils

import (
	"context"
	"time"
)

// RetryPolicy describes how many times an external call is attempted and
// how long to wait between attempts. Backoff receives the zero-based
// attempt number and returns the delay before the next attempt.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	Backoff  func(attempt int, base time.Duration) time.Duration
}

// FixedDelay waits the base delay between every attempt.
func FixedDelay(_ int, base time.Duration) time.Duration {
	return base
}

// DefaultRetryPolicy matches the historical behavior of the transaction
// preparation path: three attempts, one second apart.
var DefaultRetryPolicy = RetryPolicy{
	Attempts: 3,
	Delay:    time.Second,
	Backoff:  FixedDelay,
}

// PinRetryPolicy is used per pinning provider before the chain moves on
// to the next one.
var PinRetryPolicy = RetryPolicy{
	Attempts: 2,
	Delay:    time.Second,
	Backoff:  FixedDelay,
}

// Retry runs fn until it succeeds or the policy's attempts are exhausted,
// returning the last error. Respects context cancellation between attempts.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := policy.Backoff
	if backoff == nil {
		backoff = FixedDelay
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}

		if attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(attempt, policy.Delay)):
		}
	}

	return lastErr
}
