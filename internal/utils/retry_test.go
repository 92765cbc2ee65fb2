// internal/utils/retry_test.go
package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	policy := RetryPolicy{Attempts: 3, Delay: time.Millisecond, Backoff: FixedDelay}

	err := Retry(context.Background(), policy, func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	policy := RetryPolicy{Attempts: 3, Delay: time.Millisecond, Backoff: FixedDelay}
	boom := errors.New("boom")

	err := Retry(context.Background(), policy, func() error {
		calls++
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestRetryRecoversMidway(t *testing.T) {
	calls := 0
	policy := RetryPolicy{Attempts: 3, Delay: time.Millisecond, Backoff: FixedDelay}

	err := Retry(context.Background(), policy, func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, DefaultRetryPolicy, func() error {
		calls++
		return errors.New("never retried")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestRetryZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	policy := RetryPolicy{Attempts: 0, Delay: 0}

	err := Retry(context.Background(), policy, func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
