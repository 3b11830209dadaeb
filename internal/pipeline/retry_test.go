package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	cfg := RetryConfig{Attempts: 3, Base: 0}
	calls := 0
	err := withRetry(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryExhaustsBudget(t *testing.T) {
	cfg := RetryConfig{Attempts: 3, Base: 0}
	final := errors.New("still down")
	calls := 0
	err := withRetry(context.Background(), cfg, func() error {
		calls++
		return final
	})
	require.ErrorIs(t, err, final)
	assert.Equal(t, 3, calls)
}

func TestWithRetryZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), RetryConfig{}, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{Attempts: 5, Base: time.Hour}
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := withRetry(ctx, cfg, func() error {
		calls++
		return errors.New("flaky")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "must not retry after cancellation")
}

func TestBackoffGrowsExponentially(t *testing.T) {
	cfg := RetryConfig{Attempts: 3, Base: 2 * time.Second}
	assert.Equal(t, 2*time.Second, cfg.backoff(1))
	assert.Equal(t, 4*time.Second, cfg.backoff(2))
	assert.Equal(t, 8*time.Second, cfg.backoff(3))
}

func TestBackoffZeroBase(t *testing.T) {
	cfg := RetryConfig{Attempts: 3}
	assert.Equal(t, time.Duration(0), cfg.backoff(1))
}
