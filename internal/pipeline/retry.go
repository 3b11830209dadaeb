package pipeline

import (
	"context"
	"math"
	"time"
)

// RetryConfig bounds retries against flaky external collaborators.
// Waits grow as base^attempt. Pure components (validator, aggregator)
// are never retried.
type RetryConfig struct {
	Attempts int           `mapstructure:"attempts" yaml:"attempts" json:"attempts"`
	Base     time.Duration `mapstructure:"base" yaml:"base" json:"base"`
}

// DefaultRetryConfig returns the standard small retry budget.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{Attempts: 3, Base: 2 * time.Second}
}

// backoff returns the wait before the given retry attempt (1-based).
func (c RetryConfig) backoff(attempt int) time.Duration {
	baseSec := c.Base.Seconds()
	if baseSec <= 0 {
		return 0
	}
	return time.Duration(math.Pow(baseSec, float64(attempt)) * float64(time.Second))
}

// withRetry runs fn up to the configured attempt budget, sleeping
// base^attempt between failures. Context cancellation aborts
// immediately with the context error.
func withRetry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err = fn(); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.backoff(attempt)):
		}
	}
	return err
}
