package resilience

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig configures exponential backoff retries
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// Retryable decides whether err is worth another attempt; nil retries everything
	Retryable func(error) bool
}

// DefaultRetryConfig returns sensible defaults
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   DefaultRetryMaxAttempts,
		InitialDelay:  DefaultRetryInitialDelay,
		MaxDelay:      DefaultRetryMaxDelay,
		BackoffFactor: DefaultRetryBackoffFactor,
	}
}

// ErrMaxRetries wraps the last error once attempts are exhausted
type ErrMaxRetries struct {
	Attempts int
	Last     error
}

func (e *ErrMaxRetries) Error() string {
	return fmt.Sprintf("max retries (%d) exceeded: %v", e.Attempts, e.Last)
}

func (e *ErrMaxRetries) Unwrap() error { return e.Last }

// RetryWithResult calls fn until it succeeds, returns a non-retryable error,
// runs out of attempts or ctx is done.
func RetryWithResult[T any](ctx context.Context, config *RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	delay := config.InitialDelay

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if config.Retryable != nil && !config.Retryable(err) {
			return zero, err
		}

		if attempt < config.MaxAttempts-1 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}

			delay = time.Duration(float64(delay) * config.BackoffFactor)
			if delay > config.MaxDelay {
				delay = config.MaxDelay
			}
		}
	}

	return zero, &ErrMaxRetries{Attempts: config.MaxAttempts, Last: lastErr}
}

// Retry is RetryWithResult for functions without a result
func Retry(ctx context.Context, config *RetryConfig, fn func() error) error {
	_, err := RetryWithResult(ctx, config, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
