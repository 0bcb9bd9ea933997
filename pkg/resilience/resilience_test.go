package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retail-platform/stock-service/pkg/logging"
)

func fastRetry(attempts int) *RetryConfig {
	return &RetryConfig{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2}
}

func TestRetry_SucceedsEventually(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(5), func() error {
		calls++
		if calls < 3 {
			return errors.New("busy")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_Exhausted(t *testing.T) {
	busy := errors.New("busy")
	err := Retry(context.Background(), fastRetry(2), func() error { return busy })

	var maxErr *ErrMaxRetries
	require.ErrorAs(t, err, &maxErr)
	assert.Equal(t, 2, maxErr.Attempts)
	assert.ErrorIs(t, err, busy)
}

func TestRetry_NonRetryable(t *testing.T) {
	fatal := errors.New("fatal")
	cfg := fastRetry(5)
	cfg.Retryable = func(err error) bool { return !errors.Is(err, fatal) }

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return fatal
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker("catalog", logging.NewNop(), nil)
	failing := func() (interface{}, error) { return nil, errors.New("down") }

	for i := 0; i < int(DefaultFailureThreshold); i++ {
		_, err := cb.Execute(context.Background(), failing)
		require.Error(t, err)
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())
	_, err := cb.Execute(context.Background(), failing)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}
