package resilience

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"

	"github.com/retail-platform/stock-service/pkg/logging"
	"github.com/retail-platform/stock-service/pkg/metrics"
)

// ErrCircuitOpen is returned while the breaker rejects calls
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker wraps gobreaker with logging and metrics
type CircuitBreaker struct {
	cb      *gobreaker.CircuitBreaker
	name    string
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewCircuitBreaker creates a breaker with the package defaults.
// Its ReadyToTrip trips on consecutive failures, or on failure ratio once enough requests were seen.
func NewCircuitBreaker(name string, logger *logging.Logger, m *metrics.Metrics) *CircuitBreaker {
	b := &CircuitBreaker{name: name, logger: logger, metrics: m}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: DefaultMaxRequests,
		Interval:    DefaultInterval,
		Timeout:     DefaultTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= DefaultFailureThreshold {
				return true
			}
			if counts.Requests >= DefaultMinRequestsToTrip {
				return float64(counts.TotalFailures)/float64(counts.Requests) >= DefaultFailureRatioThreshold
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			b.metrics.SetCircuitBreakerState(name, int(to))
			if to == gobreaker.StateOpen {
				b.metrics.RecordCircuitBreakerTrip(name)
			}
		},
	}

	b.cb = gobreaker.NewCircuitBreaker(settings)
	return b
}

// Execute runs fn through the breaker. Rejections are returned wrapping ErrCircuitOpen.
func (c *CircuitBreaker) Execute(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := c.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, c.name)
	}
	return result, err
}

// State returns the current state of the circuit breaker
func (c *CircuitBreaker) State() gobreaker.State {
	return c.cb.State()
}

// Name returns the circuit breaker name
func (c *CircuitBreaker) Name() string {
	return c.name
}
