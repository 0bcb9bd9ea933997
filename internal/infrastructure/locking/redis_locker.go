package locking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/retail-platform/stock-service/internal/domain"
	"github.com/retail-platform/stock-service/pkg/logging"
	"github.com/retail-platform/stock-service/pkg/resilience"
)

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
end
return 0
`)

var errLockBusy = errors.New("lock busy")

// RedisLockerConfig configures RedisLocker
type RedisLockerConfig struct {
	KeyPrefix string
	// TTL bounds how long a crashed holder can block a product
	TTL   time.Duration
	Retry *resilience.RetryConfig
}

// DefaultRedisLockerConfig returns default configuration
func DefaultRedisLockerConfig() *RedisLockerConfig {
	return &RedisLockerConfig{
		KeyPrefix: "stock:lock:",
		TTL:       30 * time.Second,
		Retry: &resilience.RetryConfig{
			MaxAttempts:   50,
			InitialDelay:  10 * time.Millisecond,
			MaxDelay:      200 * time.Millisecond,
			BackoffFactor: 1.5,
			Retryable:     func(err error) bool { return errors.Is(err, errLockBusy) },
		},
	}
}

// RedisLocker locks a product across replicas with SET NX PX and releases
// with a compare-and-delete script.
type RedisLocker struct {
	client redis.UniversalClient
	config *RedisLockerConfig
	logger *logging.Logger
}

// NewRedisLocker creates a new RedisLocker
func NewRedisLocker(client redis.UniversalClient, config *RedisLockerConfig, logger *logging.Logger) *RedisLocker {
	if config == nil {
		config = DefaultRedisLockerConfig()
	}
	return &RedisLocker{client: client, config: config, logger: logger.WithComponent("redis-locker")}
}

func (l *RedisLocker) key(productID int64) string {
	return fmt.Sprintf("%s{%d}", l.config.KeyPrefix, productID)
}

// Lock retries with backoff and fails with domain.ErrLockNotAcquired once attempts run out
func (l *RedisLocker) Lock(ctx context.Context, productID int64) (func(), error) {
	key := l.key(productID)
	token := uuid.New().String()

	err := resilience.Retry(ctx, l.config.Retry, func() error {
		ok, err := l.client.SetNX(ctx, key, token, l.config.TTL).Result()
		if err != nil {
			return fmt.Errorf("redis SETNX %s: %w", key, err)
		}
		if !ok {
			return errLockBusy
		}
		return nil
	})
	if err != nil {
		var exhausted *resilience.ErrMaxRetries
		if errors.As(err, &exhausted) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: product %d: %v", domain.ErrLockNotAcquired, productID, err)
		}
		return nil, err
	}

	return func() {
		// release must happen even when the caller's ctx is already done
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.WithError(err).Warn("Failed to release product lock", "productId", productID)
		}
	}, nil
}
