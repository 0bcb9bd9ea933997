package locking

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retail-platform/stock-service/internal/domain"
	"github.com/retail-platform/stock-service/pkg/logging"
	"github.com/retail-platform/stock-service/pkg/resilience"
	testhelpers "github.com/retail-platform/stock-service/pkg/testing"
)

func TestRedisLocker_Integration(t *testing.T) {
	testhelpers.SkipIfShort(t)
	ctx := testhelpers.CreateTestContext(t, 2*time.Minute)

	container, err := testhelpers.NewRedisContainer(ctx)
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	defer container.Close(ctx)

	client := redis.NewClient(&redis.Options{Addr: container.Addr})
	defer client.Close()

	config := DefaultRedisLockerConfig()
	config.Retry = &resilience.RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  5 * time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
		BackoffFactor: 2,
		Retryable:     config.Retry.Retryable,
	}
	locker := NewRedisLocker(client, config, logging.NewNop())

	unlock, err := locker.Lock(ctx, 11)
	require.NoError(t, err)

	_, err = locker.Lock(ctx, 11)
	assert.ErrorIs(t, err, domain.ErrLockNotAcquired)

	other, err := locker.Lock(ctx, 12)
	require.NoError(t, err)
	other()

	unlock()
	unlock, err = locker.Lock(ctx, 11)
	require.NoError(t, err)
	unlock()

	exists, err := client.Exists(ctx, locker.key(11)).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestRedisLocker_ReleaseKeepsForeignToken(t *testing.T) {
	testhelpers.SkipIfShort(t)
	ctx := testhelpers.CreateTestContext(t, 2*time.Minute)

	container, err := testhelpers.NewRedisContainer(ctx)
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	defer container.Close(ctx)

	client := redis.NewClient(&redis.Options{Addr: container.Addr})
	defer client.Close()
	locker := NewRedisLocker(client, nil, logging.NewNop())

	unlock, err := locker.Lock(ctx, 3)
	require.NoError(t, err)

	// simulate TTL expiry and another replica taking over
	require.NoError(t, client.Set(ctx, locker.key(3), "someone-else", time.Minute).Err())
	unlock()

	value, err := client.Get(ctx, locker.key(3)).Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", value)
}
