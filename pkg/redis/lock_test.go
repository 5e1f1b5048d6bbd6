package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis test in short mode")
	}
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR is not set")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewClientFrom(rdb, ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
}

func TestLocker_WithLock(t *testing.T) {
	ctx := context.Background()
	client := testClient(t)
	locker := NewLocker(client, "test:"+uuid.NewString()+":")

	t.Run("should keep the lease past its ttl while fn runs", func(t *testing.T) {
		err := locker.WithLock(ctx, "sync", 200*time.Millisecond, func(ctx context.Context) error {
			time.Sleep(500 * time.Millisecond)
			_, err := locker.Acquire(ctx, "sync", time.Second)
			assert.ErrorIs(t, err, ErrLockNotAcquired)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("should release when fn returns", func(t *testing.T) {
		require.NoError(t, locker.WithLock(ctx, "sync", time.Second, func(context.Context) error { return nil }))

		lock, err := locker.Acquire(ctx, "sync", time.Second)
		require.NoError(t, err)
		require.NoError(t, lock.Release(ctx))
	})

	t.Run("should not extend a lock that is no longer held", func(t *testing.T) {
		lock, err := locker.Acquire(ctx, "gone", time.Second)
		require.NoError(t, err)
		require.NoError(t, lock.Release(ctx))

		assert.ErrorIs(t, lock.Extend(ctx, time.Second), ErrLockNotHeld)
	})
}
