package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "credits:user:7", BalanceKey(7))
	assert.Equal(t, "notifications:7", NotificationChannel(7))
	assert.Equal(t, "user:email:a@b.c", GenerateKey("user", "email", "a@b.c"))
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var n Noop

	var dest map[string]int
	found, err := n.Get(ctx, "k", &dest)
	assert.NoError(t, err)
	assert.False(t, found)

	ok, err := n.AcquireLock(ctx, ReconcileLockKey, "t", time.Second)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestNewCacheService_PanicsOnNilClient(t *testing.T) {
	assert.Panics(t, func() { NewCacheService(nil, time.Minute) })
}

// Runs against a live redis when REDIS_TEST_ADDR is set.
func TestCacheService_Redis(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	svc := NewCacheService(client, time.Minute)
	defer svc.Close()
	require.NoError(t, svc.HealthCheck(ctx))

	key := GenerateKey("test", "balance", time.Now().UnixNano())
	require.NoError(t, svc.Set(ctx, key, map[string]int{"credits": 25}))

	var got map[string]int
	found, err := svc.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 25, got["credits"])
	require.NoError(t, svc.Delete(ctx, key))

	lockKey := key + ":lock"
	ok, err := svc.AcquireLock(ctx, lockKey, "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.AcquireLock(ctx, lockKey, "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.ReleaseLock(ctx, lockKey, "b"))
	ok, err = svc.AcquireLock(ctx, lockKey, "c", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "release with a foreign token must not free the lock")

	require.NoError(t, svc.ReleaseLock(ctx, lockKey, "a"))
	ok, err = svc.AcquireLock(ctx, lockKey, "c", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, svc.ReleaseLock(ctx, lockKey, "c"))
}
