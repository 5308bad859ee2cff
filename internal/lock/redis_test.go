package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// newTestRedisClient connects against REDIS_URL (e.g. "localhost:6379")
// when set, matching the teacher's pattern of skipping integration
// tests rather than faking the dependency. No in-process Redis fake is
// vendored here, so these tests are opt-in in environments that run a
// real instance.
func newTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_URL")
	if addr == "" {
		t.Skip("REDIS_URL not set, skipping RedisLock integration test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("could not reach redis at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisLock_AcquireRelease(t *testing.T) {
	client := newTestRedisClient(t)
	cfg := DefaultRedisLockConfig()
	cfg.TTL = 2 * time.Second

	l := NewRedisLock(client, cfg, nil)
	require.NoError(t, l.Acquire(context.Background()))
	require.NoError(t, l.Release(context.Background()))
}

func TestRedisLock_SecondAcquirerIsBlockedUntilReleased(t *testing.T) {
	client := newTestRedisClient(t)
	cfg := DefaultRedisLockConfig()
	cfg.TTL = 5 * time.Second
	cfg.AcquireTimeout = 500 * time.Millisecond
	cfg.RetryInterval = 50 * time.Millisecond

	first := NewRedisLock(client, cfg, nil)
	require.NoError(t, first.Acquire(context.Background()))

	second := NewRedisLock(client, cfg, nil)
	err := second.Acquire(context.Background())
	require.Error(t, err, "a held lock must block a second acquirer until released")

	require.NoError(t, first.Release(context.Background()))
	require.NoError(t, second.Acquire(context.Background()))
	require.NoError(t, second.Release(context.Background()))
}

func TestRedisLock_ReleaseIsNoopWhenNotAcquired(t *testing.T) {
	client := newTestRedisClient(t)
	l := NewRedisLock(client, DefaultRedisLockConfig(), nil)
	require.NoError(t, l.Release(context.Background()))
}
