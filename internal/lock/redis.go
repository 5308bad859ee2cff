package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLockConfig configures a RedisLock's TTL, retry, and timeout
// behavior.
type RedisLockConfig struct {
	TTL            time.Duration
	MaxRetries     int
	RetryInterval  time.Duration
	AcquireTimeout time.Duration
	ReleaseTimeout time.Duration
	ValuePrefix    string
}

// DefaultRedisLockConfig returns the defaults used when a profile omits
// explicit lock tuning.
func DefaultRedisLockConfig() RedisLockConfig {
	return RedisLockConfig{
		TTL:            30 * time.Second,
		MaxRetries:     3,
		RetryInterval:  100 * time.Millisecond,
		AcquireTimeout: 5 * time.Second,
		ReleaseTimeout: 2 * time.Second,
		ValuePrefix:    "journal-sync",
	}
}

// writeLockKey is the single global key guarding the entire Store write
// path (§5): the engine serializes the whole store, not per entity.
const writeLockKey = "journal-sync:write-lock"

// RedisLock is a distributed Locker backed by Redis, used by the
// Standard profile when more than one server process may run behind a
// load balancer. Adapted from a Redis SET-NX-with-TTL acquire and a
// Lua compare-and-delete release, so a lock can only be released by the
// holder that acquired it.
type RedisLock struct {
	client   *redis.Client
	cfg      RedisLockConfig
	logger   *slog.Logger
	value    string
	acquired bool
}

// NewRedisLock creates a RedisLock bound to client. A fresh unique
// value is generated so Release never clears a lock held by another
// process.
func NewRedisLock(client *redis.Client, cfg RedisLockConfig, logger *slog.Logger) *RedisLock {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLock{
		client: client,
		cfg:    cfg,
		logger: logger,
		value:  generateLockValue(cfg.ValuePrefix),
	}
}

func generateLockValue(prefix string) string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(buf))
}

// Acquire attempts SET NX with retry, waiting RetryInterval*(attempt+1)
// between attempts (a linearly growing delay), bounded by
// cfg.AcquireTimeout.
func (l *RedisLock) Acquire(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.AcquireTimeout)
	defer cancel()

	maxRetries := l.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		ok, err := l.client.SetNX(ctx, writeLockKey, l.value, l.cfg.TTL).Result()
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("acquire write lock after %d attempts: %w", maxRetries+1, err)
			}
		} else if ok {
			l.acquired = true
			LockAcquiresTotal.WithLabelValues("success").Inc()
			return nil
		}

		select {
		case <-time.After(l.cfg.RetryInterval * time.Duration(attempt+1)):
		case <-ctx.Done():
			LockAcquiresTotal.WithLabelValues("timeout").Inc()
			return ctx.Err()
		}
	}

	LockAcquiresTotal.WithLabelValues("contended").Inc()
	return fmt.Errorf("write lock held by another process")
}

// releaseScript deletes the key only if it still holds this lock's
// value, so a stale Release (after TTL expiry and re-acquisition by
// another process) never clears someone else's lock.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// Release clears the lock if still held by this value. A no-op (not an
// error) if the lock already expired or was never acquired.
func (l *RedisLock) Release(ctx context.Context) error {
	if !l.acquired {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, l.cfg.ReleaseTimeout)
	defer cancel()

	_, err := l.client.Eval(ctx, releaseScript, []string{writeLockKey}, l.value).Result()
	l.acquired = false
	if err != nil {
		return fmt.Errorf("release write lock: %w", err)
	}
	return nil
}
