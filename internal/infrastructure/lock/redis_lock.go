package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/dropship/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the lock key only when the stored token matches,
// so a holder that outlived its TTL cannot release a lock someone else
// has since acquired.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisKeyedLock implements shared.KeyedLock on top of Redis SETNX with TTL.
// Used for the per-(order, supplier) dispatch guard and the per-store sync
// guard, where at-most-one worker across all instances may hold the key.
type RedisKeyedLock struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger
}

// NewRedisKeyedLock creates a lock backed by an existing Redis client
func NewRedisKeyedLock(client *redis.Client, keyPrefix string, logger *zap.Logger) *RedisKeyedLock {
	if keyPrefix == "" {
		keyPrefix = "lock:"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisKeyedLock{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    logger,
	}
}

// TryAcquire attempts to take the lock for key without blocking
func (l *RedisKeyedLock) TryAcquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	fullKey := l.keyPrefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %q: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// Release uses a fresh context: the caller's may already be cancelled
		// and the lock should still be dropped promptly rather than waiting
		// out the TTL.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := releaseScript.Run(releaseCtx, l.client, []string{fullKey}, token).Err(); err != nil {
			l.logger.Warn("failed to release lock, TTL will reclaim it",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
	return release, true, nil
}

var _ shared.KeyedLock = (*RedisKeyedLock)(nil)
