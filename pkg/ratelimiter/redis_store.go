package ratelimiter

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on top of Redis, sharing counters across
// application instances.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed store. Keys are namespaced with the
// given prefix to avoid collisions with other users of the same database.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Incr implements Store. INCR and the first-use EXPIRE run in a pipeline;
// EXPIRE NX keeps the window anchored at the first request.
func (rs *RedisStore) Incr(ctx context.Context, key string, d time.Duration) (int64, time.Time, error) {
	fullKey := rs.prefix + ":" + key

	pipe := rs.client.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, d)
	ttl := pipe.TTL(ctx, fullKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, errors.Join(ErrStoreUnavailable, err)
	}

	resetAt := time.Now().Add(ttl.Val())
	return incr.Val(), resetAt, nil
}
