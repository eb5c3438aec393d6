package api

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyHeader names the request header carrying the client's save key.
const IdempotencyHeader = "Idempotency-Key"

const dedupeKeyPrefix = "daily-save"

// RedisDeduper stores processed idempotency keys in Redis so every instance
// sees the same saves.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper using the provided Redis client and TTL.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (r *RedisDeduper) key(userID, key string) string {
	return userID + ":" + dedupeKeyPrefix + ":" + key
}

// Add records the key if it does not already exist. It returns true when the
// key was newly added.
func (r *RedisDeduper) Add(ctx context.Context, userID, key string) (bool, error) {
	return r.client.SetNX(ctx, r.key(userID, key), 1, r.ttl).Result()
}

// Remove deletes a recorded key so a failed save can be retried.
func (r *RedisDeduper) Remove(ctx context.Context, userID, key string) error {
	return r.client.Del(ctx, r.key(userID, key)).Err()
}
