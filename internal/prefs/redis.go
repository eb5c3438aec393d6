package prefs

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"daily-app/internal/domain"
)

// RedisStore keeps preferences in Redis under prefs:<origin>:<key>, for
// deployments where several clients share one preference set.
type RedisStore struct {
	client *redis.Client
	origin string
}

// NewRedisStore returns a store for origin.
func NewRedisStore(client *redis.Client, origin string) *RedisStore {
	return &RedisStore{client: client, origin: origin}
}

func (r *RedisStore) key(name string) string {
	return "prefs:" + r.origin + ":" + name
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	if err := domain.ValidatePreference(key); err != nil {
		return "", err
	}
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := domain.ValidatePreference(key); err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(key), value, 0).Err()
}

func (r *RedisStore) Remove(ctx context.Context, key string) error {
	if err := domain.ValidatePreference(key); err != nil {
		return err
	}
	return r.client.Del(ctx, r.key(key)).Err()
}
