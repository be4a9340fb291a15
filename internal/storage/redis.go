package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisKV struct {
	client *redis.Client
	prefix string
}

// NewRedisKV creates a Redis-backed durable store.
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{
		client: client,
		prefix: "storefront:",
	}
}

func (r *RedisKV) key(k string) string {
	return r.prefix + k
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("storage: redis get %q: %w", key, err)
	}
	return val, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("storage: redis set %q: %w", key, err)
	}
	return nil
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("storage: redis del %q: %w", key, err)
	}
	return nil
}
