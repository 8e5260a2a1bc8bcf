package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a Cache backed by go-redis, modeled on the teacher's
// TTL-cache/RedisCacheManager pattern but delegating expiry to Redis
// itself instead of an in-process sweep goroutine.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache wraps an existing client. prefix namespaces every key
// (e.g. "marketfinder:llmeval:") so the cache can share a Redis
// instance with other collaborators.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}
