package cache

import (
	"context"
	"time"

	"github.com/modelverse/weblab/common/redis"
)

// RedisCache backs the Cache interface with Redis so id-set memoization is
// shared across request-serving processes.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a Redis-backed cache
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get retrieves a value from cache
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return c.client.Get(ctx, key)
}

// Set stores a value in cache with TTL
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.SetWithExpiry(ctx, key, value, ttl)
}

// Delete removes a value from cache
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Delete(ctx, key)
}

// DeletePrefix removes all keys starting with prefix
func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) error {
	return c.client.DeletePrefix(ctx, prefix)
}

// Close is a no-op; the underlying client is owned by the container
func (c *RedisCache) Close() error {
	return nil
}
