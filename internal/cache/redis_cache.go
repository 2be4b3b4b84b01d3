package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/KokiWakatsuki/lingua-path/back/internal/models"
)

// RedisCache shares cached responses between server instances.
type RedisCache struct {
	client redis.Cmdable
	counters
}

func NewRedisCache(client redis.Cmdable) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*models.AIResponse, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.record(false)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	resp, err := decode(data)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode cached response: %w", err)
	}
	c.record(true)
	return resp, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, resp *models.AIResponse, ttl time.Duration) error {
	data, err := encode(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	logger.Tracef("cached %s for %v", key, ttl)
	return nil
}

func (c *RedisCache) Stats() Stats {
	return c.stats()
}
