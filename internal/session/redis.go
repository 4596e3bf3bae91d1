package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key prefix for cached token claims.
const tokenKeyPrefix = "session:token:"

// RedisCache is a Redis-backed Cache for distributed deployments where
// multiple instances share the validated-token state.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache constructs a Redis-backed cache. The client lifecycle is
// managed externally.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, token string) (string, bool, error) {
	if token == "" {
		return "", false, nil
	}
	value, err := c.client.Get(ctx, tokenKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, token, principalID string, ttl time.Duration) error {
	if token == "" || ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, tokenKeyPrefix+token, principalID, ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return c.client.Del(ctx, tokenKeyPrefix+token).Err()
}
