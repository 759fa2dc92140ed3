package daraja

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenCache shares the gateway token across processes.
type RedisTokenCache struct{ rdb *redis.Client }

func NewRedisTokenCache(rdb *redis.Client) *RedisTokenCache { return &RedisTokenCache{rdb: rdb} }

func (c *RedisTokenCache) Get(ctx context.Context, key string) (string, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (c *RedisTokenCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *RedisTokenCache) Del(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}
