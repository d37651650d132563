package service

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ChartCache stores rendered chart bytes.
type ChartCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// RedisChartCache keeps rendered charts in Redis strings.
type RedisChartCache struct {
	rdb *redis.Client
}

// NewRedisChartCache returns a cache backed by rdb, or nil when rdb is nil.
func NewRedisChartCache(rdb *redis.Client) ChartCache {
	if rdb == nil {
		return nil
	}
	return &RedisChartCache{rdb: rdb}
}

func (c *RedisChartCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *RedisChartCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (noopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
