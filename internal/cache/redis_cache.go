package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"articleregistry/backend/internal/domain"
)

type RedisStatisticsCache struct {
	client *redis.Client
	prefix string
}

func NewRedisStatisticsCache(addr string, password string, db int) *RedisStatisticsCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisStatisticsCache{client: client, prefix: "articleregistry:cache:"}
}

func (c *RedisStatisticsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisStatisticsCache) Close() error {
	return c.client.Close()
}

func (c *RedisStatisticsCache) Get(ctx context.Context, key string) (*domain.SalesStatistics, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var stats domain.SalesStatistics
	if err := json.Unmarshal([]byte(val), &stats); err != nil {
		return nil, false, err
	}
	return &stats, true, nil
}

func (c *RedisStatisticsCache) Set(ctx context.Context, key string, value *domain.SalesStatistics, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, payload, ttl).Err()
}

func (c *RedisStatisticsCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}
