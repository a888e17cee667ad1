package redisstore

import (
	"context"
	"errors"

	redis "github.com/redis/go-redis/v9"
)

// Store keeps each key as a plain redis string under an optional prefix.
type Store struct {
	client *redis.Client
	prefix string
}

func New(addr string, password string, db int, prefix string) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &Store{client: client, prefix: prefix}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value string) error {
	return s.client.Set(ctx, s.prefix+key, value, 0).Err()
}
