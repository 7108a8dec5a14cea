package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares keys between application instances.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// NewRedisClient connects to addr and pings it.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (s *RedisStore) Reserve(ctx context.Context, key string) (string, bool, error) {
	ok, err := s.client.SetNX(ctx, key, Pending, s.ttl).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}
	stored, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SetNX and Get.
		return s.Reserve(ctx, key)
	}
	if err != nil {
		return "", false, err
	}
	return stored, false, nil
}

func (s *RedisStore) Complete(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value, s.ttl).Err()
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
