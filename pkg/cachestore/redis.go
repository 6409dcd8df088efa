package cachestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "warden/cache/"

// RedisStore backs the cache with redis, for multi-instance deployments
// where detection windows must be shared.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to redisURL (redis://...) and pings it.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cachestore: parsing redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cachestore: pinging redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func redisKey(kind, key string) string {
	return redisPrefix + kind + "/" + key
}

func (s *RedisStore) Get(ctx context.Context, kind, key string, out any) (bool, error) {
	raw, err := s.client.Get(ctx, redisKey(kind, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("cachestore: reading %s/%s: %w", kind, key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("cachestore: decoding %s/%s: %w", kind, key, err)
	}
	return true, nil
}

func (s *RedisStore) Set(ctx context.Context, kind, key string, val any, ttl time.Duration) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("cachestore: encoding %s/%s: %w", kind, key, err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, redisKey(kind, key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("cachestore: writing %s/%s: %w", kind, key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, kind, key string) error {
	if err := s.client.Del(ctx, redisKey(kind, key)).Err(); err != nil {
		return fmt.Errorf("cachestore: deleting %s/%s: %w", kind, key, err)
	}
	return nil
}

// Close closes the underlying redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
