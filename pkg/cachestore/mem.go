package cachestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemStore backs the cache with an in-process go-cache instance. The
// janitor sweeps expired entries every minute; Get also checks expiry,
// so the sweep interval does not affect correctness.
type MemStore struct {
	cache *gocache.Cache
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{cache: gocache.New(gocache.NoExpiration, time.Minute)}
}

func memKey(kind, key string) string {
	return kind + "/" + key
}

func (s *MemStore) Get(ctx context.Context, kind, key string, out any) (bool, error) {
	v, ok := s.cache.Get(memKey(kind, key))
	if !ok {
		return false, nil
	}
	raw, ok := v.([]byte)
	if !ok {
		return false, fmt.Errorf("cachestore: unexpected value type for %s/%s", kind, key)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("cachestore: decoding %s/%s: %w", kind, key, err)
	}
	return true, nil
}

func (s *MemStore) Set(ctx context.Context, kind, key string, val any, ttl time.Duration) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("cachestore: encoding %s/%s: %w", kind, key, err)
	}
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	s.cache.Set(memKey(kind, key), raw, ttl)
	return nil
}

func (s *MemStore) Delete(ctx context.Context, kind, key string) error {
	s.cache.Delete(memKey(kind, key))
	return nil
}
