package settings

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore is the slice of a key/value cache the read-through provider needs.
type CacheStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Cached values are prefixed so a cached miss can be told apart from an empty value.
const (
	cachedHit  = "1:"
	cachedMiss = "0:"
)

// CachedProvider is a read-through cache in front of another provider. Misses are cached too,
// so unset keys do not hit the backing store on every evaluation.
type CachedProvider struct {
	inner  Provider
	store  CacheStore
	ttl    time.Duration
	prefix string
}

// NewCachedProvider wraps inner. A non-positive ttl disables caching.
func NewCachedProvider(inner Provider, store CacheStore, ttl time.Duration, prefix string) *CachedProvider {
	return &CachedProvider{inner: inner, store: store, ttl: ttl, prefix: prefix}
}

func (c *CachedProvider) Lookup(ctx context.Context, key string) (string, bool, error) {
	if c.store == nil || c.ttl <= 0 {
		return c.inner.Lookup(ctx, key)
	}
	cacheKey := c.prefix + key
	if raw, ok, err := c.store.Get(ctx, cacheKey); err == nil && ok {
		switch {
		case strings.HasPrefix(raw, cachedHit):
			return strings.TrimPrefix(raw, cachedHit), true, nil
		case raw == cachedMiss:
			return "", false, nil
		}
	}

	value, found, err := c.inner.Lookup(ctx, key)
	if err != nil {
		return "", false, err
	}
	encoded := cachedMiss
	if found {
		encoded = cachedHit + value
	}
	// a failed cache write only costs a later re-read
	_ = c.store.Set(ctx, cacheKey, encoded, c.ttl)
	return value, found, nil
}

// RedisStore adapts a go-redis client to CacheStore.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}
