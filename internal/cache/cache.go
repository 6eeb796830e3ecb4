// Package cache holds expiring text payloads for repeated relocation lookups.
package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "movewise:cache:"

// LocationKey builds the cache key for a relocation lookup from its four location fields.
func LocationKey(originCity, originCountry, destinationCity, destinationCountry string) string {
	parts := []string{originCity, originCountry, destinationCity, destinationCountry}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, "|")
}

// RedisCache stores entries as plain string keys with a TTL.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, payload string, ttl time.Duration) error {
	return c.client.Set(ctx, keyPrefix+key, payload, ttl).Err()
}

type entry struct {
	payload   string
	expiresAt time.Time
}

// MemoryCache is used when neither Redis nor Postgres is configured.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]entry), now: time.Now}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return "", false, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return "", false, nil
	}
	return e.payload, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key, payload string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{payload: payload, expiresAt: c.now().Add(ttl)}
	return nil
}

// Prune drops expired entries.
func (c *MemoryCache) Prune(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	var n int64
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			n++
		}
	}
	return n, nil
}
