// Package cachetest provides an in-memory Cache for tests.
package cachetest

import (
	"context"
	"sync"
	"time"

	"github.com/usmanhx/labinsight/internal/cache"
)

type entry struct {
	value     int64
	expiresAt time.Time
}

type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry

	// Err, when set, is returned by every operation.
	Err error
}

func New() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

// Set seeds a counter value. Test helper.
func (c *Cache) Set(key string, value int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{value: value}
}

func (c *Cache) Ping(ctx context.Context) error { return c.Err }

func (c *Cache) get(key string) *entry {
	e, ok := c.entries[key]
	if !ok || (!e.expiresAt.IsZero() && time.Now().After(e.expiresAt)) {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

func (c *Cache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	if c.Err != nil {
		return 0, c.Err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.get(key)
	e.value++
	e.expiresAt = time.Now().Add(expiry)
	return e.value, nil
}

func (c *Cache) IncrIfAbsentExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	if c.Err != nil {
		return 0, c.Err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.get(key)
	e.value++
	if e.value == 1 {
		e.expiresAt = time.Now().Add(expiry)
	}
	return e.value, nil
}

func (c *Cache) Decr(ctx context.Context, key string) (int64, error) {
	if c.Err != nil {
		return 0, c.Err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.get(key)
	e.value--
	return e.value, nil
}

func (c *Cache) GetInt(ctx context.Context, key string) (int64, error) {
	if c.Err != nil {
		return 0, c.Err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || (!e.expiresAt.IsZero() && time.Now().After(e.expiresAt)) {
		return 0, nil
	}
	return e.value, nil
}

func (c *Cache) TTL(ctx context.Context, key string) (time.Duration, error) {
	if c.Err != nil {
		return 0, c.Err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return -2 * time.Second, nil
	}
	if e.expiresAt.IsZero() {
		return -1 * time.Second, nil
	}
	return time.Until(e.expiresAt), nil
}

func (c *Cache) Close() error { return nil }

var _ cache.Cache = (*Cache)(nil)
