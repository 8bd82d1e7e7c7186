package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is an in-process Cache backed by an LRU, used in development
// and tests when no Redis is configured. Expiry is checked on read; the LRU
// bound keeps stale entries from accumulating.
type MemoryCache struct {
	mu  sync.Mutex
	lru *lru.Cache
}

func NewMemoryCache(size int) (*MemoryCache, error) {
	l, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{lru: l}, nil
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

func (c *MemoryCache) getLocked(key string) ([]byte, bool, error) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	entry := v.(memoryEntry)
	if time.Now().After(entry.expiresAt) {
		c.lru.Remove(key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, memoryEntry{value: value, expiresAt: time.Now().Add(ttl)})
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
	return nil
}

func (c *MemoryCache) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok, _ := c.getLocked(key); ok {
		return false, nil
	}
	c.lru.Add(key, memoryEntry{value: value, expiresAt: time.Now().Add(ttl)})
	return true, nil
}
