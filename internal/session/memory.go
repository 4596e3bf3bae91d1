package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	principalID string
	expiresAt   time.Time
}

// InMemoryCache is a map-backed Cache for single-instance deployments and
// tests. Expired entries are dropped lazily on read.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewInMemoryCache constructs an empty cache.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{entries: make(map[string]memoryEntry)}
}

func (c *InMemoryCache) Get(_ context.Context, token string) (string, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[token]
	c.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, token)
		c.mu.Unlock()
		return "", false, nil
	}
	return entry.principalID, true, nil
}

func (c *InMemoryCache) Set(_ context.Context, token, principalID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	c.entries[token] = memoryEntry{principalID: principalID, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *InMemoryCache) Invalidate(_ context.Context, token string) error {
	c.mu.Lock()
	delete(c.entries, token)
	c.mu.Unlock()
	return nil
}
