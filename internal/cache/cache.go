package cache

import (
	"sync"
	"time"
)

// PageCache holds rendered page payloads with a fixed expiry. It backs the
// home listing only; invalidation is explicit via Clear.
type PageCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
}

type entry struct {
	payload   []byte
	expiresAt time.Time
}

func NewPageCache(ttl time.Duration) *PageCache {
	return &PageCache{
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

// Get returns the cached payload for key, or false if absent or expired.
func (c *PageCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.payload, true
}

func (c *PageCache) Set(key string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{
		payload:   payload,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Clear drops every cached page. This is the administrative invalidation
// path; nothing expires pages early otherwise.
func (c *PageCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}
