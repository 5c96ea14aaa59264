package omdb

import (
	"encoding/json"
	"sync"
)

// Cache holds fetched movie metadata keyed by title. It is the in-memory
// face of the store's movie_cache table: the orchestrator seeds it with
// Replace at startup and persists Snapshot back when lookups settle.
// Entries never expire; a re-fetch of the same key overwrites.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]json.RawMessage
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]json.RawMessage)}
}

// Get returns the metadata stored under key, or nil.
func (c *Cache) Get(key string) json.RawMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key]
}

// Has reports whether key is cached.
func (c *Cache) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[key]
	return ok
}

// Set stores metadata under key, replacing any prior entry.
func (c *Cache) Set(key string, data json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Replace swaps the cache contents for the given mapping.
func (c *Cache) Replace(entries map[string]json.RawMessage) {
	next := make(map[string]json.RawMessage, len(entries))
	for k, v := range entries {
		next[k] = v
	}
	c.mu.Lock()
	c.entries = next
	c.mu.Unlock()
}

// Snapshot returns a copy of the cache contents for persistence.
func (c *Cache) Snapshot() map[string]json.RawMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]json.RawMessage, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}
