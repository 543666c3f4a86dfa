package resolver

import (
	"sync"
	"time"
)

type cacheKey struct {
	kind    Kind
	scopeID string
}

type cacheEntry struct {
	values  []Entity
	fetched time.Time
}

// Cache holds entity lists per (kind, scope) with a fixed TTL. Concurrent
// refreshes of the same key may race; last write wins, which is fine for
// data this slow-moving.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewCache creates a cache. now is the clock for expiry checks; nil means
// time.Now.
func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries: make(map[cacheKey]cacheEntry),
		ttl:     ttl,
		now:     now,
	}
}

// Get returns a copy of the cached list if the entry is still fresh.
// Entries expire strictly at the TTL boundary.
func (c *Cache) Get(kind Kind, scopeID string) ([]Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[cacheKey{kind: kind, scopeID: scopeID}]
	if !ok || c.now().Sub(entry.fetched) >= c.ttl {
		return nil, false
	}

	values := make([]Entity, len(entry.values))
	copy(values, entry.values)
	return values, true
}

// Put stores a list under (kind, scope), stamping it with the current time.
func (c *Cache) Put(kind Kind, scopeID string, values []Entity) {
	stored := make([]Entity, len(values))
	copy(stored, values)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{kind: kind, scopeID: scopeID}] = cacheEntry{values: stored, fetched: c.now()}
}

// Invalidate drops one (kind, scope) entry.
func (c *Cache) Invalidate(kind Kind, scopeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey{kind: kind, scopeID: scopeID})
}
