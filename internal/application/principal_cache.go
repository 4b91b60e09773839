package application

import (
	"sync"
	"time"
)

// principalCache keeps recently resolved principals so that bursts of
// requests with the same token do not hit the profile store each time.
type principalCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]principalCacheEntry
}

type principalCacheEntry struct {
	principal Principal
	expiresAt time.Time
}

func newPrincipalCache(ttl time.Duration, maxEntries int, now func() time.Time) *principalCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if now == nil {
		now = time.Now
	}
	return &principalCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]principalCacheEntry),
	}
}

func (c *principalCache) Get(subject string) (Principal, bool) {
	if c == nil {
		return Principal{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[subject]
	c.mu.RUnlock()
	if !ok {
		return Principal{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, subject)
		c.mu.Unlock()
		return Principal{}, false
	}
	return entry.principal, true
}

func (c *principalCache) Store(subject string, principal Principal) {
	if c == nil {
		return
	}
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[subject] = principalCacheEntry{principal: principal, expiresAt: expiry}
}

func (c *principalCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *principalCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}
