package scripting

import (
	"sync"
	"time"
)

// ScriptCache memoizes compiled scripts keyed by script name and source.
// Entries expire after a TTL; the map is bounded by a lazy eviction sweep.
type ScriptCache struct {
	cache map[string]*cacheEntry
	mu    sync.RWMutex
	ttl   time.Duration
}

type cacheEntry struct {
	script    *Script
	timestamp time.Time
}

func NewScriptCache() *ScriptCache {
	return &ScriptCache{
		cache: make(map[string]*cacheEntry),
		ttl:   time.Hour,
	}
}

func (c *ScriptCache) Get(key string) *Script {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.cache[key]
	if !ok {
		return nil
	}

	if time.Since(entry.timestamp) > c.ttl {
		return nil
	}

	return entry.script
}

func (c *ScriptCache) Put(key string, script *Script) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache[key] = &cacheEntry{
		script:    script,
		timestamp: time.Now(),
	}

	if len(c.cache) > 1000 {
		c.evictOld()
	}
}

func (c *ScriptCache) evictOld() {
	cutoff := time.Now().Add(-c.ttl)

	for key, entry := range c.cache {
		if entry.timestamp.Before(cutoff) {
			delete(c.cache, key)
		}
	}
}
