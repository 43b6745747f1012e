package recommend

import (
	"sync"
	"time"
)

type cacheEntry struct {
	results   []Recommendation
	expiresAt time.Time
}

// resultCache is a time-boxed map of ranked results. Expired entries are
// dropped on access rather than by a timer.
type resultCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	hits    uint64
	misses  uint64
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *resultCache) get(key string, now time.Time) ([]Recommendation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if !now.Before(entry.expiresAt) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return cloneRecommendations(entry.results), true
}

func (c *resultCache) set(key string, results []Recommendation, now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		results:   cloneRecommendations(results),
		expiresAt: now.Add(c.ttl),
	}
	return len(c.entries)
}

func (c *resultCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

type cacheStats struct {
	entries int
	hits    uint64
	misses  uint64
}

func (c *resultCache) stats() cacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cacheStats{entries: len(c.entries), hits: c.hits, misses: c.misses}
}
