package metrics

import "sync/atomic"

// CacheMetric counts hits and misses of a named cache.
type CacheMetric struct {
	name   string
	hits   atomic.Int64
	misses atomic.Int64
}

func newCacheMetric(name string) *CacheMetric {
	return &CacheMetric{name: name}
}

// Hit records a cache hit.
func (c *CacheMetric) Hit() {
	if Enabled() {
		c.hits.Add(1)
	}
}

// Miss records a cache miss.
func (c *CacheMetric) Miss() {
	if Enabled() {
		c.misses.Add(1)
	}
}

// Reset clears the counters.
func (c *CacheMetric) Reset() {
	c.hits.Store(0)
	c.misses.Store(0)
}

// CacheStats is a snapshot of a CacheMetric.
type CacheStats struct {
	Name    string  `json:"name"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Stats returns a snapshot.
func (c *CacheMetric) Stats() CacheStats {
	h, m := c.hits.Load(), c.misses.Load()
	s := CacheStats{Name: c.name, Hits: h, Misses: m}
	if h+m > 0 {
		s.HitRate = float64(h) / float64(h+m)
	}
	return s
}

var (
	CollectionsCache = newCacheMetric("collections_cache")
	ItemsCache       = newCacheMetric("items_cache")
)

// AllCacheMetrics returns every registered cache metric.
func AllCacheMetrics() []*CacheMetric {
	return []*CacheMetric{CollectionsCache, ItemsCache}
}
