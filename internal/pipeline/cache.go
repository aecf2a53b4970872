package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/Faultbox/modeledge/pkg/edges"
)

// Cache is an in-memory store of built edge geometry.
type Cache[K comparable] struct {
	data map[K]edges.Geometry
	mu   sync.RWMutex

	// Stats
	hits   atomic.Int64
	misses atomic.Int64
}

// EdgeCache maps mesh ids to their edge geometry.
type EdgeCache = Cache[string]

// NewCache creates a new cache.
func NewCache[K comparable]() *Cache[K] {
	return &Cache[K]{
		data: make(map[K]edges.Geometry),
	}
}

// Lookup retrieves an item from cache.
func (c *Cache[K]) Lookup(key K) (edges.Geometry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	geom, ok := c.data[key]
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return geom, ok
}

// Set stores an item in cache, replacing any previous value.
func (c *Cache[K]) Set(key K, geom edges.Geometry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = geom
}

// Delete removes an item from cache.
func (c *Cache[K]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Len returns the number of cached items.
func (c *Cache[K]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Stats returns lookup hit and miss counts.
func (c *Cache[K]) Stats() (hits, misses int) {
	return int(c.hits.Load()), int(c.misses.Load())
}

// Clear empties the cache and resets its stats.
func (c *Cache[K]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[K]edges.Geometry)
	c.hits.Store(0)
	c.misses.Store(0)
}
