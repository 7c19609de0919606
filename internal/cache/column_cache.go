// Package cache provides an LRU cache of table column lists, used to avoid a
// metadata round trip for every insert or update that filters to existing columns.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
)

const (
	// DefaultColumnCacheCapacity is the default maximum number of cached tables.
	DefaultColumnCacheCapacity = 256
)

// ColumnCache stores column names per table with LRU eviction policy.
type ColumnCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	lruList  *list.List

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type cacheEntry struct {
	table   string
	columns []string
}

// NewColumnCache creates a column cache with default capacity.
func NewColumnCache() *ColumnCache {
	return NewColumnCacheWithCapacity(DefaultColumnCacheCapacity)
}

// NewColumnCacheWithCapacity creates a column cache with the given capacity.
// Non-positive capacities fall back to the default.
func NewColumnCacheWithCapacity(capacity int) *ColumnCache {
	if capacity <= 0 {
		capacity = DefaultColumnCacheCapacity
	}
	return &ColumnCache{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		lruList:  list.New(),
	}
}

// Get returns a copy of the cached columns of table.
func (c *ColumnCache) Get(table string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[table]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	c.lruList.MoveToFront(elem)
	c.hits.Add(1)

	entry := elem.Value.(*cacheEntry)
	return append([]string(nil), entry.columns...), true
}

// Set stores the columns of table, evicting the least recently used table at capacity.
func (c *ColumnCache) Set(table string, columns []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	columns = append([]string(nil), columns...)

	if elem, ok := c.items[table]; ok {
		c.lruList.MoveToFront(elem)
		elem.Value.(*cacheEntry).columns = columns
		return
	}

	if c.lruList.Len() >= c.capacity {
		c.evictOldest()
	}

	c.items[table] = c.lruList.PushFront(&cacheEntry{table: table, columns: columns})
}

// Invalidate drops table from the cache.
func (c *ColumnCache) Invalidate(table string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[table]; ok {
		c.lruList.Remove(elem)
		delete(c.items, table)
	}
}

// evictOldest must be called with the lock held.
func (c *ColumnCache) evictOldest() {
	elem := c.lruList.Back()
	if elem == nil {
		return
	}

	c.lruList.Remove(elem)
	delete(c.items, elem.Value.(*cacheEntry).table)
	c.evictions.Add(1)
}

// Clear removes every entry.
func (c *ColumnCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element, c.capacity)
	c.lruList.Init()
}

// Stats holds cache performance metrics.
type Stats struct {
	Size      int     // Current number of cached tables.
	Capacity  int     // Maximum capacity.
	Hits      uint64  // Number of successful lookups.
	Misses    uint64  // Number of failed lookups.
	Evictions uint64  // Number of evicted tables.
	HitRate   float64 // hits / (hits + misses).
}

// Stats returns cache statistics.
func (c *ColumnCache) Stats() Stats {
	c.mu.Lock()
	size := c.lruList.Len()
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	hitRate := 0.0
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Size:      size,
		Capacity:  c.capacity,
		Hits:      hits,
		Misses:    misses,
		Evictions: c.evictions.Load(),
		HitRate:   hitRate,
	}
}
