package geospatial

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// TileCoord addresses a slippy-map tile.
type TileCoord struct {
	Z int `json:"z"`
	X int `json:"x"`
	Y int `json:"y"`
}

// Valid reports whether the coordinate exists at its zoom level.
func (c TileCoord) Valid(maxZoom int) bool {
	if c.Z < 0 || c.Z > maxZoom {
		return false
	}
	n := 1 << c.Z
	return c.X >= 0 && c.X < n && c.Y >= 0 && c.Y < n
}

// TileCache is a concurrent-safe LRU cache for basemap tiles with TTL expiration.
type TileCache struct {
	mu         sync.Mutex
	entries    map[TileCoord]*list.Element
	lru        *list.List // front=newest
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	hits       atomic.Int64
	misses     atomic.Int64
}

type tileCacheEntry struct {
	coord     TileCoord
	data      []byte
	createdAt time.Time
}

// CacheStats contains cache performance statistics.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// NewTileCache creates a TileCache with the given capacity and TTL.
func NewTileCache(maxEntries int, ttl time.Duration) *TileCache {
	return &TileCache{
		entries:    make(map[TileCoord]*list.Element),
		lru:        list.New(),
		maxEntries: max(maxEntries, 1),
		ttl:        ttl,
		now:        time.Now,
	}
}

// Get returns a cached tile, or nil on miss or expiration.
func (c *TileCache) Get(coord TileCoord) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[coord]
	if !ok {
		c.misses.Add(1)
		return nil
	}
	entry := el.Value.(*tileCacheEntry)
	if c.ttl > 0 && c.now().Sub(entry.createdAt) > c.ttl {
		c.lru.Remove(el)
		delete(c.entries, coord)
		c.misses.Add(1)
		return nil
	}

	c.lru.MoveToFront(el)
	c.hits.Add(1)
	return entry.data
}

// Put stores a tile, evicting the least recently used entry when full.
func (c *TileCache) Put(coord TileCoord, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[coord]; ok {
		el.Value = &tileCacheEntry{coord: coord, data: data, createdAt: c.now()}
		c.lru.MoveToFront(el)
		return
	}

	for c.lru.Len() >= c.maxEntries {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.entries, oldest.Value.(*tileCacheEntry).coord)
	}
	c.entries[coord] = c.lru.PushFront(&tileCacheEntry{coord: coord, data: data, createdAt: c.now()})
}

// Stats returns cache performance statistics.
func (c *TileCache) Stats() CacheStats {
	c.mu.Lock()
	entries := c.lru.Len()
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStats{
		Entries:    entries,
		MaxEntries: c.maxEntries,
		Hits:       hits,
		Misses:     misses,
		HitRate:    hitRate,
	}
}
