package resample

import (
	"sync"

	"github.com/solarforecast/goes-viewer/internal/geo"
)

// Key identifies the geometry a cached plan is valid for: the satellite, the
// source grid shape and the target extent. Any change means a rebuild.
type Key struct {
	Platform string
	SrcRows  int
	SrcCols  int
	Extent   geo.Extent
}

// Cache memoizes plans per geometry key. Plans are built at most once per
// key even when workers race; losers of the race block until the winner's
// build finishes and then share its result.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*cacheEntry
}

type cacheEntry struct {
	once sync.Once
	plan *Plan
	err  error
}

// NewCache returns an empty plan cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[Key]*cacheEntry)}
}

// Get returns the plan for key, invoking build on first use. A failed build
// is cached too: a geometry that cannot be planned will not be retried.
func (c *Cache) Get(key Key, build func() (*Plan, error)) (*Plan, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &cacheEntry{}
		c.entries[key] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.plan, e.err = build()
	})
	return e.plan, e.err
}

// Len returns the number of cached geometries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
