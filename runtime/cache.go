package runtime

import (
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/wippyai/beamdasm/beam"
)

// Cache holds decoded modules keyed by file path. It retains at most one
// module per path; storing again replaces the previous model. When more
// than Capacity paths are cached the least recently used one is evicted.
//
// A Cache is safe for concurrent use. It never watches files: a cached
// model stays valid until it is replaced, removed or evicted.
type Cache struct {
	entries *lru.Cache[string, *beam.Module]
}

// NewCache creates a cache for up to capacity modules. A capacity below
// one yields a single-slot cache.
func NewCache(capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	// lru.New only fails for a non-positive size.
	entries, _ := lru.New[string, *beam.Module](capacity)
	return &Cache{entries: entries}
}

// Key normalizes path to the form used as cache key.
func Key(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Get returns the module cached for path.
func (c *Cache) Get(path string) (*beam.Module, bool) {
	return c.entries.Get(Key(path))
}

// Put caches m for path, replacing any earlier model.
func (c *Cache) Put(path string, m *beam.Module) {
	c.entries.Add(Key(path), m)
}

// Remove drops the model cached for path and reports whether one existed.
func (c *Cache) Remove(path string) bool {
	return c.entries.Remove(Key(path))
}

// Len returns the number of cached modules.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Paths lists cached keys from oldest to most recently used.
func (c *Cache) Paths() []string {
	return c.entries.Keys()
}

// Purge empties the cache.
func (c *Cache) Purge() {
	c.entries.Purge()
}
