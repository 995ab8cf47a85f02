package filter

import (
	"fmt"

	"github.com/adammck/blobstream/pkg/api"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache keeps deserialized filters for hot segments, so repeated lookups
// don't rebuild from the serialized form every time. Safe for concurrent
// use; the underlying LRU does its own locking.
type Cache struct {
	cache *lru.Cache[string, Filter]
}

func NewCache(size int) (*Cache, error) {
	c, err := lru.New[string, Filter](size)
	if err != nil {
		return nil, fmt.Errorf("lru.New: %w", err)
	}
	return &Cache{cache: c}, nil
}

// Get returns the cached filter for the segment, or false.
func (c *Cache) Get(segment string) (Filter, bool) {
	return c.cache.Get(segment)
}

// Put caches a filter, deserializing it from info if needed.
func (c *Cache) Put(segment string, info api.FilterInfo) (Filter, error) {
	f, err := New(info)
	if err != nil {
		return nil, fmt.Errorf("filter.New: %w", err)
	}
	c.cache.Add(segment, f)
	return f, nil
}

// Add caches an already-built filter.
func (c *Cache) Add(segment string, f Filter) {
	c.cache.Add(segment, f)
}

// Remove evicts the filter for a segment, e.g. after compaction replaces it.
func (c *Cache) Remove(segment string) {
	c.cache.Remove(segment)
}
