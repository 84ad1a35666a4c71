package datastore

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache holds parsed documents keyed by filename. Values are treated as immutable
// once stored. Implementations must be safe for concurrent use.
type Cache interface {
	Get(key string) (any, bool)
	Put(key string, value any)
	// Clear drops every entry. There is no per-key invalidation.
	Clear()
	Keys() []string
	Len() int
}

// CacheOptions bounds a MemoryCache. Zero values disable the bound:
// MaxEntries 0 keeps every entry, TTL 0 never expires entries.
type CacheOptions struct {
	MaxEntries int
	TTL        time.Duration
}

// CacheStats reports cache activity since construction.
type CacheStats struct {
	Entries    int           `json:"entries"`
	Hits       uint64        `json:"hits"`
	Misses     uint64        `json:"misses"`
	MaxEntries int           `json:"max_entries"`
	TTL        time.Duration `json:"ttl"`
}

// MemoryCache is an in-process document cache. With a MaxEntries bound the least
// recently used entry is evicted first; with a TTL entries expire by age since insert.
type MemoryCache struct {
	lru    *expirable.LRU[string, any]
	opts   CacheOptions
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewMemoryCache creates a cache honoring the given bounds. A positive TTL
// starts an expiry goroutine that lives as long as the process; the cache is
// meant to be created once at startup.
func NewMemoryCache(opts CacheOptions) *MemoryCache {
	if opts.MaxEntries < 0 {
		opts.MaxEntries = 0
	}
	if opts.TTL < 0 {
		opts.TTL = 0
	}
	return &MemoryCache{
		lru:  expirable.NewLRU[string, any](opts.MaxEntries, nil, opts.TTL),
		opts: opts,
	}
}

// Get returns the cached value for key and refreshes its recency.
func (c *MemoryCache) Get(key string) (any, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Put stores value under key, evicting the least recently used entry when full.
func (c *MemoryCache) Put(key string, value any) {
	c.lru.Add(key, value)
}

// Clear drops every entry.
func (c *MemoryCache) Clear() {
	c.lru.Purge()
}

// Keys returns the cached filenames in sorted order.
func (c *MemoryCache) Keys() []string {
	keys := c.lru.Keys()
	sort.Strings(keys)
	return keys
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

// Stats returns a snapshot of cache counters.
func (c *MemoryCache) Stats() CacheStats {
	return CacheStats{
		Entries:    c.lru.Len(),
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		MaxEntries: c.opts.MaxEntries,
		TTL:        c.opts.TTL,
	}
}

// NopCache never stores anything, so every load reads the filesystem.
// It backs CACHE_ENABLED=false.
type NopCache struct{}

func (NopCache) Get(string) (any, bool) { return nil, false }
func (NopCache) Put(string, any)        {}
func (NopCache) Clear()                 {}
func (NopCache) Keys() []string         { return []string{} }
func (NopCache) Len() int               { return 0 }

var (
	_ Cache = (*MemoryCache)(nil)
	_ Cache = NopCache{}
)
