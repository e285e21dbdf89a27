// Package options serves dynamic form-field options (calendar lists,
// project lists) from plugins, with a short-lived in-memory cache.
package options

import (
	"fmt"
	"sync"
	"time"

	"github.com/rmitchellscott/stationmaster-plugins/pkg/types"
)

const (
	// cacheTTL is how long fetched options stay valid.
	cacheTTL = 5 * time.Minute

	// cleanupThreshold is the entry count at which a lazy cleanup pass runs.
	cleanupThreshold = 100
)

type cacheEntry struct {
	options  []types.Option
	cachedAt time.Time
}

// Cache is a concurrent-safe cache of fetched options keyed by
// (user, plugin, field).
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewCache creates an empty options cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry, 16),
		now:     time.Now,
	}
}

func cacheKey(userID, plugin, field string) string {
	return fmt.Sprintf("%s:%s:%s", userID, plugin, field)
}

// Get returns the cached options and their fetch time for a key, if
// still valid. Expired entries are dropped on lookup.
func (c *Cache) Get(userID, plugin, field string) ([]types.Option, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(userID, plugin, field)

	entry, ok := c.entries[key]
	if !ok {
		return nil, time.Time{}, false
	}

	if c.now().Sub(entry.cachedAt) > cacheTTL {
		delete(c.entries, key)

		return nil, time.Time{}, false
	}

	return entry.options, entry.cachedAt, true
}

// Set stores options for a key and triggers a cleanup pass once the
// cache has grown past the threshold.
func (c *Cache) Set(userID, plugin, field string, opts []types.Option) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey(userID, plugin, field)] = cacheEntry{
		options:  opts,
		cachedAt: c.now(),
	}

	if len(c.entries) > cleanupThreshold {
		now := c.now()
		for key, entry := range c.entries {
			if now.Sub(entry.cachedAt) > cacheTTL {
				delete(c.entries, key)
			}
		}
	}
}
