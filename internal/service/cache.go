package service

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

const resolveCacheTTL = 5 * time.Minute

// ResolveCache keeps recently resolved short codes in process memory so the
// redirect hot path can skip the database read. Entries carry a TTL and the
// whole cache is cleared on admin mutations, so a stale entry never outlives
// an update or delete.
type ResolveCache struct {
	cache *ristretto.Cache
}

// NewResolveCache creates a cache sized for roughly maxEntries short codes.
func NewResolveCache(maxEntries int64) (*ResolveCache, error) {
	if maxEntries < 1 {
		maxEntries = 1
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &ResolveCache{cache: cache}, nil
}

func (c *ResolveCache) Get(shortCode string) (string, bool) {
	val, found := c.cache.Get(shortCode)
	if !found {
		return "", false
	}
	return val.(string), true
}

func (c *ResolveCache) Set(shortCode, originalURL string) {
	c.cache.SetWithTTL(shortCode, originalURL, 1, resolveCacheTTL)
}

func (c *ResolveCache) Clear() {
	c.cache.Clear()
}

func (c *ResolveCache) Close() {
	c.cache.Close()
}
