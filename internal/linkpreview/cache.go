package linkpreview

import (
	gocache "github.com/patrickmn/go-cache"
)

// Cache maps an input URL to its last successful Record. Failures are never
// stored, and entries never expire: the cache lives exactly as long as the
// Session that owns it. Safe for concurrent use.
type Cache struct {
	items *gocache.Cache
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{items: gocache.New(gocache.NoExpiration, 0)}
}

// Get returns the cached record for url.
func (c *Cache) Get(url string) (Record, bool) {
	v, ok := c.items.Get(url)
	if !ok {
		return Record{}, false
	}
	r, ok := v.(Record)
	return r, ok
}

// Put stores a successful record for url.
func (c *Cache) Put(url string, r Record) {
	c.items.Set(url, r, gocache.NoExpiration)
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	return c.items.ItemCount()
}
