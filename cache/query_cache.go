// Package cache keeps per-company query results for the list endpoints.
package cache

import (
	"context"
	"strings"
	"time"

	"bizdesk-backend/datastore"

	gocache "github.com/patrickmn/go-cache"
)

// Invalidator drops cached queries after a write has committed.
type Invalidator interface {
	Invalidate(tenant datastore.Tenant, keys ...string)
}

// Key joins key parts, e.g. Key("invoices", "customer", id).
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// QueryCache is a TTL cache keyed by company and query name.
type QueryCache struct {
	items *gocache.Cache
}

// NewQueryCache creates a cache. A ttl of zero disables caching.
func NewQueryCache(ttl time.Duration) *QueryCache {
	if ttl <= 0 {
		return &QueryCache{}
	}
	return &QueryCache{items: gocache.New(ttl, 2*ttl)}
}

func entryKey(tenant datastore.Tenant, key string) string {
	return string(tenant) + "/" + key
}

// Get returns the cached value for key if it has not expired.
func (c *QueryCache) Get(tenant datastore.Tenant, key string) (any, bool) {
	if c.items == nil {
		return nil, false
	}
	return c.items.Get(entryKey(tenant, key))
}

// Set stores value under key.
func (c *QueryCache) Set(tenant datastore.Tenant, key string, value any) {
	if c.items == nil {
		return
	}
	c.items.Set(entryKey(tenant, key), value, gocache.DefaultExpiration)
}

// GetOrLoad returns the cached value or runs load and caches its result.
// Failed loads are not cached.
func (c *QueryCache) GetOrLoad(ctx context.Context, tenant datastore.Tenant, key string, load func(context.Context) (any, error)) (any, error) {
	if v, ok := c.Get(tenant, key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.Set(tenant, key, v)
	return v, nil
}

// Invalidate removes each key and every key nested below it
// ("invoices" also drops "invoices:customer:42").
func (c *QueryCache) Invalidate(tenant datastore.Tenant, keys ...string) {
	if c.items == nil || len(keys) == 0 {
		return
	}
	for k := range c.items.Items() {
		for _, key := range keys {
			full := entryKey(tenant, key)
			if k == full || strings.HasPrefix(k, full+":") {
				c.items.Delete(k)
				break
			}
		}
	}
}

// InvalidateAll clears the cache for every company.
func (c *QueryCache) InvalidateAll() {
	if c.items != nil {
		c.items.Flush()
	}
}
