// Package exchangecache memoises market-data and profile-authenticated
// exchange clients with a TTL, grounded on internal/market.CachedCoinGeckoClient's
// check/fetch/refresh shape, reimplemented over an in-process
// sync.RWMutex-guarded map with per-entry expiry timestamps: C9 memoises SDK
// client objects, not marshalable values, so a Redis-backed cache like the
// teacher's cannot serve it directly.
package exchangecache

import (
	"sync"
	"time"
)

const defaultTTL = time.Hour

// Factory constructs a new client instance; called on a cache miss or
// expiry.
type Factory func() (interface{}, error)

type entry struct {
	client    interface{}
	expiresAt time.Time
}

// Cache memoises public exchange clients by name and authenticated clients
// by profile id, each with an independent TTL clock.
type Cache struct {
	mu     sync.RWMutex
	ttl    time.Duration
	public map[string]entry
	authed map[string]entry
	now    func() time.Time
}

// New constructs a Cache with the default one-hour TTL.
func New() *Cache {
	return &Cache{
		ttl:    defaultTTL,
		public: map[string]entry{},
		authed: map[string]entry{},
		now:    time.Now,
	}
}

// GetPublic returns the cached public client for name, constructing and
// caching one via build on a miss or expiry.
func (c *Cache) GetPublic(name string, build Factory) (interface{}, error) {
	return c.get(c.public, name, build)
}

// GetAuthed returns the cached authenticated client for profileID,
// constructing and caching one via build on a miss or expiry.
func (c *Cache) GetAuthed(profileID string, build Factory) (interface{}, error) {
	return c.get(c.authed, profileID, build)
}

func (c *Cache) get(bucket map[string]entry, key string, build Factory) (interface{}, error) {
	c.mu.RLock()
	e, ok := bucket[key]
	c.mu.RUnlock()
	if ok && c.now().Before(e.expiresAt) {
		return e.client, nil
	}

	client, err := build()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	bucket[key] = entry{client: client, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()

	return client, nil
}

// InvalidateAuthed removes the cached authenticated client for profileID.
// Must be called on credential change or profile deletion.
func (c *Cache) InvalidateAuthed(profileID string) {
	c.mu.Lock()
	delete(c.authed, profileID)
	c.mu.Unlock()
}
