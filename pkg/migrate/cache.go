package migrate

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ProgramCache stores compiled programs keyed by expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

type memoryCache struct {
	store *gocache.Cache
}

// NewCache returns a ProgramCache backed by go-cache. Entries expire after
// ttl; a non-positive ttl keeps them until the process exits.
func NewCache(ttl time.Duration) ProgramCache {
	if ttl <= 0 {
		return &memoryCache{store: gocache.New(gocache.NoExpiration, 0)}
	}
	return &memoryCache{store: gocache.New(ttl, 2*ttl)}
}

func (c *memoryCache) Get(key string) (any, bool) {
	return c.store.Get(key)
}

func (c *memoryCache) Set(key string, value any) {
	c.store.Set(key, value, gocache.DefaultExpiration)
}
