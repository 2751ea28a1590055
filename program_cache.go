package graphcache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ProgramCache stores compiled expression programs keyed by engine and
// expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// WithProgramCache registers a program cache used by the identity evaluator.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *cacheConfig) {
		cfg.programCache = cache
	}
}

type memoryProgramCache struct {
	cache *gocache.Cache
}

// NewProgramCache returns an in-process ProgramCache. Entries expire after ttl
// of disuse; a ttl <= 0 keeps them forever.
func NewProgramCache(ttl time.Duration) ProgramCache {
	if ttl <= 0 {
		return &memoryProgramCache{cache: gocache.New(gocache.NoExpiration, 0)}
	}
	return &memoryProgramCache{cache: gocache.New(ttl, 2*ttl)}
}

func (c *memoryProgramCache) Get(key string) (any, bool) {
	return c.cache.Get(key)
}

func (c *memoryProgramCache) Set(key string, value any) {
	c.cache.SetDefault(key, value)
}

func cacheKey(engine, expression string) string {
	return engine + "\x00" + expression
}
