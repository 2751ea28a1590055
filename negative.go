package graphcache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// negativeCache remembers failed fetches per identity so reads inside the
// negative TTL do not hammer the transport. Expiry is checked against the
// cache clock; go-cache's own expiry only reclaims memory.
type negativeCache struct {
	ttl   time.Duration
	clock func() time.Time
	items *gocache.Cache
}

type negativeEntry struct {
	err     *TransportError
	expires time.Time
}

func newNegativeCache(ttl time.Duration, clock func() time.Time) *negativeCache {
	cleanup := 2 * ttl
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &negativeCache{
		ttl:   ttl,
		clock: clock,
		items: gocache.New(ttl, cleanup),
	}
}

func (n *negativeCache) put(id Identity, err *TransportError) bool {
	if n == nil || n.ttl <= 0 || err == nil {
		return false
	}
	n.items.Set(string(id), negativeEntry{err: err, expires: n.clock().Add(n.ttl)}, n.ttl)
	return true
}

func (n *negativeCache) get(id Identity) (*TransportError, bool) {
	if n == nil || n.ttl <= 0 {
		return nil, false
	}
	raw, ok := n.items.Get(string(id))
	if !ok {
		return nil, false
	}
	entry, ok := raw.(negativeEntry)
	if !ok {
		return nil, false
	}
	if !n.clock().Before(entry.expires) {
		n.items.Delete(string(id))
		return nil, false
	}
	return entry.err, true
}

func (n *negativeCache) clear(id Identity) {
	if n == nil {
		return
	}
	n.items.Delete(string(id))
}
