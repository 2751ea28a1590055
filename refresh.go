package graphcache

import (
	"sync"

	"github.com/goliatone/go-graphcache/fieldtrie"
)

// State is the freshness of one (identity, field selection) key.
type State int

const (
	// StateFresh means the record is within its TTL.
	StateFresh State = iota
	// StateStale means the TTL elapsed but the data is still served.
	StateStale
	// StateFetching means a background refresh is in flight.
	StateFetching
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	case StateFetching:
		return "fetching"
	default:
		return "unknown"
	}
}

// selectionKey identifies a cached entity and field selection pair.
func selectionKey(id Identity, fields *fieldtrie.Trie) string {
	return string(id) + "|" + fields.Key()
}

// refresher tracks background refreshes. Fresh and Stale are derived from the
// record timestamp; only Fetching needs bookkeeping here.
type refresher struct {
	mu       sync.Mutex
	inflight map[string]uint64
	// explicit holds, per key, the sequence of the last committed foreground
	// fetch. A background refresh started before that sequence is stale.
	explicit map[string]uint64
	seq      uint64
	closed   bool
	wg       sync.WaitGroup
}

func newRefresher() *refresher {
	return &refresher{
		inflight: make(map[string]uint64),
		explicit: make(map[string]uint64),
	}
}

// begin claims key for one background refresh. It returns false when a
// refresh for key is already running or the cache is closed.
func (r *refresher) begin(key string) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, false
	}
	if _, running := r.inflight[key]; running {
		return 0, false
	}
	r.inflight[key] = r.seq
	r.wg.Add(1)
	return r.seq, true
}

func (r *refresher) finish(key string) {
	r.mu.Lock()
	delete(r.inflight, key)
	r.mu.Unlock()
	r.wg.Done()
}

func (r *refresher) fetching(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, running := r.inflight[key]
	return running
}

// noteExplicit records a committed foreground fetch for key.
func (r *refresher) noteExplicit(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.explicit[key] = r.seq
}

// superseded reports whether a foreground fetch committed for key after a
// background refresh that started at seq.
func (r *refresher) superseded(key string, started uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.explicit[key] > started
}

func (r *refresher) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *refresher) wait() {
	r.wg.Wait()
}
