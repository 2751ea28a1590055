package graphcache

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-graphcache/fieldtrie"
	"github.com/goliatone/go-graphcache/pkg/store"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000).UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeTransport counts fetches and delegates each one to handler with its
// 1-based call number.
type fakeTransport struct {
	mu       sync.Mutex
	calls    int
	requests []Request
	handler  func(call int, req Request) (*FetchResponse, error)
}

func (f *fakeTransport) Fetch(_ context.Context, req Request) (*FetchResponse, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.handler(call, req)
}

func (f *fakeTransport) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeTransport) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

func okBody(t *testing.T, payload map[string]any) *FetchResponse {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return &FetchResponse{Status: 200, Body: body}
}

func wrapped(value any) map[string]any {
	return map[string]any{"value": value, "displayValue": value}
}

func paths(required ...string) *fieldtrie.Trie {
	return fieldtrie.FromPaths(required, nil)
}

func newTestCache(t *testing.T, opts ...Option) (*Cache, *store.MemoryEngine[Record]) {
	t.Helper()
	engine := store.NewMemoryEngine[Record]()
	cache, err := New(append([]Option{WithEngine(engine)}, opts...)...)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache, engine
}

func mustLookup(t *testing.T, cache *Cache, id Identity) Record {
	t.Helper()
	record, err := cache.Lookup(context.Background(), id)
	if err != nil {
		t.Fatalf("lookup %s: %v", id, err)
	}
	return record
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for signal")
	}
}
