package store

import (
	"context"
	"sync"

	"github.com/goliatone/go-graphcache/internal/deepcopy"
)

// MemoryEngine keeps values in process. Values are deep copied on the way in
// and out so callers never alias stored state.
type MemoryEngine[T any] struct {
	mu      sync.RWMutex
	records map[string]T
	commits int
}

func NewMemoryEngine[T any]() *MemoryEngine[T] {
	return &MemoryEngine[T]{records: map[string]T{}}
}

func (e *MemoryEngine[T]) Lookup(_ context.Context, key string) (T, bool, error) {
	var zero T
	if key == "" {
		return zero, false, ErrInvalidKey
	}
	e.mu.RLock()
	value, ok := e.records[key]
	e.mu.RUnlock()
	if !ok {
		return zero, false, nil
	}
	return deepcopy.Clone(value), true, nil
}

func (e *MemoryEngine[T]) Commit(_ context.Context, key string, value T) error {
	if key == "" {
		return ErrInvalidKey
	}
	cloned := deepcopy.Clone(value)
	e.mu.Lock()
	e.records[key] = cloned
	e.commits++
	e.mu.Unlock()
	return nil
}

// Keys returns the number of stored keys.
func (e *MemoryEngine[T]) Keys() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.records)
}

// Commits returns how many Commit calls succeeded.
func (e *MemoryEngine[T]) Commits() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.commits
}

// MemoryBackend is a byte-level Backend kept in process, mostly for tests of
// BackendEngine.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: map[string][]byte{}}
}

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	value, ok := b.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (b *MemoryBackend) Put(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	b.data[key] = append([]byte(nil), value...)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Close() error {
	return nil
}
