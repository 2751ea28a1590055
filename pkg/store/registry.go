package store

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// BackendFactory opens a Backend from a DSN.
type BackendFactory func(dsn string) (Backend, error)

var backendRegistry = struct {
	mu        sync.RWMutex
	factories map[string]BackendFactory
}{
	factories: map[string]BackendFactory{},
}

// RegisterBackend makes a factory available for DSNs using scheme. Backend
// packages call it from init, so importing them for side effects is enough.
func RegisterBackend(scheme string, factory BackendFactory) {
	scheme = normalizeScheme(scheme)
	if scheme == "" || factory == nil {
		return
	}
	backendRegistry.mu.Lock()
	defer backendRegistry.mu.Unlock()
	backendRegistry.factories[scheme] = factory
}

func lookupBackend(scheme string) (BackendFactory, bool) {
	scheme = normalizeScheme(scheme)
	backendRegistry.mu.RLock()
	defer backendRegistry.mu.RUnlock()
	factory, ok := backendRegistry.factories[scheme]
	return factory, ok
}

// Schemes returns the registered backend schemes plus the built-in memory one.
func Schemes() []string {
	backendRegistry.mu.RLock()
	defer backendRegistry.mu.RUnlock()
	out := []string{"memory"}
	for scheme := range backendRegistry.factories {
		out = append(out, scheme)
	}
	return out
}

// Open builds an Engine from dsn. An empty DSN and the memory schemes yield a
// MemoryEngine; any other scheme must have been registered.
func Open[T any](dsn string, opts ...EngineOption[T]) (Engine[T], error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return NewMemoryEngine[T](), nil
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("store: parse dsn: %w", err)
	}
	scheme := normalizeScheme(parsed.Scheme)
	switch scheme {
	case "memory", "mem", "inmem":
		return NewMemoryEngine[T](), nil
	case "":
		return nil, fmt.Errorf("store: dsn %q has no scheme", dsn)
	}
	factory, ok := lookupBackend(scheme)
	if !ok {
		return nil, fmt.Errorf("%w: backend scheme %s", ErrNotImplemented, scheme)
	}
	backend, err := factory(dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s backend: %w", scheme, err)
	}
	return NewBackendEngine(backend, opts...), nil
}

func normalizeScheme(scheme string) string {
	return strings.ToLower(strings.TrimSpace(scheme))
}
