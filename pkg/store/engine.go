package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound       = errors.New("store: not found")
	ErrNotImplemented = errors.New("store: not implemented")
	ErrInvalidKey     = errors.New("store: key must not be empty")
)

// Engine holds one value per key. Commit is last-writer-wins; callers that
// need ordering must resolve it before committing.
type Engine[T any] interface {
	Lookup(ctx context.Context, key string) (value T, ok bool, err error)
	Commit(ctx context.Context, key string, value T) error
}

// Backend is a byte-level key/value store. Get reports ErrNotFound for absent
// keys.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// Codec converts values to and from the bytes a Backend stores.
type Codec[T any] interface {
	Marshal(T) ([]byte, error)
	Unmarshal([]byte, *T) error
}

// JSONCodec encodes values with encoding/json, decoding numbers as json.Number.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Marshal(value T) ([]byte, error) {
	return json.Marshal(value)
}

func (JSONCodec[T]) Unmarshal(data []byte, out *T) error {
	decoder := json.NewDecoder(strings.NewReader(string(data)))
	decoder.UseNumber()
	return decoder.Decode(out)
}

// BackendEngine adapts a Backend into an Engine through a Codec.
type BackendEngine[T any] struct {
	backend Backend
	codec   Codec[T]
	prefix  string
}

// EngineOption configures a BackendEngine.
type EngineOption[T any] func(*BackendEngine[T])

// WithCodec replaces the default JSON codec.
func WithCodec[T any](codec Codec[T]) EngineOption[T] {
	return func(e *BackendEngine[T]) {
		if codec != nil {
			e.codec = codec
		}
	}
}

// WithKeyPrefix namespaces every key written to the backend.
func WithKeyPrefix[T any](prefix string) EngineOption[T] {
	return func(e *BackendEngine[T]) {
		e.prefix = prefix
	}
}

// NewBackendEngine wraps backend.
func NewBackendEngine[T any](backend Backend, opts ...EngineOption[T]) *BackendEngine[T] {
	engine := &BackendEngine[T]{
		backend: backend,
		codec:   JSONCodec[T]{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(engine)
		}
	}
	return engine
}

func (e *BackendEngine[T]) Lookup(ctx context.Context, key string) (T, bool, error) {
	var zero T
	if key == "" {
		return zero, false, ErrInvalidKey
	}
	data, err := e.backend.Get(ctx, e.prefix+key)
	if errors.Is(err, ErrNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("store: lookup %q: %w", key, err)
	}
	var value T
	if err := e.codec.Unmarshal(data, &value); err != nil {
		return zero, false, fmt.Errorf("store: decode %q: %w", key, err)
	}
	return value, true, nil
}

func (e *BackendEngine[T]) Commit(ctx context.Context, key string, value T) error {
	if key == "" {
		return ErrInvalidKey
	}
	data, err := e.codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: encode %q: %w", key, err)
	}
	if err := e.backend.Put(ctx, e.prefix+key, data); err != nil {
		return fmt.Errorf("store: commit %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying backend.
func (e *BackendEngine[T]) Close() error {
	if e == nil || e.backend == nil {
		return nil
	}
	return e.backend.Close()
}
