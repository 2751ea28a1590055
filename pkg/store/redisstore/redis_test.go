package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goliatone/go-graphcache/pkg/store"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func setupBackend(t *testing.T, opts ...Option) (*Backend, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	backend, err := Open("redis://"+s.Addr(), opts...)
	if err != nil {
		t.Fatalf("open redis backend: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })
	return backend, s
}

func TestGetMissingKey(t *testing.T) {
	backend, _ := setupBackend(t)
	_, err := backend.Get(context.Background(), "absent")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutGetUsesPrefix(t *testing.T) {
	backend, s := setupBackend(t, WithPrefix("test:"))
	ctx := context.Background()
	if err := backend.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get("test:k")
	if err != nil {
		t.Fatalf("miniredis get: %v", err)
	}
	if got != "v" {
		t.Fatalf("expected stored value v, got %q", got)
	}
	data, err := backend.Get(ctx, "k")
	if err != nil || string(data) != "v" {
		t.Fatalf("get = %q, %v", data, err)
	}
}

func TestTTLExpiresKeys(t *testing.T) {
	backend, s := setupBackend(t, WithTTL(time.Minute))
	ctx := context.Background()
	if err := backend.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	s.FastForward(2 * time.Minute)
	if _, err := backend.Get(ctx, "k"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected key to expire, got %v", err)
	}
}

func TestOpenThroughRegistry(t *testing.T) {
	s := miniredis.RunT(t)
	engine, err := store.Open[sample]("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}
	ctx := context.Background()
	if err := engine.Commit(ctx, "one", sample{Name: "one", Count: 1}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	got, ok, err := engine.Lookup(ctx, "one")
	if err != nil || !ok {
		t.Fatalf("lookup = %v, %v", ok, err)
	}
	if got.Name != "one" || got.Count != 1 {
		t.Fatalf("unexpected value %+v", got)
	}
	if closer, ok := engine.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}

func TestOpenUnreachable(t *testing.T) {
	if _, err := Open("redis://127.0.0.1:1"); err == nil {
		t.Fatalf("expected connection error")
	}
}
