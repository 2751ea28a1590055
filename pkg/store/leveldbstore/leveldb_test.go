package leveldbstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-graphcache/pkg/store"
)

func TestBackendPutGet(t *testing.T) {
	backend, err := Open(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	if _, err := backend.Get(ctx, "absent"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := backend.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	data, err := backend.Get(ctx, "k")
	if err != nil || string(data) != "v" {
		t.Fatalf("get = %q, %v", data, err)
	}
}

func TestOpenThroughRegistry(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "engine")
	engine, err := store.Open[map[string]any]("leveldb://" + dir)
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}
	defer func() {
		if closer, ok := engine.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}()

	ctx := context.Background()
	if err := engine.Commit(ctx, "record:1", map[string]any{"name": "Acme"}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	got, ok, err := engine.Lookup(ctx, "record:1")
	if err != nil || !ok {
		t.Fatalf("lookup = %v, %v", ok, err)
	}
	if got["name"] != "Acme" {
		t.Fatalf("unexpected value %#v", got)
	}
}

func TestPathFromDSN(t *testing.T) {
	cases := map[string]string{
		"leveldb:///var/lib/cache": "/var/lib/cache",
		"leveldb://data/cache":     "data/cache",
		"leveldb:relative":         "relative",
	}
	for dsn, want := range cases {
		got, err := pathFromDSN(dsn)
		if err != nil {
			t.Fatalf("pathFromDSN(%q): %v", dsn, err)
		}
		if got != want {
			t.Fatalf("pathFromDSN(%q) = %q, want %q", dsn, got, want)
		}
	}
	if _, err := pathFromDSN("leveldb://"); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
