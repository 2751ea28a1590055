// Package leveldbstore provides a goleveldb backed store.Backend.
package leveldbstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/goliatone/go-graphcache/pkg/store"
	"github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"
)

func init() {
	store.RegisterBackend("leveldb", func(dsn string) (store.Backend, error) {
		path, err := pathFromDSN(dsn)
		if err != nil {
			return nil, err
		}
		return Open(path)
	})
}

// Backend wraps a leveldb database.
type Backend struct {
	db *leveldb.DB
}

// Open opens (or creates) the database at path.
func Open(path string) (*Backend, error) {
	if path == "" {
		return nil, fmt.Errorf("leveldb: path is required")
	}
	options := &ldb_opt.Options{
		ErrorIfExist: false,
		Strict:       ldb_opt.NoStrict,
	}
	db, err := leveldb.OpenFile(path, options)
	if err != nil {
		return nil, fmt.Errorf("leveldb: open %q: %w", path, err)
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := b.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("leveldb get: %w", err)
	}
	return data, nil
}

func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.db.Put([]byte(key), value, nil); err != nil {
		return fmt.Errorf("leveldb put: %w", err)
	}
	return nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

func pathFromDSN(dsn string) (string, error) {
	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	if parsed.Path != "" {
		if parsed.Host != "" {
			return parsed.Host + parsed.Path, nil
		}
		return parsed.Path, nil
	}
	if parsed.Opaque != "" {
		return parsed.Opaque, nil
	}
	if parsed.Host != "" {
		return parsed.Host, nil
	}
	return "", fmt.Errorf("leveldb: dsn %q has no path", dsn)
}
