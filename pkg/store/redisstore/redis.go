// Package redisstore provides a Redis backed store.Backend.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-graphcache/pkg/store"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "graphcache:"

func init() {
	store.RegisterBackend("redis", func(dsn string) (store.Backend, error) {
		return Open(dsn)
	})
	store.RegisterBackend("rediss", func(dsn string) (store.Backend, error) {
		return Open(dsn)
	})
}

// Backend stores values as plain Redis strings.
type Backend struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Option configures a Backend.
type Option func(*Backend)

// WithPrefix overrides the key prefix (default "graphcache:").
func WithPrefix(prefix string) Option {
	return func(b *Backend) {
		b.prefix = prefix
	}
}

// WithTTL sets an expiry on every written key. Zero keeps keys forever.
func WithTTL(ttl time.Duration) Option {
	return func(b *Backend) {
		b.ttl = ttl
	}
}

// Open parses redisURL, connects and pings the server.
func Open(redisURL string, opts ...Option) (*Backend, error) {
	parsed, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(parsed)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewWithClient(client, opts...), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, opts ...Option) *Backend {
	b := &Backend{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *Backend) key(key string) string {
	return b.prefix + key
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.Get(ctx, b.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	if err := b.client.Set(ctx, b.key(key), value, b.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks the server is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *Backend) Close() error {
	return b.client.Close()
}
