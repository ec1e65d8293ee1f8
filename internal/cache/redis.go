// Package cache provides the Redis-backed menu and signing-key caches.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default TTLs used when Options leaves them unset.
const (
	DefaultMenuTTL   = time.Minute
	DefaultKeySetTTL = 10 * time.Minute
)

// ErrCacheMiss is returned when a key is not cached.
var ErrCacheMiss = errors.New("cache miss")

// Options tunes entry lifetimes.
type Options struct {
	MenuTTL   time.Duration
	KeySetTTL time.Duration
}

func (o Options) withDefaults() Options {
	if o.MenuTTL <= 0 {
		o.MenuTTL = DefaultMenuTTL
	}
	if o.KeySetTTL <= 0 {
		o.KeySetTTL = DefaultKeySetTTL
	}
	return o
}

// Cache provides Redis cache access methods.
type Cache struct {
	client *redis.Client
	opts   Options
}

// New creates a new Cache with a Redis client.
func New(ctx context.Context, redisURL string, opts Options) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return NewWithClient(client, opts), nil
}

// NewWithClient wraps an existing Redis client.
func NewWithClient(client *redis.Client, opts Options) *Cache {
	return &Cache{client: client, opts: opts.withDefaults()}
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client.
// Use sparingly - prefer adding methods to Cache.
func (c *Cache) Client() *redis.Client {
	return c.client
}
