// Package cache provides the Redis-backed session store and login rate limiter.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key this package writes.
const DefaultKeyPrefix = "passvault:"

// Options tunes the client. Zero values select defaults.
type Options struct {
	PoolSize  int
	KeyPrefix string
}

// Cache wraps a Redis client and the key namespace shared by the
// session store and the rate limiter.
type Cache struct {
	client *redis.Client
	prefix string
}

// New connects to redisURL and verifies the connection.
func New(ctx context.Context, redisURL string, opts Options) (*Cache, error) {
	ro, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if opts.PoolSize > 0 {
		ro.PoolSize = opts.PoolSize
	}
	ro.MinIdleConns = min(2, ro.PoolSize)
	ro.PoolTimeout = 4 * time.Second
	ro.ConnMaxIdleTime = 5 * time.Minute

	c := newCache(redis.NewClient(ro), opts.KeyPrefix)
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return c, nil
}

func newCache(client *redis.Client, prefix string) *Cache {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Cache{client: client, prefix: prefix}
}

// key joins the namespace, a kind prefix such as "session:" and an id.
func (c *Cache) key(kind, id string) string {
	return c.prefix + kind + id
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client. Tests use it to flush and
// inspect keys.
func (c *Cache) Client() *redis.Client {
	return c.client
}
