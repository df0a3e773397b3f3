// Package cache holds the Redis-backed join-link cache and the shared IP
// rate limiter.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options configures the Redis pool and the join cache lifetimes. Zero
// values fall back to the defaults below.
type Options struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	PoolTimeout  time.Duration
	JoinTTL      time.Duration
	NegativeTTL  time.Duration
}

const (
	defaultPoolSize     = 10
	defaultMinIdleConns = 2
	defaultPoolTimeout  = 4 * time.Second
	connMaxIdleTime     = 5 * time.Minute
)

func (o Options) withDefaults() Options {
	if o.PoolSize <= 0 {
		o.PoolSize = defaultPoolSize
	}
	if o.MinIdleConns <= 0 {
		o.MinIdleConns = defaultMinIdleConns
	}
	o.MinIdleConns = min(o.MinIdleConns, o.PoolSize)
	if o.PoolTimeout <= 0 {
		o.PoolTimeout = defaultPoolTimeout
	}
	if o.JoinTTL <= 0 {
		o.JoinTTL = DefaultMeetingTTL
	}
	if o.NegativeTTL <= 0 {
		o.NegativeTTL = NegativeCacheTTL
	}
	return o
}

// Cache wraps the Redis client used for join lookups and rate limiting.
type Cache struct {
	client      *redis.Client
	joinTTL     time.Duration
	negativeTTL time.Duration
}

// New connects to Redis and verifies the connection with a ping.
func New(ctx context.Context, opts Options) (*Cache, error) {
	opts = opts.withDefaults()

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpts.PoolSize = opts.PoolSize
	redisOpts.MinIdleConns = opts.MinIdleConns
	redisOpts.PoolTimeout = opts.PoolTimeout
	redisOpts.ConnMaxIdleTime = connMaxIdleTime

	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Cache{
		client:      client,
		joinTTL:     opts.JoinTTL,
		negativeTTL: opts.NegativeTTL,
	}, nil
}

// Ping reports Redis reachability for readiness checks.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client exposes the raw client to integration test helpers.
func (c *Cache) Client() *redis.Client {
	return c.client
}
