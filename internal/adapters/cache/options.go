package cache

import "time"

// config collects settings shared by all cache value types.
type config struct {
	ttl  time.Duration
	now  Clock
	name string
}

// Option applies a configuration option to a cache.
type Option func(*config)

// WithTTL sets how long entries stay fresh. Zero means no entry is ever
// fresh and every read goes through the loader.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		if ttl >= 0 {
			c.ttl = ttl
		}
	}
}

// WithClock sets the time source, used by tests to control expiry.
func WithClock(now Clock) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WithName labels the cache in metrics.
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}
