// Package cache stores rendered documents of immutable collections.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Cache defines the interface for all cache backends
type Cache interface {
	// Get retrieves a value from the cache
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with a TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from the cache
	Clear(ctx context.Context) error

	// Exists checks if a key exists in the cache
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases the backend
	Close() error
}

// Config holds common configuration for cache backends
type Config struct {
	// DefaultTTL applies when Set is called with a zero TTL
	DefaultTTL time.Duration
	// Prefix is prepended to all cache keys
	Prefix string
}

// DefaultConfig returns a default cache configuration
func DefaultConfig() Config {
	return Config{
		DefaultTTL: 5 * time.Minute,
		Prefix:     "ledgerapi:",
	}
}

// MissError is returned when a key is not found in the cache
type MissError struct {
	Key string
}

func (e MissError) Error() string {
	return "cache miss: " + e.Key
}

// IsMiss checks if an error is a cache miss
func IsMiss(err error) bool {
	var miss MissError
	return errors.As(err, &miss)
}

// Drivers
const (
	DriverNone   = "none"
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Options selects and configures a backend
type Options struct {
	Driver        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// New builds the configured backend. It returns a nil Cache for DriverNone.
func New(ctx context.Context, opts Options) (Cache, error) {
	cfg := DefaultConfig()
	if opts.TTL > 0 {
		cfg.DefaultTTL = opts.TTL
	}

	switch opts.Driver {
	case "", DriverNone:
		return nil, nil
	case DriverMemory:
		return NewMemoryCacheWithConfig(cfg), nil
	case DriverRedis:
		rc, err := NewRedisCacheWithConfig(ctx, RedisConfig{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			Config:   cfg,
		})
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		return nil, fmt.Errorf("unknown cache driver: %s", opts.Driver)
	}
}
