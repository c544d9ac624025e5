// Package ratelimit throttles API clients per participant or remote address.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether one more request for key is allowed
type Limiter interface {
	Allow(ctx context.Context, key string) (*Decision, error)
	Close() error
}

// Decision is the limiter state after counting a request
type Decision struct {
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Remaining is the number of requests left in the current window
	Remaining int
	// ResetAt is when at least one more request becomes available
	ResetAt time.Time
	// Allowed reports whether the request may proceed
	Allowed bool
}

// Limiter drivers
const (
	DriverNone   = "none"
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Options selects and configures a limiter
type Options struct {
	Driver        string
	Limit         int
	Window        time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// New builds the configured limiter. The none driver returns a nil Limiter.
func New(ctx context.Context, opts Options) (Limiter, error) {
	if opts.Driver == "" || opts.Driver == DriverNone {
		return nil, nil
	}
	if opts.Limit <= 0 {
		return nil, errors.New("rate limit must be greater than 0")
	}
	if opts.Window <= 0 {
		return nil, errors.New("rate limit window must be greater than 0")
	}

	switch opts.Driver {
	case DriverMemory:
		return NewTokenBucket(TokenBucketConfig{
			Capacity:        opts.Limit,
			RefillRate:      opts.Window,
			CleanupInterval: 5 * opts.Window,
		}), nil
	case DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		l, err := NewRedisLimiter(RedisLimiterConfig{
			Client: client,
			Limit:  opts.Limit,
			Window: opts.Window,
			Prefix: "ledgerapi:ratelimit:",
		})
		if err != nil {
			client.Close()
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown rate limit driver: %s", opts.Driver)
	}
}
