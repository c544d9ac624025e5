package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims the window, counts it and records the request when under the limit.
// It returns {allowed, count}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window_start = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, 0, window_start)
local current = redis.call('ZCARD', key)
if current < limit then
	redis.call('ZADD', key, now, ARGV[5])
	redis.call('PEXPIRE', key, ttl)
	return {1, current + 1}
end
return {0, current}
`)

// RedisLimiter is a sliding window limiter shared by every API instance
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

// RedisLimiterConfig configures a RedisLimiter
type RedisLimiterConfig struct {
	Client *redis.Client
	Limit  int
	Window time.Duration
	Prefix string
}

// NewRedisLimiter creates a RedisLimiter
func NewRedisLimiter(config RedisLimiterConfig) (*RedisLimiter, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.Limit <= 0 {
		return nil, errors.New("limit must be greater than 0")
	}
	if config.Window <= 0 {
		return nil, errors.New("window must be greater than 0")
	}

	return &RedisLimiter{
		client: config.Client,
		limit:  config.Limit,
		window: config.Window,
		prefix: config.Prefix,
		now:    time.Now,
	}, nil
}

// Allow counts one request for key
func (r *RedisLimiter) Allow(ctx context.Context, key string) (*Decision, error) {
	now := r.now()
	// unique members keep concurrent requests in the same nanosecond apart
	member := uuid.NewString()

	res, err := slidingWindow.Run(ctx, r.client, []string{r.prefix + key},
		now.UnixNano(),
		now.Add(-r.window).UnixNano(),
		r.limit,
		r.window.Milliseconds(),
		member,
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit %s: %w", key, err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("rate limit %s: unexpected script result %v", key, res)
	}

	return &Decision{
		Limit:     r.limit,
		Remaining: max(r.limit-int(res[1]), 0),
		ResetAt:   now.Add(r.window),
		Allowed:   res[0] == 1,
	}, nil
}

// Reset forgets every request counted for key
func (r *RedisLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// Close closes the client
func (r *RedisLimiter) Close() error {
	return r.client.Close()
}
