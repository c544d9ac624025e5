package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket is an in-memory limiter. Each key holds up to Capacity tokens
// and regains Capacity tokens per RefillRate.
type TokenBucket struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	capacity   int
	refillRate time.Duration
	now        func() time.Time
	cleanup    *time.Ticker
	done       chan struct{}
	closeOnce  sync.Once
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// TokenBucketConfig configures a TokenBucket
type TokenBucketConfig struct {
	Capacity   int
	RefillRate time.Duration
	// CleanupInterval is how often idle buckets are dropped; zero disables it
	CleanupInterval time.Duration
}

// DefaultTokenBucketConfig allows 100 requests per minute
func DefaultTokenBucketConfig() TokenBucketConfig {
	return TokenBucketConfig{
		Capacity:        100,
		RefillRate:      time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// NewTokenBucket creates a TokenBucket
func NewTokenBucket(config TokenBucketConfig) *TokenBucket {
	tb := &TokenBucket{
		buckets:    make(map[string]*bucket),
		capacity:   config.Capacity,
		refillRate: config.RefillRate,
		now:        time.Now,
		done:       make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		tb.cleanup = time.NewTicker(config.CleanupInterval)
		go tb.cleanupLoop()
	}

	return tb
}

// Allow takes one token from key's bucket
func (tb *TokenBucket) Allow(_ context.Context, key string) (*Decision, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()

	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: tb.capacity, lastRefill: now}
		tb.buckets[key] = b
	}

	if elapsed := now.Sub(b.lastRefill); elapsed > 0 {
		refill := int(float64(tb.capacity) * elapsed.Seconds() / tb.refillRate.Seconds())
		if refill > 0 {
			b.tokens = min(tb.capacity, b.tokens+refill)
			b.lastRefill = now
		}
	}

	d := &Decision{
		Limit:   tb.capacity,
		ResetAt: b.lastRefill.Add(tb.refillRate / time.Duration(max(tb.capacity, 1))),
	}
	if b.tokens > 0 {
		b.tokens--
		d.Allowed = true
	}
	d.Remaining = b.tokens
	return d, nil
}

func (tb *TokenBucket) cleanupLoop() {
	for {
		select {
		case <-tb.cleanup.C:
			tb.sweep()
		case <-tb.done:
			return
		}
	}
}

// sweep drops buckets idle for two refill periods; they would be full anyway
func (tb *TokenBucket) sweep() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	for key, b := range tb.buckets {
		if now.Sub(b.lastRefill) > 2*tb.refillRate {
			delete(tb.buckets, key)
		}
	}
}

// Close stops the sweeper
func (tb *TokenBucket) Close() error {
	tb.closeOnce.Do(func() {
		close(tb.done)
		if tb.cleanup != nil {
			tb.cleanup.Stop()
		}
	})
	return nil
}
