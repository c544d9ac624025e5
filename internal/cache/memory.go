package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process cache with TTL support
type MemoryCache struct {
	data   sync.Map
	config Config
	cancel context.CancelFunc
}

type entry struct {
	value      []byte
	expiration time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiration.IsZero() && now.After(e.expiration)
}

// NewMemoryCache creates an in-memory cache with the default configuration
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithConfig(DefaultConfig())
}

// NewMemoryCacheWithConfig creates an in-memory cache and starts its sweeper
func NewMemoryCacheWithConfig(config Config) *MemoryCache {
	ctx, cancel := context.WithCancel(context.Background())
	mc := &MemoryCache{
		config: config,
		cancel: cancel,
	}

	go mc.sweep(ctx, time.Minute)

	return mc
}

func (m *MemoryCache) load(key string) (entry, bool) {
	fullKey := m.config.Prefix + key

	value, ok := m.data.Load(fullKey)
	if !ok {
		return entry{}, false
	}

	e := value.(entry)
	if e.expired(time.Now()) {
		m.data.Delete(fullKey)
		return entry{}, false
	}
	return e, true
}

// Get retrieves a value from the cache
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e, ok := m.load(key)
	if !ok {
		return nil, MissError{Key: key}
	}
	return e.value, nil
}

// Set stores a value. A zero TTL uses the default, a negative one never expires.
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}

	e := entry{value: value}
	if ttl > 0 {
		e.expiration = time.Now().Add(ttl)
	}

	m.data.Store(m.config.Prefix+key, e)
	return nil
}

// Delete removes a value from the cache
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.data.Delete(m.config.Prefix + key)
	return nil
}

// Clear removes all values from the cache
func (m *MemoryCache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.data.Range(func(key, _ any) bool {
		m.data.Delete(key)
		return true
	})
	return nil
}

// Exists checks if a live key exists in the cache
func (m *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, ok := m.load(key)
	return ok, nil
}

// Close stops the sweeper
func (m *MemoryCache) Close() error {
	if m.cancel != nil {
		m.cancel()
	}
	return nil
}

// sweep periodically removes expired entries
func (m *MemoryCache) sweep(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.data.Range(func(key, value any) bool {
				if value.(entry).expired(now) {
					m.data.Delete(key)
				}
				return true
			})
		}
	}
}
