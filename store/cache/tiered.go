// Package cache implements the read-through cache in front of the message
// log.
package cache

import (
	"context"
	"time"
)

// TieredCache implements a three-tier caching strategy:
//   - L1: in-memory LRU (fast, per process, default)
//   - L2: Redis (shared, optional)
//   - L3: the database, reached through a fetcher
//
// Values are opaque bytes; callers own the encoding.
type TieredCache struct {
	l1    *Memory
	l2    RedisCacheInterface
	l2TTL time.Duration
}

// L3Fetcher loads a value from the database.
type L3Fetcher func(ctx context.Context, key string) ([]byte, error)

// TieredCacheConfig holds the configuration for the tiered cache.
type TieredCacheConfig struct {
	L1MaxItems int
	L1TTL      time.Duration
	L2TTL      time.Duration
	// L2 is nil when Redis is not configured.
	L2 RedisCacheInterface
}

// DefaultTieredConfig returns the default configuration: L1 only.
func DefaultTieredConfig() *TieredCacheConfig {
	return &TieredCacheConfig{
		L1MaxItems: 1000,
		L1TTL:      30 * time.Minute,
		L2TTL:      30 * time.Minute,
	}
}

// NewTieredCache creates a new three-tier cache.
func NewTieredCache(config *TieredCacheConfig) *TieredCache {
	if config == nil {
		config = DefaultTieredConfig()
	}
	return &TieredCache{
		l1:    NewMemory(config.L1MaxItems, config.L1TTL),
		l2:    config.L2,
		l2TTL: config.L2TTL,
	}
}

// Get checks L1, then L2, then L3. Hits in a lower tier are promoted.
func (t *TieredCache) Get(ctx context.Context, key string, fetcher L3Fetcher) ([]byte, error) {
	if value, ok := t.l1.Get(key); ok {
		return value, nil
	}

	if t.l2 != nil {
		if value, ok := t.l2.Get(ctx, key); ok {
			t.l1.Set(key, value)
			return value, nil
		}
	}

	value, err := fetcher(ctx, key)
	if err != nil {
		return nil, err
	}
	t.Set(ctx, key, value)
	return value, nil
}

// Set stores a value in L1 and L2.
func (t *TieredCache) Set(ctx context.Context, key string, value []byte) {
	t.l1.Set(key, value)
	if t.l2 != nil {
		t.l2.Set(ctx, key, value, t.l2TTL)
	}
}

// Delete removes a value from L1 and L2.
func (t *TieredCache) Delete(ctx context.Context, key string) {
	t.l1.Delete(key)
	if t.l2 != nil {
		t.l2.Delete(ctx, key)
	}
}

// Stats returns cache statistics.
func (t *TieredCache) Stats() map[string]any {
	return map[string]any{
		"l1_size":    t.l1.Len(),
		"l2_enabled": t.l2 != nil,
	}
}

// Close closes the L2 connection.
func (t *TieredCache) Close() error {
	if t.l2 != nil {
		return t.l2.Close()
	}
	return nil
}
