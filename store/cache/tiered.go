package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pkg/errors"
)

// TieredCache layers the memory cache (L1) over an optional Redis cache (L2).
// Values are stored JSON-encoded in both tiers so readers never share
// mutable state with the cache.
//
// Without a Redis address only L1 is used. Multi-instance deployments must
// configure Redis, otherwise a write on one instance leaves stale L1 entries
// on the others until their TTL expires.
type TieredCache struct {
	l1        *Cache
	l2        RedisCacheInterface
	l1Enabled bool
	l2Enabled bool
	l2TTL     time.Duration
}

// TieredCacheConfig holds the configuration for the tiered cache.
type TieredCacheConfig struct {
	L1MaxItems int
	L1TTL      time.Duration
	L2TTL      time.Duration
	EnableL1   bool
}

// DefaultTieredConfig returns the default tiered cache configuration.
func DefaultTieredConfig() *TieredCacheConfig {
	return &TieredCacheConfig{
		L1MaxItems: 1000,
		L1TTL:      5 * time.Minute,
		L2TTL:      10 * time.Minute,
		EnableL1:   true,
	}
}

// NewTieredCache creates a tiered cache. A nil l2 disables the Redis tier.
func NewTieredCache(config *TieredCacheConfig, l2 RedisCacheInterface) *TieredCache {
	if config == nil {
		config = DefaultTieredConfig()
	}

	tc := &TieredCache{
		l1Enabled: config.EnableL1,
		l2TTL:     config.L2TTL,
	}
	if config.EnableL1 {
		tc.l1 = New(Config{
			DefaultTTL:      config.L1TTL,
			CleanupInterval: time.Minute,
			MaxItems:        config.L1MaxItems,
		})
	}
	if l2 != nil {
		tc.l2 = l2
		tc.l2Enabled = true
	}
	return tc
}

// Get decodes the cached value for key into dst, checking L1 then L2.
func (t *TieredCache) Get(ctx context.Context, key string, dst any) bool {
	if t.l1Enabled {
		if value, found := t.l1.Get(ctx, key); found {
			if data, ok := value.([]byte); ok && decode(key, data, dst) {
				return true
			}
		}
	}

	if t.l2Enabled {
		if data, found := t.l2.Get(ctx, key); found && decode(key, data, dst) {
			if t.l1Enabled {
				t.l1.Set(ctx, key, data)
			}
			return true
		}
	}
	return false
}

// Set stores a value in both tiers.
func (t *TieredCache) Set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		slog.Warn("failed to marshal cache value", "key", key, "error", err)
		return
	}
	if t.l1Enabled {
		t.l1.Set(ctx, key, data)
	}
	if t.l2Enabled {
		t.l2.SetWithTTL(ctx, key, data, t.l2TTL)
	}
}

// Delete removes a value from both tiers.
func (t *TieredCache) Delete(ctx context.Context, key string) {
	if t.l1Enabled {
		t.l1.Delete(ctx, key)
	}
	if t.l2Enabled {
		t.l2.Delete(ctx, key)
	}
}

// Clear clears both tiers.
func (t *TieredCache) Clear(ctx context.Context) {
	if t.l1Enabled {
		t.l1.Clear(ctx)
	}
	if t.l2Enabled {
		t.l2.Clear(ctx)
	}
}

// Stats returns cache statistics.
func (t *TieredCache) Stats() map[string]any {
	stats := map[string]any{
		"l1_enabled": t.l1Enabled,
		"l2_enabled": t.l2Enabled,
	}
	if t.l1Enabled {
		stats["l1_size"] = t.l1.Size()
	}
	return stats
}

// Close closes both tiers.
func (t *TieredCache) Close() error {
	var errs []error
	if t.l2 != nil {
		if err := t.l2.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if t.l1 != nil {
		if err := t.l1.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Errorf("multiple errors: %v", errs)
	}
	return nil
}

func decode(key string, data []byte, dst any) bool {
	if err := json.Unmarshal(data, dst); err != nil {
		slog.Warn("failed to unmarshal cache value", "key", key, "error", err)
		return false
	}
	return true
}
