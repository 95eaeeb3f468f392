package store

import (
	"sync/atomic"
	"time"

	"github.com/hrygo/studyhub/internal/profile"
	"github.com/hrygo/studyhub/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// planCache holds study plans by id. Counter writes invalidate it.
	planCache *cache.TieredCache
	// planGen is bumped after every plan write. A read that saw a different
	// generation when it started does not populate planCache.
	planGen atomic.Uint64
}

// Option configures a Store.
type Option func(*options)

type options struct {
	l2 cache.RedisCacheInterface
}

// WithRedisCache backs the plan cache with a shared Redis tier.
func WithRedisCache(l2 cache.RedisCacheInterface) Option {
	return func(o *options) {
		o.l2 = l2
	}
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile, opts ...Option) *Store {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	planCacheConfig := cache.DefaultTieredConfig()
	planCacheConfig.L1TTL = time.Minute
	planCacheConfig.L2TTL = 2 * time.Minute

	return &Store{
		driver:    driver,
		profile:   profile,
		planCache: cache.NewTieredCache(planCacheConfig, o.l2),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	s.planCache.Close()
	return s.driver.Close()
}
