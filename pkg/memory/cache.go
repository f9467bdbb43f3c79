package memory

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// CacheStore is an in-process Store for single-node deployments and local
// development. Reads do not extend expiry.
type CacheStore struct {
	cache *ttlcache.Cache[string, []byte]
}

func NewCacheStore() *CacheStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, []byte](DefaultTTL),
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)
	go cache.Start()
	return &CacheStore{cache: cache}
}

func (s *CacheStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	item := s.cache.Get(key)
	if item == nil || item.IsExpired() {
		return nil, false, nil
	}
	return item.Value(), true, nil
}

func (s *CacheStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.cache.Set(key, value, ttl)
	return nil
}

func (s *CacheStore) Close() error {
	s.cache.Stop()
	return nil
}
