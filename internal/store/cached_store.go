package store

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type CacheConfig struct {
	MaxEntries int
	TTL        time.Duration
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{MaxEntries: 256, TTL: 10 * time.Minute}
}

type MetricsSnapshot struct {
	Hits         uint64
	Misses       uint64
	OriginReads  uint64
	OriginWrites uint64
}

// CachedStore is a read-through cache in front of an origin store. List is
// always answered by the origin.
type CachedStore struct {
	origin Store
	cache  *expirable.LRU[string, []byte]

	hits, misses, reads, writes atomic.Uint64
}

func NewCachedStore(origin Store, cfg CacheConfig) *CachedStore {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultCacheConfig().MaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheConfig().TTL
	}
	return &CachedStore{
		origin: origin,
		cache:  expirable.NewLRU[string, []byte](cfg.MaxEntries, nil, cfg.TTL),
	}
}

func (s *CachedStore) Put(ctx context.Context, hash string, content []byte) error {
	key, err := normalizeKey(hash)
	if err != nil {
		return err
	}
	s.writes.Add(1)
	if err := s.origin.Put(ctx, key, content); err != nil {
		s.cache.Remove(key)
		return err
	}
	s.cache.Add(key, append([]byte(nil), content...))
	return nil
}

func (s *CachedStore) Get(ctx context.Context, hash string) ([]byte, error) {
	key, err := normalizeKey(hash)
	if err != nil {
		return nil, err
	}
	if v, ok := s.cache.Get(key); ok {
		s.hits.Add(1)
		return append([]byte(nil), v...), nil
	}
	s.misses.Add(1)
	s.reads.Add(1)
	data, err := s.origin.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, append([]byte(nil), data...))
	return data, nil
}

func (s *CachedStore) List(ctx context.Context) ([]string, error) {
	return s.origin.List(ctx)
}

func (s *CachedStore) Metrics() MetricsSnapshot {
	return MetricsSnapshot{
		Hits:         s.hits.Load(),
		Misses:       s.misses.Load(),
		OriginReads:  s.reads.Load(),
		OriginWrites: s.writes.Load(),
	}
}
