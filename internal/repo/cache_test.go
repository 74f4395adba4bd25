package repo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/cache"
)

type stubCache struct {
	mu       sync.Mutex
	store    map[string][]byte
	ttls     map[string]time.Duration
	failGets bool
	// dropWrites accepts Set calls without storing anything.
	dropWrites bool
}

func newStubCache() *stubCache {
	return &stubCache{store: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (s *stubCache) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGets {
		return nil, errors.New("connection refused")
	}
	value, ok := s.store[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	copyValue := append([]byte(nil), value...)
	return copyValue, nil
}

func (s *stubCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dropWrites {
		return nil
	}
	s.store[key] = append([]byte(nil), value...)
	s.ttls[key] = ttl
	return nil
}

func (s *stubCache) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.store[key]; exists {
		return false, nil
	}
	s.store[key] = append([]byte(nil), value...)
	return true, nil
}

func (s *stubCache) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, key)
	return nil
}

func (s *stubCache) Close() error { return nil }
