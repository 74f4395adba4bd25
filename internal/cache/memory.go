package cache

import (
	"context"
	"path"
	"sort"
	"sync"
	"time"
)

// MemoryProvider is an in-process Provider with per-key TTLs, used by the CLI and
// whenever no Redis address is configured.
type MemoryProvider struct {
	data map[string]item
	mu   sync.RWMutex
	now  func() time.Time
}

type item struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryProvider creates an empty in-memory cache.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{data: make(map[string]item), now: time.Now}
}

// Get retrieves a cached item if present and not expired.
func (c *MemoryProvider) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	it, ok := c.data[key]
	c.mu.RUnlock()
	if !ok || c.expired(it) {
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), it.value...), nil
}

// Set stores a value with optional TTL.
func (c *MemoryProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = c.newItem(value, ttl)
	return nil
}

// SetNX stores the value only when the key is absent or expired.
func (c *MemoryProvider) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if it, ok := c.data[key]; ok && !c.expired(it) {
		return false, nil
	}
	c.data[key] = c.newItem(value, ttl)
	return true, nil
}

// Del removes an entry.
func (c *MemoryProvider) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// Keys returns live keys matching a glob pattern, sorted.
func (c *MemoryProvider) Keys(_ context.Context, pattern string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0)
	for k, it := range c.data {
		if c.expired(it) {
			continue
		}
		if ok, err := path.Match(pattern, k); err != nil {
			return nil, err
		} else if ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op.
func (c *MemoryProvider) Close() error { return nil }

func (c *MemoryProvider) newItem(value []byte, ttl time.Duration) item {
	var expires time.Time
	if ttl > 0 {
		expires = c.now().Add(ttl)
	}
	return item{value: append([]byte(nil), value...), expiresAt: expires}
}

func (c *MemoryProvider) expired(it item) bool {
	return !it.expiresAt.IsZero() && !c.now().Before(it.expiresAt)
}
