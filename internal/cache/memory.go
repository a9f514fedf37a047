package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	val     []byte
	expires time.Time
}

// MemoryCache is the process-local QueryCache used when no Redis address is
// configured.
type MemoryCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]entry
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &MemoryCache{ttl: ttl, now: time.Now, items: make(map[string]entry)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if !m.now().Before(e.expires) {
		delete(m.items, key)
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), e.val...), nil
}

func (m *MemoryCache) Set(_ context.Context, key string, val []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = entry{val: append([]byte(nil), val...), expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

// Purge drops expired entries and returns how many were removed.
func (m *MemoryCache) Purge() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for k, e := range m.items {
		if !now.Before(e.expires) {
			delete(m.items, k)
			n++
		}
	}
	return n
}
