package cache

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/sw33tLie/partscope/pkg/component"
)

// Memory is an in-process Store. Expired entries are dropped when read;
// there is no background sweeper.
type Memory struct {
	mu         sync.RWMutex
	items      map[string]Entry
	maxEntries int

	Now func() time.Time
}

// NewMemory returns an empty store. maxEntries <= 0 means unbounded; when
// full, the oldest entry is evicted.
func NewMemory(maxEntries int) *Memory {
	return &Memory{
		items:      make(map[string]Entry),
		maxEntries: maxEntries,
		Now:        time.Now,
	}
}

func (m *Memory) Get(ctx context.Context, key string) Result {
	m.mu.RLock()
	e, ok := m.items[key]
	m.mu.RUnlock()

	if !ok {
		return miss()
	}
	if e.Expired(m.Now()) {
		m.mu.Lock()
		// Re-check: a concurrent Put may have refreshed it.
		if cur, ok := m.items[key]; ok && cur.CreatedAt.Equal(e.CreatedAt) {
			delete(m.items, key)
		}
		m.mu.Unlock()
		return miss()
	}
	return hit(e)
}

func (m *Memory) Put(ctx context.Context, key string, components []component.Component, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[key]; !exists && m.maxEntries > 0 && len(m.items) >= m.maxEntries {
		m.evictOldest()
	}

	stored := make([]component.Component, len(components))
	copy(stored, components)
	m.items[key] = Entry{Key: key, Components: stored, CreatedAt: m.Now(), TTL: normalizeTTL(ttl)}
	return nil
}

func (m *Memory) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for k, e := range m.items {
		if oldestKey == "" || e.CreatedAt.Before(oldest) {
			oldestKey, oldest = k, e.CreatedAt
		}
	}
	delete(m.items, oldestKey)
}

func (m *Memory) Invalidate(ctx context.Context, pattern string) (int, error) {
	glob := globPattern(pattern)
	if _, err := path.Match(glob, ""); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k := range m.items {
		if ok, _ := path.Match(glob, k); ok {
			delete(m.items, k)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *Memory) Close() error { return nil }
