package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemorySize is the entry limit for NewMemory when size <= 0
const DefaultMemorySize = 10000

// memoryEntry is a cached value with its expiration time (zero = none)
type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// Memory is an in-process Cache with LRU eviction and per-key expiry.
// It serves local development and tests; unlike Redis it is not shared
// between processes and DeletePattern is not paged.
type Memory struct {
	mu    sync.Mutex
	cache *lru.Cache[string, memoryEntry]
	now   func() time.Time
}

var _ Cache = (*Memory)(nil)

// NewMemory creates an in-process cache holding at most size entries
func NewMemory(size int) *Memory {
	if size <= 0 {
		size = DefaultMemorySize
	}
	c, err := lru.New[string, memoryEntry](size)
	if err != nil {
		// Only fails for non-positive sizes
		c, _ = lru.New[string, memoryEntry](DefaultMemorySize)
	}
	return &Memory{cache: c, now: time.Now}
}

// WithClock replaces the time source; intended for tests
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
	return m
}

func (m *Memory) Get(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.live(key)
	if !ok {
		return "", false
	}
	return e.value, true
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.cache.Add(key, e)
	return true
}

func (m *Memory) Delete(_ context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Expired entries count as already gone
	_, ok := m.live(key)
	m.cache.Remove(key)
	return ok
}

func (m *Memory) DeletePattern(_ context.Context, pattern string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for _, key := range m.cache.Keys() {
		if !globMatch(pattern, key) {
			continue
		}
		if _, ok := m.live(key); ok {
			deleted++
		}
		m.cache.Remove(key)
	}
	return deleted
}

func (m *Memory) Exists(_ context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.live(key)
	return ok
}

func (m *Memory) TTL(_ context.Context, key string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.live(key)
	if !ok {
		return TTLMissing
	}
	if e.expiresAt.IsZero() {
		return TTLNoExpiry
	}
	// Redis reports whole seconds rounded to nearest
	return int64((e.expiresAt.Sub(m.now()) + 500*time.Millisecond) / time.Second)
}

// Len returns the number of stored entries, including expired ones not yet evicted
func (m *Memory) Len() int {
	return m.cache.Len()
}

// live returns the entry for key, evicting it if expired. Caller holds mu.
func (m *Memory) live(key string) (memoryEntry, bool) {
	e, ok := m.cache.Peek(key)
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		m.cache.Remove(key)
		return memoryEntry{}, false
	}
	// Refresh recency on read
	m.cache.Get(key)
	return e, true
}
