package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/moodlens/moodlens/internal/common"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// Memory is an in-process Cache used in tests and cache-less deployments.
// Expired entries are dropped lazily on access.
type Memory struct {
	mu    sync.Mutex
	items map[string]memoryEntry

	// now is a test seam for window-rollover tests.
	now func() time.Time
}

// NewMemory constructs an empty in-memory cache.
func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock is NewMemory with an injected clock, so tests in other
// packages can drive TTL expiry and window rollover.
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{items: make(map[string]memoryEntry), now: now}
}

func (m *Memory) get(key string) (memoryEntry, bool) {
	e, ok := m.items[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.items, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.get(key)
	if !ok {
		return nil, common.ErrorNotFound
	}
	return e.value, nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.items[key] = e
	return nil
}

func (m *Memory) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	e, ok := m.get(key)
	if ok {
		count, _ = strconv.ParseInt(string(e.value), 10, 64)
	}
	count++

	next := memoryEntry{value: []byte(strconv.FormatInt(count, 10)), expiresAt: e.expiresAt}
	if !ok {
		next.expiresAt = m.now().Add(window)
	}
	m.items[key] = next
	return count, nil
}

func (m *Memory) TTL(ctx context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.get(key)
	if !ok || e.expiresAt.IsZero() {
		return 0, nil
	}
	return e.expiresAt.Sub(m.now()), nil
}
