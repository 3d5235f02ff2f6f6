package cache

import (
	"context"
	"sync"
	"time"
)

const defaultCleanupInterval = time.Minute

type memoryEntry[V any] struct {
	value     V
	expiresAt time.Time // zero = never expires
}

func (e memoryEntry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory is a process-local cache with TTL expiration. Expired entries
// are dropped lazily on Get and swept by a background janitor.
type Memory[V any] struct {
	mu         sync.Mutex
	items      map[string]memoryEntry[V]
	defaultTTL time.Duration
	done       chan struct{}
	closed     bool
}

// NewMemory creates an in-memory cache with the given default TTL.
func NewMemory[V any](defaultTTL time.Duration) *Memory[V] {
	m := &Memory[V]{
		items:      make(map[string]memoryEntry[V]),
		defaultTTL: defaultTTL,
		done:       make(chan struct{}),
	}
	go m.janitor()
	return m
}

// Get implements Cache.
func (m *Memory[V]) Get(_ context.Context, key string) (V, error) {
	var zero V

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return zero, ErrClosed
	}

	e, ok := m.items[key]
	if !ok {
		return zero, ErrNotFound
	}
	if e.expired(time.Now()) {
		delete(m.items, key)
		return zero, ErrNotFound
	}

	return e.value, nil
}

// Set implements Cache.
func (m *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if ttl == 0 {
		ttl = m.defaultTTL
	}

	e := memoryEntry[V]{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	m.items[key] = e
	return nil
}

// Delete implements Cache.
func (m *Memory[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	delete(m.items, key)
	return nil
}

// Close stops the janitor and drops all entries.
func (m *Memory[V]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	m.items = nil
	return nil
}

func (m *Memory[V]) janitor() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for k, e := range m.items {
				if e.expired(now) {
					delete(m.items, k)
				}
			}
			m.mu.Unlock()
		}
	}
}
