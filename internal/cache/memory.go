package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MemoryCounters implements Counters with in-process storage. Suitable for
// single-instance deployments and tests; multi-instance deployments need
// the Redis backend so lockouts are shared.
type MemoryCounters struct {
	mu   sync.Mutex
	data map[string]*counterItem
	done chan struct{}
}

type counterItem struct {
	value      []byte
	expiration time.Time
}

// NewMemoryCounters creates an in-memory counter store
func NewMemoryCounters() *MemoryCounters {
	mc := &MemoryCounters{
		data: make(map[string]*counterItem),
		done: make(chan struct{}),
	}

	// Start cleanup goroutine
	go mc.cleanup()

	return mc
}

// Get retrieves a value
func (m *MemoryCounters) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, exists := m.data[key]
	if !exists || time.Now().After(item.expiration) {
		return nil, ErrCacheMiss
	}

	return item.value, nil
}

// Set stores a value with a TTL
func (m *MemoryCounters) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = &counterItem{
		value:      value,
		expiration: time.Now().Add(ttl),
	}

	return nil
}

// Delete removes a key
func (m *MemoryCounters) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// Increment atomically bumps a counter under the store mutex. The TTL is
// set when the counter is created and left alone on subsequent bumps,
// matching the sliding-window semantics of the Redis backend.
func (m *MemoryCounters) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	item, exists := m.data[key]
	if !exists || now.After(item.expiration) {
		m.data[key] = &counterItem{
			value:      []byte("1"),
			expiration: now.Add(ttl),
		}
		return 1, nil
	}

	n, err := strconv.ParseInt(string(item.value), 10, 64)
	if err != nil {
		n = 0
	}
	n++
	item.value = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

// TTL returns the remaining lifetime of a key
func (m *MemoryCounters) TTL(ctx context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, exists := m.data[key]
	if !exists {
		return 0, nil
	}
	remaining := time.Until(item.expiration)
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// cleanup periodically removes expired items
func (m *MemoryCounters) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			now := time.Now()
			for key, item := range m.data {
				if now.After(item.expiration) {
					delete(m.data, key)
				}
			}
			m.mu.Unlock()
		case <-m.done:
			return
		}
	}
}

// Close stops the cleanup goroutine
func (m *MemoryCounters) Close() error {
	close(m.done)
	return nil
}
