package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memEntry struct {
	value  []byte
	hash   map[string]string
	expiry time.Time
}

// MemoryStore is an in-process Store used for local runs without Redis and
// in tests. Now can be replaced to drive expiry deterministically.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]*memEntry
	Now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]*memEntry{}, Now: time.Now}
}

func (m *MemoryStore) live(key string) *memEntry {
	e, ok := m.data[key]
	if !ok {
		return nil
	}
	if !e.expiry.IsZero() && !m.Now().Before(e.expiry) {
		delete(m.data, key)
		return nil
	}
	return e
}

func (m *MemoryStore) expiryFor(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.Now().Add(ttl)
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(key)
	if e == nil || e.value == nil {
		return nil, ErrMiss
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = &memEntry{value: v, expiry: m.expiryFor(ttl)}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *MemoryStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) HSetExpire(ctx context.Context, key, field, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(key)
	if e == nil || e.hash == nil {
		e = &memEntry{hash: map[string]string{}}
		m.data[key] = e
	}
	e.hash[field] = value
	e.expiry = m.expiryFor(ttl)
	return nil
}

func (m *MemoryStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]string{}
	e := m.live(key)
	if e == nil {
		return out, nil
	}
	for k, v := range e.hash {
		out[k] = v
	}
	return out, nil
}

// Expire forces key to lapse immediately.
func (m *MemoryStore) Expire(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }
func (m *MemoryStore) Close() error                   { return nil }
