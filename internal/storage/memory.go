package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryBackend is an in-memory Backend used by tests and ephemeral sessions.
type MemoryBackend struct {
	mu            sync.RWMutex
	items         map[string]string
	maxValueBytes int
}

// NewMemoryBackend creates an empty MemoryBackend. maxValueBytes <= 0 disables
// the quota.
func NewMemoryBackend(maxValueBytes int) *MemoryBackend {
	return &MemoryBackend{items: map[string]string{}, maxValueBytes: maxValueBytes}
}

func (m *MemoryBackend) GetItem(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	value, ok := m.items[key]
	m.mu.RUnlock()
	return value, ok, nil
}

func (m *MemoryBackend) SetItem(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.maxValueBytes > 0 && len(value) > m.maxValueBytes {
		return fmt.Errorf("%w: %q is %d bytes, limit %d", ErrQuotaExceeded, key, len(value), m.maxValueBytes)
	}
	m.mu.Lock()
	m.items[key] = value
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) RemoveItem(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// Keys returns every stored key in lexical order.
func (m *MemoryBackend) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored keys.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
