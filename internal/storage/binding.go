package storage

import (
	"context"
	"sync"
)

// Binding keeps one value in memory and persists it under a fixed key on
// every change. Two bindings on the same key do not see each other's writes.
type Binding[T any] struct {
	ctx     context.Context
	adapter *Adapter
	key     string

	mu    sync.Mutex
	value T
}

// Bind loads key (falling back to initial) and returns a Binding for it.
func Bind[T any](ctx context.Context, a *Adapter, key string, initial T) *Binding[T] {
	return &Binding[T]{
		ctx:     ctx,
		adapter: a,
		key:     key,
		value:   Get(ctx, a, key, initial),
	}
}

// Key returns the bound storage key.
func (b *Binding[T]) Key() string {
	return b.key
}

// Get returns the current in-memory value.
func (b *Binding[T]) Get() T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// Set replaces the value and persists it. The in-memory value changes even if
// the write fails, matching what a widget shows the user. Writes happen in
// the order values change.
func (b *Binding[T]) Set(value T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.value = value
	return Set(b.ctx, b.adapter, b.key, value)
}

// Update applies fn to the current value and persists the result.
func (b *Binding[T]) Update(fn func(T) T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.value = fn(b.value)
	return Set(b.ctx, b.adapter, b.key, b.value)
}
