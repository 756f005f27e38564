// Package storage provides the synchronous key-value layer every widget
// persists through.
//
// A Backend stores opaque strings under string keys. The Adapter on top of it
// speaks JSON and never fails loudly: reads fall back to a caller-supplied
// default and writes report success as a bool. Binding ties one in-memory
// value to one key.
//
// There is no cross-key transaction and no ownership enforcement. Writes are
// last-write-wins.
package storage

import (
	"context"
	"errors"
)

// ErrQuotaExceeded is returned by backends when a value is larger than the
// configured per-value budget.
var ErrQuotaExceeded = errors.New("storage: quota exceeded")

// DefaultMaxValueBytes mirrors the budget browsers give local storage.
const DefaultMaxValueBytes = 5 << 20

// Backend is the raw key-value store.
type Backend interface {
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// KeyLister is implemented by backends that can enumerate their keys cheaply.
type KeyLister interface {
	Keys(ctx context.Context) ([]string, error)
}
