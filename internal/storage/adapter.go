package storage

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Adapter wraps a Backend with JSON encoding and failure-tolerant reads and
// writes.
type Adapter struct {
	backend Backend
	logger  *slog.Logger
}

// NewAdapter creates an Adapter. A nil logger falls back to slog.Default().
func NewAdapter(backend Backend, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{backend: backend, logger: logger}
}

// Backend returns the underlying raw store.
func (a *Adapter) Backend() Backend {
	return a.backend
}

// Get decodes the value stored under key into T. A missing key, a stored null,
// a decode failure or a backend error all yield def.
func Get[T any](ctx context.Context, a *Adapter, key string, def T) T {
	raw, ok := a.GetRaw(ctx, key)
	if !ok {
		return def
	}
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		a.logger.Warn("storage: decode failed", "key", key, "error", err)
		return def
	}
	return out
}

// Set encodes value and stores it under key. It reports whether the write
// succeeded.
func Set[T any](ctx context.Context, a *Adapter, key string, value T) bool {
	data, err := json.Marshal(value)
	if err != nil {
		a.logger.Error("storage: encode failed", "key", key, "error", err)
		return false
	}
	return a.SetRaw(ctx, key, string(data))
}

// GetRaw returns the stored JSON text for key. ok is false when the key is
// missing, holds null, or the backend failed.
func (a *Adapter) GetRaw(ctx context.Context, key string) (string, bool) {
	raw, ok, err := a.backend.GetItem(ctx, key)
	if err != nil {
		a.logger.Warn("storage: read failed", "key", key, "error", err)
		return "", false
	}
	if !ok || raw == "" || raw == "null" {
		return "", false
	}
	return raw, true
}

// SetRaw stores already-encoded JSON text under key.
func (a *Adapter) SetRaw(ctx context.Context, key, raw string) bool {
	if !json.Valid([]byte(raw)) {
		a.logger.Error("storage: refusing invalid JSON", "key", key)
		return false
	}
	if err := a.backend.SetItem(ctx, key, raw); err != nil {
		a.logger.Error("storage: write failed", "key", key, "bytes", len(raw), "error", err)
		return false
	}
	return true
}

// Remove deletes key and reports whether the backend accepted the removal.
func (a *Adapter) Remove(ctx context.Context, key string) bool {
	if err := a.backend.RemoveItem(ctx, key); err != nil {
		a.logger.Error("storage: remove failed", "key", key, "error", err)
		return false
	}
	return true
}

// Clear removes every given key and returns how many removals succeeded.
func (a *Adapter) Clear(ctx context.Context, keys ...string) int {
	removed := 0
	for _, key := range keys {
		if a.Remove(ctx, key) {
			removed++
		}
	}
	return removed
}

// Keys lists stored keys when the backend supports enumeration.
func (a *Adapter) Keys(ctx context.Context) ([]string, bool) {
	lister, ok := a.backend.(KeyLister)
	if !ok {
		return nil, false
	}
	keys, err := lister.Keys(ctx)
	if err != nil {
		a.logger.Warn("storage: list keys failed", "error", err)
		return nil, false
	}
	return keys, true
}
