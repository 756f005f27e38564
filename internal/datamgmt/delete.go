package datamgmt

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pbaille/sheet/internal/domain"
	"github.com/pbaille/sheet/internal/storage"
)

// DeleteAll removes every key owned by the sheet: the fixed sections, every
// skill tree (indexed or found by key) and the index itself. Keys outside the sheet's namespace
// are left alone. When restoreDefaults is set, default settings are written
// afterwards.
func (s *Service) DeleteAll(ctx context.Context, restoreDefaults bool) (int, error) {
	start := time.Now()
	removed, err := s.deleteAll(ctx, restoreDefaults)
	observe("delete", time.Since(start).Seconds(), err)
	if err != nil {
		s.logger.Error("delete failed", "removed", removed, "error", err)
		return removed, fmt.Errorf("%w: %w", ErrDeleteFailed, err)
	}
	s.logger.Info("all data deleted", "removed", removed, "restoreDefaults", restoreDefaults)
	return removed, nil
}

func (s *Service) deleteAll(ctx context.Context, restoreDefaults bool) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	keys := s.ownedKeys(ctx)
	removed := s.adapter.Clear(ctx, keys...)
	if removed < len(keys) {
		return removed, fmt.Errorf("%d of %d keys could not be removed", len(keys)-removed, len(keys))
	}
	if restoreDefaults && !storage.Set(ctx, s.adapter, domain.KeySettings, domain.DefaultSettings()) {
		return removed, fmt.Errorf("restore default settings")
	}
	return removed, nil
}

// DeleteKeys removes the given keys and reports how many were removed.
func (s *Service) DeleteKeys(ctx context.Context, keys ...string) (int, error) {
	removed := s.adapter.Clear(ctx, keys...)
	if removed < len(keys) {
		return removed, fmt.Errorf("%w: %d of %d keys could not be removed", ErrDeleteFailed, len(keys)-removed, len(keys))
	}
	return removed, nil
}

// ownedKeys lists the keys DeleteAll removes: the fixed sections, the index
// and every tree Export would include, indexed or not.
func (s *Service) ownedKeys(ctx context.Context) []string {
	set := make(map[string]struct{})
	for _, key := range domain.FixedKeys() {
		set[key] = struct{}{}
	}
	for _, key := range s.registry.Keys(ctx) {
		set[key] = struct{}{}
	}
	set[domain.KeySkillTreeIndex] = struct{}{}

	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
