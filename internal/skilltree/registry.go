// Package skilltree stores skill trees and keeps their derived bonuses current.
//
// Trees live under one key each ("skillTree-<id>"). The Registry keeps an
// explicit index of known ids so callers never need to enumerate the whole
// store to find them.
package skilltree

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/pbaille/sheet/internal/domain"
	"github.com/pbaille/sheet/internal/storage"
)

// ErrInvalidID is returned for empty or reserved tree ids.
var ErrInvalidID = errors.New("skilltree: invalid tree id")

// Registry tracks which skill trees exist.
type Registry struct {
	adapter *storage.Adapter
	logger  *slog.Logger
}

// NewRegistry creates a Registry over adapter.
func NewRegistry(adapter *storage.Adapter, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{adapter: adapter, logger: logger}
}

// ValidateID rejects ids that cannot be used as a storage key suffix.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" || id != strings.TrimSpace(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	if domain.SkillTreeKey(id) == domain.KeySkillTreeIndex {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidID, id)
	}
	return nil
}

// IDs returns the indexed tree ids, sorted and de-duplicated.
func (r *Registry) IDs(ctx context.Context) []string {
	return normalizeIDs(storage.Get[[]string](ctx, r.adapter, domain.KeySkillTreeIndex, nil))
}

// Add merges ids into the index.
func (r *Registry) Add(ctx context.Context, ids ...string) bool {
	current := r.IDs(ctx)
	merged := normalizeIDs(append(current, ids...))
	if len(merged) == len(current) {
		return true
	}
	return storage.Set(ctx, r.adapter, domain.KeySkillTreeIndex, merged)
}

// Remove drops id from the index and deletes the tree.
func (r *Registry) Remove(ctx context.Context, id string) bool {
	current := r.IDs(ctx)
	next := current[:0]
	for _, existing := range current {
		if existing != id {
			next = append(next, existing)
		}
	}
	ok := storage.Set(ctx, r.adapter, domain.KeySkillTreeIndex, next)
	return r.adapter.Remove(ctx, domain.SkillTreeKey(id)) && ok
}

// Load reads one tree. ok is false when the tree is missing or unreadable.
// The returned tree's id always matches its key.
func (r *Registry) Load(ctx context.Context, id string) (domain.SkillTree, bool) {
	raw, ok := r.adapter.GetRaw(ctx, domain.SkillTreeKey(id))
	if !ok {
		return domain.SkillTree{}, false
	}
	var tree domain.SkillTree
	if err := json.Unmarshal([]byte(raw), &tree); err != nil {
		r.logger.Warn("skilltree: skipping unreadable tree", "id", id, "error", err)
		return domain.SkillTree{}, false
	}
	return normalizeTree(id, tree), true
}

// KnownIDs returns the indexed ids plus every tree stored without an index
// entry. Backends that cannot list their keys yield the index alone.
func (r *Registry) KnownIDs(ctx context.Context) []string {
	ids := r.IDs(ctx)
	stored, ok := r.adapter.Keys(ctx)
	if !ok {
		return ids
	}
	found := append([]string(nil), ids...)
	for _, key := range stored {
		if id, ok := domain.SkillTreeID(key); ok {
			found = append(found, id)
		}
	}
	all := normalizeIDs(found)
	if len(all) > len(ids) {
		r.logger.Debug("skilltree: found unindexed trees", "indexed", len(ids), "stored", len(all))
	}
	return all
}

// LoadAll reads every known tree, skipping missing or unreadable ones.
func (r *Registry) LoadAll(ctx context.Context) map[string]domain.SkillTree {
	ids := r.KnownIDs(ctx)
	trees := make(map[string]domain.SkillTree, len(ids))
	for _, id := range ids {
		if tree, ok := r.Load(ctx, id); ok {
			trees[id] = tree
		}
	}
	return trees
}

// Save writes tree under its id and indexes it.
func (r *Registry) Save(ctx context.Context, tree domain.SkillTree) bool {
	if err := ValidateID(tree.ID); err != nil {
		r.logger.Error("skilltree: refusing to save", "error", err)
		return false
	}
	if !storage.Set(ctx, r.adapter, domain.SkillTreeKey(tree.ID), tree) {
		return false
	}
	return r.Add(ctx, tree.ID)
}

// Keys returns the storage keys of every known tree.
func (r *Registry) Keys(ctx context.Context) []string {
	ids := r.KnownIDs(ctx)
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, domain.SkillTreeKey(id))
	}
	return keys
}

func normalizeTree(id string, tree domain.SkillTree) domain.SkillTree {
	tree.ID = id
	if tree.Title == "" {
		tree.Title = "Untitled"
	}
	if tree.Skills == nil {
		tree.Skills = []domain.Skill{}
	}
	return tree
}

func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if ValidateID(id) != nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
