// Package migration moves snapshots between schema versions.
//
// Steps form a chain keyed by version strings. The chain is fixed when the
// Engine is built and never changes afterwards.
package migration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/pbaille/sheet/internal/domain"
)

// ErrNoMigrationPath means the snapshot's version cannot be brought to the
// current version with the registered steps.
var ErrNoMigrationPath = errors.New("migration: no migration path")

// Func transforms a snapshot from one version to the next.
type Func func(*domain.Snapshot) (*domain.Snapshot, error)

// Step is one registered transform.
type Step struct {
	From    string
	To      string
	Migrate Func
}

func (s Step) String() string {
	return s.From + "->" + s.To
}

// Engine applies registered steps until a snapshot reaches Current.
type Engine struct {
	current string
	steps   []Step
	byFrom  map[string]int
	logger  *slog.Logger
}

// NewEngine builds an engine targeting current. Each version may have at most
// one outgoing step.
func NewEngine(current string, logger *slog.Logger, steps ...Step) (*Engine, error) {
	if current == "" {
		return nil, fmt.Errorf("migration: current version is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		current: current,
		steps:   make([]Step, 0, len(steps)),
		byFrom:  make(map[string]int, len(steps)),
		logger:  logger,
	}
	for _, step := range steps {
		if step.From == "" || step.To == "" {
			return nil, fmt.Errorf("migration: step %q needs both versions", step)
		}
		if step.From == step.To {
			return nil, fmt.Errorf("migration: step %q does not change the version", step)
		}
		if step.Migrate == nil {
			return nil, fmt.Errorf("migration: step %q has no migrate func", step)
		}
		if idx, dup := e.byFrom[step.From]; dup {
			return nil, fmt.Errorf("migration: step %q conflicts with %q", step, e.steps[idx])
		}
		e.byFrom[step.From] = len(e.steps)
		e.steps = append(e.steps, step)
	}
	return e, nil
}

// Current returns the version every migrated snapshot ends at.
func (e *Engine) Current() string {
	return e.current
}

// NeedsMigration reports whether snap is at a version other than Current.
func (e *Engine) NeedsMigration(snap *domain.Snapshot) bool {
	return snap.Metadata.Version != e.current
}

// FindPath returns the ordered steps leading from one version to another.
func (e *Engine) FindPath(from, to string) ([]Step, error) {
	var path []Step
	current := from
	for current != to {
		if len(path) >= len(e.steps) {
			return nil, fmt.Errorf("%w: from %s to %s (cycle at %s)", ErrNoMigrationPath, from, to, current)
		}
		idx, ok := e.byFrom[current]
		if !ok {
			return nil, fmt.Errorf("%w: from %s to %s (stuck at %s)", ErrNoMigrationPath, from, to, current)
		}
		step := e.steps[idx]
		path = append(path, step)
		current = step.To
	}
	return path, nil
}

// Migrate returns a copy of snap brought to Current, plus the labels of the
// applied steps. The input snapshot is never modified.
func (e *Engine) Migrate(ctx context.Context, snap *domain.Snapshot) (*domain.Snapshot, []string, error) {
	if snap == nil {
		return nil, nil, fmt.Errorf("migration: snapshot is required")
	}
	path, err := e.FindPath(snap.Metadata.Version, e.current)
	if err != nil {
		return nil, nil, err
	}

	out, err := clone(snap)
	if err != nil {
		return nil, nil, fmt.Errorf("migration: copy snapshot: %w", err)
	}
	applied := make([]string, 0, len(path))
	for _, step := range path {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		e.logger.Info("migrating snapshot", "from", step.From, "to", step.To)
		next, err := step.Migrate(out)
		if err != nil {
			return nil, nil, fmt.Errorf("migration: step %s: %w", step, err)
		}
		if next == nil {
			return nil, nil, fmt.Errorf("migration: step %s returned no snapshot", step)
		}
		next.Metadata.Version = step.To
		out = next
		applied = append(applied, step.String())
	}
	return out, applied, nil
}

// Versions returns every version named by a registered step, sorted.
func (e *Engine) Versions() []string {
	seen := map[string]struct{}{e.current: {}}
	for _, step := range e.steps {
		seen[step.From] = struct{}{}
		seen[step.To] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func clone(snap *domain.Snapshot) (*domain.Snapshot, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	var out domain.Snapshot
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
