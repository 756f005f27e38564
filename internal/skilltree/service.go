package skilltree

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pbaille/sheet/internal/domain"
	"github.com/pbaille/sheet/internal/storage"
)

var (
	// ErrSkillNotFound is returned when a skill id is not part of the tree.
	ErrSkillNotFound = errors.New("skilltree: skill not found")
	// ErrNotPersisted is returned when the tree could not be written.
	ErrNotPersisted = errors.New("skilltree: tree not persisted")
)

// Service edits skill trees the way the skill-tree widget does: every change
// recomputes bonuses and is persisted immediately.
type Service struct {
	adapter  *storage.Adapter
	registry *Registry
	calc     *Calculator
	newID    func() string
}

// NewService wires a Service.
func NewService(adapter *storage.Adapter, registry *Registry, calc *Calculator) *Service {
	return &Service{
		adapter:  adapter,
		registry: registry,
		calc:     calc,
		newID: func() string {
			return "skill-" + uuid.Must(uuid.NewV7()).String()
		},
	}
}

// Bind returns the persisted binding of one tree. A tree that does not exist
// yet starts empty, titled after its id.
func (s *Service) Bind(ctx context.Context, id string) (*storage.Binding[domain.SkillTree], error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	initial := domain.SkillTree{ID: id, Title: titleFromID(id), Skills: []domain.Skill{}}
	return storage.Bind(ctx, s.adapter, domain.SkillTreeKey(id), initial), nil
}

// Get returns the current state of one tree.
func (s *Service) Get(ctx context.Context, id string) (domain.SkillTree, error) {
	b, err := s.Bind(ctx, id)
	if err != nil {
		return domain.SkillTree{}, err
	}
	return normalizeTree(id, b.Get()), nil
}

// AddSkill appends a new skill to the tree.
func (s *Service) AddSkill(ctx context.Context, treeID, name string, value int) (domain.SkillTree, error) {
	return s.edit(ctx, treeID, func(tree *domain.SkillTree) error {
		tree.Skills = append(tree.Skills, domain.Skill{
			ID:    s.newID(),
			Name:  strings.TrimSpace(name),
			Value: value,
		})
		return nil
	})
}

// SetSkillValue changes the invested points of one skill.
func (s *Service) SetSkillValue(ctx context.Context, treeID, skillID string, value int) (domain.SkillTree, error) {
	return s.edit(ctx, treeID, func(tree *domain.SkillTree) error {
		skill := findSkill(tree, skillID)
		if skill == nil {
			return fmt.Errorf("%w: %s in %s", ErrSkillNotFound, skillID, treeID)
		}
		skill.Value = value
		return nil
	})
}

// RenameSkill changes the display name of one skill.
func (s *Service) RenameSkill(ctx context.Context, treeID, skillID, name string) (domain.SkillTree, error) {
	return s.edit(ctx, treeID, func(tree *domain.SkillTree) error {
		skill := findSkill(tree, skillID)
		if skill == nil {
			return fmt.Errorf("%w: %s in %s", ErrSkillNotFound, skillID, treeID)
		}
		skill.Name = strings.TrimSpace(name)
		return nil
	})
}

// RemoveSkill deletes one skill.
func (s *Service) RemoveSkill(ctx context.Context, treeID, skillID string) (domain.SkillTree, error) {
	return s.edit(ctx, treeID, func(tree *domain.SkillTree) error {
		for i := range tree.Skills {
			if tree.Skills[i].ID == skillID {
				tree.Skills = append(tree.Skills[:i], tree.Skills[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: %s in %s", ErrSkillNotFound, skillID, treeID)
	})
}

// SetManualBonus sets the manual bonus added on top of the tree bonus.
func (s *Service) SetManualBonus(ctx context.Context, treeID string, bonus int) (domain.SkillTree, error) {
	return s.edit(ctx, treeID, func(tree *domain.SkillTree) error {
		tree.ManualBonus = bonus
		return nil
	})
}

// SetTitle renames the tree. The id, and therefore the storage key, stays.
func (s *Service) SetTitle(ctx context.Context, treeID, title string) (domain.SkillTree, error) {
	return s.edit(ctx, treeID, func(tree *domain.SkillTree) error {
		tree.Title = strings.TrimSpace(title)
		return nil
	})
}

func (s *Service) edit(ctx context.Context, treeID string, fn func(*domain.SkillTree) error) (domain.SkillTree, error) {
	b, err := s.Bind(ctx, treeID)
	if err != nil {
		return domain.SkillTree{}, err
	}

	tree := normalizeTree(treeID, b.Get())
	tree.Skills = append([]domain.Skill(nil), tree.Skills...)
	if err := fn(&tree); err != nil {
		return domain.SkillTree{}, err
	}
	tree, err = s.calc.Recompute(tree)
	if err != nil {
		return domain.SkillTree{}, err
	}

	if !b.Set(tree) {
		return tree, fmt.Errorf("%w: %s", ErrNotPersisted, treeID)
	}
	if !s.registry.Add(ctx, treeID) {
		return tree, fmt.Errorf("%w: index for %s", ErrNotPersisted, treeID)
	}
	return tree, nil
}

func findSkill(tree *domain.SkillTree, id string) *domain.Skill {
	for i := range tree.Skills {
		if tree.Skills[i].ID == id {
			return &tree.Skills[i]
		}
	}
	return nil
}

func titleFromID(id string) string {
	r := []rune(id)
	if len(r) == 0 {
		return ""
	}
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
