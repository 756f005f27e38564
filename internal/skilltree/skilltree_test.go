package skilltree

import (
	"context"
	"testing"

	"github.com/pbaille/sheet/internal/domain"
	"github.com/pbaille/sheet/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, formula string) (*Service, *Registry, *storage.Adapter) {
	t.Helper()
	adapter := storage.NewAdapter(storage.NewMemoryBackend(0), nil)
	calc, err := NewCalculator(formula)
	require.NoError(t, err)
	registry := NewRegistry(adapter, nil)
	return NewService(adapter, registry, calc), registry, adapter
}

func TestCalculatorDefaultFormula(t *testing.T) {
	calc, err := NewCalculator("")
	require.NoError(t, err)
	assert.Equal(t, DefaultFormula, calc.Formula())

	tree, err := calc.Recompute(domain.SkillTree{
		ID:     "handeln",
		Skills: []domain.Skill{{ID: "s1", Name: "Klettern", Value: 40}},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, tree.TreeBonus)
	assert.Equal(t, domain.Skill{ID: "s1", Name: "Klettern", Value: 40, Bonus: 4, FinalValue: 44}, tree.Skills[0])
}

func TestCalculatorManualBonusAndClamping(t *testing.T) {
	calc, err := NewCalculator("")
	require.NoError(t, err)

	tree, err := calc.Recompute(domain.SkillTree{
		ManualBonus: 2,
		Skills: []domain.Skill{
			{ID: "a", Value: 999},
			{ID: "b", Value: -5},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, MaxPoints, tree.Skills[0].Value)
	assert.Equal(t, 0, tree.Skills[1].Value)
	assert.Equal(t, 40, tree.TreeBonus)
	assert.Equal(t, 42, tree.Skills[1].Bonus)
	assert.Equal(t, MaxPoints+42, tree.Skills[0].FinalValue)

	tree, err = calc.Recompute(domain.SkillTree{ManualBonus: -3})
	require.NoError(t, err)
	assert.Equal(t, 0, tree.ManualBonus)
}

func TestCalculatorCustomFormula(t *testing.T) {
	calc, err := NewCalculator("count > 0 ? total / count / 5 : 0")
	require.NoError(t, err)

	bonus, err := calc.TreeBonus(60, 2)
	require.NoError(t, err)
	assert.Equal(t, 6, bonus)
}

func TestCalculatorRejectsBadFormula(t *testing.T) {
	_, err := NewCalculator("total +")
	assert.Error(t, err)

	_, err = NewCalculator(`"not a number"`)
	assert.Error(t, err)
}

func TestServiceEditsPersistAndIndex(t *testing.T) {
	ctx := context.Background()
	svc, registry, adapter := newTestService(t, "")

	tree, err := svc.AddSkill(ctx, "handeln", "Klettern", 40)
	require.NoError(t, err)
	require.Len(t, tree.Skills, 1)
	assert.Equal(t, "Handeln", tree.Title)
	assert.Equal(t, 44, tree.Skills[0].FinalValue)

	skillID := tree.Skills[0].ID
	tree, err = svc.SetSkillValue(ctx, "handeln", skillID, 55)
	require.NoError(t, err)
	assert.Equal(t, 5, tree.TreeBonus)
	assert.Equal(t, 60, tree.Skills[0].FinalValue)

	tree, err = svc.SetManualBonus(ctx, "handeln", 1)
	require.NoError(t, err)
	assert.Equal(t, 61, tree.Skills[0].FinalValue)

	assert.Equal(t, []string{"handeln"}, registry.IDs(ctx))
	stored := storage.Get(ctx, adapter, domain.SkillTreeKey("handeln"), domain.SkillTree{})
	assert.Equal(t, tree, stored)

	_, err = svc.SetSkillValue(ctx, "handeln", "missing", 1)
	require.ErrorIs(t, err, ErrSkillNotFound)

	tree, err = svc.RemoveSkill(ctx, "handeln", skillID)
	require.NoError(t, err)
	assert.Empty(t, tree.Skills)
	assert.Equal(t, 0, tree.TreeBonus)
}

func TestServiceRejectsReservedID(t *testing.T) {
	svc, _, _ := newTestService(t, "")
	_, err := svc.AddSkill(context.Background(), "index", "x", 1)
	require.ErrorIs(t, err, ErrInvalidID)
}

func TestRegistryLoadNormalizesAndSkipsBroken(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend(0)
	adapter := storage.NewAdapter(backend, nil)
	registry := NewRegistry(adapter, nil)

	require.NoError(t, backend.SetItem(ctx, domain.SkillTreeKey("wissen"), `{"id":"other","skills":null}`))
	require.NoError(t, backend.SetItem(ctx, domain.SkillTreeKey("broken"), `{not json`))
	require.True(t, registry.Add(ctx, "wissen", "broken", "ghost", "wissen"))

	assert.Equal(t, []string{"broken", "ghost", "wissen"}, registry.IDs(ctx))

	trees := registry.LoadAll(ctx)
	require.Len(t, trees, 1)
	assert.Equal(t, domain.SkillTree{ID: "wissen", Title: "Untitled", Skills: []domain.Skill{}}, trees["wissen"])

	assert.True(t, registry.Remove(ctx, "wissen"))
	assert.Equal(t, []string{"broken", "ghost"}, registry.IDs(ctx))
	_, ok := registry.Load(ctx, "wissen")
	assert.False(t, ok)
}

func TestRegistryFindsUnindexedTrees(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend(0)
	adapter := storage.NewAdapter(backend, nil)
	registry := NewRegistry(adapter, nil)

	require.NoError(t, backend.SetItem(ctx, domain.SkillTreeKey("handeln"), `{"id":"handeln","title":"Handeln","skills":[]}`))
	require.NoError(t, backend.SetItem(ctx, domain.KeySkillTreeIndex, `["wissen"]`))
	require.NoError(t, backend.SetItem(ctx, domain.SkillTreeKey("wissen"), `{"id":"wissen","title":"Wissen","skills":[]}`))
	require.NoError(t, backend.SetItem(ctx, "notes", `[]`))

	assert.Equal(t, []string{"wissen"}, registry.IDs(ctx))
	assert.Equal(t, []string{"handeln", "wissen"}, registry.KnownIDs(ctx))
	assert.Equal(t, []string{"skillTree-handeln", "skillTree-wissen"}, registry.Keys(ctx))

	trees := registry.LoadAll(ctx)
	require.Len(t, trees, 2)
	assert.Equal(t, "Handeln", trees["handeln"].Title)
}
