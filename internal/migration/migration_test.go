package migration

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pbaille/sheet/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotAt(version string) *domain.Snapshot {
	return &domain.Snapshot{Metadata: domain.Metadata{Version: version}}
}

func recordingStep(from, to string, calls *[]string) Step {
	return Step{From: from, To: to, Migrate: func(s *domain.Snapshot) (*domain.Snapshot, error) {
		// each step must observe the version left by the previous one
		*calls = append(*calls, s.Metadata.Version+"=>"+to)
		return s, nil
	}}
}

func TestMigrateAppliesChainInOrder(t *testing.T) {
	var calls []string
	engine, err := NewEngine("3", nil,
		recordingStep("2", "3", &calls),
		recordingStep("1", "2", &calls),
	)
	require.NoError(t, err)

	in := snapshotAt("1")
	out, applied, err := engine.Migrate(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "3", out.Metadata.Version)
	assert.Equal(t, []string{"1=>2", "2=>3"}, calls)
	assert.Equal(t, []string{"1->2", "2->3"}, applied)
	assert.Equal(t, "1", in.Metadata.Version, "input must not be modified")
}

func TestMigrateAlreadyCurrent(t *testing.T) {
	var calls []string
	engine, err := NewEngine("2", nil, recordingStep("1", "2", &calls))
	require.NoError(t, err)

	snap := snapshotAt("2")
	assert.False(t, engine.NeedsMigration(snap))

	out, applied, err := engine.Migrate(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, "2", out.Metadata.Version)
	assert.Empty(t, applied)
	assert.Empty(t, calls)
}

func TestMigrateNoPath(t *testing.T) {
	engine, err := NewEngine(CurrentVersion, nil, Builtin()...)
	require.NoError(t, err)

	snap := snapshotAt("0.9.0")
	assert.True(t, engine.NeedsMigration(snap))
	_, _, err = engine.Migrate(context.Background(), snap)
	require.ErrorIs(t, err, ErrNoMigrationPath)
}

func TestFindPathDetectsCycle(t *testing.T) {
	var calls []string
	engine, err := NewEngine("9", nil,
		recordingStep("a", "b", &calls),
		recordingStep("b", "a", &calls),
	)
	require.NoError(t, err)

	_, err = engine.FindPath("a", "9")
	require.ErrorIs(t, err, ErrNoMigrationPath)
}

func TestNewEngineRejectsBadSteps(t *testing.T) {
	noop := func(s *domain.Snapshot) (*domain.Snapshot, error) { return s, nil }
	tests := []struct {
		name  string
		steps []Step
	}{
		{name: "duplicate from", steps: []Step{{From: "1", To: "2", Migrate: noop}, {From: "1", To: "3", Migrate: noop}}},
		{name: "missing func", steps: []Step{{From: "1", To: "2"}}},
		{name: "self loop", steps: []Step{{From: "1", To: "1", Migrate: noop}}},
		{name: "missing version", steps: []Step{{From: "", To: "1", Migrate: noop}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewEngine("2", nil, tc.steps...)
			assert.Error(t, err)
		})
	}
}

func TestVersions(t *testing.T) {
	engine, err := NewEngine(CurrentVersion, nil, Builtin()...)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0.0", "1.1.0", "1.2.0"}, engine.Versions())
}

func TestBuiltinMigratesLegacySections(t *testing.T) {
	engine, err := NewEngine(CurrentVersion, nil, Builtin()...)
	require.NoError(t, err)

	snap := snapshotAt("1.0.0")
	snap.Data.Widgets.CharacterInfo = json.RawMessage(`{"basicInfo":{"name":"Alrik"}}`)
	snap.Data.Widgets.CharacterStatus = json.RawMessage(`{"currentHealth":12,"effects":["bleeding"]}`)

	out, applied, err := engine.Migrate(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0.0->1.1.0", "1.1.0->1.2.0"}, applied)
	assert.Equal(t, CurrentVersion, out.Metadata.Version)

	assert.JSONEq(t, `{"basicInfo":{"name":"Alrik"},"playerName":null,"campaign":null}`, string(out.Data.Widgets.CharacterInfo))
	assert.JSONEq(t, `{"currentHealth":12,"statusEffects":["bleeding"],"conditions":[]}`, string(out.Data.Widgets.CharacterStatus))
}

func TestBuiltinLeavesAbsentSections(t *testing.T) {
	engine, err := NewEngine(CurrentVersion, nil, Builtin()...)
	require.NoError(t, err)

	out, _, err := engine.Migrate(context.Background(), snapshotAt("1.0.0"))
	require.NoError(t, err)
	assert.True(t, domain.IsNull(out.Data.Widgets.CharacterInfo))
	assert.True(t, domain.IsNull(out.Data.Widgets.CharacterStatus))
}

func TestMigrateHonoursCancellation(t *testing.T) {
	engine, err := NewEngine(CurrentVersion, nil, Builtin()...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = engine.Migrate(ctx, snapshotAt("1.0.0"))
	require.ErrorIs(t, err, context.Canceled)
}
