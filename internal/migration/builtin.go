package migration

import (
	"encoding/json"
	"fmt"

	"github.com/pbaille/sheet/internal/domain"
)

// CurrentVersion is the snapshot schema version this build writes.
const CurrentVersion = "1.2.0"

// Builtin returns the steps shipped with the application.
func Builtin() []Step {
	return []Step{
		{From: "1.0.0", To: "1.1.0", Migrate: addPlayerFields},
		{From: "1.1.0", To: "1.2.0", Migrate: renameStatusEffects},
	}
}

// addPlayerFields introduces playerName and campaign on character info.
func addPlayerFields(snap *domain.Snapshot) (*domain.Snapshot, error) {
	raw, err := editSection(snap.Data.Widgets.CharacterInfo, func(info map[string]any) {
		if _, ok := info["playerName"]; !ok {
			info["playerName"] = nil
		}
		if _, ok := info["campaign"]; !ok {
			info["campaign"] = nil
		}
	})
	if err != nil {
		return nil, fmt.Errorf("character info: %w", err)
	}
	snap.Data.Widgets.CharacterInfo = raw
	return snap, nil
}

// renameStatusEffects moves effects to statusEffects and adds conditions.
func renameStatusEffects(snap *domain.Snapshot) (*domain.Snapshot, error) {
	raw, err := editSection(snap.Data.Widgets.CharacterStatus, func(status map[string]any) {
		effects, ok := status["effects"]
		if !ok || effects == nil {
			effects = []any{}
		}
		if _, exists := status["statusEffects"]; !exists {
			status["statusEffects"] = effects
		}
		delete(status, "effects")
		if _, exists := status["conditions"]; !exists {
			status["conditions"] = []any{}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("character status: %w", err)
	}
	snap.Data.Widgets.CharacterStatus = raw
	return snap, nil
}

// editSection decodes an object section, applies fn and re-encodes it. Absent
// sections are returned unchanged.
func editSection(raw json.RawMessage, fn func(map[string]any)) (json.RawMessage, error) {
	if domain.IsNull(raw) {
		return raw, nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	fn(obj)
	return json.Marshal(obj)
}
