package domain

import "strings"

// Storage keys owned by the persisted-state core
const (
	KeyCharacterInfo   = "characterInfo"
	KeyCharacterStatus = "characterStatus"
	KeyNotes           = "notes"
	KeyNotesCategories = "notes-categories"
	KeyDiceHistory     = "diceHistory"
	KeySettings        = "settings"
	KeyLayout          = "layout"

	// SkillTreePrefix prefixes one key per skill tree; the suffix is the tree id
	SkillTreePrefix = "skillTree-"
	// KeySkillTreeIndex lists the ids of every stored skill tree
	KeySkillTreeIndex = "skillTree-index"
)

// FixedKeys returns every key that is not derived from a skill tree id
func FixedKeys() []string {
	return []string{
		KeyCharacterInfo,
		KeyCharacterStatus,
		KeyNotes,
		KeyNotesCategories,
		KeyDiceHistory,
		KeySettings,
		KeyLayout,
	}
}

// SkillTreeKey returns the storage key of a skill tree
func SkillTreeKey(id string) string {
	return SkillTreePrefix + id
}

// SkillTreeID extracts the tree id from a storage key. ok is false for keys
// outside the skill-tree namespace, including the index key itself.
func SkillTreeID(key string) (string, bool) {
	if key == KeySkillTreeIndex || !strings.HasPrefix(key, SkillTreePrefix) {
		return "", false
	}
	id := strings.TrimPrefix(key, SkillTreePrefix)
	return id, id != ""
}

// NormalizeTreeID derives a tree id from a user-facing title
func NormalizeTreeID(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
