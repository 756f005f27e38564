package domain

import (
	"encoding/json"
	"fmt"
)

// Snapshot is the versioned export/import document
type Snapshot struct {
	Metadata Metadata `json:"metadata"`
	Data     Data     `json:"data"`
}

// Metadata describes when and by which application a snapshot was produced
type Metadata struct {
	Version            string `json:"version"`
	ExportDate         string `json:"exportDate"`
	ExportID           string `json:"exportId"`
	ApplicationVersion string `json:"applicationVersion"`
	Checksum           string `json:"checksum"`
}

// Data holds every persisted section of a character sheet
type Data struct {
	Widgets  Widgets  `json:"widgets"`
	Settings Settings `json:"settings"`
	Layout   Layout   `json:"layout"`
}

// Widgets holds the per-widget sections. Each one is optional; a nil section
// means "not part of this snapshot".
type Widgets struct {
	CharacterInfo   json.RawMessage      `json:"characterInfo"`
	CharacterStatus json.RawMessage      `json:"characterStatus"`
	SkillTrees      map[string]SkillTree `json:"skillTrees"`
	Notes           *Notes               `json:"notes"`
	Dice            *DiceHistory         `json:"dice"`
}

// Settings holds theme and display preferences
type Settings struct {
	Theme   *Theme   `json:"theme,omitempty"`
	Display *Display `json:"display,omitempty"`
}

// Theme is the sheet color palette
type Theme struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Background string `json:"background"`
}

// Display toggles optional parts of the sheet
type Display struct {
	ShowPortrait  bool `json:"showPortrait"`
	ShowEffects   bool `json:"showEffects"`
	ShowCombatLog bool `json:"showCombatLog"`
	CompactMode   bool `json:"compactMode"`
}

// Layout is the grid placement of every widget
type Layout struct {
	Widgets []LayoutWidget `json:"widgets"`
}

// LayoutWidget is one grid entry
type LayoutWidget struct {
	I           string         `json:"i"`
	X           int            `json:"x"`
	Y           int            `json:"y"`
	W           int            `json:"w"`
	H           int            `json:"h"`
	Type        string         `json:"type"`
	Title       string         `json:"title,omitempty"`
	ColorScheme string         `json:"colorScheme,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
}

// SkillTree is a named group of skills sharing a point-derived bonus
type SkillTree struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Skills      []Skill `json:"skills"`
	TreeBonus   int     `json:"treeBonus"`
	ManualBonus int     `json:"manualBonus"`
}

// Skill is a single skill row
type Skill struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Value      int    `json:"value"`
	Bonus      int    `json:"bonus"`
	FinalValue int    `json:"finalValue"`
}

// Notes holds the notes widget items and their categories
type Notes struct {
	Items      []Note         `json:"items"`
	Categories []NoteCategory `json:"categories"`
}

// Note is a single free-text note
type Note struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	Category     string   `json:"category"`
	Tags         []string `json:"tags"`
	LastModified string   `json:"lastModified"`
}

// NoteCategory groups notes
type NoteCategory struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// DiceHistory holds past rolls
type DiceHistory struct {
	History []DiceRoll `json:"history"`
}

// DiceRoll is one recorded roll
type DiceRoll struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Result    int    `json:"result"`
	Timestamp string `json:"timestamp"`
}

// DefaultSettings returns the settings a fresh sheet starts with
func DefaultSettings() Settings {
	return Settings{
		Theme: &Theme{
			Primary:    "#6366f1",
			Secondary:  "#4f46e5",
			Background: "#ffffff",
		},
		Display: &Display{
			ShowPortrait:  true,
			ShowEffects:   true,
			ShowCombatLog: true,
			CompactMode:   false,
		},
	}
}

// DefaultLayout returns the grid a fresh sheet starts with
func DefaultLayout() Layout {
	return Layout{Widgets: []LayoutWidget{
		{I: "char-info-1", X: 0, Y: 0, W: 2, H: 4, Type: "characterInfo"},
		{I: "char-status-1", X: 2, Y: 0, W: 2, H: 4, Type: "characterStatus"},
		{I: "handeln-1", X: 0, Y: 4, W: 1, H: 4, Type: "skillTree", Title: "Handeln", ColorScheme: "amber"},
		{I: "wissen-1", X: 1, Y: 4, W: 1, H: 4, Type: "skillTree", Title: "Wissen", ColorScheme: "emerald"},
		{I: "soziales-1", X: 2, Y: 4, W: 1, H: 4, Type: "skillTree", Title: "Soziales", ColorScheme: "violet"},
	}}
}

// Validate checks that every widget id is unique within the layout
func (l Layout) Validate() error {
	seen := make(map[string]int, len(l.Widgets))
	for idx, w := range l.Widgets {
		if w.I == "" {
			return fmt.Errorf("layout widget %d: id is required", idx)
		}
		if prev, ok := seen[w.I]; ok {
			return fmt.Errorf("layout widget %d: duplicate id %q (first at %d)", idx, w.I, prev)
		}
		seen[w.I] = idx
	}
	return nil
}

// IsNull reports whether a raw section is absent or a JSON null
func IsNull(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return true
	}
	return string(raw) == "null"
}
