package validation

// CharacterInfoSchema describes the character info widget section.
func CharacterInfoSchema() *Node {
	return Object(map[string]*Node{
		"basicInfo": Object(map[string]*Node{
			"name":         String().Req(),
			"gender":       String(),
			"age":          String(),
			"stature":      String(),
			"religion":     String(),
			"profession":   String(),
			"familyStatus": String(),
		}),
		"portrait":   String(),
		"playerName": String(),
		"campaign":   String(),
	})
}

// CharacterStatusSchema describes the character status widget section. Both
// the legacy "effects" and the current "statusEffects" spellings are declared.
func CharacterStatusSchema() *Node {
	return Object(map[string]*Node{
		"currentHealth": Number(),
		"maxHealth":     Number(),
		"currentArmor":  Number(),
		"maxArmor":      Number(),
		"portrait":      String(),
		"health": Object(map[string]*Node{
			"current": Number().Req(),
			"max":     Number().Req(),
			"history": Array(Object(map[string]*Node{
				"type":      String().Req(),
				"value":     Number().Req(),
				"timestamp": String().Req(),
			})),
		}),
		"armor": Object(map[string]*Node{
			"current": Number().Req(),
			"max":     Number().Req(),
		}),
		"effects":       Array(String()),
		"statusEffects": Array(String()),
		"conditions":    Array(Any()),
	})
}

// SkillTreeSchema describes one stored skill tree.
func SkillTreeSchema() *Node {
	return Object(map[string]*Node{
		"id":    String(),
		"title": String(),
		"skills": Array(Object(map[string]*Node{
			"id":         String().Req(),
			"name":       String(),
			"value":      Integer().Req(),
			"bonus":      Integer(),
			"finalValue": Integer(),
		})),
		"treeBonus":   Integer(),
		"manualBonus": Integer(),
	})
}

// NotesSchema describes the notes widget section.
func NotesSchema() *Node {
	return Object(map[string]*Node{
		"items": Array(Object(map[string]*Node{
			"id":           String().Req(),
			"title":        String(),
			"content":      String(),
			"category":     String(),
			"tags":         Array(String()),
			"lastModified": String(),
		})),
		"categories": Array(Object(map[string]*Node{
			"id":    String().Req(),
			"name":  String(),
			"color": String(),
		})),
	})
}

// DiceSchema describes the dice history section.
func DiceSchema() *Node {
	return Object(map[string]*Node{
		"history": Array(Object(map[string]*Node{
			"id":        String(),
			"type":      String(),
			"result":    Integer(),
			"timestamp": String(),
		})),
	})
}

// SettingsSchema describes theme and display preferences.
func SettingsSchema() *Node {
	return Object(map[string]*Node{
		"theme": Object(map[string]*Node{
			"primary":    String(),
			"secondary":  String(),
			"background": String(),
		}),
		"display": Object(map[string]*Node{
			"showPortrait":  Boolean(),
			"showEffects":   Boolean(),
			"showCombatLog": Boolean(),
			"compactMode":   Boolean(),
		}),
	})
}

// LayoutSchema describes the widget grid.
func LayoutSchema() *Node {
	return Object(map[string]*Node{
		"widgets": Array(Object(map[string]*Node{
			"i":           String().Req(),
			"x":           Integer().Req(),
			"y":           Integer().Req(),
			"w":           Integer().Req(),
			"h":           Integer().Req(),
			"type":        String().Req(),
			"title":       String(),
			"colorScheme": String(),
			"config":      Object(nil),
		})),
	})
}

// SnapshotSchema describes a complete export document.
func SnapshotSchema() *Node {
	return Object(map[string]*Node{
		"metadata": Object(map[string]*Node{
			"version":            String().Req(),
			"exportDate":         String().Req(),
			"exportId":           String().Req(),
			"applicationVersion": String().Req(),
			"checksum":           String().Req(),
		}).Req(),
		"data": Object(map[string]*Node{
			"widgets": Object(map[string]*Node{
				"characterInfo":   CharacterInfoSchema(),
				"characterStatus": CharacterStatusSchema(),
				"skillTrees":      MapOf(SkillTreeSchema()),
				"notes":           NotesSchema(),
				"dice":            DiceSchema(),
			}),
			"settings": SettingsSchema(),
			"layout":   LayoutSchema(),
		}).Req(),
	})
}
