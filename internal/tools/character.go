// character_manage: character sheet CRUD.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/besplago/gamemaster/internal/rpg"
)

const charCreateSchema = `{
	"type": "object",
	"properties": {
		"action": {"const": "create"},
		"worldId": {"type": "string"},
		"name": {"type": "string", "minLength": 1},
		"class": {"type": "string"},
		"level": {"type": "integer", "minimum": 1, "maximum": 20},
		"maxHp": {"type": "integer", "minimum": 1},
		"abilities": {
			"type": "object",
			"additionalProperties": {"type": "integer", "minimum": 1, "maximum": 30}
		}
	},
	"required": ["action", "name"]
}`

const charGetSchema = `{
	"type": "object",
	"properties": {
		"action": {"const": "get"},
		"characterId": {"type": "string", "minLength": 1}
	},
	"required": ["action", "characterId"]
}`

const charUpdateSchema = `{
	"type": "object",
	"properties": {
		"action": {"const": "update"},
		"characterId": {"type": "string", "minLength": 1},
		"level": {"type": "integer", "minimum": 1, "maximum": 20},
		"hp": {"type": "integer"},
		"maxHp": {"type": "integer", "minimum": 1},
		"abilities": {
			"type": "object",
			"additionalProperties": {"type": "integer", "minimum": 1, "maximum": 30}
		}
	},
	"required": ["action", "characterId"]
}`

const charListSchema = `{
	"type": "object",
	"properties": {
		"action": {"const": "list"},
		"worldId": {"type": "string"}
	},
	"required": ["action"]
}`

const charDeleteSchema = `{
	"type": "object",
	"properties": {
		"action": {"const": "delete"},
		"characterId": {"type": "string", "minLength": 1}
	},
	"required": ["action", "characterId"]
}`

func newCharacterTool(d Deps) *Tool {
	return &Tool{
		Name:        "character_manage",
		Description: "Create, inspect, update, list, and delete character sheets.",
		Actions: map[string]*Action{
			"create": {
				Description: "Create a character; missing abilities default to 10.",
				Schema:      mustSchema("char_create", charCreateSchema),
				Handle: func(args json.RawMessage) (any, string, error) {
					var in rpg.CreateCharacterInput
					if err := json.Unmarshal(args, &in); err != nil {
						return nil, "", err
					}
					c, err := d.Characters.Create(in)
					if err != nil {
						return nil, "", err
					}
					return c, fmt.Sprintf("Character %q created (level %d, %d HP).", c.Name, c.Level, c.MaxHP), nil
				},
			},
			"get": {
				Description: "Return one character by ID.",
				Schema:      mustSchema("char_get", charGetSchema),
				Handle: func(args json.RawMessage) (any, string, error) {
					var p struct {
						CharacterID string `json:"characterId"`
					}
					if err := json.Unmarshal(args, &p); err != nil {
						return nil, "", err
					}
					c, err := d.Characters.Get(p.CharacterID)
					if err != nil {
						return nil, "", err
					}
					if c == nil {
						return nil, "", notFoundError{fmt.Sprintf("character %s not found", p.CharacterID)}
					}
					return c, fmt.Sprintf("%s: level %d %s, %d/%d HP.", c.Name, c.Level, c.Class, c.HP, c.MaxHP), nil
				},
			},
			"update": {
				Description: "Apply a partial update to a character.",
				Schema:      mustSchema("char_update", charUpdateSchema),
				Handle: func(args json.RawMessage) (any, string, error) {
					var p struct {
						CharacterID string `json:"characterId"`
						rpg.UpdateCharacterInput
					}
					if err := json.Unmarshal(args, &p); err != nil {
						return nil, "", err
					}
					c, err := d.Characters.Update(p.CharacterID, p.UpdateCharacterInput)
					if err != nil {
						return nil, "", err
					}
					if c == nil {
						return nil, "", notFoundError{fmt.Sprintf("character %s not found", p.CharacterID)}
					}
					return c, fmt.Sprintf("Character %q updated.", c.Name), nil
				},
			},
			"list": {
				Description: "List characters, optionally scoped to a world.",
				Schema:      mustSchema("char_list", charListSchema),
				Handle: func(args json.RawMessage) (any, string, error) {
					var p struct {
						WorldID string `json:"worldId"`
					}
					if err := json.Unmarshal(args, &p); err != nil {
						return nil, "", err
					}
					chars, err := d.Characters.List(p.WorldID)
					if err != nil {
						return nil, "", err
					}
					return map[string]any{"characters": chars},
						fmt.Sprintf("%d characters.", len(chars)), nil
				},
			},
			"delete": {
				Description: "Delete a character.",
				Schema:      mustSchema("char_delete", charDeleteSchema),
				Handle: func(args json.RawMessage) (any, string, error) {
					var p struct {
						CharacterID string `json:"characterId"`
					}
					if err := json.Unmarshal(args, &p); err != nil {
						return nil, "", err
					}
					existed, err := d.Characters.Delete(p.CharacterID)
					if err != nil {
						return nil, "", err
					}
					if !existed {
						return nil, "", notFoundError{fmt.Sprintf("character %s not found", p.CharacterID)}
					}
					return map[string]any{"deleted": true}, "Character deleted.", nil
				},
			},
		},
	}
}
