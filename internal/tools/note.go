// note_manage: narrative notes, GM secrets, NPC memory.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/besplago/gamemaster/internal/rpg"
)

const noteAddSchema = `{
	"type": "object",
	"properties": {
		"action": {"const": "add"},
		"worldId": {"type": "string"},
		"kind": {"type": "string", "enum": ["note", "secret", "memory"]},
		"npcKey": {"type": "string"},
		"title": {"type": "string"},
		"body": {"type": "string", "minLength": 1}
	},
	"required": ["action", "body"]
}`

const noteListSchema = `{
	"type": "object",
	"properties": {
		"action": {"const": "list"},
		"worldId": {"type": "string"},
		"kind": {"type": "string", "enum": ["note", "secret", "memory"]},
		"includeSecrets": {"type": "boolean"}
	},
	"required": ["action"]
}`

const noteRevealSchema = `{
	"type": "object",
	"properties": {
		"action": {"const": "reveal_secret"},
		"noteId": {"type": "string", "minLength": 1}
	},
	"required": ["action", "noteId"]
}`

func newNoteTool(d Deps) *Tool {
	return &Tool{
		Name:        "note_manage",
		Description: "Record and retrieve narrative notes, GM secrets (hidden until revealed), and per-NPC memory entries.",
		Actions: map[string]*Action{
			"add": {
				Description: "Add a note; memory notes require an npcKey.",
				Schema:      mustSchema("note_add", noteAddSchema),
				Handle: func(args json.RawMessage) (any, string, error) {
					var in rpg.AddNoteInput
					if err := json.Unmarshal(args, &in); err != nil {
						return nil, "", err
					}
					n, err := d.Notes.Add(in)
					if err != nil {
						return nil, "", err
					}
					return n, fmt.Sprintf("%s recorded (%s).", n.Kind, n.ID), nil
				},
			},
			"list": {
				Description: "List notes; unrevealed secrets are redacted unless includeSecrets.",
				Schema:      mustSchema("note_list", noteListSchema),
				Handle: func(args json.RawMessage) (any, string, error) {
					var p struct {
						WorldID        string `json:"worldId"`
						Kind           string `json:"kind"`
						IncludeSecrets bool   `json:"includeSecrets"`
					}
					if err := json.Unmarshal(args, &p); err != nil {
						return nil, "", err
					}
					notes, err := d.Notes.List(p.WorldID, p.Kind, p.IncludeSecrets)
					if err != nil {
						return nil, "", err
					}
					return map[string]any{"notes": notes}, fmt.Sprintf("%d notes.", len(notes)), nil
				},
			},
			"reveal_secret": {
				Description: "Reveal a secret note.",
				Schema:      mustSchema("note_reveal", noteRevealSchema),
				Handle: func(args json.RawMessage) (any, string, error) {
					var p struct {
						NoteID string `json:"noteId"`
					}
					if err := json.Unmarshal(args, &p); err != nil {
						return nil, "", err
					}
					n, err := d.Notes.RevealSecret(p.NoteID)
					if err != nil {
						return nil, "", err
					}
					if n == nil {
						return nil, "", notFoundError{fmt.Sprintf("note %s not found", p.NoteID)}
					}
					return n, fmt.Sprintf("Secret %q revealed.", n.Title), nil
				},
			},
		},
	}
}
