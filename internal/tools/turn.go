// turn_manage: the turn-based strategy coordination tool. Nations submit
// planning actions and readiness signals; the last mark_ready of a turn
// resolves the whole turn before returning.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/besplago/gamemaster/internal/world"
)

const turnInitSchema = `{
	"type": "object",
	"properties": {
		"action": {"const": "init"},
		"worldId": {"type": "string", "minLength": 1}
	},
	"required": ["action", "worldId"]
}`

const turnStatusSchema = `{
	"type": "object",
	"properties": {
		"action": {"const": "get_status"},
		"worldId": {"type": "string", "minLength": 1}
	},
	"required": ["action", "worldId"]
}`

const turnSubmitSchema = `{
	"type": "object",
	"properties": {
		"action": {"const": "submit_actions"},
		"worldId": {"type": "string", "minLength": 1},
		"nationId": {"type": "string", "minLength": 1},
		"actions": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"type": {"type": "string"},
					"regionId": {"type": "string"},
					"toNationId": {"type": "string"},
					"intent": {"type": "string"},
					"message": {"type": "string"},
					"opinionDelta": {"type": "number"}
				},
				"required": ["type"]
			}
		}
	},
	"required": ["action", "worldId", "nationId", "actions"]
}`

const turnReadySchema = `{
	"type": "object",
	"properties": {
		"action": {"const": "mark_ready"},
		"worldId": {"type": "string", "minLength": 1},
		"nationId": {"type": "string", "minLength": 1}
	},
	"required": ["action", "worldId", "nationId"]
}`

const turnPollSchema = `{
	"type": "object",
	"properties": {
		"action": {"const": "poll_results"},
		"worldId": {"type": "string", "minLength": 1},
		"turnNumber": {"type": "integer", "minimum": 1}
	},
	"required": ["action", "worldId", "turnNumber"]
}`

func newTurnTool(d Deps) *Tool {
	return &Tool{
		Name:        "turn_manage",
		Description: "Coordinate turn-based strategy: initialize a world's turn cycle, submit nation actions during planning, signal readiness, and poll resolution results.",
		Actions: map[string]*Action{
			"init": {
				Description: "Initialize the turn cycle for a world (idempotent).",
				Schema:      mustSchema("turn_init", turnInitSchema),
				Handle: func(args json.RawMessage) (any, string, error) {
					var p struct {
						WorldID string `json:"worldId"`
					}
					if err := json.Unmarshal(args, &p); err != nil {
						return nil, "", err
					}
					res, err := d.Coordinator.Init(p.WorldID)
					if err != nil {
						return nil, "", err
					}
					summary := fmt.Sprintf("Turn cycle initialized for world %s at turn %d.", res.WorldID, res.CurrentTurn)
					if res.AlreadyInitialized {
						summary = fmt.Sprintf("World %s already initialized (turn %d, %s phase).", res.WorldID, res.CurrentTurn, res.Phase)
					}
					return map[string]any{
						"success":            true,
						"worldId":            res.WorldID,
						"currentTurn":        res.CurrentTurn,
						"phase":              res.Phase,
						"alreadyInitialized": res.AlreadyInitialized,
					}, summary, nil
				},
			},
			"get_status": {
				Description: "Report the current turn, phase, and nation readiness.",
				Schema:      mustSchema("turn_status", turnStatusSchema),
				Handle: func(args json.RawMessage) (any, string, error) {
					var p struct {
						WorldID string `json:"worldId"`
					}
					if err := json.Unmarshal(args, &p); err != nil {
						return nil, "", err
					}
					res, err := d.Coordinator.Status(p.WorldID)
					if err != nil {
						return nil, "", err
					}
					return res, fmt.Sprintf("Turn %d, %s phase: %d/%d nations ready.",
						res.CurrentTurn, res.Phase, res.NationsReady, res.TotalNations), nil
				},
			},
			"submit_actions": {
				Description: "Submit a nation's planning actions; effects apply immediately.",
				Schema:      mustSchema("turn_submit", turnSubmitSchema),
				Handle: func(args json.RawMessage) (any, string, error) {
					var p struct {
						WorldID  string             `json:"worldId"`
						NationID string             `json:"nationId"`
						Actions  []world.TurnAction `json:"actions"`
					}
					if err := json.Unmarshal(args, &p); err != nil {
						return nil, "", err
					}
					res, err := d.Coordinator.SubmitActions(p.WorldID, p.NationID, p.Actions)
					if err != nil {
						return nil, "", err
					}
					return res, fmt.Sprintf("%s submitted %d actions for turn %d.",
						res.NationName, res.ActionsSubmitted, res.Turn), nil
				},
			},
			"mark_ready": {
				Description: "Signal a nation's readiness; the last nation triggers turn resolution.",
				Schema:      mustSchema("turn_ready", turnReadySchema),
				Handle: func(args json.RawMessage) (any, string, error) {
					var p struct {
						WorldID  string `json:"worldId"`
						NationID string `json:"nationId"`
					}
					if err := json.Unmarshal(args, &p); err != nil {
						return nil, "", err
					}
					res, err := d.Coordinator.MarkReady(p.WorldID, p.NationID)
					if err != nil {
						return nil, "", err
					}
					if res.AllReady {
						return res, fmt.Sprintf("All nations ready. Turn %d resolved, turn %d begins.",
							res.TurnResolved, res.NextTurn), nil
					}
					return res, fmt.Sprintf("%s is ready (%d/%d); waiting for %d nations.",
						res.NationName, res.NationsReady, res.TotalNations, len(res.WaitingFor)), nil
				},
			},
			"poll_results": {
				Description: "Check whether a turn has resolved and sample its events.",
				Schema:      mustSchema("turn_poll", turnPollSchema),
				Handle: func(args json.RawMessage) (any, string, error) {
					var p struct {
						WorldID    string `json:"worldId"`
						TurnNumber int    `json:"turnNumber"`
					}
					if err := json.Unmarshal(args, &p); err != nil {
						return nil, "", err
					}
					res, err := d.Coordinator.PollResults(p.WorldID, p.TurnNumber)
					if err != nil {
						return nil, "", err
					}
					return res, res.Message, nil
				},
			},
		},
	}
}
