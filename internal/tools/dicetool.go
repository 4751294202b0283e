// roll_dice: dice expressions and d20 checks.
package tools

import (
	"encoding/json"
	"fmt"
	"strings"
)

const diceRollSchema = `{
	"type": "object",
	"properties": {
		"action": {"const": "roll"},
		"expression": {"type": "string", "minLength": 2}
	},
	"required": ["action", "expression"]
}`

const diceCheckSchema = `{
	"type": "object",
	"properties": {
		"action": {"const": "check"},
		"modifier": {"type": "integer", "minimum": -20, "maximum": 20},
		"dc": {"type": "integer", "minimum": 1, "maximum": 40},
		"mode": {"type": "string", "enum": ["normal", "advantage", "disadvantage"]}
	},
	"required": ["action", "dc"]
}`

func newDiceTool(d Deps) *Tool {
	return &Tool{
		Name:        "roll_dice",
		Description: "Roll dice expressions (e.g. 3d6+2) and d20 skill checks with advantage or disadvantage.",
		Actions: map[string]*Action{
			"roll": {
				Description: "Roll a dice expression.",
				Schema:      mustSchema("dice_roll", diceRollSchema),
				Handle: func(args json.RawMessage) (any, string, error) {
					var p struct {
						Expression string `json:"expression"`
					}
					if err := json.Unmarshal(args, &p); err != nil {
						return nil, "", err
					}
					res, err := d.Roller.Roll(p.Expression)
					if err != nil {
						return nil, "", badRequestError{err.Error()}
					}
					rolls := make([]string, len(res.Rolls))
					for i, r := range res.Rolls {
						rolls[i] = fmt.Sprintf("%d", r)
					}
					return res, fmt.Sprintf("Rolled %s: [%s] → %d.",
						res.Expression, strings.Join(rolls, ", "), res.Total), nil
				},
			},
			"check": {
				Description: "Roll a d20 check against a DC.",
				Schema:      mustSchema("dice_check", diceCheckSchema),
				Handle: func(args json.RawMessage) (any, string, error) {
					var p struct {
						Modifier int    `json:"modifier"`
						DC       int    `json:"dc"`
						Mode     string `json:"mode"`
					}
					if err := json.Unmarshal(args, &p); err != nil {
						return nil, "", err
					}
					res, err := d.Roller.Check(p.Modifier, p.DC, p.Mode)
					if err != nil {
						return nil, "", badRequestError{err.Error()}
					}
					verdict := "failure"
					if res.Success {
						verdict = "success"
					}
					return res, fmt.Sprintf("Check: %d%+d = %d vs DC %d, %s.",
						res.Roll, res.Modifier, res.Total, res.DC, verdict), nil
				},
			},
		},
	}
}
