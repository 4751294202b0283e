// world_manage: world setup. Create a seeded world with generated regions,
// add nations, inspect state, export snapshots.
package tools

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/besplago/gamemaster/internal/strategy"
	"github.com/besplago/gamemaster/internal/world"
)

const worldCreateSchema = `{
	"type": "object",
	"properties": {
		"action": {"const": "create_world"},
		"name": {"type": "string", "minLength": 1},
		"seed": {"type": "integer"},
		"regionCount": {"type": "integer", "minimum": 1, "maximum": 64}
	},
	"required": ["action", "name"]
}`

const worldAddNationSchema = `{
	"type": "object",
	"properties": {
		"action": {"const": "add_nation"},
		"worldId": {"type": "string", "minLength": 1},
		"name": {"type": "string", "minLength": 1},
		"leader": {"type": "string"},
		"ideology": {"type": "string"},
		"aggression": {"type": "number", "minimum": 0, "maximum": 100},
		"trust": {"type": "number", "minimum": 0, "maximum": 100},
		"paranoia": {"type": "number", "minimum": 0, "maximum": 100},
		"gdp": {"type": "number", "minimum": 0}
	},
	"required": ["action", "worldId", "name"]
}`

const worldGetSchema = `{
	"type": "object",
	"properties": {
		"action": {"const": "get_world"},
		"worldId": {"type": "string", "minLength": 1}
	},
	"required": ["action", "worldId"]
}`

const worldListNationsSchema = `{
	"type": "object",
	"properties": {
		"action": {"const": "list_nations"},
		"worldId": {"type": "string", "minLength": 1}
	},
	"required": ["action", "worldId"]
}`

const worldSnapshotSchema = `{
	"type": "object",
	"properties": {
		"action": {"const": "snapshot"},
		"worldId": {"type": "string", "minLength": 1}
	},
	"required": ["action", "worldId"]
}`

func newWorldTool(d Deps) *Tool {
	return &Tool{
		Name:        "world_manage",
		Description: "Set up and inspect strategy worlds: create a world with generated regions, add nations, list state, export compressed snapshots.",
		Actions: map[string]*Action{
			"create_world": {
				Description: "Create a world; regions are placed deterministically from the seed.",
				Schema:      mustSchema("world_create", worldCreateSchema),
				Handle: func(args json.RawMessage) (any, string, error) {
					var p struct {
						Name        string `json:"name"`
						Seed        int64  `json:"seed"`
						RegionCount int    `json:"regionCount"`
					}
					if err := json.Unmarshal(args, &p); err != nil {
						return nil, "", err
					}
					if p.Seed == 0 {
						p.Seed = time.Now().UnixNano()
					}

					w := &world.World{
						ID:        uuid.NewString(),
						Name:      p.Name,
						Seed:      p.Seed,
						CreatedAt: time.Now().UTC(),
					}
					if err := d.DB.CreateWorld(w); err != nil {
						return nil, "", err
					}

					cfg := world.DefaultGenConfig(p.Seed)
					if p.RegionCount > 0 {
						cfg.Count = p.RegionCount
					}
					regions := world.GenerateRegions(w.ID, cfg)
					if err := d.DB.CreateRegions(regions); err != nil {
						return nil, "", err
					}

					return map[string]any{
						"worldId": w.ID,
						"name":    w.Name,
						"seed":    w.Seed,
						"regions": regions,
					}, fmt.Sprintf("World %q created with %d regions (seed %d).", w.Name, len(regions), w.Seed), nil
				},
			},
			"add_nation": {
				Description: "Add a nation to a world.",
				Schema:      mustSchema("world_add_nation", worldAddNationSchema),
				Handle: func(args json.RawMessage) (any, string, error) {
					var p struct {
						WorldID    string  `json:"worldId"`
						Name       string  `json:"name"`
						Leader     string  `json:"leader"`
						Ideology   string  `json:"ideology"`
						Aggression float64 `json:"aggression"`
						Trust      float64 `json:"trust"`
						Paranoia   float64 `json:"paranoia"`
						GDP        float64 `json:"gdp"`
					}
					if err := json.Unmarshal(args, &p); err != nil {
						return nil, "", err
					}

					w, err := d.DB.World(p.WorldID)
					if err != nil {
						return nil, "", err
					}
					if w == nil {
						return nil, "", strategy.ErrWorldNotFound
					}

					if p.GDP == 0 {
						p.GDP = 1000
					}
					n := &world.Nation{
						ID:         uuid.NewString(),
						WorldID:    p.WorldID,
						Name:       p.Name,
						Leader:     p.Leader,
						Ideology:   p.Ideology,
						Aggression: p.Aggression,
						Trust:      p.Trust,
						Paranoia:   p.Paranoia,
						GDP:        p.GDP,
						Resources:  map[string]float64{"food": 100, "metal": 50, "oil": 25},
					}
					if err := d.DB.CreateNation(n); err != nil {
						return nil, "", err
					}
					return n, fmt.Sprintf("Nation %q joined world %s.", n.Name, w.Name), nil
				},
			},
			"get_world": {
				Description: "Return a world with its regions.",
				Schema:      mustSchema("world_get", worldGetSchema),
				Handle: func(args json.RawMessage) (any, string, error) {
					var p struct {
						WorldID string `json:"worldId"`
					}
					if err := json.Unmarshal(args, &p); err != nil {
						return nil, "", err
					}
					w, err := d.DB.World(p.WorldID)
					if err != nil {
						return nil, "", err
					}
					if w == nil {
						return nil, "", strategy.ErrWorldNotFound
					}
					regions, err := d.DB.RegionsByWorld(p.WorldID)
					if err != nil {
						return nil, "", err
					}
					return map[string]any{
						"world":   w,
						"regions": regions,
					}, fmt.Sprintf("World %q has %d regions.", w.Name, len(regions)), nil
				},
			},
			"list_nations": {
				Description: "List the nations of a world.",
				Schema:      mustSchema("world_list_nations", worldListNationsSchema),
				Handle: func(args json.RawMessage) (any, string, error) {
					var p struct {
						WorldID string `json:"worldId"`
					}
					if err := json.Unmarshal(args, &p); err != nil {
						return nil, "", err
					}
					w, err := d.DB.World(p.WorldID)
					if err != nil {
						return nil, "", err
					}
					if w == nil {
						return nil, "", strategy.ErrWorldNotFound
					}
					nations, err := d.DB.NationsByWorld(p.WorldID)
					if err != nil {
						return nil, "", err
					}
					return map[string]any{"nations": nations},
						fmt.Sprintf("World %q has %d nations.", w.Name, len(nations)), nil
				},
			},
			"snapshot": {
				Description: "Export a zstd-compressed JSON snapshot of a world.",
				Schema:      mustSchema("world_snapshot", worldSnapshotSchema),
				Handle: func(args json.RawMessage) (any, string, error) {
					var p struct {
						WorldID string `json:"worldId"`
					}
					if err := json.Unmarshal(args, &p); err != nil {
						return nil, "", err
					}
					w, err := d.DB.World(p.WorldID)
					if err != nil {
						return nil, "", err
					}
					if w == nil {
						return nil, "", strategy.ErrWorldNotFound
					}
					path, err := d.DB.ExportSnapshot(p.WorldID, d.SnapshotDir)
					if err != nil {
						return nil, "", err
					}
					return map[string]any{"path": path},
						fmt.Sprintf("Snapshot of world %q written to %s.", w.Name, path), nil
				},
			},
		},
	}
}
