// Package world holds the strategy-layer domain records: worlds, nations,
// regions, diplomatic relations, territorial claims, and the per-world turn
// state that coordinates them.
package world

import "time"

// Turn phases. A world at rest is always in PhasePlanning; the other two
// phases exist only inside a resolution pass.
const (
	PhasePlanning   = "planning"
	PhaseResolution = "resolution"
	PhaseFinished   = "finished"
)

// World is the root record every other record hangs off.
type World struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Seed      int64     `db:"seed" json:"seed"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Nation is an AI-driven power inside a world. Pairwise diplomacy lives in
// DiplomacyRelation records, not on the nation itself.
type Nation struct {
	ID         string  `db:"id" json:"id"`
	WorldID    string  `db:"world_id" json:"worldId"`
	Name       string  `db:"name" json:"name"`
	Leader     string  `db:"leader" json:"leader"`
	Ideology   string  `db:"ideology" json:"ideology"`
	Aggression float64 `db:"aggression" json:"aggression"` // 0–100
	Trust      float64 `db:"trust" json:"trust"`           // 0–100
	Paranoia   float64 `db:"paranoia" json:"paranoia"`     // 0–100
	GDP        float64 `db:"gdp" json:"gdp"`

	// Resource stockpiles by kind ("food", "metal", "oil").
	Resources map[string]float64 `db:"-" json:"resources"`
}

// Region terrain types. Terrain decides which resource an owned region yields.
const (
	RegionPlains    = "plains"
	RegionMountains = "mountains"
	RegionDesert    = "desert"
	RegionCoast     = "coast"
)

// Region is a piece of territory. OwnerNationID is empty until a claim on the
// region has been resolved in some turn.
type Region struct {
	ID            string  `db:"id" json:"id"`
	WorldID       string  `db:"world_id" json:"worldId"`
	Name          string  `db:"name" json:"name"`
	Type          string  `db:"type" json:"type"`
	CenterX       float64 `db:"center_x" json:"centerX"`
	CenterY       float64 `db:"center_y" json:"centerY"`
	Color         string  `db:"color" json:"color"`
	OwnerNationID string  `db:"owner_nation_id" json:"ownerNationId,omitempty"`
}

// DefaultOpinion is the opinion assumed for a nation pair with no stored
// relation. Opinions are deliberately unclamped: repeated adjustments can push
// them past 0 or 100.
const DefaultOpinion = 50.0

// DiplomacyRelation is one directed edge of the diplomacy graph. Symmetry is
// not enforced; each direction is stored independently.
type DiplomacyRelation struct {
	WorldID      string  `db:"world_id" json:"worldId"`
	FromNationID string  `db:"from_nation_id" json:"fromNationId"`
	ToNationID   string  `db:"to_nation_id" json:"toNationId"`
	Opinion      float64 `db:"opinion" json:"opinion"`
	IsAllied     bool    `db:"is_allied" json:"isAllied"`

	// Turn number through which a truce holds; 0 means no truce.
	TruceUntilTurn int `db:"truce_until_turn" json:"truceUntilTurn,omitempty"`
}

// Claim is one territorial assertion. Claims are append-only; the conflict
// resolver interprets the claims of a single turn, it never edits them.
type Claim struct {
	ID            string    `db:"id" json:"id"`
	WorldID       string    `db:"world_id" json:"worldId"`
	NationID      string    `db:"nation_id" json:"nationId"`
	RegionID      string    `db:"region_id" json:"regionId"`
	Turn          int       `db:"turn" json:"turn"`
	ClaimStrength float64   `db:"claim_strength" json:"claimStrength"`
	Justification string    `db:"justification" json:"justification"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// TurnState is the per-world coordination record. NationsReady must only ever
// contain nations that belong to WorldID.
type TurnState struct {
	WorldID        string    `json:"worldId"`
	CurrentTurn    int       `json:"currentTurn"`
	Phase          string    `json:"phase"`
	PhaseStartedAt time.Time `json:"phaseStartedAt"`

	// Set of nation IDs that have signaled readiness this turn.
	NationsReady map[string]struct{} `json:"-"`
}

// Ready reports whether the nation has marked ready this turn.
func (ts *TurnState) Ready(nationID string) bool {
	_, ok := ts.NationsReady[nationID]
	return ok
}

// Turn event kinds produced by resolution.
const (
	EventTerritoryResolved = "territory_resolved"
	EventRelationsChanged  = "relations_changed"
	EventAllianceBroken    = "alliance_broken"
	EventTruceDeclared     = "truce_declared"
	EventTurnResolved      = "turn_resolved"
	EventResolutionFailed  = "resolution_failed"
)

// TurnEvent is one resolution outcome, retrievable by (world, turn) after the
// turn has resolved.
type TurnEvent struct {
	ID          string    `db:"id" json:"id"`
	WorldID     string    `db:"world_id" json:"worldId"`
	Turn        int       `db:"turn" json:"turn"`
	Kind        string    `db:"kind" json:"kind"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Turn action types a nation may submit during planning.
const (
	ActionClaimRegion     = "claim_region"
	ActionProposeAlliance = "propose_alliance"
	ActionBreakAlliance   = "break_alliance"
	ActionDeclareIntent   = "declare_intent"
	ActionSendMessage     = "send_message"
	ActionAdjustRelations = "adjust_relations"
)

// TurnAction is the tagged union submitted via submit_actions. Only the fields
// relevant to Type are read; the rest stay zero.
type TurnAction struct {
	Type         string  `json:"type"`
	RegionID     string  `json:"regionId,omitempty"`
	ToNationID   string  `json:"toNationId,omitempty"`
	Intent       string  `json:"intent,omitempty"`
	Message      string  `json:"message,omitempty"`
	OpinionDelta float64 `json:"opinionDelta,omitempty"`
}
