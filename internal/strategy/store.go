// Package strategy implements the turn-based strategy engine: a per-world
// readiness barrier over a planning/resolution/finished phase cycle, the turn
// processor it triggers, and the territorial conflict resolver.
package strategy

import (
	"errors"
	"fmt"

	"github.com/besplago/gamemaster/internal/world"
)

// Store is the record access the engine needs. *persistence.DB satisfies it.
type Store interface {
	World(id string) (*world.World, error)
	Nation(worldID, nationID string) (*world.Nation, error)
	NationsByWorld(worldID string) ([]*world.Nation, error)
	UpdateNation(n *world.Nation) error

	RegionsByWorld(worldID string) ([]*world.Region, error)
	UpdateRegionOwner(regionID, nationID string) error

	Relation(worldID, from, to string) (*world.DiplomacyRelation, error)
	RelationsByWorld(worldID string) ([]*world.DiplomacyRelation, error)
	UpsertRelation(rel *world.DiplomacyRelation) error

	AddClaim(c *world.Claim) error
	ClaimsByTurn(worldID string, turn int) ([]*world.Claim, error)

	TurnState(worldID string) (*world.TurnState, error)
	SaveTurnState(ts *world.TurnState) error

	AddTurnEvents(events []*world.TurnEvent) error
	EventsByTurn(worldID string, turn, limit int) ([]*world.TurnEvent, int, error)
}

// Sentinel errors surfaced to the tool layer.
var (
	ErrNotInitialized = errors.New("turn state not initialized for world")
	ErrTurnNotFound   = errors.New("no turn state recorded for world")
	ErrWorldNotFound  = errors.New("world not found")
	ErrNationNotFound = errors.New("nation not found in world")
)

// WrongPhaseError reports an operation attempted outside the planning phase.
type WrongPhaseError struct {
	Phase string
}

func (e *WrongPhaseError) Error() string {
	return fmt.Sprintf("actions may only be submitted during planning (current phase: %s)", e.Phase)
}

// ResolutionError wraps a turn processor failure. The turn did not advance;
// effects persisted before the failure are not rolled back.
type ResolutionError struct {
	Turn int
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("turn %d resolution failed: %v", e.Turn, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }
