// Turn processor: the full resolution pass triggered by the readiness
// barrier. Applies per-turn economic updates, drifts diplomacy toward
// neutral, resolves territorial claims, and persists the resulting events.
package strategy

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/besplago/gamemaster/internal/world"
)

// Per-turn economy tuning.
const (
	gdpGrowthRate      = 0.01 // Baseline GDP drift per turn.
	opinionDriftRate   = 0.02 // Opinions decay toward neutral by this fraction per turn.
	regionIncomeAmount = 10.0 // Resource units one owned region yields per turn.
)

// regionYield maps region terrain to the resources an owning nation collects
// each turn. Shares sum to 1.
var regionYield = map[string]map[string]float64{
	world.RegionPlains:    {"food": 1.0},
	world.RegionMountains: {"metal": 1.0},
	world.RegionDesert:    {"oil": 1.0},
	world.RegionCoast:     {"food": 0.5, "oil": 0.5},
}

// Processor orchestrates one turn resolution pass. Invoked only from the
// coordinator's barrier trigger, never directly.
type Processor struct {
	store    Store
	resolver *Resolver
}

// NewProcessor creates a processor over the given store.
func NewProcessor(store Store) *Processor {
	return &Processor{store: store, resolver: NewResolver()}
}

// ProcessTurn resolves one turn of a world. Any error aborts the pass; the
// coordinator handles phase recovery.
func (p *Processor) ProcessTurn(worldID string, turn int) error {
	nations, err := p.store.NationsByWorld(worldID)
	if err != nil {
		return fmt.Errorf("load nations: %w", err)
	}
	regions, err := p.store.RegionsByWorld(worldID)
	if err != nil {
		return fmt.Errorf("load regions: %w", err)
	}
	relations, err := p.store.RelationsByWorld(worldID)
	if err != nil {
		return fmt.Errorf("load relations: %w", err)
	}
	claims, err := p.store.ClaimsByTurn(worldID, turn)
	if err != nil {
		return fmt.Errorf("load claims: %w", err)
	}

	if err := p.applyEconomy(nations, regions); err != nil {
		return fmt.Errorf("economy pass: %w", err)
	}
	if err := p.driftOpinions(relations); err != nil {
		return fmt.Errorf("diplomacy drift: %w", err)
	}

	outcome := p.resolver.Resolve(turn, nations, regions, relations, claims)

	for regionID, ownerID := range outcome.RegionOwners {
		if err := p.store.UpdateRegionOwner(regionID, ownerID); err != nil {
			return fmt.Errorf("update region owner: %w", err)
		}
	}
	for _, rel := range outcome.RelationUpdates {
		if err := p.store.UpsertRelation(rel); err != nil {
			return fmt.Errorf("update relation: %w", err)
		}
	}

	events := outcome.Events
	events = append(events, newEvent(worldID, turn, world.EventTurnResolved,
		fmt.Sprintf("Turn %d resolved: %d nations, %d claims, %d contested regions.",
			turn, len(nations), len(claims), outcome.ContestedRegions)))

	if err := p.store.AddTurnEvents(events); err != nil {
		return fmt.Errorf("persist events: %w", err)
	}

	slog.Info("turn processed",
		"world", worldID, "turn", turn,
		"claims", len(claims), "events", len(events))
	return nil
}

// applyEconomy grows each nation's stockpiles from its owned regions and
// drifts GDP.
func (p *Processor) applyEconomy(nations []*world.Nation, regions []*world.Region) error {
	owned := make(map[string][]*world.Region)
	for _, r := range regions {
		if r.OwnerNationID != "" {
			owned[r.OwnerNationID] = append(owned[r.OwnerNationID], r)
		}
	}

	for _, n := range nations {
		income := 0.0
		for _, r := range owned[n.ID] {
			yield, ok := regionYield[r.Type]
			if !ok {
				continue
			}
			for resource, share := range yield {
				if n.Resources == nil {
					n.Resources = make(map[string]float64)
				}
				n.Resources[resource] += regionIncomeAmount * share
				income += regionIncomeAmount * share
			}
		}
		n.GDP += n.GDP*gdpGrowthRate + income

		if err := p.store.UpdateNation(n); err != nil {
			return err
		}
	}
	return nil
}

// driftOpinions pulls every stored opinion a step toward neutral. Grudges
// fade, friendships cool.
func (p *Processor) driftOpinions(relations []*world.DiplomacyRelation) error {
	for _, rel := range relations {
		drift := (rel.Opinion - world.DefaultOpinion) * opinionDriftRate
		if drift == 0 {
			continue
		}
		rel.Opinion -= drift
		if err := p.store.UpsertRelation(rel); err != nil {
			return err
		}
	}
	return nil
}

// newEvent builds a turn event with a fresh ID.
func newEvent(worldID string, turn int, kind, description string) *world.TurnEvent {
	return &world.TurnEvent{
		ID:          uuid.NewString(),
		WorldID:     worldID,
		Turn:        turn,
		Kind:        kind,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}
