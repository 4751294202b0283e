// Conflict resolver: decides contested territorial claims and the
// diplomatic fallout. Resolution is fully deterministic: scoring uses no
// randomness and every iteration order is fixed, so any two clients polling
// the same resolved turn see identical events.
package strategy

import (
	"fmt"
	"sort"

	"github.com/besplago/gamemaster/internal/world"
)

// Fallout tuning.
const (
	opinionPenaltyOnLoss = 20.0 // Loser's opinion of the winner drops by this.
	allyBackingBonus     = 15.0 // Score bonus per ally backing a claim.
	truceDurationTurns   = 3    // Turns a post-conflict truce holds.
)

// Outcome is everything a resolution pass decided. The processor persists it;
// the resolver itself never touches storage.
type Outcome struct {
	Events           []*world.TurnEvent
	RegionOwners     map[string]string // region ID → winning nation ID
	RelationUpdates  []*world.DiplomacyRelation
	ContestedRegions int
}

// Resolver computes territorial conflict outcomes for one turn.
type Resolver struct{}

// NewResolver creates a resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve interprets the turn's claims against the current nation and
// diplomacy state. A region claimed by one nation is taken unopposed; a
// region claimed by several is contested and the highest-scoring claimant
// prevails. Inputs are not mutated.
func (r *Resolver) Resolve(turn int, nations []*world.Nation, regions []*world.Region, relations []*world.DiplomacyRelation, claims []*world.Claim) *Outcome {
	out := &Outcome{RegionOwners: make(map[string]string)}

	nationByID := make(map[string]*world.Nation, len(nations))
	for _, n := range nations {
		nationByID[n.ID] = n
	}
	regionByID := make(map[string]*world.Region, len(regions))
	for _, reg := range regions {
		regionByID[reg.ID] = reg
	}

	rels := newRelationView(relations)

	// Deduplicate claims: one effective claim per (nation, region), keeping
	// the strongest. Then group by region.
	type claimKey struct{ nationID, regionID string }
	effective := make(map[claimKey]*world.Claim)
	for _, cl := range claims {
		key := claimKey{cl.NationID, cl.RegionID}
		if prev, ok := effective[key]; !ok || cl.ClaimStrength > prev.ClaimStrength {
			effective[key] = cl
		}
	}
	byRegion := make(map[string][]*world.Claim)
	for _, cl := range effective {
		byRegion[cl.RegionID] = append(byRegion[cl.RegionID], cl)
	}

	// Fixed region order keeps event output deterministic.
	regionIDs := make([]string, 0, len(byRegion))
	for id := range byRegion {
		regionIDs = append(regionIDs, id)
	}
	sort.Strings(regionIDs)

	for _, regionID := range regionIDs {
		regionClaims := byRegion[regionID]
		sort.Slice(regionClaims, func(i, j int) bool {
			return regionClaims[i].NationID < regionClaims[j].NationID
		})

		regionName := regionID
		if reg, ok := regionByID[regionID]; ok {
			regionName = reg.Name
		}

		if len(regionClaims) == 1 {
			cl := regionClaims[0]
			out.RegionOwners[regionID] = cl.NationID
			out.Events = append(out.Events, newEvent(cl.WorldID, turn, world.EventTerritoryResolved,
				fmt.Sprintf("%s takes %s unopposed.", nameOf(nationByID, cl.NationID), regionName)))
			continue
		}

		out.ContestedRegions++
		r.resolveContested(turn, regionID, regionName, regionClaims, nationByID, rels, out)
	}

	out.RelationUpdates = rels.dirty()
	return out
}

// resolveContested scores each claimant and settles the fallout between the
// winner and every loser.
func (r *Resolver) resolveContested(turn int, regionID, regionName string, regionClaims []*world.Claim, nationByID map[string]*world.Nation, rels *relationView, out *Outcome) {
	claimants := make(map[string]bool, len(regionClaims))
	for _, cl := range regionClaims {
		claimants[cl.NationID] = true
	}

	// Score = strength + aggression/2 + gdp/1000 + 15 per backing ally.
	// An ally backs the claim unless it is contesting the same region itself.
	var winner *world.Claim
	var bestScore float64
	for _, cl := range regionClaims {
		score := cl.ClaimStrength
		if n, ok := nationByID[cl.NationID]; ok {
			score += n.Aggression/2 + n.GDP/1000
		}
		for otherID := range nationByID {
			if otherID == cl.NationID || claimants[otherID] {
				continue
			}
			if rel := rels.get(cl.WorldID, cl.NationID, otherID); rel != nil && rel.IsAllied {
				score += allyBackingBonus
			}
		}

		// Ties break toward the lexicographically smaller nation ID; the
		// claims are already sorted that way.
		if winner == nil || score > bestScore {
			winner, bestScore = cl, score
		}
	}

	winnerName := nameOf(nationByID, winner.NationID)
	out.RegionOwners[regionID] = winner.NationID
	out.Events = append(out.Events, newEvent(winner.WorldID, turn, world.EventTerritoryResolved,
		fmt.Sprintf("%s prevails in the dispute over %s (%d rival claims).",
			winnerName, regionName, len(regionClaims)-1)))

	for _, cl := range regionClaims {
		if cl.NationID == winner.NationID {
			continue
		}
		loserName := nameOf(nationByID, cl.NationID)

		// Losing a dispute sours the loser on the winner.
		rel := rels.upsert(cl.WorldID, cl.NationID, winner.NationID)
		rel.Opinion -= opinionPenaltyOnLoss
		out.Events = append(out.Events, newEvent(cl.WorldID, turn, world.EventRelationsChanged,
			fmt.Sprintf("%s's opinion of %s falls to %.0f after losing %s.",
				loserName, winnerName, rel.Opinion, regionName)))

		// A contested dispute between allies breaks the alliance, both ways.
		broke := false
		for _, pair := range [][2]string{{cl.NationID, winner.NationID}, {winner.NationID, cl.NationID}} {
			if existing := rels.get(cl.WorldID, pair[0], pair[1]); existing != nil && existing.IsAllied {
				existing.IsAllied = false
				rels.markDirty(cl.WorldID, pair[0], pair[1])
				broke = true
			}
		}
		if broke {
			out.Events = append(out.Events, newEvent(cl.WorldID, turn, world.EventAllianceBroken,
				fmt.Sprintf("The alliance between %s and %s collapses over %s.",
					winnerName, loserName, regionName)))
		}

		// Both sides hold a truce for a few turns.
		for _, pair := range [][2]string{{cl.NationID, winner.NationID}, {winner.NationID, cl.NationID}} {
			trel := rels.upsert(cl.WorldID, pair[0], pair[1])
			if until := turn + truceDurationTurns; until > trel.TruceUntilTurn {
				trel.TruceUntilTurn = until
			}
		}
		out.Events = append(out.Events, newEvent(cl.WorldID, turn, world.EventTruceDeclared,
			fmt.Sprintf("%s and %s agree to a truce until turn %d.",
				winnerName, loserName, turn+truceDurationTurns)))
	}
}

func nameOf(nationByID map[string]*world.Nation, id string) string {
	if n, ok := nationByID[id]; ok {
		return n.Name
	}
	return id
}

// relationView is a copy-on-read overlay over the turn's relations, tracking
// which directed pairs were touched so only those are written back.
type relationView struct {
	byKey   map[string]*world.DiplomacyRelation
	touched map[string]bool
}

func relKey(worldID, from, to string) string {
	return worldID + "|" + from + "|" + to
}

func newRelationView(relations []*world.DiplomacyRelation) *relationView {
	v := &relationView{
		byKey:   make(map[string]*world.DiplomacyRelation, len(relations)),
		touched: make(map[string]bool),
	}
	for _, rel := range relations {
		cp := *rel
		v.byKey[relKey(rel.WorldID, rel.FromNationID, rel.ToNationID)] = &cp
	}
	return v
}

func (v *relationView) get(worldID, from, to string) *world.DiplomacyRelation {
	return v.byKey[relKey(worldID, from, to)]
}

// upsert returns the directed relation, creating it at the default opinion if
// absent, and marks it dirty.
func (v *relationView) upsert(worldID, from, to string) *world.DiplomacyRelation {
	key := relKey(worldID, from, to)
	rel, ok := v.byKey[key]
	if !ok {
		rel = &world.DiplomacyRelation{
			WorldID:      worldID,
			FromNationID: from,
			ToNationID:   to,
			Opinion:      world.DefaultOpinion,
		}
		v.byKey[key] = rel
	}
	v.touched[key] = true
	return rel
}

func (v *relationView) markDirty(worldID, from, to string) {
	v.touched[relKey(worldID, from, to)] = true
}

// dirty returns the touched relations in a fixed order.
func (v *relationView) dirty() []*world.DiplomacyRelation {
	keys := make([]string, 0, len(v.touched))
	for k := range v.touched {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rels := make([]*world.DiplomacyRelation, 0, len(keys))
	for _, k := range keys {
		rels = append(rels, v.byKey[k])
	}
	return rels
}
