// Per-action-type effects, applied immediately and synchronously when a
// nation submits its planning actions. Diplomacy mutates right away;
// territorial claims are only recorded here and resolved at end of turn.
package strategy

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/besplago/gamemaster/internal/world"
)

// FixedClaimStrength is the strength recorded for every submitted claim.
const FixedClaimStrength = 100

// applyActions processes a nation's action list in order, returning one
// human-readable description per processed action. Unrecognized or malformed
// entries are skipped silently. Caller holds the world lock.
func (c *Coordinator) applyActions(ts *world.TurnState, nation *world.Nation, actions []world.TurnAction) ([]string, error) {
	var nationNames map[string]string // Lazily built target-name lookup.
	nameOf := func(id string) (string, error) {
		if nationNames == nil {
			all, err := c.store.NationsByWorld(ts.WorldID)
			if err != nil {
				return "", err
			}
			nationNames = make(map[string]string, len(all))
			for _, n := range all {
				nationNames[n.ID] = n.Name
			}
		}
		if name, ok := nationNames[id]; ok {
			return name, nil
		}
		return id, nil
	}

	processed := make([]string, 0, len(actions))
	for _, a := range actions {
		var desc string
		var err error

		switch a.Type {
		case world.ActionClaimRegion:
			desc, err = c.applyClaimRegion(ts, nation, a)
		case world.ActionProposeAlliance:
			desc, err = c.applyProposeAlliance(ts, nation, a, nameOf)
		case world.ActionBreakAlliance:
			desc, err = c.applyBreakAlliance(ts, nation, a, nameOf)
		case world.ActionDeclareIntent:
			if a.Intent == "" {
				continue
			}
			desc = fmt.Sprintf("%s declares intent: %s", nation.Name, a.Intent)
		case world.ActionSendMessage:
			if a.Message == "" || a.ToNationID == "" {
				continue
			}
			var target string
			if target, err = nameOf(a.ToNationID); err == nil {
				desc = fmt.Sprintf("%s sends a message to %s", nation.Name, target)
			}
		case world.ActionAdjustRelations:
			desc, err = c.applyAdjustRelations(ts, nation, a, nameOf)
		default:
			continue
		}

		if err != nil {
			return nil, err
		}
		if desc != "" {
			processed = append(processed, desc)
		}
	}
	return processed, nil
}

// applyClaimRegion appends a claim record. Existing claims by other nations
// are deliberately not checked here; overlap is the conflict resolver's job.
func (c *Coordinator) applyClaimRegion(ts *world.TurnState, nation *world.Nation, a world.TurnAction) (string, error) {
	if a.RegionID == "" {
		return "", nil
	}
	claim := &world.Claim{
		ID:            uuid.NewString(),
		WorldID:       ts.WorldID,
		NationID:      nation.ID,
		RegionID:      a.RegionID,
		Turn:          ts.CurrentTurn,
		ClaimStrength: FixedClaimStrength,
		Justification: a.Intent,
		CreatedAt:     time.Now().UTC(),
	}
	if err := c.store.AddClaim(claim); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s stakes a claim on region %s (strength %d)",
		nation.Name, a.RegionID, FixedClaimStrength), nil
}

// applyProposeAlliance allies the directed pair when there is no standing
// relation or the standing opinion is at least 50; otherwise the proposal is
// recorded as declined with no state change.
func (c *Coordinator) applyProposeAlliance(ts *world.TurnState, nation *world.Nation, a world.TurnAction, nameOf func(string) (string, error)) (string, error) {
	if a.ToNationID == "" {
		return "", nil
	}
	target, err := nameOf(a.ToNationID)
	if err != nil {
		return "", err
	}

	rel, err := c.store.Relation(ts.WorldID, nation.ID, a.ToNationID)
	if err != nil {
		return "", err
	}

	if rel != nil && rel.Opinion < world.DefaultOpinion {
		return fmt.Sprintf("%s proposes an alliance to %s, but relations are too strained (opinion %.0f)",
			nation.Name, target, rel.Opinion), nil
	}

	if rel == nil {
		rel = &world.DiplomacyRelation{
			WorldID:      ts.WorldID,
			FromNationID: nation.ID,
			ToNationID:   a.ToNationID,
			Opinion:      world.DefaultOpinion,
		}
	}
	rel.IsAllied = true
	if err := c.store.UpsertRelation(rel); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s forms an alliance with %s (opinion %.0f)",
		nation.Name, target, rel.Opinion), nil
}

// applyBreakAlliance drops the allied flag on the one directed relation only.
func (c *Coordinator) applyBreakAlliance(ts *world.TurnState, nation *world.Nation, a world.TurnAction, nameOf func(string) (string, error)) (string, error) {
	if a.ToNationID == "" {
		return "", nil
	}
	rel, err := c.store.Relation(ts.WorldID, nation.ID, a.ToNationID)
	if err != nil {
		return "", err
	}
	if rel == nil || !rel.IsAllied {
		return "", nil
	}

	target, err := nameOf(a.ToNationID)
	if err != nil {
		return "", err
	}
	rel.IsAllied = false
	if err := c.store.UpsertRelation(rel); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s breaks its alliance with %s", nation.Name, target), nil
}

// applyAdjustRelations upserts opinion = (existing or 50) + delta, unclamped.
func (c *Coordinator) applyAdjustRelations(ts *world.TurnState, nation *world.Nation, a world.TurnAction, nameOf func(string) (string, error)) (string, error) {
	if a.ToNationID == "" || a.OpinionDelta == 0 {
		return "", nil
	}
	target, err := nameOf(a.ToNationID)
	if err != nil {
		return "", err
	}

	rel, err := c.store.Relation(ts.WorldID, nation.ID, a.ToNationID)
	if err != nil {
		return "", err
	}
	if rel == nil {
		rel = &world.DiplomacyRelation{
			WorldID:      ts.WorldID,
			FromNationID: nation.ID,
			ToNationID:   a.ToNationID,
			Opinion:      world.DefaultOpinion,
		}
	}
	rel.Opinion += a.OpinionDelta
	if err := c.store.UpsertRelation(rel); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s adjusts its opinion of %s by %+.0f (now %.0f)",
		nation.Name, target, a.OpinionDelta, rel.Opinion), nil
}
