package strategy

import (
	"math"
	"testing"

	"github.com/besplago/gamemaster/internal/world"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEconomyPassCollectsRegionIncome(t *testing.T) {
	store := newMemStore()
	store.addWorld("w1")
	store.addNation(&world.Nation{
		ID: "alpha", WorldID: "w1", Name: "Alphia", GDP: 1000,
		Resources: map[string]float64{"food": 100},
	})
	store.addRegion(&world.Region{ID: "r1", WorldID: "w1", Type: world.RegionPlains, OwnerNationID: "alpha"})
	store.addRegion(&world.Region{ID: "r2", WorldID: "w1", Type: world.RegionCoast, OwnerNationID: "alpha"})
	store.addRegion(&world.Region{ID: "r3", WorldID: "w1", Type: world.RegionMountains}) // unowned

	p := NewProcessor(store)
	if err := p.ProcessTurn("w1", 1); err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}

	n, _ := store.Nation("w1", "alpha")
	// Plains yields 10 food, coast splits 5 food / 5 oil.
	if !almostEqual(n.Resources["food"], 115) {
		t.Fatalf("food = %v, want 115", n.Resources["food"])
	}
	if !almostEqual(n.Resources["oil"], 5) {
		t.Fatalf("oil = %v, want 5", n.Resources["oil"])
	}
	if _, ok := n.Resources["metal"]; ok {
		t.Fatal("unowned mountain region should yield nothing")
	}
	// GDP: 1% growth plus the 20 units of region income.
	if !almostEqual(n.GDP, 1000+1000*gdpGrowthRate+20) {
		t.Fatalf("GDP = %v", n.GDP)
	}
}

func TestOpinionDriftTowardNeutral(t *testing.T) {
	store := newMemStore()
	store.addWorld("w1")
	store.addNation(&world.Nation{ID: "alpha", WorldID: "w1", Name: "Alphia"})
	store.addNation(&world.Nation{ID: "beta", WorldID: "w1", Name: "Betania"})
	seed := []*world.DiplomacyRelation{
		{WorldID: "w1", FromNationID: "alpha", ToNationID: "beta", Opinion: 100},
		{WorldID: "w1", FromNationID: "beta", ToNationID: "alpha", Opinion: 10},
	}
	for _, rel := range seed {
		if err := store.UpsertRelation(rel); err != nil {
			t.Fatal(err)
		}
	}

	p := NewProcessor(store)
	if err := p.ProcessTurn("w1", 1); err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}

	ab, _ := store.Relation("w1", "alpha", "beta")
	ba, _ := store.Relation("w1", "beta", "alpha")
	if !almostEqual(ab.Opinion, 100-(100-50)*opinionDriftRate) {
		t.Fatalf("alpha→beta opinion = %v", ab.Opinion)
	}
	if !almostEqual(ba.Opinion, 10-(10-50)*opinionDriftRate) {
		t.Fatalf("beta→alpha opinion = %v (should rise toward 50)", ba.Opinion)
	}
}

func TestProcessTurnRecordsSummaryEvent(t *testing.T) {
	store := newMemStore()
	store.addWorld("w1")
	store.addNation(&world.Nation{ID: "alpha", WorldID: "w1", Name: "Alphia"})

	p := NewProcessor(store)
	if err := p.ProcessTurn("w1", 3); err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}

	events, total, _ := store.EventsByTurn("w1", 3, 0)
	if total != 1 || events[0].Kind != world.EventTurnResolved {
		t.Fatalf("events: total=%d %+v", total, events)
	}
}
