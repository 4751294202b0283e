package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/besplago/gamemaster/internal/world"
)

// memStore is an in-memory Store for engine tests.
type memStore struct {
	mu        sync.Mutex
	worlds    map[string]*world.World
	nations   map[string]*world.Nation
	regions   map[string]*world.Region
	relations map[string]*world.DiplomacyRelation
	claims    []*world.Claim
	states    map[string]*world.TurnState
	events    []*world.TurnEvent
}

func newMemStore() *memStore {
	return &memStore{
		worlds:    make(map[string]*world.World),
		nations:   make(map[string]*world.Nation),
		regions:   make(map[string]*world.Region),
		relations: make(map[string]*world.DiplomacyRelation),
		states:    make(map[string]*world.TurnState),
	}
}

func (s *memStore) addWorld(id string) {
	s.worlds[id] = &world.World{ID: id, Name: id}
}

func (s *memStore) addNation(n *world.Nation) {
	s.nations[n.ID] = n
}

func (s *memStore) addRegion(r *world.Region) {
	s.regions[r.ID] = r
}

func (s *memStore) World(id string) (*world.World, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.worlds[id], nil
}

func (s *memStore) Nation(worldID, nationID string) (*world.Nation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nations[nationID]
	if !ok || n.WorldID != worldID {
		return nil, nil
	}
	return n, nil
}

func (s *memStore) NationsByWorld(worldID string) ([]*world.Nation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*world.Nation
	for _, n := range s.nations {
		if n.WorldID == worldID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) UpdateNation(n *world.Nation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nations[n.ID] = n
	return nil
}

func (s *memStore) RegionsByWorld(worldID string) ([]*world.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*world.Region
	for _, r := range s.regions {
		if r.WorldID == worldID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) UpdateRegionOwner(regionID, nationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.regions[regionID]
	if !ok {
		return fmt.Errorf("no region %s", regionID)
	}
	r.OwnerNationID = nationID
	return nil
}

func memRelKey(worldID, from, to string) string {
	return worldID + "|" + from + "|" + to
}

func (s *memStore) Relation(worldID, from, to string) (*world.DiplomacyRelation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rel, ok := s.relations[memRelKey(worldID, from, to)]
	if !ok {
		return nil, nil
	}
	cp := *rel
	return &cp, nil
}

func (s *memStore) RelationsByWorld(worldID string) ([]*world.DiplomacyRelation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.relations))
	for k, rel := range s.relations {
		if rel.WorldID == worldID {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]*world.DiplomacyRelation, 0, len(keys))
	for _, k := range keys {
		cp := *s.relations[k]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memStore) UpsertRelation(rel *world.DiplomacyRelation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rel
	s.relations[memRelKey(rel.WorldID, rel.FromNationID, rel.ToNationID)] = &cp
	return nil
}

func (s *memStore) AddClaim(c *world.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.claims = append(s.claims, &cp)
	return nil
}

func (s *memStore) ClaimsByTurn(worldID string, turn int) ([]*world.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*world.Claim
	for _, c := range s.claims {
		if c.WorldID == worldID && c.Turn == turn {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) TurnState(worldID string) (*world.TurnState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.states[worldID]
	if !ok {
		return nil, nil
	}
	cp := *ts
	cp.NationsReady = make(map[string]struct{}, len(ts.NationsReady))
	for id := range ts.NationsReady {
		cp.NationsReady[id] = struct{}{}
	}
	return &cp, nil
}

func (s *memStore) SaveTurnState(ts *world.TurnState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ts
	cp.NationsReady = make(map[string]struct{}, len(ts.NationsReady))
	for id := range ts.NationsReady {
		cp.NationsReady[id] = struct{}{}
	}
	s.states[ts.WorldID] = &cp
	return nil
}

func (s *memStore) AddTurnEvents(events []*world.TurnEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range events {
		cp := *ev
		s.events = append(s.events, &cp)
	}
	return nil
}

func (s *memStore) EventsByTurn(worldID string, turn, limit int) ([]*world.TurnEvent, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []*world.TurnEvent
	for _, ev := range s.events {
		if ev.WorldID == worldID && ev.Turn == turn {
			all = append(all, ev)
		}
	}
	total := len(all)
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

// failStore wraps a Store and fails the named method, to exercise resolution
// failure recovery.
type failStore struct {
	Store
	failClaims bool
}

func (s *failStore) ClaimsByTurn(worldID string, turn int) ([]*world.Claim, error) {
	if s.failClaims {
		return nil, fmt.Errorf("disk on fire")
	}
	return s.Store.ClaimsByTurn(worldID, turn)
}
