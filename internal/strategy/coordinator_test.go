package strategy

import (
	"errors"
	"strings"
	"testing"

	"github.com/besplago/gamemaster/internal/world"
)

func newTestWorld(t *testing.T) (*Coordinator, *memStore) {
	t.Helper()
	store := newMemStore()
	store.addWorld("w1")
	store.addNation(&world.Nation{
		ID: "alpha", WorldID: "w1", Name: "Alphia",
		Aggression: 40, GDP: 2000,
		Resources: map[string]float64{},
	})
	store.addNation(&world.Nation{
		ID: "beta", WorldID: "w1", Name: "Betania",
		Aggression: 10, GDP: 1000,
		Resources: map[string]float64{},
	})
	store.addRegion(&world.Region{ID: "r1", WorldID: "w1", Name: "Ironhold", Type: world.RegionPlains})
	store.addRegion(&world.Region{ID: "r2", WorldID: "w1", Name: "Greywater", Type: world.RegionCoast})
	return NewCoordinator(store), store
}

func mustInit(t *testing.T, c *Coordinator, worldID string) {
	t.Helper()
	if _, err := c.Init(worldID); err != nil {
		t.Fatalf("Init(%s): %v", worldID, err)
	}
}

func TestInitRequiresWorld(t *testing.T) {
	c, _ := newTestWorld(t)
	if _, err := c.Init("nope"); !errors.Is(err, ErrWorldNotFound) {
		t.Fatalf("Init on missing world: got %v, want ErrWorldNotFound", err)
	}
}

func TestInitIsIdempotent(t *testing.T) {
	c, _ := newTestWorld(t)

	first, err := c.Init("w1")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if first.AlreadyInitialized || first.CurrentTurn != 1 || first.Phase != world.PhasePlanning {
		t.Fatalf("first Init: %+v", first)
	}

	second, err := c.Init("w1")
	if err != nil {
		t.Fatalf("second Init: %v", err)
	}
	if !second.AlreadyInitialized || second.CurrentTurn != 1 {
		t.Fatalf("second Init should report existing state: %+v", second)
	}
}

func TestOperationsRequireInit(t *testing.T) {
	c, _ := newTestWorld(t)

	if _, err := c.Status("w1"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Status before init: got %v", err)
	}
	if _, err := c.SubmitActions("w1", "alpha", nil); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("SubmitActions before init: got %v", err)
	}
	if _, err := c.MarkReady("w1", "alpha"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("MarkReady before init: got %v", err)
	}
	if _, err := c.PollResults("w1", 1); !errors.Is(err, ErrTurnNotFound) {
		t.Fatalf("PollResults before init: got %v", err)
	}
}

func TestSubmitUnknownNation(t *testing.T) {
	c, _ := newTestWorld(t)
	mustInit(t, c, "w1")

	if _, err := c.SubmitActions("w1", "gamma", nil); !errors.Is(err, ErrNationNotFound) {
		t.Fatalf("SubmitActions unknown nation: got %v", err)
	}
	if _, err := c.MarkReady("w1", "gamma"); !errors.Is(err, ErrNationNotFound) {
		t.Fatalf("MarkReady unknown nation: got %v", err)
	}
}

func TestSubmitOutsidePlanning(t *testing.T) {
	c, store := newTestWorld(t)
	mustInit(t, c, "w1")

	ts, _ := store.TurnState("w1")
	ts.Phase = world.PhaseResolution
	if err := store.SaveTurnState(ts); err != nil {
		t.Fatal(err)
	}

	_, err := c.SubmitActions("w1", "alpha", nil)
	var wrongPhase *WrongPhaseError
	if !errors.As(err, &wrongPhase) {
		t.Fatalf("SubmitActions in resolution: got %v, want WrongPhaseError", err)
	}
	if wrongPhase.Phase != world.PhaseResolution {
		t.Fatalf("WrongPhaseError.Phase = %q", wrongPhase.Phase)
	}

	if _, err := c.MarkReady("w1", "alpha"); !errors.As(err, &wrongPhase) {
		t.Fatalf("MarkReady in resolution: got %v, want WrongPhaseError", err)
	}
}

func TestStatusReportsWaiting(t *testing.T) {
	c, _ := newTestWorld(t)
	mustInit(t, c, "w1")

	st, err := c.Status("w1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.TotalNations != 2 || st.NationsReady != 0 || !st.CanSubmitActions {
		t.Fatalf("fresh status: %+v", st)
	}
	if len(st.WaitingFor) != 2 || st.WaitingFor[0] != "Alphia" || st.WaitingFor[1] != "Betania" {
		t.Fatalf("WaitingFor = %v", st.WaitingFor)
	}

	if _, err := c.MarkReady("w1", "beta"); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	st, _ = c.Status("w1")
	if st.NationsReady != 1 || st.AllReady {
		t.Fatalf("status after one ready: %+v", st)
	}
	if len(st.WaitingFor) != 1 || st.WaitingFor[0] != "Alphia" {
		t.Fatalf("WaitingFor = %v", st.WaitingFor)
	}
}

func TestMarkReadyIsIdempotent(t *testing.T) {
	c, _ := newTestWorld(t)
	mustInit(t, c, "w1")

	for i := 0; i < 3; i++ {
		res, err := c.MarkReady("w1", "alpha")
		if err != nil {
			t.Fatalf("MarkReady #%d: %v", i+1, err)
		}
		if res.AllReady {
			t.Fatalf("MarkReady #%d resolved the turn with beta outstanding", i+1)
		}
		if res.NationsReady != 1 {
			t.Fatalf("MarkReady #%d: NationsReady = %d", i+1, res.NationsReady)
		}
	}
}

func TestBarrierResolvesTurnExactlyOnce(t *testing.T) {
	c, store := newTestWorld(t)
	mustInit(t, c, "w1")

	if _, err := c.SubmitActions("w1", "alpha", []world.TurnAction{
		{Type: world.ActionClaimRegion, RegionID: "r1"},
	}); err != nil {
		t.Fatalf("alpha submit: %v", err)
	}
	if _, err := c.SubmitActions("w1", "beta", []world.TurnAction{
		{Type: world.ActionClaimRegion, RegionID: "r1"},
	}); err != nil {
		t.Fatalf("beta submit: %v", err)
	}

	res, err := c.MarkReady("w1", "alpha")
	if err != nil {
		t.Fatalf("alpha ready: %v", err)
	}
	if res.AllReady {
		t.Fatal("turn resolved before beta was ready")
	}

	res, err = c.MarkReady("w1", "beta")
	if err != nil {
		t.Fatalf("beta ready: %v", err)
	}
	if !res.AllReady || res.TurnResolved != 1 || res.NextTurn != 2 {
		t.Fatalf("barrier result: %+v", res)
	}

	ts, _ := store.TurnState("w1")
	if ts.CurrentTurn != 2 || ts.Phase != world.PhasePlanning {
		t.Fatalf("post-resolution state: turn=%d phase=%s", ts.CurrentTurn, ts.Phase)
	}
	if len(ts.NationsReady) != 0 {
		t.Fatalf("readiness not cleared: %v", ts.NationsReady)
	}

	// Higher aggression and GDP carry the contested region.
	if owner := store.regions["r1"].OwnerNationID; owner != "alpha" {
		t.Fatalf("r1 owner = %q, want alpha", owner)
	}
}

func TestSubmitActionsEffects(t *testing.T) {
	c, store := newTestWorld(t)
	mustInit(t, c, "w1")

	res, err := c.SubmitActions("w1", "alpha", []world.TurnAction{
		{Type: world.ActionClaimRegion, RegionID: "r2", Intent: "securing the coast"},
		{Type: world.ActionAdjustRelations, ToNationID: "beta", OpinionDelta: 10},
		{Type: world.ActionAdjustRelations, ToNationID: "beta", OpinionDelta: 10},
		{Type: world.ActionDeclareIntent, Intent: "we seek peace"},
		{Type: "do_a_barrel_roll"},
		{Type: world.ActionSendMessage, ToNationID: "beta", Message: "hello"},
	})
	if err != nil {
		t.Fatalf("SubmitActions: %v", err)
	}
	if res.ActionsSubmitted != 5 {
		t.Fatalf("ActionsSubmitted = %d (unknown action should be skipped): %v",
			res.ActionsSubmitted, res.ProcessedActions)
	}

	claims, _ := store.ClaimsByTurn("w1", 1)
	if len(claims) != 1 {
		t.Fatalf("claims = %d", len(claims))
	}
	cl := claims[0]
	if cl.ClaimStrength != FixedClaimStrength || cl.Justification != "securing the coast" {
		t.Fatalf("claim: %+v", cl)
	}

	// Two +10 adjustments stack on the 50 default, unclamped by anything.
	rel, _ := store.Relation("w1", "alpha", "beta")
	if rel == nil || rel.Opinion != 70 {
		t.Fatalf("alpha→beta opinion = %+v, want 70", rel)
	}
	// The reverse direction is untouched.
	if rev, _ := store.Relation("w1", "beta", "alpha"); rev != nil {
		t.Fatalf("beta→alpha should not exist, got %+v", rev)
	}
}

func TestOpinionAdjustmentsAreUnclamped(t *testing.T) {
	c, store := newTestWorld(t)
	mustInit(t, c, "w1")

	actions := make([]world.TurnAction, 8)
	for i := range actions {
		actions[i] = world.TurnAction{Type: world.ActionAdjustRelations, ToNationID: "beta", OpinionDelta: 25}
	}
	if _, err := c.SubmitActions("w1", "alpha", actions); err != nil {
		t.Fatalf("SubmitActions: %v", err)
	}
	rel, _ := store.Relation("w1", "alpha", "beta")
	if rel.Opinion != 250 {
		t.Fatalf("opinion = %v, want 250 (no cap at 100)", rel.Opinion)
	}
}

func TestProposeAllianceRespectsOpinion(t *testing.T) {
	c, store := newTestWorld(t)
	mustInit(t, c, "w1")

	// Sour the relationship first; the proposal must be declined.
	if _, err := c.SubmitActions("w1", "alpha", []world.TurnAction{
		{Type: world.ActionAdjustRelations, ToNationID: "beta", OpinionDelta: -30},
		{Type: world.ActionProposeAlliance, ToNationID: "beta"},
	}); err != nil {
		t.Fatalf("SubmitActions: %v", err)
	}
	rel, _ := store.Relation("w1", "alpha", "beta")
	if rel.IsAllied {
		t.Fatalf("alliance formed at opinion %v", rel.Opinion)
	}

	// Recover the opinion to exactly the threshold; now it succeeds.
	if _, err := c.SubmitActions("w1", "alpha", []world.TurnAction{
		{Type: world.ActionAdjustRelations, ToNationID: "beta", OpinionDelta: 30},
		{Type: world.ActionProposeAlliance, ToNationID: "beta"},
	}); err != nil {
		t.Fatalf("SubmitActions: %v", err)
	}
	rel, _ = store.Relation("w1", "alpha", "beta")
	if !rel.IsAllied || rel.Opinion != 50 {
		t.Fatalf("alliance at threshold: %+v", rel)
	}
}

func TestBreakAllianceIsOneDirectional(t *testing.T) {
	c, store := newTestWorld(t)
	mustInit(t, c, "w1")

	must := func(rel *world.DiplomacyRelation) {
		t.Helper()
		if err := store.UpsertRelation(rel); err != nil {
			t.Fatal(err)
		}
	}
	must(&world.DiplomacyRelation{WorldID: "w1", FromNationID: "alpha", ToNationID: "beta", Opinion: 60, IsAllied: true})
	must(&world.DiplomacyRelation{WorldID: "w1", FromNationID: "beta", ToNationID: "alpha", Opinion: 60, IsAllied: true})

	if _, err := c.SubmitActions("w1", "alpha", []world.TurnAction{
		{Type: world.ActionBreakAlliance, ToNationID: "beta"},
	}); err != nil {
		t.Fatalf("SubmitActions: %v", err)
	}

	ab, _ := store.Relation("w1", "alpha", "beta")
	ba, _ := store.Relation("w1", "beta", "alpha")
	if ab.IsAllied {
		t.Fatal("alpha→beta alliance not broken")
	}
	if !ba.IsAllied {
		t.Fatal("beta→alpha alliance should survive a one-sided break")
	}
	// Breaking the alliance touches only the allied flag.
	if ab.Opinion != 60 || ba.Opinion != 60 {
		t.Fatalf("opinions changed by break: alpha→beta %v, beta→alpha %v, want 60 both", ab.Opinion, ba.Opinion)
	}
}

func TestPollResults(t *testing.T) {
	c, _ := newTestWorld(t)
	mustInit(t, c, "w1")

	// Current turn, nobody ready yet.
	poll, err := c.PollResults("w1", 1)
	if err != nil {
		t.Fatalf("PollResults: %v", err)
	}
	if poll.Resolved || poll.Phase != world.PhasePlanning {
		t.Fatalf("current-turn poll: %+v", poll)
	}

	// Future turn.
	poll, _ = c.PollResults("w1", 5)
	if poll.Resolved || !strings.Contains(poll.Message, "future") {
		t.Fatalf("future-turn poll: %+v", poll)
	}

	// Resolve turn 1, then poll it.
	if _, err := c.SubmitActions("w1", "alpha", []world.TurnAction{
		{Type: world.ActionClaimRegion, RegionID: "r1"},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.MarkReady("w1", "alpha"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.MarkReady("w1", "beta"); err != nil {
		t.Fatal(err)
	}

	poll, err = c.PollResults("w1", 1)
	if err != nil {
		t.Fatalf("PollResults after resolve: %v", err)
	}
	if !poll.Resolved || poll.NextTurn != 2 {
		t.Fatalf("resolved poll: %+v", poll)
	}
	if poll.EventsCount == 0 || len(poll.Events) == 0 {
		t.Fatalf("resolved poll has no events: %+v", poll)
	}
	if len(poll.Events) > EventSampleLimit {
		t.Fatalf("event sample exceeds limit: %d", len(poll.Events))
	}
}

func TestResolutionFailureRevertsToPlanning(t *testing.T) {
	store := newMemStore()
	store.addWorld("w1")
	store.addNation(&world.Nation{ID: "alpha", WorldID: "w1", Name: "Alphia"})
	failing := &failStore{Store: store, failClaims: true}
	c := NewCoordinator(failing)
	mustInit(t, c, "w1")

	_, err := c.MarkReady("w1", "alpha")
	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("MarkReady with failing processor: got %v, want ResolutionError", err)
	}
	if resErr.Turn != 1 {
		t.Fatalf("ResolutionError.Turn = %d", resErr.Turn)
	}

	// The world is back in planning at the same turn with readiness cleared.
	ts, _ := store.TurnState("w1")
	if ts.CurrentTurn != 1 || ts.Phase != world.PhasePlanning || len(ts.NationsReady) != 0 {
		t.Fatalf("post-failure state: %+v", ts)
	}

	// The failure left a trace for pollers.
	events, _, _ := store.EventsByTurn("w1", 1, 0)
	found := false
	for _, ev := range events {
		if ev.Kind == world.EventResolutionFailed {
			found = true
		}
	}
	if !found {
		t.Fatalf("no %s event recorded: %+v", world.EventResolutionFailed, events)
	}

	// Recovery: the store heals and the same turn resolves cleanly.
	failing.failClaims = false
	res, err := c.MarkReady("w1", "alpha")
	if err != nil {
		t.Fatalf("MarkReady after recovery: %v", err)
	}
	if !res.AllReady || res.TurnResolved != 1 || res.NextTurn != 2 {
		t.Fatalf("recovery result: %+v", res)
	}
}

func TestWorldsAreIndependent(t *testing.T) {
	c, store := newTestWorld(t)
	store.addWorld("w2")
	store.addNation(&world.Nation{ID: "solo", WorldID: "w2", Name: "Soloria"})
	mustInit(t, c, "w1")
	mustInit(t, c, "w2")

	// Resolving w2 must not advance w1.
	if _, err := c.MarkReady("w2", "solo"); err != nil {
		t.Fatalf("w2 MarkReady: %v", err)
	}

	ts1, _ := store.TurnState("w1")
	ts2, _ := store.TurnState("w2")
	if ts1.CurrentTurn != 1 {
		t.Fatalf("w1 advanced to turn %d", ts1.CurrentTurn)
	}
	if ts2.CurrentTurn != 2 {
		t.Fatalf("w2 at turn %d, want 2", ts2.CurrentTurn)
	}
}
