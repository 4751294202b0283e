// The turn coordinator: phase state machine plus the readiness barrier that
// triggers resolution.
//
// Every operation on a world runs under that world's mutex, so the barrier
// check-and-trigger in MarkReady is a single atomic section: two nations
// completing the barrier concurrently cannot both (or neither) trigger
// resolution.
package strategy

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/besplago/gamemaster/internal/world"
)

// EventSampleLimit bounds how many events PollResults returns inline.
const EventSampleLimit = 10

// Coordinator owns per-world turn state and drives the phase cycle
// planning → resolution → finished → planning.
type Coordinator struct {
	store     Store
	processor *Processor
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCoordinator creates a coordinator over the given store.
func NewCoordinator(store Store) *Coordinator {
	return &Coordinator{
		store:     store,
		processor: NewProcessor(store),
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

// lockWorld locks the named world and returns the unlock func. Worlds are
// independent; only same-world operations serialize.
func (c *Coordinator) lockWorld(worldID string) func() {
	c.mu.Lock()
	l, ok := c.locks[worldID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[worldID] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// InitResult is the response of Init.
type InitResult struct {
	WorldID            string `json:"worldId"`
	CurrentTurn        int    `json:"currentTurn"`
	Phase              string `json:"phase"`
	AlreadyInitialized bool   `json:"alreadyInitialized,omitempty"`
}

// Init creates the turn state for a world at turn 1, planning phase.
// Idempotent: re-initializing reports the existing state untouched.
func (c *Coordinator) Init(worldID string) (*InitResult, error) {
	defer c.lockWorld(worldID)()

	w, err := c.store.World(worldID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrWorldNotFound
	}

	ts, err := c.store.TurnState(worldID)
	if err != nil {
		return nil, err
	}
	if ts != nil {
		return &InitResult{
			WorldID:            worldID,
			CurrentTurn:        ts.CurrentTurn,
			Phase:              ts.Phase,
			AlreadyInitialized: true,
		}, nil
	}

	ts = &world.TurnState{
		WorldID:        worldID,
		CurrentTurn:    1,
		Phase:          world.PhasePlanning,
		PhaseStartedAt: c.now(),
		NationsReady:   make(map[string]struct{}),
	}
	if err := c.store.SaveTurnState(ts); err != nil {
		return nil, err
	}

	slog.Info("turn state initialized", "world", worldID)
	return &InitResult{WorldID: worldID, CurrentTurn: 1, Phase: world.PhasePlanning}, nil
}

// StatusResult is the response of Status.
type StatusResult struct {
	CurrentTurn      int      `json:"currentTurn"`
	Phase            string   `json:"phase"`
	NationsReady     int      `json:"nationsReady"`
	TotalNations     int      `json:"totalNations"`
	WaitingFor       []string `json:"waitingFor"`
	CanSubmitActions bool     `json:"canSubmitActions"`
	AllReady         bool     `json:"allReady"`
}

// Status reports the current turn, phase, and readiness of a world.
func (c *Coordinator) Status(worldID string) (*StatusResult, error) {
	defer c.lockWorld(worldID)()

	ts, err := c.store.TurnState(worldID)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		return nil, ErrNotInitialized
	}

	nations, err := c.store.NationsByWorld(worldID)
	if err != nil {
		return nil, err
	}

	waiting := make([]string, 0, len(nations))
	for _, n := range nations {
		if !ts.Ready(n.ID) {
			waiting = append(waiting, n.Name)
		}
	}
	sort.Strings(waiting)

	return &StatusResult{
		CurrentTurn:      ts.CurrentTurn,
		Phase:            ts.Phase,
		NationsReady:     len(ts.NationsReady),
		TotalNations:     len(nations),
		WaitingFor:       waiting,
		CanSubmitActions: ts.Phase == world.PhasePlanning,
		AllReady:         len(nations) > 0 && len(ts.NationsReady) == len(nations),
	}, nil
}

// SubmitResult is the response of SubmitActions.
type SubmitResult struct {
	NationID         string   `json:"nationId"`
	NationName       string   `json:"nationName"`
	Turn             int      `json:"turn"`
	ActionsSubmitted int      `json:"actionsSubmitted"`
	ProcessedActions []string `json:"processedActions"`
}

// SubmitActions applies a nation's planning actions immediately against the
// diplomacy/claim state. Diplomatic effects are visible to other nations
// mid-planning; territorial claims only take effect at resolution.
func (c *Coordinator) SubmitActions(worldID, nationID string, actions []world.TurnAction) (*SubmitResult, error) {
	defer c.lockWorld(worldID)()

	ts, err := c.store.TurnState(worldID)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		return nil, ErrNotInitialized
	}
	if ts.Phase != world.PhasePlanning {
		return nil, &WrongPhaseError{Phase: ts.Phase}
	}

	nation, err := c.store.Nation(worldID, nationID)
	if err != nil {
		return nil, err
	}
	if nation == nil {
		return nil, ErrNationNotFound
	}

	processed, err := c.applyActions(ts, nation, actions)
	if err != nil {
		return nil, err
	}

	slog.Info("actions submitted",
		"world", worldID, "nation", nation.Name,
		"turn", ts.CurrentTurn, "count", len(processed))

	return &SubmitResult{
		NationID:         nationID,
		NationName:       nation.Name,
		Turn:             ts.CurrentTurn,
		ActionsSubmitted: len(processed),
		ProcessedActions: processed,
	}, nil
}

// ReadyResult is the response of MarkReady.
type ReadyResult struct {
	NationName   string   `json:"nationName"`
	AllReady     bool     `json:"allReady"`
	NationsReady int      `json:"nationsReady,omitempty"`
	TotalNations int      `json:"totalNations,omitempty"`
	WaitingFor   []string `json:"waitingFor,omitempty"`
	TurnResolved int      `json:"turnResolved,omitempty"`
	NextTurn     int      `json:"nextTurn,omitempty"`
}

// MarkReady signals that a nation has finished planning. When the last nation
// of the world marks ready, the whole turn resolves synchronously before this
// call returns: phase → resolution, processor runs, phase → finished, turn
// counter increments, readiness clears, phase → planning.
func (c *Coordinator) MarkReady(worldID, nationID string) (*ReadyResult, error) {
	defer c.lockWorld(worldID)()

	ts, err := c.store.TurnState(worldID)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		return nil, ErrNotInitialized
	}
	if ts.Phase != world.PhasePlanning {
		return nil, &WrongPhaseError{Phase: ts.Phase}
	}

	nation, err := c.store.Nation(worldID, nationID)
	if err != nil {
		return nil, err
	}
	if nation == nil {
		return nil, ErrNationNotFound
	}

	nations, err := c.store.NationsByWorld(worldID)
	if err != nil {
		return nil, err
	}

	// Idempotent add: marking ready twice does not double count.
	ts.NationsReady[nationID] = struct{}{}
	if err := c.store.SaveTurnState(ts); err != nil {
		return nil, err
	}

	if len(nations) == 0 || len(ts.NationsReady) != len(nations) {
		waiting := make([]string, 0, len(nations))
		for _, n := range nations {
			if !ts.Ready(n.ID) {
				waiting = append(waiting, n.Name)
			}
		}
		sort.Strings(waiting)
		return &ReadyResult{
			NationName:   nation.Name,
			AllReady:     false,
			NationsReady: len(ts.NationsReady),
			TotalNations: len(nations),
			WaitingFor:   waiting,
		}, nil
	}

	// Barrier complete: resolve the turn inside this call.
	resolvedTurn := ts.CurrentTurn
	if err := c.resolveTurn(ts); err != nil {
		return nil, err
	}

	return &ReadyResult{
		NationName:   nation.Name,
		AllReady:     true,
		TurnResolved: resolvedTurn,
		NextTurn:     ts.CurrentTurn,
	}, nil
}

// resolveTurn runs the full resolution pass for ts.CurrentTurn. On processor
// failure the world is reverted to planning (turn not advanced, readiness
// cleared) instead of sticking in resolution, and the failure is recorded for
// pollers. Caller holds the world lock.
func (c *Coordinator) resolveTurn(ts *world.TurnState) error {
	turn := ts.CurrentTurn

	ts.Phase = world.PhaseResolution
	ts.PhaseStartedAt = c.now()
	if err := c.store.SaveTurnState(ts); err != nil {
		return err
	}

	slog.Info("resolving turn", "world", ts.WorldID, "turn", turn)

	if err := c.processor.ProcessTurn(ts.WorldID, turn); err != nil {
		slog.Error("turn resolution failed", "world", ts.WorldID, "turn", turn, "error", err)

		failEvent := newEvent(ts.WorldID, turn, world.EventResolutionFailed,
			fmt.Sprintf("Turn %d resolution failed: %v. The turn was not advanced.", turn, err))
		if evErr := c.store.AddTurnEvents([]*world.TurnEvent{failEvent}); evErr != nil {
			slog.Error("failed to record resolution failure", "world", ts.WorldID, "error", evErr)
		}

		ts.Phase = world.PhasePlanning
		ts.PhaseStartedAt = c.now()
		ts.NationsReady = make(map[string]struct{})
		if saveErr := c.store.SaveTurnState(ts); saveErr != nil {
			return saveErr
		}
		return &ResolutionError{Turn: turn, Err: err}
	}

	ts.Phase = world.PhaseFinished
	ts.PhaseStartedAt = c.now()
	if err := c.store.SaveTurnState(ts); err != nil {
		return err
	}

	// Roll straight into planning for the next turn.
	ts.CurrentTurn++
	ts.Phase = world.PhasePlanning
	ts.PhaseStartedAt = c.now()
	ts.NationsReady = make(map[string]struct{})
	if err := c.store.SaveTurnState(ts); err != nil {
		return err
	}

	slog.Info("turn resolved", "world", ts.WorldID, "turn", turn, "next_turn", ts.CurrentTurn)
	return nil
}

// PollResult is the response of PollResults.
type PollResult struct {
	Resolved     bool               `json:"resolved"`
	EventsCount  int                `json:"eventsCount,omitempty"`
	Events       []*world.TurnEvent `json:"events,omitempty"`
	NextTurn     int                `json:"nextTurn,omitempty"`
	CurrentPhase string             `json:"currentPhase,omitempty"`
	Phase        string             `json:"phase,omitempty"`
	Message      string             `json:"message"`
}

// PollResults reports whether a turn has resolved and, if so, a bounded
// sample of its events.
func (c *Coordinator) PollResults(worldID string, turnNumber int) (*PollResult, error) {
	defer c.lockWorld(worldID)()

	ts, err := c.store.TurnState(worldID)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		// Polling is a read; an uninitialized world is a missing record,
		// not a phase violation.
		return nil, ErrTurnNotFound
	}

	switch {
	case ts.CurrentTurn > turnNumber:
		events, total, err := c.store.EventsByTurn(worldID, turnNumber, EventSampleLimit)
		if err != nil {
			return nil, err
		}
		return &PollResult{
			Resolved:     true,
			EventsCount:  total,
			Events:       events,
			NextTurn:     ts.CurrentTurn,
			CurrentPhase: ts.Phase,
			Message:      fmt.Sprintf("Turn %d has resolved with %d events.", turnNumber, total),
		}, nil

	case ts.Phase == world.PhaseResolution && turnNumber == ts.CurrentTurn:
		// Visible only to a poller racing an in-flight resolution.
		return &PollResult{
			Resolved: false,
			Phase:    world.PhaseResolution,
			Message:  fmt.Sprintf("Turn %d is resolving now.", turnNumber),
		}, nil

	case turnNumber == ts.CurrentTurn:
		return &PollResult{
			Resolved: false,
			Phase:    ts.Phase,
			Message:  fmt.Sprintf("Turn %d is the current turn; waiting for all nations to mark ready.", turnNumber),
		}, nil

	default:
		return &PollResult{
			Resolved: false,
			Message:  fmt.Sprintf("Turn %d is in the future (current turn: %d).", turnNumber, ts.CurrentTurn),
		}, nil
	}
}
