package tools

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/besplago/gamemaster/internal/dice"
	"github.com/besplago/gamemaster/internal/persistence"
	"github.com/besplago/gamemaster/internal/rpg"
	"github.com/besplago/gamemaster/internal/strategy"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	db, err := persistence.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewRegistry(Deps{
		Coordinator: strategy.NewCoordinator(db),
		Characters:  rpg.NewCharacters(db),
		Notes:       rpg.NewNotes(db),
		DB:          db,
		Roller:      dice.NewRoller(1),
		SnapshotDir: t.TempDir(),
	})
}

// callOK runs a tool call and fails the test if it produced an error result.
func callOK(t *testing.T, r *Registry, tool, args string) map[string]any {
	t.Helper()
	res, err := r.Call(tool, json.RawMessage(args))
	if err != nil {
		t.Fatalf("%s call: %v", tool, err)
	}
	if res.IsError {
		t.Fatalf("%s call failed: %+v", tool, res.Structured)
	}
	raw, err := json.Marshal(res.Structured)
	if err != nil {
		t.Fatalf("re-marshal structured: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("structured payload is not an object: %s", raw)
	}
	return out
}

// callErr runs a tool call and returns the error payload it must produce.
func callErr(t *testing.T, r *Registry, tool, args string) ErrorPayload {
	t.Helper()
	res, err := r.Call(tool, json.RawMessage(args))
	if err != nil {
		t.Fatalf("%s call: %v", tool, err)
	}
	if !res.IsError {
		t.Fatalf("%s call unexpectedly succeeded: %+v", tool, res.Structured)
	}
	payload, ok := res.Structured.(ErrorPayload)
	if !ok {
		t.Fatalf("error result payload: %T", res.Structured)
	}
	if !IsKnownCode(payload.Code) {
		t.Fatalf("unknown error code %q", payload.Code)
	}
	return payload
}

func TestDescriptorsListAllTools(t *testing.T) {
	r := newTestRegistry(t)

	descs := r.Descriptors()
	want := []string{"turn_manage", "world_manage", "character_manage", "note_manage", "roll_dice"}
	if len(descs) != len(want) {
		t.Fatalf("descriptors: %d, want %d", len(descs), len(want))
	}
	for i, name := range want {
		if descs[i]["name"] != name {
			t.Fatalf("descriptor %d = %v, want %s", i, descs[i]["name"], name)
		}
		if !r.Known(name) {
			t.Fatalf("%s not known", name)
		}
	}
	if r.Known("nuke_manage") {
		t.Fatal("unregistered tool reported known")
	}
}

func TestCallUnknownTool(t *testing.T) {
	r := newTestRegistry(t)
	if _, err := r.Call("nuke_manage", json.RawMessage(`{"action":"launch"}`)); err == nil {
		t.Fatal("expected transport error for unknown tool")
	}
}

func TestCallUnknownAction(t *testing.T) {
	r := newTestRegistry(t)
	payload := callErr(t, r, "turn_manage", `{"action":"warp_time"}`)
	if payload.Code != ErrBadRequest {
		t.Fatalf("code = %s", payload.Code)
	}
}

func TestCallSchemaValidation(t *testing.T) {
	r := newTestRegistry(t)

	// worldId missing entirely.
	payload := callErr(t, r, "turn_manage", `{"action":"init"}`)
	if payload.Code != ErrBadRequest {
		t.Fatalf("code = %s", payload.Code)
	}

	// Wrong type for turnNumber.
	payload = callErr(t, r, "turn_manage", `{"action":"poll_results","worldId":"w","turnNumber":"one"}`)
	if payload.Code != ErrBadRequest {
		t.Fatalf("code = %s", payload.Code)
	}
}

func TestTurnInitUnknownWorld(t *testing.T) {
	r := newTestRegistry(t)
	payload := callErr(t, r, "turn_manage", `{"action":"init","worldId":"ghost"}`)
	if payload.Code != ErrWorldNotFound {
		t.Fatalf("code = %s, want %s", payload.Code, ErrWorldNotFound)
	}
}

func TestTurnPollBeforeInitIsNotFound(t *testing.T) {
	r := newTestRegistry(t)

	created := callOK(t, r, "world_manage", `{"action":"create_world","name":"Testia","seed":7,"regionCount":6}`)
	worldID, _ := created["worldId"].(string)

	// The world exists but its turn cycle was never initialized; polling is
	// a lookup of a missing record, not a phase violation.
	payload := callErr(t, r, "turn_manage",
		`{"action":"poll_results","worldId":"`+worldID+`","turnNumber":1}`)
	if payload.Code != ErrNotFound {
		t.Fatalf("code = %s, want %s", payload.Code, ErrNotFound)
	}
}

func TestFullTurnFlowThroughTools(t *testing.T) {
	r := newTestRegistry(t)

	created := callOK(t, r, "world_manage", `{"action":"create_world","name":"Testia","seed":7,"regionCount":6}`)
	worldID, _ := created["worldId"].(string)
	if worldID == "" {
		t.Fatalf("create_world payload: %v", created)
	}

	var nationIDs []string
	for _, name := range []string{"Alphia", "Betania"} {
		n := callOK(t, r, "world_manage", fmt.Sprintf(
			`{"action":"add_nation","worldId":%q,"name":%q,"aggression":30,"gdp":1500}`, worldID, name))
		id, _ := n["id"].(string)
		if id == "" {
			t.Fatalf("add_nation payload: %v", n)
		}
		nationIDs = append(nationIDs, id)
	}

	init := callOK(t, r, "turn_manage", fmt.Sprintf(`{"action":"init","worldId":%q}`, worldID))
	if init["currentTurn"].(float64) != 1 {
		t.Fatalf("init payload: %v", init)
	}

	// Submitting before readiness is fine; the phase gate is tested below.
	regions := callOK(t, r, "world_manage", fmt.Sprintf(`{"action":"get_world","worldId":%q}`, worldID))
	regionList := regions["regions"].([]any)
	regionID := regionList[0].(map[string]any)["id"].(string)

	submit := callOK(t, r, "turn_manage", fmt.Sprintf(
		`{"action":"submit_actions","worldId":%q,"nationId":%q,"actions":[{"type":"claim_region","regionId":%q}]}`,
		worldID, nationIDs[0], regionID))
	if submit["actionsSubmitted"].(float64) != 1 {
		t.Fatalf("submit payload: %v", submit)
	}

	first := callOK(t, r, "turn_manage", fmt.Sprintf(
		`{"action":"mark_ready","worldId":%q,"nationId":%q}`, worldID, nationIDs[0]))
	if first["allReady"].(bool) {
		t.Fatalf("first mark_ready resolved early: %v", first)
	}

	second := callOK(t, r, "turn_manage", fmt.Sprintf(
		`{"action":"mark_ready","worldId":%q,"nationId":%q}`, worldID, nationIDs[1]))
	if !second["allReady"].(bool) || second["nextTurn"].(float64) != 2 {
		t.Fatalf("barrier payload: %v", second)
	}

	poll := callOK(t, r, "turn_manage", fmt.Sprintf(
		`{"action":"poll_results","worldId":%q,"turnNumber":1}`, worldID))
	if !poll["resolved"].(bool) {
		t.Fatalf("poll payload: %v", poll)
	}

	status := callOK(t, r, "turn_manage", fmt.Sprintf(`{"action":"get_status","worldId":%q}`, worldID))
	if status["currentTurn"].(float64) != 2 || status["nationsReady"].(float64) != 0 {
		t.Fatalf("status payload: %v", status)
	}
}

func TestCharacterToolFlow(t *testing.T) {
	r := newTestRegistry(t)

	created := callOK(t, r, "character_manage",
		`{"action":"create","name":"Brina","class":"rogue","abilities":{"dex":17,"con":12}}`)
	id := created["id"].(string)
	if created["level"].(float64) != 1 {
		t.Fatalf("default level: %v", created)
	}
	// (8 + con modifier 1) * level 1.
	if created["maxHp"].(float64) != 9 {
		t.Fatalf("derived maxHp: %v", created)
	}

	updated := callOK(t, r, "character_manage", fmt.Sprintf(
		`{"action":"update","characterId":%q,"hp":3}`, id))
	if updated["hp"].(float64) != 3 {
		t.Fatalf("update payload: %v", updated)
	}

	payload := callErr(t, r, "character_manage", `{"action":"get","characterId":"ghost"}`)
	if payload.Code != ErrNotFound {
		t.Fatalf("code = %s, want %s", payload.Code, ErrNotFound)
	}

	// Manager-level validation surfaces as a bad request, not an internal error.
	payload = callErr(t, r, "character_manage", fmt.Sprintf(
		`{"action":"update","characterId":%q,"abilities":{"luck":18}}`, id))
	if payload.Code != ErrBadRequest {
		t.Fatalf("code = %s, want %s", payload.Code, ErrBadRequest)
	}
}

func TestNoteToolRedaction(t *testing.T) {
	r := newTestRegistry(t)

	added := callOK(t, r, "note_manage",
		`{"action":"add","kind":"secret","title":"The twist","body":"the duke is a dragon"}`)
	noteID := added["id"].(string)

	listed := callOK(t, r, "note_manage", `{"action":"list"}`)
	notes := listed["notes"].([]any)
	if len(notes) != 1 {
		t.Fatalf("notes: %v", notes)
	}
	if body := notes[0].(map[string]any)["body"].(string); body != "[secret]" {
		t.Fatalf("unrevealed secret leaked: %q", body)
	}

	callOK(t, r, "note_manage", fmt.Sprintf(`{"action":"reveal_secret","noteId":%q}`, noteID))

	listed = callOK(t, r, "note_manage", `{"action":"list"}`)
	if body := listed["notes"].([]any)[0].(map[string]any)["body"].(string); body != "the duke is a dragon" {
		t.Fatalf("revealed secret still redacted: %q", body)
	}
}

func TestDiceToolErrors(t *testing.T) {
	r := newTestRegistry(t)

	payload := callErr(t, r, "roll_dice", `{"action":"roll","expression":"banana"}`)
	if payload.Code != ErrBadRequest {
		t.Fatalf("code = %s", payload.Code)
	}

	rolled := callOK(t, r, "roll_dice", `{"action":"roll","expression":"3d6+2"}`)
	total := rolled["total"].(float64)
	if total < 5 || total > 20 {
		t.Fatalf("3d6+2 total out of range: %v", total)
	}
}
