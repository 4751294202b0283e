// World snapshot export: a zstd-compressed JSON dump of everything belonging
// to one world, suitable for archival or offline inspection.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/besplago/gamemaster/internal/world"
)

// Snapshot is the on-disk export format, version 1.
type Snapshot struct {
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exported_at"`

	World     *world.World               `json:"world"`
	TurnState *snapshotTurnState         `json:"turn_state,omitempty"`
	Nations   []*world.Nation            `json:"nations"`
	Regions   []*world.Region            `json:"regions"`
	Relations []*world.DiplomacyRelation `json:"relations"`
	Claims    []*world.Claim             `json:"claims"`
	Events    []*world.TurnEvent         `json:"events"`
}

type snapshotTurnState struct {
	CurrentTurn    int       `json:"current_turn"`
	Phase          string    `json:"phase"`
	PhaseStartedAt time.Time `json:"phase_started_at"`
	NationsReady   []string  `json:"nations_ready"`
}

// ExportSnapshot writes a .json.zst snapshot of a world into dir and returns
// the file path.
func (db *DB) ExportSnapshot(worldID, dir string) (string, error) {
	w, err := db.World(worldID)
	if err != nil {
		return "", err
	}
	if w == nil {
		return "", fmt.Errorf("world %s not found", worldID)
	}

	snap := Snapshot{Version: 1, ExportedAt: time.Now().UTC(), World: w}

	if snap.Nations, err = db.NationsByWorld(worldID); err != nil {
		return "", fmt.Errorf("export nations: %w", err)
	}
	if snap.Regions, err = db.RegionsByWorld(worldID); err != nil {
		return "", fmt.Errorf("export regions: %w", err)
	}
	if snap.Relations, err = db.RelationsByWorld(worldID); err != nil {
		return "", fmt.Errorf("export relations: %w", err)
	}
	if snap.Claims, err = db.allClaims(worldID); err != nil {
		return "", fmt.Errorf("export claims: %w", err)
	}
	if snap.Events, err = db.allEvents(worldID); err != nil {
		return "", fmt.Errorf("export events: %w", err)
	}

	ts, err := db.TurnState(worldID)
	if err != nil {
		return "", err
	}
	if ts != nil {
		ready := make([]string, 0, len(ts.NationsReady))
		for id := range ts.NationsReady {
			ready = append(ready, id)
		}
		snap.TurnState = &snapshotTurnState{
			CurrentTurn:    ts.CurrentTurn,
			Phase:          ts.Phase,
			PhaseStartedAt: ts.PhaseStartedAt,
			NationsReady:   ready,
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir,
		fmt.Sprintf("%s-%s.json.zst", worldID, snap.ExportedAt.Format("20060102T150405Z")))

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return "", err
	}
	if err := json.NewEncoder(enc).Encode(&snap); err != nil {
		enc.Close()
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return path, f.Close()
}

// ReadSnapshot loads a snapshot file written by ExportSnapshot.
func ReadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var snap Snapshot
	if err := json.NewDecoder(dec).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func (db *DB) allClaims(worldID string) ([]*world.Claim, error) {
	var claims []*world.Claim
	err := db.conn.Select(&claims,
		"SELECT * FROM claims WHERE world_id = ? ORDER BY created_at, id", worldID)
	return claims, err
}

func (db *DB) allEvents(worldID string) ([]*world.TurnEvent, error) {
	var events []*world.TurnEvent
	err := db.conn.Select(&events,
		`SELECT id, world_id, turn, kind, description, created_at
		 FROM turn_events WHERE world_id = ? ORDER BY seq`, worldID)
	return events, err
}
