// Package persistence provides SQLite-based storage for worlds, nations,
// regions, diplomacy, claims, turn state, and the RPG-side records
// (characters, notes).
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/besplago/gamemaster/internal/world"
)

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	// WAL suits the append-heavy event log; the busy timeout covers the
	// odd concurrent writer.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS worlds (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		seed INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS nations (
		id TEXT PRIMARY KEY,
		world_id TEXT NOT NULL,
		name TEXT NOT NULL,
		leader TEXT NOT NULL,
		ideology TEXT NOT NULL,
		aggression REAL NOT NULL,
		trust REAL NOT NULL,
		paranoia REAL NOT NULL,
		gdp REAL NOT NULL,
		resources_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS regions (
		id TEXT PRIMARY KEY,
		world_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		center_x REAL NOT NULL,
		center_y REAL NOT NULL,
		color TEXT NOT NULL,
		owner_nation_id TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS relations (
		world_id TEXT NOT NULL,
		from_nation_id TEXT NOT NULL,
		to_nation_id TEXT NOT NULL,
		opinion REAL NOT NULL,
		is_allied INTEGER NOT NULL,
		truce_until_turn INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (world_id, from_nation_id, to_nation_id)
	);

	CREATE TABLE IF NOT EXISTS claims (
		id TEXT PRIMARY KEY,
		world_id TEXT NOT NULL,
		nation_id TEXT NOT NULL,
		region_id TEXT NOT NULL,
		turn INTEGER NOT NULL,
		claim_strength REAL NOT NULL,
		justification TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS turn_state (
		world_id TEXT PRIMARY KEY,
		current_turn INTEGER NOT NULL,
		phase TEXT NOT NULL,
		phase_started_at TIMESTAMP NOT NULL,
		nations_ready_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS turn_events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		world_id TEXT NOT NULL,
		turn INTEGER NOT NULL,
		kind TEXT NOT NULL,
		description TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS characters (
		id TEXT PRIMARY KEY,
		world_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		class TEXT NOT NULL,
		level INTEGER NOT NULL,
		max_hp INTEGER NOT NULL,
		hp INTEGER NOT NULL,
		abilities_json TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		world_id TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL,
		npc_key TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		revealed INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_nations_world ON nations(world_id);
	CREATE INDEX IF NOT EXISTS idx_regions_world ON regions(world_id);
	CREATE INDEX IF NOT EXISTS idx_claims_world_turn ON claims(world_id, turn);
	CREATE INDEX IF NOT EXISTS idx_events_world_turn ON turn_events(world_id, turn);
	CREATE INDEX IF NOT EXISTS idx_notes_world ON notes(world_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// ── Worlds ────────────────────────────────────────────────────────────

// CreateWorld inserts a new world record.
func (db *DB) CreateWorld(w *world.World) error {
	_, err := db.conn.Exec(
		"INSERT INTO worlds (id, name, seed, created_at) VALUES (?, ?, ?, ?)",
		w.ID, w.Name, w.Seed, w.CreatedAt,
	)
	return err
}

// World returns a world by ID, or nil if it does not exist.
func (db *DB) World(id string) (*world.World, error) {
	var w world.World
	err := db.conn.Get(&w, "SELECT * FROM worlds WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ── Nations ───────────────────────────────────────────────────────────

type nationRow struct {
	world.Nation
	ResourcesJSON string `db:"resources_json"`
}

// CreateNation inserts a new nation record.
func (db *DB) CreateNation(n *world.Nation) error {
	resJSON, _ := json.Marshal(n.Resources)
	_, err := db.conn.Exec(`INSERT INTO nations
		(id, world_id, name, leader, ideology, aggression, trust, paranoia, gdp, resources_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.WorldID, n.Name, n.Leader, n.Ideology,
		n.Aggression, n.Trust, n.Paranoia, n.GDP, string(resJSON),
	)
	return err
}

// UpdateNation rewrites a nation's mutable fields.
func (db *DB) UpdateNation(n *world.Nation) error {
	resJSON, _ := json.Marshal(n.Resources)
	_, err := db.conn.Exec(`UPDATE nations
		SET aggression = ?, trust = ?, paranoia = ?, gdp = ?, resources_json = ?
		WHERE id = ?`,
		n.Aggression, n.Trust, n.Paranoia, n.GDP, string(resJSON), n.ID,
	)
	return err
}

// Nation returns a nation by world and ID, or nil if not found.
func (db *DB) Nation(worldID, nationID string) (*world.Nation, error) {
	var row nationRow
	err := db.conn.Get(&row,
		"SELECT * FROM nations WHERE world_id = ? AND id = ?", worldID, nationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rowToNation(&row)
}

// NationsByWorld returns all nations of a world ordered by ID.
func (db *DB) NationsByWorld(worldID string) ([]*world.Nation, error) {
	var rows []nationRow
	err := db.conn.Select(&rows,
		"SELECT * FROM nations WHERE world_id = ? ORDER BY id", worldID)
	if err != nil {
		return nil, err
	}
	nations := make([]*world.Nation, 0, len(rows))
	for i := range rows {
		n, err := rowToNation(&rows[i])
		if err != nil {
			return nil, err
		}
		nations = append(nations, n)
	}
	return nations, nil
}

func rowToNation(row *nationRow) (*world.Nation, error) {
	n := row.Nation
	n.Resources = make(map[string]float64)
	if err := json.Unmarshal([]byte(row.ResourcesJSON), &n.Resources); err != nil {
		return nil, fmt.Errorf("decode resources for nation %s: %w", n.ID, err)
	}
	return &n, nil
}

// ── Regions ───────────────────────────────────────────────────────────

// CreateRegions inserts a batch of regions in one transaction.
func (db *DB) CreateRegions(regions []*world.Region) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range regions {
		_, err := tx.Exec(`INSERT INTO regions
			(id, world_id, name, type, center_x, center_y, color, owner_nation_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.WorldID, r.Name, r.Type, r.CenterX, r.CenterY, r.Color, r.OwnerNationID,
		)
		if err != nil {
			return fmt.Errorf("insert region %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// RegionsByWorld returns all regions of a world ordered by ID.
func (db *DB) RegionsByWorld(worldID string) ([]*world.Region, error) {
	var regions []*world.Region
	err := db.conn.Select(&regions,
		"SELECT * FROM regions WHERE world_id = ? ORDER BY id", worldID)
	return regions, err
}

// UpdateRegionOwner records the outcome of a resolved territorial claim.
func (db *DB) UpdateRegionOwner(regionID, nationID string) error {
	_, err := db.conn.Exec(
		"UPDATE regions SET owner_nation_id = ? WHERE id = ?", nationID, regionID)
	return err
}

// ── Diplomacy ─────────────────────────────────────────────────────────

// Relation returns the directed relation from one nation to another, or nil
// if none is stored.
func (db *DB) Relation(worldID, from, to string) (*world.DiplomacyRelation, error) {
	var rel world.DiplomacyRelation
	err := db.conn.Get(&rel,
		"SELECT * FROM relations WHERE world_id = ? AND from_nation_id = ? AND to_nation_id = ?",
		worldID, from, to)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// RelationsByWorld returns all stored relations of a world.
func (db *DB) RelationsByWorld(worldID string) ([]*world.DiplomacyRelation, error) {
	var rels []*world.DiplomacyRelation
	err := db.conn.Select(&rels,
		"SELECT * FROM relations WHERE world_id = ? ORDER BY from_nation_id, to_nation_id",
		worldID)
	return rels, err
}

// UpsertRelation writes one directed relation.
func (db *DB) UpsertRelation(rel *world.DiplomacyRelation) error {
	_, err := db.conn.Exec(`INSERT OR REPLACE INTO relations
		(world_id, from_nation_id, to_nation_id, opinion, is_allied, truce_until_turn)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rel.WorldID, rel.FromNationID, rel.ToNationID,
		rel.Opinion, rel.IsAllied, rel.TruceUntilTurn,
	)
	return err
}

// ── Claims ────────────────────────────────────────────────────────────

// AddClaim appends one territorial claim. Claims are never updated.
func (db *DB) AddClaim(c *world.Claim) error {
	_, err := db.conn.Exec(`INSERT INTO claims
		(id, world_id, nation_id, region_id, turn, claim_strength, justification, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.WorldID, c.NationID, c.RegionID, c.Turn,
		c.ClaimStrength, c.Justification, c.CreatedAt,
	)
	return err
}

// ClaimsByTurn returns the claims placed in a given world and turn.
func (db *DB) ClaimsByTurn(worldID string, turn int) ([]*world.Claim, error) {
	var claims []*world.Claim
	err := db.conn.Select(&claims,
		"SELECT * FROM claims WHERE world_id = ? AND turn = ? ORDER BY created_at, id",
		worldID, turn)
	return claims, err
}

// ── Turn state ────────────────────────────────────────────────────────

// TurnState returns the coordination record for a world, or nil if the world
// has never been initialized.
func (db *DB) TurnState(worldID string) (*world.TurnState, error) {
	var row struct {
		WorldID          string    `db:"world_id"`
		CurrentTurn      int       `db:"current_turn"`
		Phase            string    `db:"phase"`
		PhaseStartedAt   time.Time `db:"phase_started_at"`
		NationsReadyJSON string    `db:"nations_ready_json"`
	}
	err := db.conn.Get(&row, "SELECT * FROM turn_state WHERE world_id = ?", worldID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var ready []string
	if err := json.Unmarshal([]byte(row.NationsReadyJSON), &ready); err != nil {
		return nil, fmt.Errorf("decode readiness set for world %s: %w", worldID, err)
	}
	ts := &world.TurnState{
		WorldID:        row.WorldID,
		CurrentTurn:    row.CurrentTurn,
		Phase:          row.Phase,
		PhaseStartedAt: row.PhaseStartedAt,
		NationsReady:   make(map[string]struct{}, len(ready)),
	}
	for _, id := range ready {
		ts.NationsReady[id] = struct{}{}
	}
	return ts, nil
}

// SaveTurnState writes the coordination record for a world.
func (db *DB) SaveTurnState(ts *world.TurnState) error {
	ready := make([]string, 0, len(ts.NationsReady))
	for id := range ts.NationsReady {
		ready = append(ready, id)
	}
	readyJSON, _ := json.Marshal(ready)

	_, err := db.conn.Exec(`INSERT OR REPLACE INTO turn_state
		(world_id, current_turn, phase, phase_started_at, nations_ready_json)
		VALUES (?, ?, ?, ?, ?)`,
		ts.WorldID, ts.CurrentTurn, ts.Phase, ts.PhaseStartedAt, string(readyJSON),
	)
	return err
}

// ── Turn events ───────────────────────────────────────────────────────

// AddTurnEvents appends resolution events in one transaction, preserving
// order of insertion.
func (db *DB) AddTurnEvents(events []*world.TurnEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(`INSERT INTO turn_events
			(id, world_id, turn, kind, description, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			e.ID, e.WorldID, e.Turn, e.Kind, e.Description, e.CreatedAt,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// EventsByTurn returns up to limit events for a resolved turn in insertion
// order, plus the total count.
func (db *DB) EventsByTurn(worldID string, turn, limit int) ([]*world.TurnEvent, int, error) {
	var total int
	err := db.conn.Get(&total,
		"SELECT COUNT(*) FROM turn_events WHERE world_id = ? AND turn = ?", worldID, turn)
	if err != nil {
		return nil, 0, err
	}

	var events []*world.TurnEvent
	err = db.conn.Select(&events,
		`SELECT id, world_id, turn, kind, description, created_at
		 FROM turn_events WHERE world_id = ? AND turn = ? ORDER BY seq LIMIT ?`,
		worldID, turn, limit)
	return events, total, err
}
