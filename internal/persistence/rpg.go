// Character and note storage for the session-management tools.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/besplago/gamemaster/internal/rpg"
)

type characterRow struct {
	rpg.Character
	AbilitiesJSON string `db:"abilities_json"`
}

// SaveCharacter inserts or replaces a character record.
func (db *DB) SaveCharacter(c *rpg.Character) error {
	abJSON, _ := json.Marshal(c.Abilities)
	_, err := db.conn.Exec(`INSERT OR REPLACE INTO characters
		(id, world_id, name, class, level, max_hp, hp, abilities_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.WorldID, c.Name, c.Class, c.Level, c.MaxHP, c.HP,
		string(abJSON), c.CreatedAt, c.UpdatedAt,
	)
	return err
}

// Character returns a character by ID, or nil if not found.
func (db *DB) Character(id string) (*rpg.Character, error) {
	var row characterRow
	err := db.conn.Get(&row, "SELECT * FROM characters WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rowToCharacter(&row)
}

// CharactersByWorld lists characters, optionally filtered by world.
func (db *DB) CharactersByWorld(worldID string) ([]*rpg.Character, error) {
	var rows []characterRow
	var err error
	if worldID == "" {
		err = db.conn.Select(&rows, "SELECT * FROM characters ORDER BY name")
	} else {
		err = db.conn.Select(&rows,
			"SELECT * FROM characters WHERE world_id = ? ORDER BY name", worldID)
	}
	if err != nil {
		return nil, err
	}
	chars := make([]*rpg.Character, 0, len(rows))
	for i := range rows {
		c, err := rowToCharacter(&rows[i])
		if err != nil {
			return nil, err
		}
		chars = append(chars, c)
	}
	return chars, nil
}

// DeleteCharacter removes a character. Reports whether a row was deleted.
func (db *DB) DeleteCharacter(id string) (bool, error) {
	res, err := db.conn.Exec("DELETE FROM characters WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func rowToCharacter(row *characterRow) (*rpg.Character, error) {
	c := row.Character
	c.Abilities = make(map[string]int)
	if err := json.Unmarshal([]byte(row.AbilitiesJSON), &c.Abilities); err != nil {
		return nil, fmt.Errorf("decode abilities for character %s: %w", c.ID, err)
	}
	return &c, nil
}

// SaveNote inserts or replaces a note record.
func (db *DB) SaveNote(n *rpg.Note) error {
	_, err := db.conn.Exec(`INSERT OR REPLACE INTO notes
		(id, world_id, kind, npc_key, title, body, revealed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.WorldID, n.Kind, n.NPCKey, n.Title, n.Body, n.Revealed, n.CreatedAt,
	)
	return err
}

// Note returns a note by ID, or nil if not found.
func (db *DB) Note(id string) (*rpg.Note, error) {
	var n rpg.Note
	err := db.conn.Get(&n, "SELECT * FROM notes WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// NotesByWorld lists notes, optionally filtered by world and kind.
func (db *DB) NotesByWorld(worldID, kind string) ([]*rpg.Note, error) {
	q := "SELECT * FROM notes WHERE 1=1"
	args := []any{}
	if worldID != "" {
		q += " AND world_id = ?"
		args = append(args, worldID)
	}
	if kind != "" {
		q += " AND kind = ?"
		args = append(args, kind)
	}
	q += " ORDER BY created_at, id"

	var notes []*rpg.Note
	err := db.conn.Select(&notes, q, args...)
	return notes, err
}
