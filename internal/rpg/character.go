// Package rpg holds the session-management side of the server: player
// characters and narrative notes. These are plain data managers: validation
// and formatting over a keyed store, no coordination logic.
package rpg

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// AbilityNames are the six standard ability scores, in display order.
var AbilityNames = []string{"str", "dex", "con", "int", "wis", "cha"}

// Character is a player or notable NPC sheet.
type Character struct {
	ID      string `db:"id" json:"id"`
	WorldID string `db:"world_id" json:"worldId,omitempty"`
	Name    string `db:"name" json:"name"`
	Class   string `db:"class" json:"class"`
	Level   int    `db:"level" json:"level"`
	MaxHP   int    `db:"max_hp" json:"maxHp"`
	HP      int    `db:"hp" json:"hp"`

	Abilities map[string]int `db:"-" json:"abilities"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Modifier returns the standard ability modifier for a score.
func Modifier(score int) int {
	if score < 10 && score%2 != 0 {
		return (score - 11) / 2
	}
	return (score - 10) / 2
}

// CharacterStore is the persistence the character manager needs.
type CharacterStore interface {
	SaveCharacter(c *Character) error
	Character(id string) (*Character, error)
	CharactersByWorld(worldID string) ([]*Character, error)
	DeleteCharacter(id string) (bool, error)
}

// Characters manages character records.
type Characters struct {
	store CharacterStore
}

// NewCharacters creates a character manager.
func NewCharacters(store CharacterStore) *Characters {
	return &Characters{store: store}
}

// CreateCharacterInput are the accepted fields for Create.
type CreateCharacterInput struct {
	WorldID   string         `json:"worldId"`
	Name      string         `json:"name"`
	Class     string         `json:"class"`
	Level     int            `json:"level"`
	MaxHP     int            `json:"maxHp"`
	Abilities map[string]int `json:"abilities"`
}

// Create validates and stores a new character. Missing abilities default to
// 10; a missing level defaults to 1; missing HP derives from level and con.
func (m *Characters) Create(in CreateCharacterInput) (*Character, error) {
	if in.Name == "" {
		return nil, invalidf("character name is required")
	}
	if in.Level <= 0 {
		in.Level = 1
	}
	if in.Level > 20 {
		return nil, invalidf("level %d out of range (1-20)", in.Level)
	}

	abilities := make(map[string]int, len(AbilityNames))
	for _, name := range AbilityNames {
		abilities[name] = 10
	}
	for name, score := range in.Abilities {
		if _, ok := abilities[name]; !ok {
			return nil, invalidf("unknown ability %q", name)
		}
		if score < 1 || score > 30 {
			return nil, invalidf("ability %s score %d out of range (1-30)", name, score)
		}
		abilities[name] = score
	}

	maxHP := in.MaxHP
	if maxHP <= 0 {
		maxHP = (8 + Modifier(abilities["con"])) * in.Level
		if maxHP < in.Level {
			maxHP = in.Level
		}
	}

	now := time.Now().UTC()
	c := &Character{
		ID:        uuid.NewString(),
		WorldID:   in.WorldID,
		Name:      in.Name,
		Class:     in.Class,
		Level:     in.Level,
		MaxHP:     maxHP,
		HP:        maxHP,
		Abilities: abilities,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.SaveCharacter(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns a character by ID, or nil if not found.
func (m *Characters) Get(id string) (*Character, error) {
	return m.store.Character(id)
}

// List returns characters, optionally filtered by world, sorted by name.
func (m *Characters) List(worldID string) ([]*Character, error) {
	chars, err := m.store.CharactersByWorld(worldID)
	if err != nil {
		return nil, err
	}
	sort.Slice(chars, func(i, j int) bool { return chars[i].Name < chars[j].Name })
	return chars, nil
}

// UpdateCharacterInput are the updatable fields; nil pointers leave the field
// unchanged.
type UpdateCharacterInput struct {
	Level     *int           `json:"level,omitempty"`
	HP        *int           `json:"hp,omitempty"`
	MaxHP     *int           `json:"maxHp,omitempty"`
	Abilities map[string]int `json:"abilities,omitempty"`
}

// Update applies a partial update to a character.
func (m *Characters) Update(id string, in UpdateCharacterInput) (*Character, error) {
	c, err := m.store.Character(id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}

	if in.Level != nil {
		if *in.Level < 1 || *in.Level > 20 {
			return nil, invalidf("level %d out of range (1-20)", *in.Level)
		}
		c.Level = *in.Level
	}
	if in.MaxHP != nil {
		if *in.MaxHP < 1 {
			return nil, invalidf("maxHp must be positive")
		}
		c.MaxHP = *in.MaxHP
	}
	if in.HP != nil {
		c.HP = *in.HP
		if c.HP > c.MaxHP {
			c.HP = c.MaxHP
		}
		if c.HP < 0 {
			c.HP = 0
		}
	}
	for name, score := range in.Abilities {
		if _, ok := c.Abilities[name]; !ok {
			return nil, invalidf("unknown ability %q", name)
		}
		if score < 1 || score > 30 {
			return nil, invalidf("ability %s score %d out of range (1-30)", name, score)
		}
		c.Abilities[name] = score
	}

	c.UpdatedAt = time.Now().UTC()
	if err := m.store.SaveCharacter(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a character. Reports whether it existed.
func (m *Characters) Delete(id string) (bool, error) {
	return m.store.DeleteCharacter(id)
}
