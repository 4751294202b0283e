// Narrative notes: campaign notes, GM secrets, and per-NPC memory entries.
// Secrets stay hidden from listings until revealed.
package rpg

import (
	"time"

	"github.com/google/uuid"
)

// Note kinds.
const (
	NoteKindNote   = "note"
	NoteKindSecret = "secret"
	NoteKindMemory = "memory"
)

// Note is one narrative record. Memory notes carry the NPC key they belong
// to; secret notes start unrevealed.
type Note struct {
	ID       string    `db:"id" json:"id"`
	WorldID  string    `db:"world_id" json:"worldId,omitempty"`
	Kind     string    `db:"kind" json:"kind"`
	NPCKey   string    `db:"npc_key" json:"npcKey,omitempty"`
	Title    string    `db:"title" json:"title"`
	Body     string    `db:"body" json:"body"`
	Revealed bool      `db:"revealed" json:"revealed"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NoteStore is the persistence the note manager needs.
type NoteStore interface {
	SaveNote(n *Note) error
	Note(id string) (*Note, error)
	NotesByWorld(worldID, kind string) ([]*Note, error)
}

// Notes manages narrative note records.
type Notes struct {
	store NoteStore
}

// NewNotes creates a note manager.
func NewNotes(store NoteStore) *Notes {
	return &Notes{store: store}
}

// AddNoteInput are the accepted fields for Add.
type AddNoteInput struct {
	WorldID string `json:"worldId"`
	Kind    string `json:"kind"`
	NPCKey  string `json:"npcKey"`
	Title   string `json:"title"`
	Body    string `json:"body"`
}

// Add validates and stores a note. Kind defaults to "note"; memory notes
// require an NPC key.
func (m *Notes) Add(in AddNoteInput) (*Note, error) {
	if in.Kind == "" {
		in.Kind = NoteKindNote
	}
	switch in.Kind {
	case NoteKindNote, NoteKindSecret, NoteKindMemory:
	default:
		return nil, invalidf("unknown note kind %q", in.Kind)
	}
	if in.Body == "" {
		return nil, invalidf("note body is required")
	}
	if in.Kind == NoteKindMemory && in.NPCKey == "" {
		return nil, invalidf("memory notes require npcKey")
	}

	n := &Note{
		ID:        uuid.NewString(),
		WorldID:   in.WorldID,
		Kind:      in.Kind,
		NPCKey:    in.NPCKey,
		Title:     in.Title,
		Body:      in.Body,
		Revealed:  in.Kind != NoteKindSecret,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.SaveNote(n); err != nil {
		return nil, err
	}
	return n, nil
}

// List returns notes filtered by world and kind. Unrevealed secrets are
// returned with the body redacted unless includeSecrets is set.
func (m *Notes) List(worldID, kind string, includeSecrets bool) ([]*Note, error) {
	notes, err := m.store.NotesByWorld(worldID, kind)
	if err != nil {
		return nil, err
	}
	if includeSecrets {
		return notes, nil
	}

	out := make([]*Note, 0, len(notes))
	for _, n := range notes {
		if n.Kind == NoteKindSecret && !n.Revealed {
			redacted := *n
			redacted.Body = "[secret]"
			out = append(out, &redacted)
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// RevealSecret marks a secret note as revealed and returns it. Returns nil
// if the note does not exist.
func (m *Notes) RevealSecret(id string) (*Note, error) {
	n, err := m.store.Note(id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, nil
	}
	if n.Kind != NoteKindSecret {
		return nil, invalidf("note %s is not a secret", id)
	}
	if !n.Revealed {
		n.Revealed = true
		if err := m.store.SaveNote(n); err != nil {
			return nil, err
		}
	}
	return n, nil
}
