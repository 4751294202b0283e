package tools

import (
	"github.com/besplago/gamemaster/internal/dice"
	"github.com/besplago/gamemaster/internal/persistence"
	"github.com/besplago/gamemaster/internal/rpg"
	"github.com/besplago/gamemaster/internal/strategy"
)

// Deps are the collaborators the tool handlers dispatch into.
type Deps struct {
	Coordinator *strategy.Coordinator
	Characters  *rpg.Characters
	Notes       *rpg.Notes
	DB          *persistence.DB
	Roller      *dice.Roller
	SnapshotDir string
}
