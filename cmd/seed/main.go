// Command seed creates a demo world with three nations ready for play.
package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/besplago/gamemaster/internal/persistence"
	"github.com/besplago/gamemaster/internal/strategy"
	"github.com/besplago/gamemaster/internal/world"
)

type nationSeed struct {
	name       string
	leader     string
	ideology   string
	aggression float64
	trust      float64
	paranoia   float64
	gdp        float64
}

var demoNations = []nationSeed{
	{"Valdoria", "Chancellor Ilsa Renn", "mercantile republic", 35, 60, 30, 2400},
	{"Kethmar", "Warlord Dren Okto", "militarist junta", 75, 25, 65, 1600},
	{"Suntide Accord", "Speaker Imenne", "theocratic council", 20, 70, 40, 1900},
}

func main() {
	var (
		dbPath    = flag.String("db", "data/gamemaster.db", "sqlite database path")
		worldName = flag.String("name", "Demo Campaign", "world name")
		seed      = flag.Int64("seed", 42, "world generation seed")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		slog.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}
	db, err := persistence.Open(*dbPath)
	if err != nil {
		slog.Error("failed to open database", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	w := &world.World{
		ID:        uuid.NewString(),
		Name:      *worldName,
		Seed:      *seed,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.CreateWorld(w); err != nil {
		slog.Error("failed to create world", "error", err)
		os.Exit(1)
	}

	regions := world.GenerateRegions(w.ID, world.DefaultGenConfig(*seed))
	if err := db.CreateRegions(regions); err != nil {
		slog.Error("failed to create regions", "error", err)
		os.Exit(1)
	}

	for _, ns := range demoNations {
		n := &world.Nation{
			ID:         uuid.NewString(),
			WorldID:    w.ID,
			Name:       ns.name,
			Leader:     ns.leader,
			Ideology:   ns.ideology,
			Aggression: ns.aggression,
			Trust:      ns.trust,
			Paranoia:   ns.paranoia,
			GDP:        ns.gdp,
			Resources:  map[string]float64{"food": 100, "metal": 50, "oil": 25},
		}
		if err := db.CreateNation(n); err != nil {
			slog.Error("failed to create nation", "name", ns.name, "error", err)
			os.Exit(1)
		}
		slog.Info("nation created", "id", n.ID, "name", n.Name)
	}

	coord := strategy.NewCoordinator(db)
	if _, err := coord.Init(w.ID); err != nil {
		slog.Error("failed to initialize turn state", "error", err)
		os.Exit(1)
	}

	slog.Info("demo world ready",
		"worldId", w.ID,
		"regions", len(regions),
		"nations", len(demoNations),
	)
}
