// Command gamemaster runs the tabletop session server: an MCP tool endpoint
// over a persistent world with a turn-based strategy layer.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/besplago/gamemaster/internal/config"
	"github.com/besplago/gamemaster/internal/dice"
	"github.com/besplago/gamemaster/internal/mcp"
	"github.com/besplago/gamemaster/internal/persistence"
	"github.com/besplago/gamemaster/internal/rpg"
	"github.com/besplago/gamemaster/internal/strategy"
	"github.com/besplago/gamemaster/internal/tools"
)

func main() {
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "gamemaster.yaml", "path to config file")
		listenFlag = flag.String("listen", "", "listen address (overrides config)")
		dbFlag     = flag.String("db", "", "sqlite database path (overrides config)")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	if *listenFlag != "" {
		cfg.Listen = *listenFlag
	}
	if *dbFlag != "" {
		cfg.DBPath = *dbFlag
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		slog.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.SnapshotDir, 0755); err != nil {
		slog.Error("failed to create snapshot directory", "error", err)
		os.Exit(1)
	}

	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	seed := cfg.DiceSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	registry := tools.NewRegistry(tools.Deps{
		Coordinator: strategy.NewCoordinator(db),
		Characters:  rpg.NewCharacters(db),
		Notes:       rpg.NewNotes(db),
		DB:          db,
		Roller:      dice.NewRoller(seed),
		SnapshotDir: cfg.SnapshotDir,
	})

	server, err := mcp.NewServer(mcp.Config{
		Registry: registry,
		Limiter:  mcp.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute),
		Logger:   logger,
	})
	if err != nil {
		slog.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mcp endpoint listening", "addr", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
