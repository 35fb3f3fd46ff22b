// Command terrainsim generates a biome map and serves it over HTTP, rebuilding
// the whole map whenever a control changes the configuration.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/talgya/biomegen/internal/api"
	"github.com/talgya/biomegen/internal/config"
	"github.com/talgya/biomegen/internal/persistence"
	"github.com/talgya/biomegen/internal/session"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// ── Configuration ─────────────────────────────────────────────────
	cfg := config.Default()
	if path := os.Getenv("BIOMEGEN_CONFIG"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			slog.Error("failed to load config", "path", path, "error", err)
			os.Exit(1)
		}
		cfg = loaded
		slog.Info("config loaded", "path", path)
	}
	if v := os.Getenv("BIOMEGEN_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("BIOMEGEN_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			slog.Error("invalid BIOMEGEN_PORT", "value", v)
			os.Exit(1)
		}
		cfg.API.Port = port
	}

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		os.MkdirAll(dir, 0755)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// Restore the last live snapshot, if any.
	gen := cfg.Generator
	switch last, err := db.LastConfig(); {
	case err == nil && last.Validate() == nil:
		gen = last
		slog.Info("restoring last configuration", "seed", last.Seed, "zoom", last.Zoom)
	case errors.Is(err, persistence.ErrNotFound):
	case err != nil:
		slog.Warn("ignoring saved configuration", "error", err)
	default:
		slog.Warn("ignoring invalid saved configuration")
	}

	// ── Session ───────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("generating map...", "map_size", gen.MapSize, "noise", gen.Noise)
	sess, err := session.New(ctx, gen, cfg.Workers)
	if err != nil {
		slog.Error("initial generation failed", "error", err)
		os.Exit(1)
	}
	sess.OnEpisode = func(ep *session.Episode) {
		logBiomes(ep)
		if err := db.RecordEpisode(episodeRecord(ep)); err != nil {
			slog.Error("episode save failed", "episode", ep.ID, "error", err)
		}
	}
	sess.Publish()

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("BIOMEGEN_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("BIOMEGEN_ADMIN_KEY not set, control endpoint disabled")
	}

	proxies, err := api.ParseTrustedProxies(cfg.API.TrustedProxies)
	if err != nil {
		slog.Error("invalid trusted proxy list", "error", err)
		os.Exit(1)
	}

	apiServer := &api.Server{
		Session:        sess,
		DB:             db,
		Port:           cfg.API.Port,
		AdminKey:       adminKey,
		MapRatePerHour: cfg.API.MapRatePerHour,
		TrustedProxies: proxies,
	}
	apiServer.Start()

	ep := sess.Current()
	fmt.Printf("\nTerrain ready: %s tiles, %s on land.\n",
		humanize.Comma(int64(ep.Map.TileCount())), humanize.Comma(int64(ep.Map.LandTiles())))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.API.Port)

	<-ctx.Done()
	slog.Info("shutting down")
}

func episodeRecord(ep *session.Episode) persistence.Episode {
	return persistence.Episode{
		ID:          ep.ID.String(),
		CreatedAt:   ep.CreatedAt,
		Config:      ep.Config,
		Tiles:       ep.Map.TileCount(),
		LandTiles:   ep.Map.LandTiles(),
		ElapsedMs:   ep.Elapsed.Milliseconds(),
		BiomeCounts: ep.Map.BiomeHistogram(),
	}
}

func logBiomes(ep *session.Episode) {
	hist := ep.Map.BiomeHistogram()
	names := make([]string, 0, len(hist))
	for name := range hist {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return hist[names[i]] > hist[names[j]] })

	total := ep.Map.TileCount()
	for _, name := range names {
		slog.Info("biome",
			"type", name,
			"count", humanize.Comma(int64(hist[name])),
			"share", fmt.Sprintf("%.1f%%", 100*float64(hist[name])/float64(total)),
		)
	}
}
