// Package api provides the HTTP harness around the terrain generator.
// GET endpoints are public (read-only observation of the live episode).
// POST endpoints require a bearer token and drive the session controls.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/biomegen/internal/noise"
	"github.com/talgya/biomegen/internal/persistence"
	"github.com/talgya/biomegen/internal/session"
	"github.com/talgya/biomegen/internal/world"
)

const maxStreamConns = 4

// Server serves the live episode over HTTP.
type Server struct {
	Session        *session.Session
	DB             *persistence.DB // Optional; episode history is disabled when nil
	Port           int
	AdminKey       string // Bearer token for POST endpoints. Empty = POST disabled.
	MapRatePerHour int
	TrustedProxies TrustedProxies // Peers whose X-Forwarded-For is honoured

	stream *streamHub
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	rate := s.MapRatePerHour
	if rate <= 0 {
		rate = 120
	}
	mapLimiter := NewRateLimiter(rate, time.Hour)
	if s.stream == nil {
		s.stream = newStreamHub(maxStreamConns)
	}

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/tile", s.handleTile)
	mux.HandleFunc("/api/v1/map", RateLimitMiddleware(mapLimiter, s.TrustedProxies, s.handleMap))
	mux.HandleFunc("/api/v1/biomes", s.handleBiomes)
	mux.HandleFunc("/api/v1/episodes", s.handleEpisodes)
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Admin endpoints.
	mux.HandleFunc("/api/v1/control", s.adminOnly(s.handleControl))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "history", s.DB != nil)

	handler := s.Handler()
	go func() {
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list; localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires POST with a valid bearer token.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no BIOMEGEN_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

type episodeSummary struct {
	ID        string       `json:"id"`
	Config    world.Config `json:"config"`
	Tiles     int          `json:"tiles"`
	LandTiles int          `json:"land_tiles"`
	Width     int          `json:"width"`
	CreatedAt time.Time    `json:"created_at"`
	ElapsedMs int64        `json:"elapsed_ms"`
}

func summarize(ep *session.Episode) episodeSummary {
	return episodeSummary{
		ID:        ep.ID.String(),
		Config:    ep.Config,
		Tiles:     ep.Map.TileCount(),
		LandTiles: ep.Map.LandTiles(),
		Width:     ep.Map.Grid.Width(),
		CreatedAt: ep.CreatedAt,
		ElapsedMs: ep.Elapsed.Milliseconds(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ep := s.Session.Current()
	writeJSON(w, map[string]any{
		"episode":  summarize(ep),
		"backends": noise.Backends(),
		"actions": []string{
			session.ZoomIn, session.ZoomOut, session.PanLeft, session.PanRight,
			session.PanUp, session.PanDown, session.Reseed, session.SetConfig,
		},
	})
}

// handleTile returns the full pipeline diagnostic for GET /api/v1/tile?x=&y=.
func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	x, errX := parseCoord(r.URL.Query().Get("x"))
	y, errY := parseCoord(r.URL.Query().Get("y"))
	if errX != nil || errY != nil {
		http.Error(w, "x and y must be finite numbers", http.StatusBadRequest)
		return
	}
	ep := s.Session.Current()
	writeJSON(w, map[string]any{
		"episode": ep.ID.String(),
		"x":       x,
		"y":       y,
		"sample":  ep.Generator.Sample(x, y),
	})
}

func parseCoord(v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("non-finite coordinate")
	}
	return f, nil
}

// handleMap returns the whole grid. ?format=zstd streams the compact binary
// encoding; the default is JSON rows, bottom row first.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	ep := s.Session.Current()

	if r.URL.Query().Get("format") == "zstd" {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("X-Episode-ID", ep.ID.String())
		if err := world.EncodeGrid(w, ep.Map); err != nil {
			slog.Error("map export failed", "episode", ep.ID, "error", err)
		}
		return
	}

	rows := make([][]tileEntry, ep.Map.Grid.Width())
	for i := range rows {
		rows[i] = tileEntries(ep.Map.Row(i))
	}
	writeJSON(w, map[string]any{
		"episode": summarize(ep),
		"rows":    rows,
	})
}

func (s *Server) handleBiomes(w http.ResponseWriter, r *http.Request) {
	type biomeCount struct {
		Biome string `json:"biome"`
		Count int    `json:"count"`
	}

	ep := s.Session.Current()
	counts := make([]biomeCount, 0)
	for name, n := range ep.Map.BiomeHistogram() {
		counts = append(counts, biomeCount{Biome: name, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Biome < counts[j].Biome
	})

	writeJSON(w, map[string]any{
		"episode": ep.ID.String(),
		"biomes":  counts,
	})
}

func (s *Server) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "episode history disabled", http.StatusServiceUnavailable)
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			http.Error(w, "limit must be 1..500", http.StatusBadRequest)
			return
		}
		limit = n
	}
	episodes, err := s.DB.RecentEpisodes(limit)
	if err != nil {
		slog.Error("load episodes failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"episodes": episodes})
}

// handleControl applies one session action and regenerates if it changed
// the configuration snapshot.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var a session.Action
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&a); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	ep, changed, err := s.Session.Apply(r.Context(), a)
	switch {
	case errors.Is(err, session.ErrUnknownAction), errors.Is(err, world.ErrInvalidConfig):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		slog.Error("control failed", "action", a.Kind, "error", err)
		http.Error(w, "regeneration failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"changed": changed,
		"episode": summarize(ep),
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
