// Package persistence provides SQLite-based storage for generation episode
// records. Maps themselves are never stored; an episode is regenerated from
// its configuration snapshot.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/biomegen/internal/world"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// DB wraps a SQLite connection for episode storage.
type DB struct {
	conn *sqlx.DB
}

// Episode is the stored summary of one generation episode.
type Episode struct {
	ID          string         `json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	Config      world.Config   `json:"config"`
	Tiles       int            `json:"tiles"`
	LandTiles   int            `json:"land_tiles"`
	ElapsedMs   int64          `json:"elapsed_ms"`
	BiomeCounts map[string]int `json:"biome_counts"`
}

type episodeRow struct {
	ID         string `db:"id"`
	CreatedAt  int64  `db:"created_at"`
	ConfigJSON string `db:"config_json"`
	Seed       int64  `db:"seed"`
	Tiles      int    `db:"tiles"`
	LandTiles  int    `db:"land_tiles"`
	ElapsedMs  int64  `db:"elapsed_ms"`
	BiomesJSON string `db:"biomes_json"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
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
	CREATE TABLE IF NOT EXISTS episodes (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		config_json TEXT NOT NULL,
		seed INTEGER NOT NULL,
		tiles INTEGER NOT NULL,
		land_tiles INTEGER NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		biomes_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_episodes_created ON episodes(created_at);
	CREATE INDEX IF NOT EXISTS idx_episodes_seed ON episodes(seed);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveEpisode inserts an episode record.
func (db *DB) SaveEpisode(e Episode) error {
	cfgJSON, err := json.Marshal(e.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	biomesJSON, err := json.Marshal(e.BiomeCounts)
	if err != nil {
		return fmt.Errorf("marshal biomes: %w", err)
	}

	_, err = db.conn.Exec(`INSERT INTO episodes
		(id, created_at, config_json, seed, tiles, land_tiles, elapsed_ms, biomes_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CreatedAt.UnixMilli(), string(cfgJSON), int64(e.Config.Seed),
		e.Tiles, e.LandTiles, e.ElapsedMs, string(biomesJSON),
	)
	if err != nil {
		return fmt.Errorf("insert episode %s: %w", e.ID, err)
	}
	return nil
}

// GetEpisode loads one episode by id.
func (db *DB) GetEpisode(id string) (Episode, error) {
	var row episodeRow
	err := db.conn.Get(&row, "SELECT * FROM episodes WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return Episode{}, fmt.Errorf("episode %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Episode{}, err
	}
	return row.decode()
}

// RecentEpisodes returns the most recent N episodes, newest first.
func (db *DB) RecentEpisodes(limit int) ([]Episode, error) {
	var rows []episodeRow
	err := db.conn.Select(&rows,
		"SELECT * FROM episodes ORDER BY created_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}

	out := make([]Episode, 0, len(rows))
	for _, r := range rows {
		e, err := r.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("meta %s: %w", key, ErrNotFound)
	}
	return value, err
}

const lastConfigKey = "last_config"

// SaveLastConfig remembers the live snapshot so a restart regenerates the
// same map.
func (db *DB) SaveLastConfig(cfg world.Config) error {
	b, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return db.SaveMeta(lastConfigKey, string(b))
}

// LastConfig returns the snapshot saved by SaveLastConfig.
func (db *DB) LastConfig() (world.Config, error) {
	var cfg world.Config
	raw, err := db.GetMeta(lastConfigKey)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return cfg, fmt.Errorf("decode last config: %w", err)
	}
	return cfg, nil
}

// RecordEpisode stores the episode summary and marks its snapshot as the
// one to restore.
func (db *DB) RecordEpisode(e Episode) error {
	if err := db.SaveEpisode(e); err != nil {
		return err
	}
	if err := db.SaveLastConfig(e.Config); err != nil {
		return fmt.Errorf("save last config: %w", err)
	}
	slog.Info("episode recorded", "episode", e.ID, "seed", e.Config.Seed, "land_tiles", e.LandTiles)
	return nil
}

func (r episodeRow) decode() (Episode, error) {
	e := Episode{
		ID:        r.ID,
		CreatedAt: time.UnixMilli(r.CreatedAt).UTC(),
		Tiles:     r.Tiles,
		LandTiles: r.LandTiles,
		ElapsedMs: r.ElapsedMs,
	}
	if err := json.Unmarshal([]byte(r.ConfigJSON), &e.Config); err != nil {
		return e, fmt.Errorf("episode %s config: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.BiomesJSON), &e.BiomeCounts); err != nil {
		return e, fmt.Errorf("episode %s biomes: %w", r.ID, err)
	}
	return e, nil
}
