package world

import (
	"errors"
	"fmt"
	"math"

	"github.com/talgya/biomegen/internal/noise"
)

// ErrInvalidConfig is wrapped by every Config validation failure.
var ErrInvalidConfig = errors.New("invalid generator config")

// Pan limits. Controls keep pan inside the soft band; anything outside the
// hard band is rejected.
const (
	SoftPanLimit = 0.9
	HardPanLimit = 1.0
)

// MaxMapSize bounds tiles per axis. config/schema.json carries the same limit.
const MaxMapSize = 4096

// Config is an immutable generation episode: changing any field means a
// new Generator and a full regeneration.
type Config struct {
	Seed       uint32  `json:"seed" yaml:"seed"`
	Zoom       float64 `json:"zoom" yaml:"zoom"`
	PanX       float64 `json:"pan_x" yaml:"pan_x"`
	PanY       float64 `json:"pan_y" yaml:"pan_y"`
	MapSize    int     `json:"map_size" yaml:"map_size"`     // Tiles per axis
	TileSize   float64 `json:"tile_size" yaml:"tile_size"`   // Pixels per tile
	TileScale  float64 `json:"tile_scale" yaml:"tile_scale"` // Render scale
	Noise      string  `json:"noise" yaml:"noise"`           // Primitive backend
	AlpineTint bool    `json:"alpine_tint" yaml:"alpine_tint"`
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		Seed:      829201,
		Zoom:      1.0,
		MapSize:   250,
		TileSize:  16,
		TileScale: 0.25,
		Noise:     noise.BackendPerlin,
	}
}

// SmallTestConfig returns a tiny map for rapid iteration.
func SmallTestConfig() Config {
	cfg := DefaultConfig()
	cfg.MapSize = 24
	return cfg
}

// Validate rejects configurations the pipeline cannot evaluate.
func (c Config) Validate() error {
	if !(c.Zoom > 0) || math.IsInf(c.Zoom, 0) {
		return fmt.Errorf("%w: zoom %v must be positive and finite", ErrInvalidConfig, c.Zoom)
	}
	if c.MapSize < 1 || c.MapSize > MaxMapSize {
		return fmt.Errorf("%w: map size %d outside [1, %d]", ErrInvalidConfig, c.MapSize, MaxMapSize)
	}
	if !(c.TileSize > 0) || !(c.TileScale > 0) || math.IsInf(c.TileSize, 0) || math.IsInf(c.TileScale, 0) {
		return fmt.Errorf("%w: tile size %v and scale %v must be positive", ErrInvalidConfig, c.TileSize, c.TileScale)
	}
	for _, p := range []float64{c.PanX, c.PanY} {
		if math.IsNaN(p) || math.Abs(p) > HardPanLimit {
			return fmt.Errorf("%w: pan %v outside [-%v, %v]", ErrInvalidConfig, p, HardPanLimit, HardPanLimit)
		}
	}
	if !noise.ValidBackend(c.Noise) {
		return fmt.Errorf("%w: unknown noise backend %q", ErrInvalidConfig, c.Noise)
	}
	return nil
}

// Equal reports whether two snapshots describe the same episode.
func (c Config) Equal(o Config) bool {
	return c == o
}
