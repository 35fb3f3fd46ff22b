// Package world assembles noise, climate, and biome classification into a
// tile generator and produces whole maps from it.
package world

import (
	"fmt"

	"github.com/talgya/biomegen/internal/biome"
	"github.com/talgya/biomegen/internal/climate"
	"github.com/talgya/biomegen/internal/noise"
)

// Generator evaluates tiles for one configuration. It holds no mutable state
// after construction and is safe for concurrent use.
type Generator struct {
	cfg        Config
	climate    *climate.Model
	classifier *biome.Classifier
}

// TileSample is the full diagnostic for one coordinate.
type TileSample struct {
	Climate climate.Sample       `json:"climate"`
	Biome   biome.Biome          `json:"-"`
	Name    string               `json:"biome"`
	Tile    biome.TileDescriptor `json:"tile"`
}

// NewGenerator validates cfg and builds the noise layers.
func NewGenerator(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// All layers share one seed, so height, temperature, and humidity are correlated.
	prim, err := noise.NewPrimitive(cfg.Noise, cfg.Seed)
	if err != nil {
		return nil, err
	}

	hp, tp, up := climate.DefaultParams(cfg.Zoom)
	height, err := noise.NewField(hp, prim)
	if err != nil {
		return nil, fmt.Errorf("height field: %w", err)
	}
	temp, err := noise.NewField(tp, prim)
	if err != nil {
		return nil, fmt.Errorf("temperature field: %w", err)
	}
	humidity, err := noise.NewField(up, prim)
	if err != nil {
		return nil, fmt.Errorf("humidity field: %w", err)
	}

	geo := climate.Geometry{
		MapSize:   cfg.MapSize,
		TileSize:  cfg.TileSize,
		TileScale: cfg.TileScale,
		Zoom:      cfg.Zoom,
		PanX:      cfg.PanX,
		PanY:      cfg.PanY,
	}

	return &Generator{
		cfg:        cfg,
		climate:    climate.NewModel(geo, climate.Fields{Height: height, Temperature: temp, Humidity: humidity}),
		classifier: biome.NewClassifier(biome.WithAlpineTint(cfg.AlpineTint)),
	}, nil
}

// Config returns the configuration the generator was built with.
func (g *Generator) Config() Config {
	return g.cfg
}

// Grid returns the tile grid for the generator's map geometry.
func (g *Generator) Grid() Grid {
	return NewGrid(g.cfg.MapSize, g.cfg.TileSize, g.cfg.TileScale)
}

// Tile returns the descriptor for a world coordinate.
func (g *Generator) Tile(x, y float64) biome.TileDescriptor {
	return g.Sample(x, y).Tile
}

// Sample runs the whole pipeline and keeps the intermediate values.
func (g *Generator) Sample(x, y float64) TileSample {
	c := g.climate.Sample(x, y)
	b := g.classifier.Classify(c.Height, c.Temperature, c.Precipitation)
	return TileSample{
		Climate: c,
		Biome:   b,
		Name:    b.String(),
		Tile:    g.classifier.Tile(b, c.Temperature, c.Precipitation),
	}
}
