package world

import (
	"fmt"

	"github.com/talgya/biomegen/internal/biome"
)

// Tile is one generated cell of a map.
type Tile struct {
	Coord      TileCoord            `json:"coord"`
	Biome      biome.Biome          `json:"biome"`
	Descriptor biome.TileDescriptor `json:"tile"`
}

// Map holds every tile of one generation episode. It is never updated in
// place; a configuration change produces a new Map.
type Map struct {
	Config Config `json:"config"`
	Grid   Grid   `json:"-"`
	Tiles  []Tile `json:"-"` // Row-major, see Grid.Index
}

// NewMap allocates an empty map for cfg.
func NewMap(cfg Config) *Map {
	g := NewGrid(cfg.MapSize, cfg.TileSize, cfg.TileScale)
	return &Map{
		Config: cfg,
		Grid:   g,
		Tiles:  make([]Tile, g.Len()),
	}
}

// Get returns the tile at the given coordinate, or nil if out of bounds.
func (m *Map) Get(c TileCoord) *Tile {
	if !m.Grid.InBounds(c) {
		return nil
	}
	return &m.Tiles[m.Grid.Index(c)]
}

// TileCount returns the total number of tiles in the map.
func (m *Map) TileCount() int {
	return len(m.Tiles)
}

// BiomeCounts returns a summary of biome distribution.
func (m *Map) BiomeCounts() map[biome.Biome]int {
	counts := make(map[biome.Biome]int)
	for _, t := range m.Tiles {
		counts[t.Biome]++
	}
	return counts
}

// BiomeHistogram is BiomeCounts keyed by biome name.
func (m *Map) BiomeHistogram() map[string]int {
	out := make(map[string]int)
	for b, n := range m.BiomeCounts() {
		out[b.String()] = n
	}
	return out
}

// LandTiles counts tiles that are not ocean.
func (m *Map) LandTiles() int {
	n := 0
	for _, t := range m.Tiles {
		if t.Biome != biome.Ocean {
			n++
		}
	}
	return n
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(%s, seed=%d, tiles=%d)", m.Grid, m.Config.Seed, m.TileCount())
}
