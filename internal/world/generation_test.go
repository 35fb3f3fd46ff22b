package world

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/talgya/biomegen/internal/biome"
	"github.com/talgya/biomegen/internal/noise"
)

func mustGenerator(t *testing.T, cfg Config) *Generator {
	t.Helper()
	g, err := NewGenerator(cfg)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	return g
}

func TestValidateRejectsBadConfig(t *testing.T) {
	mutate := []func(*Config){
		func(c *Config) { c.Zoom = 0 },
		func(c *Config) { c.Zoom = -1 },
		func(c *Config) { c.Zoom = math.NaN() },
		func(c *Config) { c.Zoom = math.Inf(1) },
		func(c *Config) { c.MapSize = 0 },
		func(c *Config) { c.MapSize = MaxMapSize + 1 },
		func(c *Config) { c.MapSize = 1 << 31 },
		func(c *Config) { c.TileSize = 0 },
		func(c *Config) { c.TileScale = -0.25 },
		func(c *Config) { c.PanX = 1.5 },
		func(c *Config) { c.PanY = math.NaN() },
		func(c *Config) { c.Noise = "worley" },
	}
	for i, m := range mutate {
		cfg := DefaultConfig()
		m(&cfg)
		if _, err := NewGenerator(cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("case %d: expected ErrInvalidConfig, got %v", i, err)
		}
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestConfigEqual(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()
	if !a.Equal(b) {
		t.Fatal("identical snapshots should be equal")
	}
	b.PanX = 0.1
	if a.Equal(b) {
		t.Fatal("pan change should be detected")
	}
}

func TestGoldenOrigin(t *testing.T) {
	g := mustGenerator(t, DefaultConfig())
	s := g.Sample(0, 0)

	// The Perlin lattice samples to zero at the origin, so every octave
	// contributes exactly half its amplitude.
	geometric := func(p float64, n int) float64 {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += math.Pow(p, float64(i))
		}
		return sum
	}
	h := 0.5 * geometric(0.3, 24)
	temp := 0.5 * geometric(0.2, 24)

	wantHeight := 6000*h*(1-(0.3+0.4*h)) - 1000
	if math.Abs(s.Climate.Height-wantHeight) > 1e-6 {
		t.Fatalf("height %v, want %v", s.Climate.Height, wantHeight)
	}
	noisy := 20*temp - 5
	if math.Abs(s.Climate.DraftTemp-(noisy-0.0049*wantHeight)) > 1e-6 {
		t.Fatalf("draft temperature %v", s.Climate.DraftTemp)
	}

	if s.Biome != biome.SubpolarWetTundra {
		t.Fatalf("biome %v, want SubpolarWetTundra (T=%v P=%v)", s.Biome, s.Climate.Temperature, s.Climate.Precipitation)
	}
	if s.Tile.Sprite != biome.SpriteGrass {
		t.Fatalf("sprite %d, want %d", s.Tile.Sprite, biome.SpriteGrass)
	}
	if math.Abs(s.Climate.Temperature-1.2773061) > 1e-5 {
		t.Fatalf("temperature %v", s.Climate.Temperature)
	}
	if math.Abs(s.Climate.Humidity-0.2355723) > 1e-6 {
		t.Fatalf("humidity %v", s.Climate.Humidity)
	}
	if math.Abs(s.Climate.Precipitation-353.35847) > 1e-3 {
		t.Fatalf("precipitation %v", s.Climate.Precipitation)
	}
	want := biome.Color{R: 0.3211807, G: 0.3744129, B: 0.1850690}
	c := s.Tile.Color
	if math.Abs(c.R-want.R) > 1e-6 || math.Abs(c.G-want.G) > 1e-6 || math.Abs(c.B-want.B) > 1e-6 {
		t.Fatalf("colour %+v, want %+v", c, want)
	}
}

// Dry biomes must show up across temperature tiers, not only the wet
// columns of the table.
func TestDryBiomesReachable(t *testing.T) {
	dry := map[biome.Biome]bool{
		biome.SubpolarDryTundra: true, biome.SubpolarMoistTundra: true,
		biome.BorealDesert: true, biome.BorealDryScrub: true,
		biome.TemperateDesert: true, biome.TemperateDesertScrub: true,
		biome.SubtropicalDesert: true, biome.SubtropicalDesertScrub: true,
		biome.TropicalDesert: true, biome.TropicalDesertScrub: true,
	}

	land := map[biome.Biome]int{}
	bands := map[biome.Band]bool{}
	for _, seed := range []uint32{1, 7, 42, 99, 1234, 829201} {
		for _, zoom := range []float64{0.5, 1, 1.5, 2} {
			cfg := DefaultConfig()
			cfg.Seed = seed
			cfg.Zoom = zoom
			cfg.MapSize = 60
			m, err := GenerateMap(context.Background(), mustGenerator(t, cfg), 0)
			if err != nil {
				t.Fatalf("seed %d zoom %v: %v", seed, zoom, err)
			}
			for b, n := range m.BiomeCounts() {
				if b == biome.Ocean {
					continue
				}
				land[b] += n
				if dry[b] {
					band, _ := biome.BandOf(b)
					bands[band] = true
				}
			}
		}
	}

	if len(bands) < 3 {
		t.Fatalf("dry biomes in %d tiers, want at least 3 (land biomes: %v)", len(bands), land)
	}
	if len(land) < 14 {
		t.Fatalf("only %d distinct land biomes: %v", len(land), land)
	}
}

func TestTileDeterministic(t *testing.T) {
	for _, backend := range noise.Backends() {
		cfg := SmallTestConfig()
		cfg.Noise = backend
		cfg.Zoom = 1.3
		cfg.PanX = -0.4
		a := mustGenerator(t, cfg)
		b := mustGenerator(t, cfg)
		for i := -20; i <= 20; i++ {
			x, y := float64(i)*4, float64(-i)*3
			if a.Tile(x, y) != b.Tile(x, y) || a.Tile(x, y) != a.Tile(x, y) {
				t.Fatalf("%s: tile at (%v,%v) not deterministic", backend, x, y)
			}
		}
	}
}

func TestOceanInvariant(t *testing.T) {
	for _, backend := range noise.Backends() {
		cfg := DefaultConfig()
		cfg.Noise = backend
		cfg.MapSize = 60
		cfg.Zoom = 0.4
		g := mustGenerator(t, cfg)
		grid := g.Grid()
		for i := 0; i < grid.Len(); i++ {
			x, y := grid.World(grid.Coord(i))
			s := g.Sample(x, y)
			ocean := s.Climate.Height <= 0
			if ocean != (s.Biome == biome.Ocean) || ocean != (s.Tile.Sprite == biome.SpriteWater) {
				t.Fatalf("%s at (%v,%v): height %v biome %v sprite %d", backend, x, y, s.Climate.Height, s.Biome, s.Tile.Sprite)
			}
			if s.Tile.Sprite < 0 || s.Tile.Sprite >= biome.SpriteCount {
				t.Fatalf("sprite %d out of range", s.Tile.Sprite)
			}
		}
	}
}

func TestGridIndexRoundTrip(t *testing.T) {
	g := NewGrid(250, 16, 0.25)
	if g.Width() != 251 || g.Len() != 251*251 {
		t.Fatalf("unexpected grid %s", g)
	}
	for _, c := range []TileCoord{{-125, -125}, {0, 0}, {125, 125}, {-3, 77}} {
		if got := g.Coord(g.Index(c)); got != c {
			t.Fatalf("round trip %v -> %v", c, got)
		}
	}
	if g.InBounds(TileCoord{126, 0}) {
		t.Fatal("126 is outside a 250-tile map")
	}
	if x, y := g.World(TileCoord{2, -3}); x != 8 || y != -12 {
		t.Fatalf("world coordinate (%v,%v)", x, y)
	}
}

func TestGenerateMapMatchesSequential(t *testing.T) {
	cfg := SmallTestConfig()
	gen := mustGenerator(t, cfg)

	m, err := GenerateMap(context.Background(), gen, 4)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if m.TileCount() != m.Grid.Len() {
		t.Fatalf("tile count %d, want %d", m.TileCount(), m.Grid.Len())
	}
	for i, tile := range m.Tiles {
		c := m.Grid.Coord(i)
		if tile.Coord != c {
			t.Fatalf("tile %d has coord %v, want %v", i, tile.Coord, c)
		}
		x, y := m.Grid.World(c)
		if gen.Tile(x, y) != tile.Descriptor {
			t.Fatalf("tile %v differs from direct evaluation", c)
		}
	}

	total := 0
	for _, n := range m.BiomeCounts() {
		total += n
	}
	if total != m.TileCount() || m.LandTiles() > total {
		t.Fatalf("histogram total %d, land %d, tiles %d", total, m.LandTiles(), m.TileCount())
	}
	if got := m.Get(TileCoord{0, 0}); got == nil || got.Coord != (TileCoord{}) {
		t.Fatalf("centre tile %+v", got)
	}
	if len(m.Row(0)) != m.Grid.Width() || m.Row(-1) != nil {
		t.Fatal("row bounds")
	}
}

func TestGenerateMapCancelled(t *testing.T) {
	gen := mustGenerator(t, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := GenerateMap(ctx, gen, 2); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEncodeGridRoundTrip(t *testing.T) {
	gen := mustGenerator(t, SmallTestConfig())
	m, err := GenerateMap(context.Background(), gen, 2)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := EncodeGrid(&buf, m); err != nil {
		t.Fatalf("encode: %v", err)
	}
	width, cells, err := DecodeGrid(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if width != m.Grid.Width() || len(cells) != len(m.Tiles) {
		t.Fatalf("decoded %d cells of width %d", len(cells), width)
	}
	for i, c := range cells {
		if c != cellOf(m.Tiles[i]) {
			t.Fatalf("cell %d: %+v vs %+v", i, c, cellOf(m.Tiles[i]))
		}
	}

	if _, _, err := DecodeGrid(bytes.NewReader([]byte("not zstd"))); err == nil {
		t.Fatal("expected error for garbage input")
	}
}
