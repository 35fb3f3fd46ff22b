package biome

import "math"

// Sprite indices into the six-cell tile atlas.
const (
	SpriteGrass  = 0
	SpriteScrub  = 1
	SpriteSand   = 2
	SpriteWater  = 3
	SpriteSnow   = 4
	SpriteForest = 5

	SpriteCount = 6
)

// Color is an RGB triple with channels in [0, 1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

func rgb8(r, g, b float64) Color {
	return Color{R: r / 255, G: g / 255, B: b / 255}
}

func (c Color) add(o Color) Color { return Color{c.R + o.R, c.G + o.G, c.B + o.B} }
func (c Color) scale(k float64) Color { return Color{c.R * k, c.G * k, c.B * k} }

func (c Color) lerp(o Color, t float64) Color {
	return Color{c.R + (o.R-c.R)*t, c.G + (o.G-c.G)*t, c.B + (o.B-c.B)*t}
}

// Clamped returns c with every channel forced into [0, 1].
func (c Color) Clamped() Color {
	return Color{clamp01(c.R), clamp01(c.G), clamp01(c.B)}
}

// TileDescriptor is what the renderer draws for one coordinate.
type TileDescriptor struct {
	Sprite int   `json:"sprite"`
	Color  Color `json:"color"`
}

// Palette.
var (
	OceanColor      = Color{0, 0.2, 0.8}
	PolarColor      = Color{1, 1, 1}
	ColdDesertColor = rgb8(196, 190, 170)
	WarmDesertColor = rgb8(237, 201, 140)
	GrassColor      = rgb8(157, 183, 92)
	DeadColor       = rgb8(140, 126, 78)
	SavannaColor    = rgb8(154, 180, 54)
	AlpineColor     = rgb8(200, 220, 255)
)

type template struct {
	sprite int
	fixed  *Color // nil means grass-coloured
}

func fixed(c Color) *Color { return &c }

var templates = [biomeCount]template{
	Ocean:       {SpriteWater, fixed(OceanColor)},
	PolarDesert: {SpriteSnow, fixed(PolarColor)},

	SubpolarDryTundra:   {SpriteSnow, nil},
	SubpolarMoistTundra: {SpriteSnow, nil},
	SubpolarWetTundra:   {SpriteGrass, nil},
	SubpolarRainTundra:  {SpriteGrass, nil},

	BorealDesert:      {SpriteSand, fixed(ColdDesertColor)},
	BorealDryScrub:    {SpriteScrub, nil},
	BorealMoistForest: {SpriteForest, nil},
	BorealWetForest:   {SpriteForest, nil},
	BorealRainForest:  {SpriteForest, nil},

	TemperateDesert:      {SpriteSand, fixed(ColdDesertColor)},
	TemperateDesertScrub: {SpriteScrub, nil},
	TemperateSteppe:      {SpriteGrass, nil},
	TemperateMoistForest: {SpriteForest, nil},
	TemperateWetForest:   {SpriteForest, nil},
	TemperateRainForest:  {SpriteForest, nil},

	SubtropicalDesert:        {SpriteSand, fixed(WarmDesertColor)},
	SubtropicalDesertScrub:   {SpriteScrub, nil},
	SubtropicalThornWoodland: {SpriteScrub, nil},
	SubtropicalDryForest:     {SpriteForest, nil},
	SubtropicalMoistForest:   {SpriteForest, nil},
	SubtropicalWetForest:     {SpriteForest, nil},
	SubtropicalRainForest:    {SpriteForest, nil},

	TropicalDesert:        {SpriteSand, fixed(WarmDesertColor)},
	TropicalDesertScrub:   {SpriteScrub, nil},
	TropicalThornWoodland: {SpriteScrub, nil},
	TropicalVeryDryForest: {SpriteGrass, nil},
	TropicalDryForest:     {SpriteForest, nil},
	TropicalMoistForest:   {SpriteForest, nil},
	TropicalWetForest:     {SpriteForest, nil},
	TropicalRainForest:    {SpriteForest, nil},
}

// FixedColor reports whether a biome ignores climate when colouring.
func FixedColor(b Biome) bool {
	return b.Valid() && templates[b].fixed != nil
}

// GrassBlend exposes the intermediate terms of the grass colour.
type GrassBlend struct {
	Deadness float64
	Alpine   float64
	Ratio    float64
	Green    Color
	Yellow   Color
	Blue     Color
	Result   Color
}

// Grass computes the shared vegetation colour. The alpine tint is only
// folded into the result when includeAlpine is set.
func Grass(temperature, precipitation float64, includeAlpine bool) GrassBlend {
	var g GrassBlend
	g.Deadness = clamp01(temperature/40 - precipitation/4000)
	g.Alpine = clamp01(-temperature/20 + 0.5*g.Deadness)
	g.Ratio = clamp01(precipitation / 8000)

	g.Green = GrassColor.lerp(DeadColor, g.Deadness)
	g.Yellow = SavannaColor.scale(g.Ratio)
	g.Blue = AlpineColor.scale(g.Alpine)

	if includeAlpine {
		g.Result = g.Green.add(g.Yellow).add(g.Blue).scale(1.0 / 3)
	} else {
		g.Result = g.Green.add(g.Yellow).scale(0.5)
	}
	g.Result = g.Result.Clamped()
	return g
}

// Classifier maps climate to biomes and tiles. The zero value matches the
// reference colouring.
type Classifier struct {
	alpine bool
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithAlpineTint folds the alpine tint into grass colours.
func WithAlpineTint(on bool) Option {
	return func(c *Classifier) { c.alpine = on }
}

// NewClassifier builds a classifier.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Classify delegates to the package-level table.
func (c *Classifier) Classify(height, temperature, precipitation float64) Biome {
	return Classify(height, temperature, precipitation)
}

// Tile returns the descriptor for a biome at the given climate.
func (c *Classifier) Tile(b Biome, temperature, precipitation float64) TileDescriptor {
	if !b.Valid() {
		b = Ocean
	}
	tpl := templates[b]
	if tpl.fixed != nil {
		return TileDescriptor{Sprite: tpl.sprite, Color: *tpl.fixed}
	}
	return TileDescriptor{Sprite: tpl.sprite, Color: Grass(temperature, precipitation, c.alpine).Result}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
