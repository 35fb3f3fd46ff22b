// Package climate turns coordinates into elevation, temperature, and
// precipitation by composing noise fields with a simple atmospheric model.
package climate

import (
	"math"

	"github.com/talgya/biomegen/internal/noise"
)

// Sampler is any source of normalized noise in [0, 1].
type Sampler interface {
	Get(x, y float64) float64
}

// Geometry fixes the map extent and view transform.
type Geometry struct {
	MapSize   int     // Tiles per axis
	TileSize  float64 // Tile size in pixels
	TileScale float64 // Render scale of a tile
	Zoom      float64 // > 0
	PanX      float64 // Fraction of the half extent
	PanY      float64
}

// HalfExtent returns half the map axis length in world units.
func (g Geometry) HalfExtent() float64 {
	return g.TileSize * g.TileScale * float64(g.MapSize) / 2
}

// Sample is the climate at one coordinate.
type Sample struct {
	X, Y float64 // Transformed coordinate
	XDis float64 // Normalized distance from the globe centre
	YDis float64
	RDis float64

	Height        float64 // Signed, <= 0 is below sea level
	AbsElevation  float64 // max(Height, 0)
	DraftTemp     float64 // Pass-one temperature
	Evaporation   float64 // [0, 1]
	LapseRate     float64 // Effective pass-two lapse rate
	Temperature   float64
	Water         float64
	Humidity      float64
	Precipitation float64
}

// Model composes height, temperature, and humidity fields. It has no
// mutable state after construction.
type Model struct {
	geo         Geometry
	halfExtent  float64
	height      Sampler
	temperature Sampler
	humidity    Sampler
}

// Fields groups the three noise layers a model reads.
type Fields struct {
	Height      Sampler
	Temperature Sampler
	Humidity    Sampler
}

// NewModel binds geometry and fields. Callers validate zoom > 0 beforehand.
func NewModel(geo Geometry, fields Fields) *Model {
	return &Model{
		geo:         geo,
		halfExtent:  geo.HalfExtent(),
		height:      fields.Height,
		temperature: fields.Temperature,
		humidity:    fields.Humidity,
	}
}

// DefaultParams returns the reference octave settings for the height,
// temperature, and humidity layers at the given zoom.
func DefaultParams(zoom float64) (height, temperature, humidity noise.Params) {
	height = noise.Params{Octaves: 24, Scale: 100 * zoom, Persistence: 0.3, Lacunarity: 4.7}
	temperature = noise.Params{Octaves: 24, Scale: 70 * zoom, Persistence: 0.2, Lacunarity: 4.1}
	humidity = noise.Params{Octaves: 8, Scale: 90 * zoom, Persistence: 0.08, Lacunarity: 1.2}
	return
}

// Transform applies zoom then pan to a world coordinate and returns the
// transformed point with its normalized distances.
func (m *Model) Transform(worldX, worldY float64) (x, y, xDis, yDis, rDis float64) {
	z := m.geo.Zoom
	x = worldX/z + m.halfExtent*z*m.geo.PanX
	y = worldY/z + m.halfExtent*z*m.geo.PanY

	xDis = x / (m.halfExtent * z)
	yDis = y / (m.halfExtent * z)
	rDis = math.Sqrt(xDis*xDis+yDis*yDis) / math.Sqrt2
	return
}

// Sample evaluates the full climate pipeline at a world coordinate.
func (m *Model) Sample(worldX, worldY float64) Sample {
	var s Sample
	s.X, s.Y, s.XDis, s.YDis, s.RDis = m.Transform(worldX, worldY)

	s.Height, s.AbsElevation = m.heights(s.RDis, s.X, s.Y)

	// Two passes only: the draft picks the lapse rate for the final value.
	s.DraftTemp = m.partialTemp(s.AbsElevation, s.YDis, DraftLapseRate, s.X, s.Y)
	s.Evaporation = EvaporationProbability(s.DraftTemp)
	s.LapseRate = WetLapseRate*s.Evaporation + DryLapseRate*(1-s.Evaporation)
	s.Temperature = m.partialTemp(s.AbsElevation, s.YDis, s.LapseRate, s.X, s.Y)

	s.Water = WaterAvailability(s.AbsElevation, s.Temperature, s.Evaporation)

	poleward := clamp01(math.Abs(s.YDis))
	s.Humidity = waterWeight*s.Water + polewardWeight*poleward + humidityWeight*m.humidity.Get(s.X, s.Y)

	s.Precipitation = math.Min(PrecipitationScale*s.Humidity, PrecipitationCeiling(s.Temperature))
	return s
}

func (m *Model) heights(rDis, x, y float64) (height, abs float64) {
	globe := m.height.Get(x, y) * (1 - (rDis + globeBias + globeDetail*m.height.Get(-x, -y)))
	height = ElevationRange*globe - ElevationOffset
	return height, math.Max(height, 0)
}

func (m *Model) partialTemp(absElevation, yDis, lapseRate, x, y float64) float64 {
	noisy := noiseTempRange*m.temperature.Get(x, y) + noiseTempOffset
	return latitudeGradient*yDis + noisy - lapseRate*absElevation
}

// EvaporationProbability is a triangle over [EvapMin, EvapMax] peaking at
// EvapPeak. The draft temperature is clamped into the band first.
func EvaporationProbability(temp float64) float64 {
	t := math.Min(math.Max(temp, EvapMin), EvapMax)
	halfWidth := (EvapMax - EvapMin) / 2
	return clamp01(1 - math.Abs(t-EvapPeak)/halfWidth)
}

// WaterAvailability is 1 at sea level and otherwise decays linearly with
// elevation inside the livable temperature band, capped at MaxWaterFraction.
func WaterAvailability(absElevation, temp, evaporation float64) float64 {
	if absElevation == 0 {
		return 1
	}
	if temp <= LivableMin || temp >= LivableMax || absElevation >= WaterCeiling {
		return 0
	}
	w := evaporation * (1 - absElevation/WaterCeiling)
	return math.Min(math.Max(w, 0), MaxWaterFraction)
}

// PrecipitationCeiling caps precipitation as a function of temperature.
// It rises linearly up to CeilingBreak and falls beyond it, never below 0.
func PrecipitationCeiling(temp float64) float64 {
	var c float64
	if temp <= CeilingBreak {
		c = ceilingSlopeLow*temp + ceilingBaseLow
	} else {
		c = ceilingSlopeHigh*temp + ceilingBaseHigh
	}
	return math.Max(c, 0)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
