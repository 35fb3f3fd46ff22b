package biome

import "math"

// Band is a latitudinal (temperature) tier.
type Band uint8

const (
	Polar Band = iota
	Subpolar
	Boreal
	Temperate
	Subtropical
	Tropical
)

func (b Band) String() string {
	switch b {
	case Polar:
		return "polar"
	case Subpolar:
		return "subpolar"
	case Boreal:
		return "boreal"
	case Temperate:
		return "temperate"
	case Subtropical:
		return "subtropical"
	case Tropical:
		return "tropical"
	default:
		return "unknown"
	}
}

// PrecipitationCutoffs are the shared precipitation band edges. A tier with
// n biomes uses the first n-1 of them; the last biome catches the rest.
var PrecipitationCutoffs = [...]float64{125, 250, 500, 1000, 2000, 4000, 8000}

type tier struct {
	band   Band
	upper  float64 // Inclusive upper temperature bound
	biomes []Biome // Ascending precipitation
}

// tiers partitions temperature into half-open (lower, upper] ranges.
var tiers = []tier{
	{Polar, 0, []Biome{PolarDesert}},
	{Subpolar, 3, []Biome{
		SubpolarDryTundra, SubpolarMoistTundra, SubpolarWetTundra, SubpolarRainTundra,
	}},
	{Boreal, 6, []Biome{
		BorealDesert, BorealDryScrub, BorealMoistForest, BorealWetForest, BorealRainForest,
	}},
	{Temperate, 12, []Biome{
		TemperateDesert, TemperateDesertScrub, TemperateSteppe,
		TemperateMoistForest, TemperateWetForest, TemperateRainForest,
	}},
	{Subtropical, 24, []Biome{
		SubtropicalDesert, SubtropicalDesertScrub, SubtropicalThornWoodland, SubtropicalDryForest,
		SubtropicalMoistForest, SubtropicalWetForest, SubtropicalRainForest,
	}},
	{Tropical, math.Inf(1), []Biome{
		TropicalDesert, TropicalDesertScrub, TropicalThornWoodland, TropicalVeryDryForest,
		TropicalDryForest, TropicalMoistForest, TropicalWetForest, TropicalRainForest,
	}},
}

// TemperatureBand returns the tier a temperature falls in. NaN lands in the
// tropical catch-all.
func TemperatureBand(temperature float64) Band {
	return tierFor(temperature).band
}

func tierFor(temperature float64) *tier {
	for i := range tiers {
		if temperature <= tiers[i].upper {
			return &tiers[i]
		}
	}
	return &tiers[len(tiers)-1]
}

// Classify maps a climate triple to a biome. Height <= 0 is always Ocean.
func Classify(height, temperature, precipitation float64) Biome {
	if height <= 0 {
		return Ocean
	}
	t := tierFor(temperature)
	last := len(t.biomes) - 1
	for i := 0; i < last; i++ {
		if precipitation <= PrecipitationCutoffs[i] {
			return t.biomes[i]
		}
	}
	return t.biomes[last]
}

// BandOf returns the temperature tier a land biome belongs to.
func BandOf(b Biome) (Band, bool) {
	for _, t := range tiers {
		for _, tb := range t.biomes {
			if tb == b {
				return t.band, true
			}
		}
	}
	return 0, false
}
