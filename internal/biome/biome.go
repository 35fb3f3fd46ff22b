// Package biome classifies climate samples into discrete biomes and maps
// each biome to a tile descriptor.
package biome

import "fmt"

// Biome is one bucket of the climate taxonomy.
type Biome uint8

const (
	Ocean Biome = iota

	PolarDesert

	SubpolarDryTundra
	SubpolarMoistTundra
	SubpolarWetTundra
	SubpolarRainTundra

	BorealDesert
	BorealDryScrub
	BorealMoistForest
	BorealWetForest
	BorealRainForest

	TemperateDesert
	TemperateDesertScrub
	TemperateSteppe
	TemperateMoistForest
	TemperateWetForest
	TemperateRainForest

	SubtropicalDesert
	SubtropicalDesertScrub
	SubtropicalThornWoodland
	SubtropicalDryForest
	SubtropicalMoistForest
	SubtropicalWetForest
	SubtropicalRainForest

	TropicalDesert
	TropicalDesertScrub
	TropicalThornWoodland
	TropicalVeryDryForest
	TropicalDryForest
	TropicalMoistForest
	TropicalWetForest
	TropicalRainForest

	biomeCount
)

var biomeNames = [biomeCount]string{
	Ocean:                    "Ocean",
	PolarDesert:              "PolarDesert",
	SubpolarDryTundra:        "SubpolarDryTundra",
	SubpolarMoistTundra:      "SubpolarMoistTundra",
	SubpolarWetTundra:        "SubpolarWetTundra",
	SubpolarRainTundra:       "SubpolarRainTundra",
	BorealDesert:             "BorealDesert",
	BorealDryScrub:           "BorealDryScrub",
	BorealMoistForest:        "BorealMoistForest",
	BorealWetForest:          "BorealWetForest",
	BorealRainForest:         "BorealRainForest",
	TemperateDesert:          "TemperateDesert",
	TemperateDesertScrub:     "TemperateDesertScrub",
	TemperateSteppe:          "TemperateSteppe",
	TemperateMoistForest:     "TemperateMoistForest",
	TemperateWetForest:       "TemperateWetForest",
	TemperateRainForest:      "TemperateRainForest",
	SubtropicalDesert:        "SubtropicalDesert",
	SubtropicalDesertScrub:   "SubtropicalDesertScrub",
	SubtropicalThornWoodland: "SubtropicalThornWoodland",
	SubtropicalDryForest:     "SubtropicalDryForest",
	SubtropicalMoistForest:   "SubtropicalMoistForest",
	SubtropicalWetForest:     "SubtropicalWetForest",
	SubtropicalRainForest:    "SubtropicalRainForest",
	TropicalDesert:           "TropicalDesert",
	TropicalDesertScrub:      "TropicalDesertScrub",
	TropicalThornWoodland:    "TropicalThornWoodland",
	TropicalVeryDryForest:    "TropicalVeryDryForest",
	TropicalDryForest:        "TropicalDryForest",
	TropicalMoistForest:      "TropicalMoistForest",
	TropicalWetForest:        "TropicalWetForest",
	TropicalRainForest:       "TropicalRainForest",
}

// String returns the biome name.
func (b Biome) String() string {
	if b < biomeCount {
		return biomeNames[b]
	}
	return fmt.Sprintf("Biome(%d)", uint8(b))
}

// Valid reports whether b is a known biome.
func (b Biome) Valid() bool {
	return b < biomeCount
}

// ParseBiome looks a biome up by name.
func ParseBiome(name string) (Biome, error) {
	for i, n := range biomeNames {
		if n == name {
			return Biome(i), nil
		}
	}
	return 0, fmt.Errorf("unknown biome %q", name)
}

// All returns every biome, Ocean first.
func All() []Biome {
	out := make([]Biome, biomeCount)
	for i := range out {
		out[i] = Biome(i)
	}
	return out
}

// Count is the number of biomes including Ocean.
const Count = int(biomeCount)
