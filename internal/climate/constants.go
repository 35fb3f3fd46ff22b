package climate

// Adiabatic lapse rates for dry and saturated air [°C/m].
const (
	DryLapseRate = 9.8 / 1000.0
	WetLapseRate = 5.0 / 1000.0

	// DraftLapseRate is the pass-one reference rate, half the dry rate.
	DraftLapseRate = DryLapseRate * 0.5
)

// Elevation shaping.
const (
	ElevationRange  = 6000.0 // World units spanned by a unit of globe noise
	ElevationOffset = 1000.0 // Shift so low ground falls below sea level
	globeBias       = 0.3    // Constant radial falloff term
	globeDetail     = 0.4    // Weight of the antisymmetric height sample
)

// Temperature shaping.
const (
	latitudeGradient = -70.0 // °C across y_dis in [0, 1]
	noiseTempRange   = 20.0
	noiseTempOffset  = -5.0

	// Evaporation is a triangle over [EvapMin, EvapMax] peaking at EvapPeak.
	EvapMin  = 0.0
	EvapPeak = 10.0
	EvapMax  = 20.0
)

// Water availability and humidity.
const (
	LivableMin       = -20.0 // Open bounds of the temperature band that holds water
	LivableMax       = 40.0
	WaterCeiling     = 2000.0 // Elevation where availability reaches zero
	MaxWaterFraction = 0.99

	// Water availability dominates so inland tiles can dry out.
	waterWeight    = 0.80
	polewardWeight = 0.10 // Scales |y_dis|
	humidityWeight = 0.10

	PrecipitationScale = 1500.0
)

// Precipitation ceiling: two linear pieces meeting at CeilingBreak.
const (
	CeilingBreak     = 30.0
	ceilingSlopeLow  = 289.5
	ceilingBaseLow   = 2895.0
	ceilingSlopeHigh = -1050.0
	ceilingBaseHigh  = 43080.0
)
