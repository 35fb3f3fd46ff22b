package noise

import (
	"errors"
	"fmt"
	"math"
)

// Params configures a fractal noise field.
type Params struct {
	Octaves     int     // Layers summed, >= 1
	Scale       float64 // World units per noise cycle at octave 0
	Persistence float64 // Amplitude decay per octave
	Lacunarity  float64 // Frequency growth per octave
}

// Field sums octaves of a primitive into a value clamped to [0, 1].
// It holds no mutable state and is safe for concurrent use.
type Field struct {
	prim   Primitive
	params Params
}

// NewField validates params and binds them to a primitive.
func NewField(params Params, prim Primitive) (*Field, error) {
	if prim == nil {
		return nil, errors.New("noise field: nil primitive")
	}
	if params.Octaves < 1 {
		return nil, fmt.Errorf("noise field: octaves %d < 1", params.Octaves)
	}
	if !(params.Scale > 0) || math.IsInf(params.Scale, 0) {
		return nil, fmt.Errorf("noise field: scale %v must be positive and finite", params.Scale)
	}
	if !finite(params.Persistence) || !finite(params.Lacunarity) {
		return nil, errors.New("noise field: persistence and lacunarity must be finite")
	}
	return &Field{prim: prim, params: params}, nil
}

// Params returns the field configuration.
func (f *Field) Params() Params {
	return f.params
}

// Get returns the fractal noise value at (x, y).
func (f *Field) Get(x, y float64) float64 {
	amplitude := 1.0
	frequency := 1.0
	total := 0.0

	for i := 0; i < f.params.Octaves; i++ {
		sx := x / f.params.Scale * frequency
		sy := y / f.params.Scale * frequency

		// Primitive output is [-1, 1]; remap to [0, 1].
		total += (f.prim.Eval2(sx, sy) + 1) / 2 * amplitude

		amplitude *= f.params.Persistence
		frequency *= f.params.Lacunarity
	}

	if total > 1 || math.IsInf(total, 1) {
		return 1
	}
	if total < 0 || math.IsNaN(total) {
		return 0
	}
	return total
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
