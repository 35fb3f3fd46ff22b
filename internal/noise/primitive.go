// Package noise provides seeded coherent-noise primitives and the fractal
// (multi-octave) field built on top of them.
package noise

import (
	"fmt"
	"math"

	perlin "github.com/aquilax/go-perlin"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Primitive is a single-octave coherent-noise source returning roughly [-1, 1].
type Primitive interface {
	Eval2(x, y float64) float64
}

// Backend names accepted by NewPrimitive.
const (
	BackendPerlin      = "perlin"
	BackendOpenSimplex = "opensimplex"
)

// perlinPeriod is the lattice period of the go-perlin permutation table.
const perlinPeriod = 256

// Perlin wraps a single-octave lattice Perlin generator.
type Perlin struct {
	p *perlin.Perlin
}

// NewPerlin creates a Perlin primitive for the given seed.
func NewPerlin(seed uint32) *Perlin {
	// alpha/beta only matter for n > 1; octaves are summed by Field.
	return &Perlin{p: perlin.NewPerlin(2, 2, 1, int64(seed))}
}

// Eval2 samples the lattice. Coordinates are folded into one lattice period
// so that high-frequency octaves stay inside the generator's integer range.
func (p *Perlin) Eval2(x, y float64) float64 {
	return p.p.Noise2D(math.Mod(x, perlinPeriod), math.Mod(y, perlinPeriod))
}

// OpenSimplex wraps an OpenSimplex generator.
type OpenSimplex struct {
	n opensimplex.Noise
}

// NewOpenSimplex creates an OpenSimplex primitive for the given seed.
func NewOpenSimplex(seed uint32) *OpenSimplex {
	return &OpenSimplex{n: opensimplex.New(int64(seed))}
}

// Eval2 samples the simplex grid.
func (o *OpenSimplex) Eval2(x, y float64) float64 {
	return o.n.Eval2(x, y)
}

// NewPrimitive builds the named backend. An empty name selects Perlin.
func NewPrimitive(backend string, seed uint32) (Primitive, error) {
	switch backend {
	case "", BackendPerlin:
		return NewPerlin(seed), nil
	case BackendOpenSimplex:
		return NewOpenSimplex(seed), nil
	default:
		return nil, fmt.Errorf("unknown noise backend %q", backend)
	}
}

// ValidBackend reports whether NewPrimitive accepts name.
func ValidBackend(name string) bool {
	switch name {
	case "", BackendPerlin, BackendOpenSimplex:
		return true
	}
	return false
}

// Backends lists the accepted backend names.
func Backends() []string {
	return []string{BackendPerlin, BackendOpenSimplex}
}
