package world

import "fmt"

// TileCoord is a tile index relative to the map centre.
type TileCoord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Grid lays tiles from -Half to +Half on both axes.
type Grid struct {
	Half     int     // Tiles on each side of the centre
	TileStep float64 // World units between tile centres
}

// NewGrid derives the grid for a map geometry.
func NewGrid(mapSize int, tileSize, tileScale float64) Grid {
	return Grid{Half: mapSize / 2, TileStep: tileSize * tileScale}
}

// Width returns the number of tiles per axis.
func (g Grid) Width() int {
	return 2*g.Half + 1
}

// Len returns the total tile count.
func (g Grid) Len() int {
	w := g.Width()
	return w * w
}

// InBounds reports whether c lies on the grid.
func (g Grid) InBounds(c TileCoord) bool {
	return c.X >= -g.Half && c.X <= g.Half && c.Y >= -g.Half && c.Y <= g.Half
}

// World returns the world coordinate of a tile centre.
func (g Grid) World(c TileCoord) (x, y float64) {
	return float64(c.X) * g.TileStep, float64(c.Y) * g.TileStep
}

// Index returns the row-major position of c, bottom row first.
func (g Grid) Index(c TileCoord) int {
	return (c.Y+g.Half)*g.Width() + (c.X + g.Half)
}

// Coord is the inverse of Index.
func (g Grid) Coord(i int) TileCoord {
	w := g.Width()
	return TileCoord{X: i%w - g.Half, Y: i/w - g.Half}
}

func (g Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d, step=%g)", g.Width(), g.Width(), g.TileStep)
}
