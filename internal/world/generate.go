package world

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// GenerateMap evaluates every tile of the generator's grid. Rows are spread
// over workers; cancellation is checked between rows, so a cancelled batch
// returns ctx.Err() and no partial map.
func GenerateMap(ctx context.Context, gen *Generator, workers int) (*Map, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	m := NewMap(gen.Config())
	width := m.Grid.Width()

	rows := make(chan int)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(rows)
		for row := 0; row < width; row++ {
			select {
			case rows <- row:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for row := range rows {
				if err := ctx.Err(); err != nil {
					return err
				}
				fillRow(m, gen, row)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return m, nil
}

// fillRow writes one grid row. Rows never overlap, so workers share m
// without locking.
func fillRow(m *Map, gen *Generator, row int) {
	width := m.Grid.Width()
	for col := 0; col < width; col++ {
		i := row*width + col
		c := m.Grid.Coord(i)
		x, y := m.Grid.World(c)
		s := gen.Sample(x, y)
		m.Tiles[i] = Tile{Coord: c, Biome: s.Biome, Descriptor: s.Tile}
	}
}

// Row returns the tiles of one grid row, bottom row first.
func (m *Map) Row(row int) []Tile {
	width := m.Grid.Width()
	if row < 0 || row >= width {
		return nil
	}
	return m.Tiles[row*width : (row+1)*width]
}
