package world

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/biomegen/internal/biome"
)

// gridMagic prefixes every encoded grid.
var gridMagic = [4]byte{'B', 'G', 'M', '1'}

// Cell is the compact on-wire form of a tile: sprite, biome, and an 8-bit
// colour per channel.
type Cell struct {
	Sprite  uint8
	Biome   uint8
	R, G, B uint8
}

func cellOf(t Tile) Cell {
	return Cell{
		Sprite: uint8(t.Descriptor.Sprite),
		Biome:  uint8(t.Biome),
		R:      channel8(t.Descriptor.Color.R),
		G:      channel8(t.Descriptor.Color.G),
		B:      channel8(t.Descriptor.Color.B),
	}
}

func channel8(v float64) uint8 {
	return uint8(math.Round(math.Min(math.Max(v, 0), 1) * 255))
}

// EncodeGrid writes the map as a zstd-compressed grid: magic, width as a
// little-endian uint32, then width² cells of five bytes in Grid.Index order.
func EncodeGrid(w io.Writer, m *Map) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}

	bw := bufio.NewWriterSize(enc, 64*1024)
	if _, err := bw.Write(gridMagic[:]); err != nil {
		enc.Close()
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(m.Grid.Width())); err != nil {
		enc.Close()
		return err
	}
	for _, t := range m.Tiles {
		c := cellOf(t)
		if _, err := bw.Write([]byte{c.Sprite, c.Biome, c.R, c.G, c.B}); err != nil {
			enc.Close()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// DecodeGrid reads a grid written by EncodeGrid.
func DecodeGrid(r io.Reader) (width int, cells []Cell, err error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return 0, nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return 0, nil, fmt.Errorf("read magic: %w", err)
	}
	if magic != gridMagic {
		return 0, nil, errors.New("not an encoded grid")
	}

	var w uint32
	if err := binary.Read(br, binary.LittleEndian, &w); err != nil {
		return 0, nil, fmt.Errorf("read width: %w", err)
	}
	if w == 0 || w > 1<<15 {
		return 0, nil, fmt.Errorf("implausible grid width %d", w)
	}

	cells = make([]Cell, int(w)*int(w))
	var buf [5]byte
	for i := range cells {
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return 0, nil, fmt.Errorf("read cell %d: %w", i, err)
		}
		if buf[0] >= biome.SpriteCount || !biome.Biome(buf[1]).Valid() {
			return 0, nil, fmt.Errorf("cell %d: bad sprite %d or biome %d", i, buf[0], buf[1])
		}
		cells[i] = Cell{Sprite: buf[0], Biome: buf[1], R: buf[2], G: buf[3], B: buf[4]}
	}
	return int(w), cells, nil
}
