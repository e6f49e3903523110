package fov

import (
	"fmt"
	"strings"
)

// Opacity classifies a single tile for line of sight.
type Opacity byte

const (
	Transparent Opacity = iota
	Opaque
)

func (o Opacity) String() string {
	if o == Opaque {
		return "opaque"
	}
	return "transparent"
}

// Grid is the read-only capability the visibility query needs from whoever
// owns the tile data.
type Grid interface {
	Width() int
	Height() int
	InBounds(c TileCoord) bool
	Opacity(c TileCoord) (Opacity, error)
	Validate() error
}

// TileGrid is an immutable opacity snapshot stored row-major: tiles[y*width+x].
type TileGrid struct {
	width  int
	height int
	tiles  []Opacity
}

// NewTileGrid copies tiles into a new snapshot. The result is not validated;
// queries call Validate before touching it.
func NewTileGrid(width, height int, tiles []Opacity) *TileGrid {
	owned := make([]Opacity, len(tiles))
	copy(owned, tiles)
	return &TileGrid{width: width, height: height, tiles: owned}
}

// ParseTileGrid builds a grid from glyph rows: 'o' and '#' are opaque,
// '_' and '.' are transparent. Whitespace inside a row is ignored so
// rows may be written as "_ o _".
func ParseTileGrid(rows ...string) (*TileGrid, error) {
	var tiles []Opacity
	width := -1
	for y, row := range rows {
		n := 0
		for _, r := range row {
			switch r {
			case ' ', '\t':
				continue
			case 'o', '#':
				tiles = append(tiles, Opaque)
			case '_', '.':
				tiles = append(tiles, Transparent)
			default:
				return nil, fmt.Errorf("row %d: unknown tile glyph %q", y, r)
			}
			n++
		}
		if width == -1 {
			width = n
		} else if n != width {
			return nil, fmt.Errorf("row %d: width %d, want %d", y, n, width)
		}
	}
	if width < 0 {
		width = 0
	}
	return NewTileGrid(width, len(rows), tiles), nil
}

func (g *TileGrid) Width() int  { return g.width }
func (g *TileGrid) Height() int { return g.height }

// Len returns the number of stored cells.
func (g *TileGrid) Len() int { return len(g.tiles) }

// Validate fails with ErrInvalidGrid when the snapshot has no cells or its
// cell count disagrees with width*height.
func (g *TileGrid) Validate() error {
	if g == nil {
		return fmt.Errorf("%w: nil grid", ErrInvalidGrid)
	}
	if len(g.tiles) == 0 {
		return fmt.Errorf("%w: no cells", ErrInvalidGrid)
	}
	if g.width <= 0 || g.height <= 0 || len(g.tiles) != g.width*g.height {
		return fmt.Errorf("%w: %d cells for %dx%d", ErrInvalidGrid, len(g.tiles), g.width, g.height)
	}
	return nil
}

func (g *TileGrid) InBounds(c TileCoord) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.width && c.Y < g.height
}

func (g *TileGrid) Opacity(c TileCoord) (Opacity, error) {
	if !g.InBounds(c) {
		return Opaque, fmt.Errorf("%w: %v outside %dx%d", ErrOutOfBounds, c, g.width, g.height)
	}
	return g.tiles[c.Y*g.width+c.X], nil
}

// Tiles returns a copy of the row-major opacity slice.
func (g *TileGrid) Tiles() []Opacity {
	out := make([]Opacity, len(g.tiles))
	copy(out, g.tiles)
	return out
}

// String renders the grid with '_' for transparent and 'o' for opaque tiles.
func (g *TileGrid) String() string {
	var b strings.Builder
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			i := y*g.width + x
			if i >= len(g.tiles) {
				break
			}
			if g.tiles[i] == Opaque {
				b.WriteByte('o')
			} else {
				b.WriteByte('_')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
