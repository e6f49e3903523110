package fov

import (
	"fmt"
	"math"
	"sort"
)

// TileCoord identifies a grid cell.
type TileCoord struct {
	X int
	Y int
}

func (c TileCoord) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

// Center returns the continuous center of the tile. Tile (x,y) covers the
// square [x, x+1) x [y, y+1).
func (c TileCoord) Center() Continuous {
	return Continuous{X: float64(c.X) + 0.5, Y: float64(c.Y) + 0.5}
}

// Chebyshev returns the king-move distance between two tiles.
func (c TileCoord) Chebyshev(o TileCoord) int {
	dx := abs(c.X - o.X)
	dy := abs(c.Y - o.Y)
	if dx > dy {
		return dx
	}
	return dy
}

// Continuous is a sub-tile point used only for slope arithmetic.
type Continuous struct {
	X float64
	Y float64
}

// Offset applies a pivot to the point.
func (p Continuous) Offset(pv Pivot) Continuous {
	dx, dy := pv.Offset()
	return Continuous{X: p.X + dx, Y: p.Y + dy}
}

// Sub returns p - o.
func (p Continuous) Sub(o Continuous) Continuous {
	return Continuous{X: p.X - o.X, Y: p.Y - o.Y}
}

// Tile truncates back to the containing tile. Negative components snap to 0.
func (p Continuous) Tile() TileCoord {
	x := int(math.Floor(p.X))
	y := int(math.Floor(p.Y))
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return TileCoord{X: x, Y: y}
}

// Pivot names a reference point on a unit tile. Y grows downward, so "top"
// is the -Y side.
type Pivot int

const (
	PivotCenter Pivot = iota
	PivotTopLeft
	PivotTopRight
	PivotBottomLeft
	PivotBottomRight
)

// Offset returns the pivot's displacement from the tile center.
func (p Pivot) Offset() (dx, dy float64) {
	switch p {
	case PivotTopLeft:
		return -0.5, -0.5
	case PivotTopRight:
		return 0.5, -0.5
	case PivotBottomLeft:
		return -0.5, 0.5
	case PivotBottomRight:
		return 0.5, 0.5
	}
	return 0, 0
}

func (p Pivot) String() string {
	switch p {
	case PivotTopLeft:
		return "top-left"
	case PivotTopRight:
		return "top-right"
	case PivotBottomLeft:
		return "bottom-left"
	case PivotBottomRight:
		return "bottom-right"
	}
	return "center"
}

// pivotFor returns the corner whose offset has the given signs.
func pivotFor(sx, sy int) Pivot {
	switch {
	case sx < 0 && sy < 0:
		return PivotTopLeft
	case sx > 0 && sy < 0:
		return PivotTopRight
	case sx < 0 && sy > 0:
		return PivotBottomLeft
	case sx > 0 && sy > 0:
		return PivotBottomRight
	}
	return PivotCenter
}

// TileSet is an unordered set of tile coordinates.
type TileSet map[TileCoord]struct{}

func (s TileSet) Add(c TileCoord) { s[c] = struct{}{} }

func (s TileSet) Contains(c TileCoord) bool {
	_, ok := s[c]
	return ok
}

func (s TileSet) Len() int { return len(s) }

// Union adds every member of o to s.
func (s TileSet) Union(o TileSet) {
	for c := range o {
		s[c] = struct{}{}
	}
}

// Sorted returns the members ordered by Y then X.
func (s TileSet) Sorted() []TileCoord {
	out := make([]TileCoord, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
