package fov

import "math"

// scanner walks one octant. visible is owned by the caller and only ever
// grows; nothing else is shared between scans.
type scanner struct {
	grid     Grid
	observer TileCoord
	octant   Octant
	maxDist  int
	visible  TileSet
}

// scanOctant marks every tile of one octant that is visible from observer.
func scanOctant(g Grid, observer TileCoord, o Octant, maxDistance int, visible TileSet) {
	s := &scanner{
		grid:     g,
		observer: observer,
		octant:   o,
		maxDist:  maxDistance,
		visible:  visible,
	}
	s.row(1, 0, 1)
}

// row scans one depth between minSlope and maxSlope and recurses into the
// unblocked sub-intervals of the next depth.
func (s *scanner) row(depth int, minSlope, maxSlope float64) {
	if depth > s.maxDist || minSlope > maxSlope {
		return
	}
	first := columnAt(depth, minSlope, s.maxDist)
	last := columnAt(depth, maxSlope, s.maxDist)
	if first > last {
		return
	}

	prevOpaque := false
	for col := first; col <= last; col++ {
		tile := s.octant.Tile(s.observer, depth, col)
		opaque := s.blocks(tile)
		if col > first {
			switch {
			case opaque && !prevOpaque:
				// Shadow starts at the blocker's far corner on the low-column side.
				far := s.octant.Pivot(1, -1)
				s.row(depth+1, minSlope, s.octant.Slope(s.observer, tile, far))
			case !opaque && prevOpaque:
				near := s.octant.Pivot(-1, -1)
				minSlope = s.octant.Slope(s.observer, tile, near)
			}
		}
		prevOpaque = opaque
	}

	if !prevOpaque {
		s.row(depth+1, minSlope, maxSlope)
	}
}

// blocks marks an in-bounds tile visible and reports whether it stops light.
// Tiles past the grid edge are never marked and count as blocking.
func (s *scanner) blocks(tile TileCoord) bool {
	if !s.grid.InBounds(tile) {
		return true
	}
	op, err := s.grid.Opacity(tile)
	if err != nil {
		return true
	}
	s.visible.Add(tile)
	return op == Opaque
}

// columnAt is the column where the line of the given slope crosses the
// scan line at depth.
func columnAt(depth int, slope float64, maxDist int) int {
	var col int
	if math.IsInf(slope, 1) {
		col = depth
	} else {
		col = int(math.Round(float64(depth) * slope))
	}
	if col > maxDist {
		col = maxDist
	}
	return col
}
