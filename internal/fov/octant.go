package fov

import "math"

// Octant maps the canonical scan space (depth along the primary axis,
// column perpendicular to it, 0 <= column <= depth) onto one 45° wedge
// around the observer.
type Octant struct {
	alongX   bool // depth advances along X (otherwise along Y)
	depthDir int  // +1 or -1
	colDir   int  // +1 or -1
}

// Octants lists all eight wedges. Index order carries no meaning.
var Octants = [8]Octant{
	{alongX: true, depthDir: 1, colDir: 1},
	{alongX: true, depthDir: 1, colDir: -1},
	{alongX: true, depthDir: -1, colDir: 1},
	{alongX: true, depthDir: -1, colDir: -1},
	{alongX: false, depthDir: 1, colDir: 1},
	{alongX: false, depthDir: 1, colDir: -1},
	{alongX: false, depthDir: -1, colDir: 1},
	{alongX: false, depthDir: -1, colDir: -1},
}

// Tile converts scan-local (depth, column) into a world tile.
func (o Octant) Tile(observer TileCoord, depth, col int) TileCoord {
	dx, dy := o.world(depth, col)
	return TileCoord{X: observer.X + dx, Y: observer.Y + dy}
}

func (o Octant) world(depth, col int) (dx, dy int) {
	if o.alongX {
		return depth * o.depthDir, col * o.colDir
	}
	return col * o.colDir, depth * o.depthDir
}

// Local is the inverse of Tile for continuous offsets from the observer's
// center.
func (o Octant) Local(d Continuous) (depth, col float64) {
	if o.alongX {
		return d.X * float64(o.depthDir), d.Y * float64(o.colDir)
	}
	return d.Y * float64(o.depthDir), d.X * float64(o.colDir)
}

// Pivot returns the world corner lying on the given sides of a tile in
// scan-local terms: depthSide is -1 for the near edge and +1 for the far
// edge, colSide is -1 for the low-column edge and +1 for the high one.
func (o Octant) Pivot(depthSide, colSide int) Pivot {
	dx, dy := o.world(depthSide, colSide)
	return pivotFor(dx, dy)
}

// Slope returns column/depth from the observer's center to the pivot of
// tile, measured in this octant. A zero depth yields +Inf.
func (o Octant) Slope(observer, tile TileCoord, pv Pivot) float64 {
	depth, col := o.Local(tile.Center().Offset(pv).Sub(observer.Center()))
	if depth == 0 {
		return math.Inf(1)
	}
	return col / depth
}
