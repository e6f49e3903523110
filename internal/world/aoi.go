package world

// AOIGrid is a cell-based index of observers by position.
// Cell size matches the default sight range, so a 3x3 neighbourhood of
// cells covers it; larger ranges widen the neighbourhood.
// Accessed only from the game loop goroutine — no locks.

const cellSize = 20

type cellKey struct {
	mapID int16
	cx    int
	cy    int
}

func toCellCoord(v int) int {
	if v < 0 {
		return (v - cellSize + 1) / cellSize
	}
	return v / cellSize
}

// AOIGrid tracks which observers are in which cells.
type AOIGrid struct {
	cells map[cellKey]map[uint64]struct{} // cellKey → set of observer IDs
}

func NewAOIGrid() *AOIGrid {
	return &AOIGrid{
		cells: make(map[cellKey]map[uint64]struct{}),
	}
}

func (g *AOIGrid) key(x, y int, mapID int16) cellKey {
	return cellKey{mapID: mapID, cx: toCellCoord(x), cy: toCellCoord(y)}
}

// Add places an observer into the grid.
func (g *AOIGrid) Add(id uint64, x, y int, mapID int16) {
	k := g.key(x, y, mapID)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[uint64]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
}

// Remove takes an observer out of the grid.
func (g *AOIGrid) Remove(id uint64, x, y int, mapID int16) {
	k := g.key(x, y, mapID)
	cell := g.cells[k]
	if cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

// Move updates an observer's cell when its position changes.
func (g *AOIGrid) Move(id uint64, oldX, oldY int, oldMap int16, newX, newY int, newMap int16) {
	oldK := g.key(oldX, oldY, oldMap)
	newK := g.key(newX, newY, newMap)
	if oldK == newK {
		return
	}
	g.Remove(id, oldX, oldY, oldMap)
	g.Add(id, newX, newY, newMap)
}

// GetNearby returns all observer IDs in cells that can hold a point within
// radius of (x,y). Caller does fine-grained distance filtering.
func (g *AOIGrid) GetNearby(x, y int, mapID int16, radius int) []uint64 {
	reach := 1
	if radius > cellSize {
		reach = (radius + cellSize - 1) / cellSize
	}
	cx := toCellCoord(x)
	cy := toCellCoord(y)
	var result []uint64
	for dx := -reach; dx <= reach; dx++ {
		for dy := -reach; dy <= reach; dy++ {
			k := cellKey{mapID: mapID, cx: cx + dx, cy: cy + dy}
			for id := range g.cells[k] {
				result = append(result, id)
			}
		}
	}
	return result
}
