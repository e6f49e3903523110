package world

import (
	"fmt"
	"sort"

	"github.com/l1jgo/sightline/internal/fov"
)

// Observer is an entity that looks at the world each visibility pass.
// Accessed only from the game loop goroutine — no locks needed.
type Observer struct {
	ID         uint64
	Name       string
	MapID      int16
	X          int
	Y          int
	Sight      int  // max visible distance
	Omniscient bool // debug: sees through walls

	Patrol    []fov.TileCoord // waypoints, visited in order and looped
	PatrolIdx int

	// Known holds the tiles revealed at the last visibility pass.
	Known fov.TileSet
}

// Pos returns the observer's tile.
func (o *Observer) Pos() fov.TileCoord {
	return fov.TileCoord{X: o.X, Y: o.Y}
}

// State is the in-memory world: opacity grids per map plus observers.
type State struct {
	grids     map[int16]fov.Grid
	observers map[uint64]*Observer
	byName    map[string]*Observer
	aoi       *AOIGrid
	nextID    uint64
}

func NewState() *State {
	return &State{
		grids:     make(map[int16]fov.Grid),
		observers: make(map[uint64]*Observer),
		byName:    make(map[string]*Observer),
		aoi:       NewAOIGrid(),
	}
}

// SetGrid installs or replaces the opacity snapshot for a map.
func (s *State) SetGrid(mapID int16, g fov.Grid) {
	s.grids[mapID] = g
}

// Grid returns the snapshot for a map, or nil.
func (s *State) Grid(mapID int16) fov.Grid {
	return s.grids[mapID]
}

// MapCount returns the number of maps with a grid.
func (s *State) MapCount() int {
	return len(s.grids)
}

// AddObserver validates the observer's placement, assigns an ID and indexes it.
func (s *State) AddObserver(o *Observer) (uint64, error) {
	if _, dup := s.byName[o.Name]; dup {
		return 0, fmt.Errorf("observer %q already exists", o.Name)
	}
	if err := s.checkPlacement(o.MapID, o.X, o.Y); err != nil {
		return 0, fmt.Errorf("observer %q: %w", o.Name, err)
	}
	s.nextID++
	o.ID = s.nextID
	if o.Known == nil {
		o.Known = make(fov.TileSet)
	}
	s.observers[o.ID] = o
	s.byName[o.Name] = o
	s.aoi.Add(o.ID, o.X, o.Y, o.MapID)
	return o.ID, nil
}

// RemoveObserver drops an observer from the world.
func (s *State) RemoveObserver(id uint64) {
	o := s.observers[id]
	if o == nil {
		return
	}
	s.aoi.Remove(id, o.X, o.Y, o.MapID)
	delete(s.observers, id)
	delete(s.byName, o.Name)
}

// MoveObserver relocates an observer on its current map.
func (s *State) MoveObserver(id uint64, x, y int) error {
	o := s.observers[id]
	if o == nil {
		return fmt.Errorf("observer %d not found", id)
	}
	if err := s.checkPlacement(o.MapID, x, y); err != nil {
		return fmt.Errorf("move %q: %w", o.Name, err)
	}
	s.aoi.Move(id, o.X, o.Y, o.MapID, x, y, o.MapID)
	o.X, o.Y = x, y
	return nil
}

func (s *State) checkPlacement(mapID int16, x, y int) error {
	g := s.grids[mapID]
	if g == nil {
		return fmt.Errorf("map %d not loaded", mapID)
	}
	if !g.InBounds(fov.TileCoord{X: x, Y: y}) {
		return fmt.Errorf("%w: (%d,%d) on map %d", fov.ErrOutOfBounds, x, y, mapID)
	}
	return nil
}

// Observer returns the observer with the given ID, or nil.
func (s *State) Observer(id uint64) *Observer {
	return s.observers[id]
}

// ObserverByName returns the observer with the given name, or nil.
func (s *State) ObserverByName(name string) *Observer {
	return s.byName[name]
}

// ObserverCount returns the number of observers in the world.
func (s *State) ObserverCount() int {
	return len(s.observers)
}

// AllObservers calls fn for every observer in ID order.
func (s *State) AllObservers(fn func(*Observer)) {
	ids := make([]uint64, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fn(s.observers[id])
	}
}

// ObserversNear returns the observers on mapID whose own sight range could
// reach (x,y), in ID order.
func (s *State) ObserversNear(mapID int16, x, y int) []*Observer {
	maxSight := 0
	for _, o := range s.observers {
		if o.MapID == mapID && o.Sight > maxSight {
			maxSight = o.Sight
		}
	}
	target := fov.TileCoord{X: x, Y: y}
	var result []*Observer
	for _, id := range s.aoi.GetNearby(x, y, mapID, maxSight) {
		o := s.observers[id]
		if o == nil || o.Pos().Chebyshev(target) > o.Sight {
			continue
		}
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}
