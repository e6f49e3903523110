package system

import (
	"fmt"
	"time"

	"github.com/l1jgo/sightline/internal/core/event"
	coresys "github.com/l1jgo/sightline/internal/core/system"
	"github.com/l1jgo/sightline/internal/fov"
	"github.com/l1jgo/sightline/internal/world"
	"go.uber.org/zap"
)

// VisibilityOptions configures the visibility refresh.
type VisibilityOptions struct {
	Interval   int  // ticks between refreshes
	Omniscient bool // debug override for every observer
	Parallel   bool // scan octants concurrently
}

// VisibilitySystem recomputes every observer's field of view and reports
// tiles entering and leaving it. Runs in PhasePostUpdate every Interval ticks.
type VisibilitySystem struct {
	world *world.State
	bus   *event.Bus
	log   *zap.Logger
	opts  VisibilityOptions
	ticks int
}

func NewVisibilitySystem(ws *world.State, bus *event.Bus, opts VisibilityOptions, log *zap.Logger) *VisibilitySystem {
	if opts.Interval < 1 {
		opts.Interval = 1
	}
	return &VisibilitySystem{world: ws, bus: bus, log: log, opts: opts}
}

func (s *VisibilitySystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *VisibilitySystem) Update(_ time.Duration) {
	s.ticks++
	if s.ticks < s.opts.Interval {
		return
	}
	s.ticks = 0
	s.RefreshAll()
}

// RefreshAll recomputes every observer immediately.
func (s *VisibilitySystem) RefreshAll() {
	s.world.AllObservers(s.refresh)
}

func (s *VisibilitySystem) viewer(o *world.Observer) fov.Viewer {
	return fov.Viewer{
		MaxDistance: o.Sight,
		Omniscient:  o.Omniscient || s.opts.Omniscient,
		Parallel:    s.opts.Parallel,
	}
}

func (s *VisibilitySystem) refresh(o *world.Observer) {
	current, err := s.viewer(o).Compute(s.world.Grid(o.MapID), o.Pos())
	if err != nil {
		// Keep the previous view; a bad query never yields a partial one.
		s.log.Warn("visibility query failed",
			zap.String("observer", o.Name), zap.Int16("map", o.MapID), zap.Error(err))
		return
	}

	// 新進入視野
	entered := make(fov.TileSet)
	for c := range current {
		if !o.Known.Contains(c) {
			entered.Add(c)
		}
	}
	// 離開視野
	left := make(fov.TileSet)
	for c := range o.Known {
		if !current.Contains(c) {
			left.Add(c)
		}
	}
	o.Known = current

	if entered.Len() > 0 {
		event.Emit(s.bus, event.TileRevealed{ObserverID: o.ID, MapID: o.MapID, Tiles: entered.Sorted()})
	}
	if left.Len() > 0 {
		event.Emit(s.bus, event.TileConcealed{ObserverID: o.ID, MapID: o.MapID, Tiles: left.Sorted()})
	}
}

// WhoSees returns the observers on mapID that currently have tile in view,
// checked against a fresh query rather than the cached Known sets.
func WhoSees(ws *world.State, mapID int16, tile fov.TileCoord, opts VisibilityOptions) ([]*world.Observer, error) {
	grid := ws.Grid(mapID)
	if grid == nil {
		return nil, fmt.Errorf("%w: map %d not loaded", fov.ErrInvalidGrid, mapID)
	}
	if !grid.InBounds(tile) {
		return nil, fmt.Errorf("%w: %v on map %d", fov.ErrOutOfBounds, tile, mapID)
	}
	var result []*world.Observer
	for _, o := range ws.ObserversNear(mapID, tile.X, tile.Y) {
		v := fov.Viewer{
			MaxDistance: o.Sight,
			Omniscient:  o.Omniscient || opts.Omniscient,
			Parallel:    opts.Parallel,
		}
		ok, err := v.Visible(grid, o.Pos(), tile)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, o)
		}
	}
	return result, nil
}
