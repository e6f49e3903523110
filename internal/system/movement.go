package system

import (
	"time"

	"github.com/l1jgo/sightline/internal/core/event"
	coresys "github.com/l1jgo/sightline/internal/core/system"
	"github.com/l1jgo/sightline/internal/fov"
	"github.com/l1jgo/sightline/internal/world"
	"go.uber.org/zap"
)

// MovementSystem walks patrolling observers one tile per tick toward their
// next waypoint. Observers never step onto opaque tiles.
type MovementSystem struct {
	world *world.State
	bus   *event.Bus
	log   *zap.Logger
}

func NewMovementSystem(ws *world.State, bus *event.Bus, log *zap.Logger) *MovementSystem {
	return &MovementSystem{world: ws, bus: bus, log: log}
}

func (s *MovementSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *MovementSystem) Update(_ time.Duration) {
	s.world.AllObservers(s.step)
}

func (s *MovementSystem) step(o *world.Observer) {
	if len(o.Patrol) == 0 {
		return
	}
	o.PatrolIdx %= len(o.Patrol)
	if o.Pos() == o.Patrol[o.PatrolIdx] {
		o.PatrolIdx = (o.PatrolIdx + 1) % len(o.Patrol)
	}
	target := o.Patrol[o.PatrolIdx]
	if o.Pos() == target {
		return
	}

	grid := s.world.Grid(o.MapID)
	if grid == nil {
		return
	}
	dx, dy := sign(target.X-o.X), sign(target.Y-o.Y)
	// Diagonal first, then each axis alone to slide along walls.
	for _, d := range [3][2]int{{dx, dy}, {dx, 0}, {0, dy}} {
		if d[0] == 0 && d[1] == 0 {
			continue
		}
		next := fov.TileCoord{X: o.X + d[0], Y: o.Y + d[1]}
		if !walkable(grid, next) {
			continue
		}
		from := o.Pos()
		if err := s.world.MoveObserver(o.ID, next.X, next.Y); err != nil {
			s.log.Warn("patrol step failed", zap.String("observer", o.Name), zap.Error(err))
			return
		}
		event.Emit(s.bus, event.ObserverMoved{ObserverID: o.ID, MapID: o.MapID, From: from, To: next})
		return
	}
	s.log.Debug("patrol blocked", zap.String("observer", o.Name), zap.Stringer("at", o.Pos()))
}

func walkable(g fov.Grid, c fov.TileCoord) bool {
	op, err := g.Opacity(c)
	return err == nil && op == fov.Transparent
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
