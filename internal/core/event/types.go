package event

import "github.com/l1jgo/sightline/internal/fov"

// TileRevealed lists tiles that entered an observer's view this pass.
type TileRevealed struct {
	ObserverID uint64
	MapID      int16
	Tiles      []fov.TileCoord
}

// TileConcealed lists tiles that left an observer's view this pass.
type TileConcealed struct {
	ObserverID uint64
	MapID      int16
	Tiles      []fov.TileCoord
}

// ObserverMoved is emitted after a patrol step.
type ObserverMoved struct {
	ObserverID uint64
	MapID      int16
	From       fov.TileCoord
	To         fov.TileCoord
}
