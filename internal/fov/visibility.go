package fov

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Viewer holds the per-observer query parameters. The zero value is not
// usable: MaxDistance must be at least 1.
type Viewer struct {
	MaxDistance int
	Omniscient  bool
	// Parallel runs the eight octant scans on separate goroutines.
	Parallel bool
}

// ComputeVisibleTiles returns every tile visible from observer within
// maxDistance. With omniscient set, opacity is ignored.
func ComputeVisibleTiles(g Grid, observer TileCoord, maxDistance int, omniscient bool) (TileSet, error) {
	return Viewer{MaxDistance: maxDistance, Omniscient: omniscient}.Compute(g, observer)
}

// IsTileVisible reports whether target is in the visible set of observer.
func IsTileVisible(g Grid, observer, target TileCoord, maxDistance int, omniscient bool) (bool, error) {
	return Viewer{MaxDistance: maxDistance, Omniscient: omniscient}.Visible(g, observer, target)
}

// Compute runs the query for observer.
func (v Viewer) Compute(g Grid, observer TileCoord) (TileSet, error) {
	if err := v.validate(g); err != nil {
		return nil, err
	}
	if !g.InBounds(observer) {
		return nil, fmt.Errorf("observer: %w: %v", ErrOutOfBounds, observer)
	}
	if v.Omniscient {
		return v.square(g, observer), nil
	}
	return v.scan(g, observer), nil
}

// Visible answers a single-tile query. Trivial worlds, self-queries and
// omniscient viewers never run the scan.
func (v Viewer) Visible(g Grid, observer, target TileCoord) (bool, error) {
	if err := v.validate(g); err != nil {
		return false, err
	}
	if g.Width()*g.Height() == 1 {
		return true, nil
	}
	if !g.InBounds(observer) {
		return false, fmt.Errorf("observer: %w: %v", ErrOutOfBounds, observer)
	}
	if observer == target {
		return true, nil
	}
	if !g.InBounds(target) {
		return false, fmt.Errorf("target: %w: %v", ErrOutOfBounds, target)
	}
	if observer.Chebyshev(target) > v.MaxDistance {
		return false, nil
	}
	if v.Omniscient {
		return true, nil
	}
	return v.scan(g, observer).Contains(target), nil
}

func (v Viewer) validate(g Grid) error {
	if g == nil {
		return fmt.Errorf("%w: nil grid", ErrInvalidGrid)
	}
	if err := g.Validate(); err != nil {
		return err
	}
	if v.MaxDistance < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidDistance, v.MaxDistance)
	}
	return nil
}

// square is the omniscient result: the Chebyshev square clipped to the grid.
func (v Viewer) square(g Grid, observer TileCoord) TileSet {
	out := make(TileSet)
	for y := observer.Y - v.MaxDistance; y <= observer.Y+v.MaxDistance; y++ {
		for x := observer.X - v.MaxDistance; x <= observer.X+v.MaxDistance; x++ {
			c := TileCoord{X: x, Y: y}
			if g.InBounds(c) {
				out.Add(c)
			}
		}
	}
	return out
}

func (v Viewer) scan(g Grid, observer TileCoord) TileSet {
	visible := TileSet{observer: {}}
	if !v.Parallel {
		for _, o := range Octants {
			scanOctant(g, observer, o, v.MaxDistance, visible)
		}
		return visible
	}

	var parts [len(Octants)]TileSet
	var eg errgroup.Group
	for i, o := range Octants {
		o := o
		parts[i] = make(TileSet)
		part := parts[i]
		eg.Go(func() error {
			scanOctant(g, observer, o, v.MaxDistance, part)
			return nil
		})
	}
	// Scans cannot fail; Wait only joins them.
	_ = eg.Wait()
	for _, p := range parts {
		visible.Union(p)
	}
	return visible
}
