package fov

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustGrid(t *testing.T, rows ...string) *TileGrid {
	t.Helper()
	g, err := ParseTileGrid(rows...)
	require.NoError(t, err)
	return g
}

// cave is a small map with pillars, a wall segment and a doorway.
func cave(t *testing.T) *TileGrid {
	return mustGrid(t,
		"_ _ _ _ _ _ _ _ _",
		"_ o _ _ _ _ o _ _",
		"_ _ _ _ _ _ _ _ _",
		"o o o _ o o o o _",
		"_ _ _ _ _ _ _ o _",
		"_ _ o _ _ _ _ o _",
		"_ _ _ _ _ _ _ _ _",
	)
}

func TestComputeVisibleTilesErrors(t *testing.T) {
	g := openGrid(t, 3, 3)

	t.Run("EmptyGrid", func(t *testing.T) {
		_, err := ComputeVisibleTiles(NewTileGrid(0, 0, nil), TileCoord{}, 3, false)
		require.ErrorIs(t, err, ErrInvalidGrid)
	})

	t.Run("NilGrid", func(t *testing.T) {
		_, err := ComputeVisibleTiles(nil, TileCoord{}, 3, false)
		require.ErrorIs(t, err, ErrInvalidGrid)
	})

	t.Run("InconsistentGrid", func(t *testing.T) {
		_, err := ComputeVisibleTiles(NewTileGrid(2, 2, make([]Opacity, 3)), TileCoord{}, 3, false)
		require.ErrorIs(t, err, ErrInvalidGrid)
	})

	t.Run("ZeroDistance", func(t *testing.T) {
		_, err := ComputeVisibleTiles(g, TileCoord{}, 0, false)
		require.ErrorIs(t, err, ErrInvalidDistance)
	})

	t.Run("NegativeObserver", func(t *testing.T) {
		_, err := ComputeVisibleTiles(g, TileCoord{X: -1, Y: 0}, 3, false)
		require.ErrorIs(t, err, ErrOutOfBounds)

		_, err = IsTileVisible(g, TileCoord{X: -1, Y: 0}, TileCoord{X: 1, Y: 1}, 3, false)
		require.ErrorIs(t, err, ErrOutOfBounds)
	})

	t.Run("TargetOutside", func(t *testing.T) {
		_, err := IsTileVisible(g, TileCoord{}, TileCoord{X: 3, Y: 0}, 3, false)
		require.ErrorIs(t, err, ErrOutOfBounds)
	})
}

func TestObserverAlwaysVisible(t *testing.T) {
	g := cave(t)
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			observer := TileCoord{X: x, Y: y}
			visible, err := ComputeVisibleTiles(g, observer, 1, false)
			require.NoError(t, err)
			require.True(t, visible.Contains(observer), observer.String())

			ok, err := IsTileVisible(g, observer, observer, 1, false)
			require.NoError(t, err)
			require.True(t, ok)
		}
	}
}

func TestSelfVisibleOnOpaqueTile(t *testing.T) {
	g := mustGrid(t, "o o", "o o")
	ok, err := IsTileVisible(g, TileCoord{X: 1, Y: 1}, TileCoord{X: 1, Y: 1}, 2, false)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = IsTileVisible(g, TileCoord{X: 1, Y: 1}, TileCoord{X: 1, Y: 1}, 2, true)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSingleCellWorld(t *testing.T) {
	g := mustGrid(t, "_")
	for _, pair := range [][2]TileCoord{
		{{0, 0}, {0, 0}},
		{{0, 0}, {3, 4}},
		{{2, 2}, {0, 0}},
	} {
		ok, err := IsTileVisible(g, pair[0], pair[1], 3, false)
		require.NoError(t, err)
		require.True(t, ok)
	}

	visible, err := ComputeVisibleTiles(g, TileCoord{}, 3, false)
	require.NoError(t, err)
	require.Equal(t, []TileCoord{{0, 0}}, visible.Sorted())
}

func TestBlockingPillar(t *testing.T) {
	g := mustGrid(t,
		"_ _ _",
		"_ o _",
		"_ _ _",
	)
	for _, dist := range []int{3, 4, 10} {
		visible, err := ComputeVisibleTiles(g, TileCoord{}, dist, false)
		require.NoError(t, err)
		require.False(t, visible.Contains(TileCoord{X: 2, Y: 2}))
		require.True(t, visible.Contains(TileCoord{X: 2, Y: 0}))
		require.True(t, visible.Contains(TileCoord{X: 0, Y: 2}))
		require.True(t, visible.Contains(TileCoord{X: 1, Y: 1}), "walls are seen")

		ok, err := IsTileVisible(g, TileCoord{}, TileCoord{X: 2, Y: 2}, dist, false)
		require.NoError(t, err)
		require.False(t, ok)
	}
}

func TestOpenGridSeesWholeSquare(t *testing.T) {
	g := openGrid(t, 7, 7)
	visible, err := ComputeVisibleTiles(g, TileCoord{X: 3, Y: 3}, 2, false)
	require.NoError(t, err)
	require.Equal(t, 25, visible.Len())
	for c := range visible {
		require.LessOrEqual(t, c.Chebyshev(TileCoord{X: 3, Y: 3}), 2)
	}
}

func TestOmniscientIgnoresOpacity(t *testing.T) {
	g := cave(t)
	observer := TileCoord{X: 1, Y: 4}
	for _, dist := range []int{1, 2, 5, 20} {
		visible, err := ComputeVisibleTiles(g, observer, dist, true)
		require.NoError(t, err)

		want := make(TileSet)
		for y := 0; y < g.Height(); y++ {
			for x := 0; x < g.Width(); x++ {
				c := TileCoord{X: x, Y: y}
				if c.Chebyshev(observer) <= dist {
					want.Add(c)
				}
			}
		}
		require.Equal(t, want, visible)
	}

	ok, err := IsTileVisible(g, observer, TileCoord{X: 1, Y: 0}, 5, true)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = IsTileVisible(g, observer, TileCoord{X: 8, Y: 0}, 5, true)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVisibilityMonotonicInDistance(t *testing.T) {
	g := cave(t)
	for _, observer := range []TileCoord{{0, 0}, {3, 3}, {4, 5}, {8, 6}} {
		prev, err := ComputeVisibleTiles(g, observer, 1, false)
		require.NoError(t, err)
		for dist := 2; dist <= 10; dist++ {
			next, err := ComputeVisibleTiles(g, observer, dist, false)
			require.NoError(t, err)
			for c := range prev {
				require.True(t, next.Contains(c), "%v lost at distance %d from %v", c, dist, observer)
			}
			prev = next
		}
	}
}

func TestVisibilityWithinDistance(t *testing.T) {
	g := cave(t)
	observer := TileCoord{X: 3, Y: 4}
	visible, err := ComputeVisibleTiles(g, observer, 3, false)
	require.NoError(t, err)
	for c := range visible {
		require.True(t, g.InBounds(c))
		require.LessOrEqual(t, c.Chebyshev(observer), 3)
	}
}

func TestSymmetryOpenGrid(t *testing.T) {
	g := openGrid(t, 6, 5)
	var tiles []TileCoord
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			tiles = append(tiles, TileCoord{X: x, Y: y})
		}
	}
	for _, a := range tiles {
		for _, b := range tiles {
			ab, err := IsTileVisible(g, a, b, 8, false)
			require.NoError(t, err)
			ba, err := IsTileVisible(g, b, a, 8, false)
			require.NoError(t, err)
			require.Equal(t, ab, ba, "%v <-> %v", a, b)
			require.True(t, ab)
		}
	}
}

func TestSymmetryAroundPillar(t *testing.T) {
	g := mustGrid(t,
		"_ _ _ _ _",
		"_ _ _ _ _",
		"_ _ o _ _",
		"_ _ _ _ _",
		"_ _ _ _ _",
	)
	cases := []struct {
		a, b    TileCoord
		visible bool
	}{
		{TileCoord{0, 0}, TileCoord{4, 0}, true},
		{TileCoord{0, 0}, TileCoord{0, 4}, true},
		{TileCoord{0, 4}, TileCoord{4, 4}, true},
		{TileCoord{4, 0}, TileCoord{4, 4}, true},
		{TileCoord{0, 0}, TileCoord{4, 4}, false},
		{TileCoord{4, 0}, TileCoord{0, 4}, false},
	}
	for _, tc := range cases {
		ab, err := IsTileVisible(g, tc.a, tc.b, 5, false)
		require.NoError(t, err)
		ba, err := IsTileVisible(g, tc.b, tc.a, 5, false)
		require.NoError(t, err)
		require.Equal(t, tc.visible, ab, "%v -> %v", tc.a, tc.b)
		require.Equal(t, tc.visible, ba, "%v -> %v", tc.b, tc.a)
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	g := cave(t)
	for _, observer := range []TileCoord{{0, 0}, {3, 4}, {8, 2}} {
		seq, err := Viewer{MaxDistance: 6}.Compute(g, observer)
		require.NoError(t, err)
		par, err := Viewer{MaxDistance: 6, Parallel: true}.Compute(g, observer)
		require.NoError(t, err)
		require.Equal(t, seq, par)
	}
}

func TestWallHidesRoomBehindIt(t *testing.T) {
	g := mustGrid(t,
		"_ _ _ _ _",
		"o o o o o",
		"_ _ _ _ _",
	)
	visible, err := ComputeVisibleTiles(g, TileCoord{X: 2, Y: 0}, 5, false)
	require.NoError(t, err)
	for x := 0; x < 5; x++ {
		require.True(t, visible.Contains(TileCoord{X: x, Y: 0}))
		require.True(t, visible.Contains(TileCoord{X: x, Y: 1}))
		require.False(t, visible.Contains(TileCoord{X: x, Y: 2}))
	}
}

// clearBox reports whether every tile in the rectangle spanned by a and b is
// transparent.
func clearBox(t *testing.T, g *TileGrid, a, b TileCoord) bool {
	for y := min(a.Y, b.Y); y <= max(a.Y, b.Y); y++ {
		for x := min(a.X, b.X); x <= max(a.X, b.X); x++ {
			op, err := g.Opacity(TileCoord{X: x, Y: y})
			require.NoError(t, err)
			if op == Opaque {
				return false
			}
		}
	}
	return true
}

func TestSymmetryOnRandomMaps(t *testing.T) {
	const (
		w, h    = 20, 17
		maxDist = 8
	)
	rng := rand.New(rand.NewSource(20261019))
	checked := 0
	for m := 0; m < 200; m++ {
		tiles := make([]Opacity, w*h)
		for i := range tiles {
			if rng.Intn(10) < 2 {
				tiles[i] = Opaque
			}
		}
		g := NewTileGrid(w, h, tiles)

		for p := 0; p < 60; p++ {
			a := TileCoord{X: rng.Intn(w), Y: rng.Intn(h)}
			b := TileCoord{X: a.X + rng.Intn(2*maxDist+1) - maxDist, Y: a.Y + rng.Intn(2*maxDist+1) - maxDist}
			if !g.InBounds(b) || !clearBox(t, g, a, b) {
				continue
			}
			ab, err := IsTileVisible(g, a, b, maxDist, false)
			require.NoError(t, err)
			ba, err := IsTileVisible(g, b, a, maxDist, false)
			require.NoError(t, err)
			require.Equal(t, ab, ba, "map %d: %v <-> %v\n%s", m, a, b, g)
			require.True(t, ab, "map %d: %v -> %v\n%s", m, a, b, g)
			checked++
		}
	}
	require.Greater(t, checked, 200)
}
