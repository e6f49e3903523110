package fov

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGridValidate(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		err := NewTileGrid(0, 0, nil).Validate()
		require.ErrorIs(t, err, ErrInvalidGrid)
	})

	t.Run("NilSnapshot", func(t *testing.T) {
		var g *TileGrid
		require.ErrorIs(t, g.Validate(), ErrInvalidGrid)

		_, err := ComputeVisibleTiles(g, TileCoord{}, 3, false)
		require.ErrorIs(t, err, ErrInvalidGrid)
		_, err = IsTileVisible(g, TileCoord{}, TileCoord{X: 1}, 3, false)
		require.ErrorIs(t, err, ErrInvalidGrid)
	})

	t.Run("SizeMismatch", func(t *testing.T) {
		err := NewTileGrid(3, 1, []Opacity{Transparent, Opaque}).Validate()
		require.ErrorIs(t, err, ErrInvalidGrid)
	})

	t.Run("Valid", func(t *testing.T) {
		g, err := ParseTileGrid(
			"_ o",
			"_ _",
		)
		require.NoError(t, err)
		require.NoError(t, g.Validate())
		require.Equal(t, 2, g.Width())
		require.Equal(t, 2, g.Height())
		require.Equal(t, 4, g.Len())
	})
}

func TestGridOpacity(t *testing.T) {
	g, err := ParseTileGrid(
		"_ o _",
		"# . .",
	)
	require.NoError(t, err)

	op, err := g.Opacity(TileCoord{X: 1, Y: 0})
	require.NoError(t, err)
	require.Equal(t, Opaque, op)

	op, err = g.Opacity(TileCoord{X: 0, Y: 1})
	require.NoError(t, err)
	require.Equal(t, Opaque, op)

	op, err = g.Opacity(TileCoord{X: 2, Y: 1})
	require.NoError(t, err)
	require.Equal(t, Transparent, op)

	for _, c := range []TileCoord{{-1, 0}, {0, -1}, {3, 0}, {0, 2}} {
		require.False(t, g.InBounds(c), c.String())
		_, err := g.Opacity(c)
		require.ErrorIs(t, err, ErrOutOfBounds, c.String())
	}
}

func TestGridOwnsTiles(t *testing.T) {
	tiles := []Opacity{Transparent, Transparent}
	g := NewTileGrid(2, 1, tiles)
	tiles[0] = Opaque

	op, err := g.Opacity(TileCoord{})
	require.NoError(t, err)
	require.Equal(t, Transparent, op)

	out := g.Tiles()
	out[1] = Opaque
	op, err = g.Opacity(TileCoord{X: 1})
	require.NoError(t, err)
	require.Equal(t, Transparent, op)
}

func TestParseTileGridErrors(t *testing.T) {
	_, err := ParseTileGrid("_ _", "_")
	require.Error(t, err)

	_, err = ParseTileGrid("_ x")
	require.Error(t, err)

	g, err := ParseTileGrid()
	require.NoError(t, err)
	require.ErrorIs(t, g.Validate(), ErrInvalidGrid)
}

func TestGridString(t *testing.T) {
	g, err := ParseTileGrid("_o", "#.")
	require.NoError(t, err)
	require.Equal(t, "_o\no_\n", g.String())
}
