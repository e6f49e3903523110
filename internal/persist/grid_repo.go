package persist

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/l1jgo/sightline/internal/fov"
	"golang.org/x/crypto/blake2b"
)

// GridRow is one stored opacity snapshot.
type GridRow struct {
	MapID     int16
	Name      string
	Width     int
	Height    int
	Tiles     []byte
	Digest    string
	UpdatedAt time.Time
}

// Grid rebuilds the opacity snapshot stored in the row.
func (r *GridRow) Grid() (*fov.TileGrid, error) {
	return DecodeTiles(r.Width, r.Height, r.Tiles)
}

// Matches reports whether the row already holds a snapshot of the given
// size and digest. A nil row matches nothing.
func (r *GridRow) Matches(width, height int, digest string) bool {
	return r != nil && r.Width == width && r.Height == height && r.Digest == digest
}

type GridRepo struct {
	db *DB
}

func NewGridRepo(db *DB) *GridRepo {
	return &GridRepo{db: db}
}

// EncodeTiles packs a grid into one byte per tile, row-major.
func EncodeTiles(g *fov.TileGrid) []byte {
	tiles := g.Tiles()
	out := make([]byte, len(tiles))
	for i, op := range tiles {
		out[i] = byte(op)
	}
	return out
}

// DecodeTiles is the inverse of EncodeTiles. The result is validated.
func DecodeTiles(width, height int, blob []byte) (*fov.TileGrid, error) {
	tiles := make([]fov.Opacity, len(blob))
	for i, b := range blob {
		switch fov.Opacity(b) {
		case fov.Transparent, fov.Opaque:
			tiles[i] = fov.Opacity(b)
		default:
			return nil, fmt.Errorf("tile %d: unknown opacity %d", i, b)
		}
	}
	g := fov.NewTileGrid(width, height, tiles)
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Digest is the blake2b-256 hex digest of a snapshot's size and tiles.
func Digest(width, height int, tiles []byte) string {
	h, _ := blake2b.New256(nil) // only fails for oversized keys
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[:4], uint32(width))
	binary.BigEndian.PutUint32(hdr[4:], uint32(height))
	h.Write(hdr[:])
	h.Write(tiles)
	return hex.EncodeToString(h.Sum(nil))
}

// Save upserts a snapshot. changed is false when the stored digest already
// matches and nothing was written.
func (r *GridRepo) Save(ctx context.Context, mapID int16, name string, g *fov.TileGrid) (changed bool, err error) {
	if err := g.Validate(); err != nil {
		return false, fmt.Errorf("save map %d: %w", mapID, err)
	}
	tiles := EncodeTiles(g)
	digest := Digest(g.Width(), g.Height(), tiles)

	stored, err := r.Load(ctx, mapID)
	if err != nil {
		return false, fmt.Errorf("load map %d: %w", mapID, err)
	}
	if stored.Matches(g.Width(), g.Height(), digest) {
		return false, nil
	}

	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO grid_snapshots (map_id, name, width, height, tiles, digest, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 ON CONFLICT (map_id) DO UPDATE SET
		   name = EXCLUDED.name, width = EXCLUDED.width, height = EXCLUDED.height,
		   tiles = EXCLUDED.tiles, digest = EXCLUDED.digest, updated_at = NOW()`,
		mapID, name, g.Width(), g.Height(), tiles, digest,
	)
	if err != nil {
		return false, fmt.Errorf("save map %d: %w", mapID, err)
	}
	return true, nil
}

// Load returns the snapshot for mapID, or nil if none is stored.
func (r *GridRepo) Load(ctx context.Context, mapID int16) (*GridRow, error) {
	row := &GridRow{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT map_id, name, width, height, tiles, digest, updated_at
		 FROM grid_snapshots WHERE map_id = $1`, mapID,
	).Scan(&row.MapID, &row.Name, &row.Width, &row.Height, &row.Tiles, &row.Digest, &row.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// LoadAll returns every stored snapshot ordered by map ID.
func (r *GridRepo) LoadAll(ctx context.Context) ([]GridRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT map_id, name, width, height, tiles, digest, updated_at
		 FROM grid_snapshots ORDER BY map_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []GridRow
	for rows.Next() {
		var row GridRow
		if err := rows.Scan(&row.MapID, &row.Name, &row.Width, &row.Height,
			&row.Tiles, &row.Digest, &row.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
