package data

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/l1jgo/sightline/internal/fov"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/traditionalchinese"
	"gopkg.in/yaml.v3"
)

// Tile file formats.
const (
	FormatGlyph = "glyph" // one character per tile
	FormatCSV   = "csv"   // comma-separated L1J tile bytes
)

// MapInfo holds metadata for a single map, loaded from map_list.yaml.
type MapInfo struct {
	MapID  int16  `yaml:"map_id"`
	Name   string `yaml:"name"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Format string `yaml:"format"`
	File   string `yaml:"file"` // relative to the tile dir; default {map_id}.txt
}

// mapEntry stores the opacity snapshot + metadata for one map.
type mapEntry struct {
	info MapInfo
	grid *fov.TileGrid
}

// MapDataTable provides opacity grids and metadata by map ID.
type MapDataTable struct {
	maps map[int16]*mapEntry
}

// Tile flag constants matching the L1J map byte layout.
const (
	tilePassableEast  byte = 0x01 // bit 0
	tilePassableNorth byte = 0x02 // bit 1
	tileImpassable    byte = 0x80 // bit 7
)

// Classifier overrides the built-in tile byte rule. ok=false falls back.
type Classifier interface {
	ClassifyTile(code byte) (op fov.Opacity, ok bool)
}

// LoadOptions tunes how tile files are read.
type LoadOptions struct {
	Charset    string     // "", "utf-8", "ms950" or "big5"
	Classifier Classifier // nil uses the built-in rule
	Log        *zap.Logger
}

type mapListFile struct {
	Maps []MapInfo `yaml:"maps"`
}

// NewMapDataTable returns an empty table.
func NewMapDataTable() *MapDataTable {
	return &MapDataTable{maps: make(map[int16]*mapEntry)}
}

// LoadMapData loads map metadata from YAML and tile data from text files.
// yamlPath: path to map_list.yaml
// tileDir: directory containing the tile files
func LoadMapData(yamlPath, tileDir string, opts LoadOptions) (*MapDataTable, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	raw, err := os.ReadFile(yamlPath)
	if err != nil {
		return nil, fmt.Errorf("read map list %s: %w", yamlPath, err)
	}
	var file mapListFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse map list: %w", err)
	}

	table := NewMapDataTable()
	for _, info := range file.Maps {
		if info.Width <= 0 || info.Height <= 0 {
			return nil, fmt.Errorf("map %d: invalid size %dx%d", info.MapID, info.Width, info.Height)
		}
		if info.Format == "" {
			info.Format = FormatGlyph
		}
		if info.File == "" {
			info.File = strconv.Itoa(int(info.MapID)) + ".txt"
		}

		grid, err := loadTileFile(filepath.Join(tileDir, info.File), info, opts)
		if err != nil {
			if os.IsNotExist(err) {
				// Map file missing is non-fatal — log and skip
				log.Warn("map tile file missing", zap.Int16("map_id", info.MapID), zap.String("file", info.File))
				continue
			}
			return nil, fmt.Errorf("map %d: %w", info.MapID, err)
		}
		table.Put(info, grid)
	}

	return table, nil
}

// loadTileFile reads one tile file into an opacity grid. Rows beyond the
// declared height and columns beyond the width are ignored; short files
// leave the remaining tiles transparent.
func loadTileFile(path string, info MapInfo, opts LoadOptions) (*fov.TileGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := decodeReader(f, opts.Charset)
	if err != nil {
		return nil, err
	}
	return parseTiles(r, info, opts.Classifier)
}

func decodeReader(r io.Reader, charset string) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "", "utf-8", "utf8":
		return r, nil
	case "ms950", "big5":
		return traditionalchinese.Big5.NewDecoder().Reader(r), nil
	}
	return nil, fmt.Errorf("unsupported charset %q", charset)
}

func parseTiles(r io.Reader, info MapInfo, classifier Classifier) (*fov.TileGrid, error) {
	tiles := make([]fov.Opacity, info.Width*info.Height)

	scanner := bufio.NewScanner(r)
	// Wide maps produce long lines.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	y := 0
	for scanner.Scan() && y < info.Height {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || line[0] == '#' && info.Format == FormatCSV {
			continue
		}

		row := tiles[y*info.Width : (y+1)*info.Width]
		var err error
		switch info.Format {
		case FormatCSV:
			err = parseCSVRow(line, row, classifier)
		case FormatGlyph:
			err = parseGlyphRow(line, row)
		default:
			err = fmt.Errorf("unknown tile format %q", info.Format)
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", y, err)
		}
		y++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return fov.NewTileGrid(info.Width, info.Height, tiles), nil
}

func parseCSVRow(line string, row []fov.Opacity, classifier Classifier) error {
	x := 0
	for _, tok := range strings.Split(line, ",") {
		if x >= len(row) {
			break
		}
		val, err := strconv.ParseUint(strings.TrimSpace(tok), 10, 8)
		if err != nil {
			return fmt.Errorf("col %d: %w", x, err)
		}
		row[x] = classifyCode(byte(val), classifier)
		x++
	}
	return nil
}

// classifyCode turns an L1J tile byte into opacity. Without a script, a tile
// nobody can walk onto (no passable bit, or the impassable bit) blocks sight.
func classifyCode(code byte, classifier Classifier) fov.Opacity {
	if classifier != nil {
		if op, ok := classifier.ClassifyTile(code); ok {
			return op
		}
	}
	if code&tileImpassable != 0 || code&(tilePassableEast|tilePassableNorth) == 0 {
		return fov.Opaque
	}
	return fov.Transparent
}

func parseGlyphRow(line string, row []fov.Opacity) error {
	x := 0
	for _, r := range line {
		if x >= len(row) {
			break
		}
		switch r {
		case ' ', '\t':
			continue
		case 'o', '#', '■', '█':
			row[x] = fov.Opaque
		case '_', '.', '□', '·':
			row[x] = fov.Transparent
		default:
			return fmt.Errorf("unknown tile glyph %q", r)
		}
		x++
	}
	return nil
}

// Count returns the number of maps loaded with tile data.
func (t *MapDataTable) Count() int {
	return len(t.maps)
}

// Put stores or replaces a map.
func (t *MapDataTable) Put(info MapInfo, grid *fov.TileGrid) {
	t.maps[info.MapID] = &mapEntry{info: info, grid: grid}
}

// GetInfo returns metadata for a map, or nil if not found.
func (t *MapDataTable) GetInfo(mapID int16) *MapInfo {
	e := t.maps[mapID]
	if e == nil {
		return nil
	}
	return &e.info
}

// Grid returns the opacity snapshot for a map, or nil if not found.
func (t *MapDataTable) Grid(mapID int16) *fov.TileGrid {
	e := t.maps[mapID]
	if e == nil {
		return nil
	}
	return e.grid
}

// IDs returns the loaded map IDs in ascending order.
func (t *MapDataTable) IDs() []int16 {
	ids := make([]int16, 0, len(t.maps))
	for id := range t.maps {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// LoadGlyphFile reads a single glyph map whose size is taken from the file:
// the first row sets the width, short rows are padded with transparent tiles.
func LoadGlyphFile(path, charset string) (*fov.TileGrid, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := decodeReader(bytes.NewReader(raw), charset)
	if err != nil {
		return nil, err
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	var rows []string
	width := 0
	for _, line := range strings.Split(string(decoded), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		n := 0
		for _, r := range line {
			if r != ' ' && r != '\t' {
				n++
			}
		}
		if len(rows) == 0 {
			width = n
		}
		rows = append(rows, line)
	}
	info := MapInfo{Width: width, Height: len(rows), Format: FormatGlyph}
	if width == 0 {
		return fov.NewTileGrid(0, 0, nil), nil
	}
	return parseTiles(strings.NewReader(strings.Join(rows, "\n")), info, nil)
}
