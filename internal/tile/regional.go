// internal/tile/regional.go - Windowing a zoom level into fixed-size regional tiles
package tile

import (
	"fmt"

	"github.com/valpere/crimegrid/internal"
	"github.com/valpere/crimegrid/internal/geo"
	"github.com/valpere/crimegrid/internal/grid"
)

// MaxCellDepth bounds the number of zoom levels between a tile file and its cells
const MaxCellDepth = 10

// RegionalTile is the window of cells at zoom Z+CellDepth covered by the file tile at Coordinate.
// Cells is indexed by local offset (ox, oy) in [0, 2^CellDepth).
type RegionalTile struct {
	Coordinate TileCoordinate
	CellDepth  int
	Cells      grid.SparseGrid
}

// Width returns the number of cells per tile axis
func (t *RegionalTile) Width() int {
	return 1 << uint(t.CellDepth)
}

// CellZoom returns the zoom level of the tile's cells
func (t *RegionalTile) CellZoom() int {
	return t.Coordinate.Z + t.CellDepth
}

// Get returns the count at local offset (ox, oy) and whether it is present
func (t *RegionalTile) Get(ox, oy int) (int, bool) {
	return t.Cells.Get(ox, oy)
}

// Absolute converts a local offset to the cell's index at CellZoom
func (t *RegionalTile) Absolute(ox, oy int) (int, int) {
	w := t.Width()
	return t.Coordinate.X*w + ox, t.Coordinate.Y*w + oy
}

// Validate checks that the tile addresses real cells and that every local cell lies in the window
func (t *RegionalTile) Validate() error {
	if err := ValidateCellDepth(t.CellDepth); err != nil {
		return err
	}
	if err := t.Coordinate.Validate(); err != nil {
		return err
	}
	if err := geo.ValidateZoom(t.CellZoom()); err != nil {
		return err
	}
	w := t.Width()
	for _, c := range t.Cells.Cells() {
		if c.X < 0 || c.X >= w || c.Y < 0 || c.Y >= w {
			return internal.NewError(internal.ErrorCodeInvariant,
				fmt.Sprintf("tile %s offset (%d, %d) outside its %dx%d window", &t.Coordinate, c.X, c.Y, w, w), nil)
		}
	}
	return nil
}

// ValidateCellDepth checks that depth is usable
func ValidateCellDepth(depth int) error {
	if depth < 0 || depth > MaxCellDepth {
		return internal.NewError(internal.ErrorCodeValidation,
			fmt.Sprintf("invalid cell depth %d: must be between 0 and %d", depth, MaxCellDepth), nil)
	}
	return nil
}

// Extract copies the cells of family[zoom+cellDepth] that fall inside file tile (zoom, tileX, tileY).
// The window is 2^cellDepth cells wide on each axis, taken from the finer zoom+cellDepth level,
// so a cell depth of 3 yields 8x8 cells per tile.
// Counts are never changed; cells absent from the level stay absent.
func Extract(family *grid.ZoomFamily, zoom, tileX, tileY, cellDepth int) (*RegionalTile, error) {
	if err := ValidateCellDepth(cellDepth); err != nil {
		return nil, err
	}
	coord := NewTileCoordinate(zoom, tileX, tileY)
	if err := coord.Validate(); err != nil {
		return nil, err
	}

	level, err := family.Level(zoom + cellDepth)
	if err != nil {
		return nil, fmt.Errorf("tile %s at cell depth %d: %w", coord, cellDepth, err)
	}

	t := &RegionalTile{
		Coordinate: *coord,
		CellDepth:  cellDepth,
		Cells:      grid.New(),
	}

	w := t.Width()
	for ox := 0; ox < w; ox++ {
		col, ok := level[tileX*w+ox]
		if !ok {
			continue
		}
		for oy := 0; oy < w; oy++ {
			if n, ok := col[tileY*w+oy]; ok {
				t.Cells.Add(ox, oy, n)
			}
		}
	}
	return t, nil
}

// Stitch reassembles regional tiles of one zoom and cell depth into the grid at their cell zoom
func Stitch(tiles ...*RegionalTile) (grid.SparseGrid, error) {
	out := grid.New()
	if len(tiles) == 0 {
		return out, nil
	}

	zoom, depth := tiles[0].Coordinate.Z, tiles[0].CellDepth
	for _, t := range tiles {
		if t.Coordinate.Z != zoom || t.CellDepth != depth {
			return nil, internal.NewError(internal.ErrorCodeValidation,
				fmt.Sprintf("cannot stitch tile %s depth %d with zoom %d depth %d",
					&t.Coordinate, t.CellDepth, zoom, depth), nil)
		}
		for ox, col := range t.Cells {
			for oy, n := range col {
				x, y := t.Absolute(ox, oy)
				if !geo.InRange(x, y, t.CellZoom()) {
					return nil, internal.NewError(internal.ErrorCodeInvariant,
						fmt.Sprintf("tile %s offset (%d, %d) outside zoom %d", &t.Coordinate, ox, oy, t.CellZoom()), nil)
				}
				out.Add(x, y, n)
			}
		}
	}
	return out, nil
}

// Coverage lists every file tile that holds at least one present cell, ordered by zoom, x, then y.
// File tiles exist for zooms 0 through BaseZoom-cellDepth.
func Coverage(family *grid.ZoomFamily, cellDepth int) []TileCoordinate {
	var coords []TileCoordinate
	for z := 0; z+cellDepth <= family.BaseZoom; z++ {
		for _, c := range family.Levels[z].Cells() {
			coords = append(coords, TileCoordinate{Z: z, X: c.X, Y: c.Y})
		}
	}
	return coords
}
