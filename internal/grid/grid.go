// internal/grid/grid.go - Sparse per-zoom incident count grid
package grid

import (
	"fmt"
	"sort"

	"github.com/valpere/crimegrid/internal"
	"github.com/valpere/crimegrid/internal/geo"
)

// SparseGrid maps tile x to tile y to an incident count for a single zoom level.
// A present cell with count 0 lies inside the area of interest; an absent cell lies outside.
type SparseGrid map[int]map[int]int

// Cell is one present entry of a SparseGrid
type Cell struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Count int `json:"count"`
}

// New returns an empty grid
func New() SparseGrid {
	return make(SparseGrid)
}

// Add adds n to cell (x, y), creating it if absent
func (g SparseGrid) Add(x, y, n int) {
	col, ok := g[x]
	if !ok {
		col = make(map[int]int)
		g[x] = col
	}
	col[y] += n
}

// AddAt adds n to cell (x, y) after checking the index is valid at zoom
func (g SparseGrid) AddAt(zoom, x, y, n int) error {
	if !geo.InRange(x, y, zoom) {
		return internal.NewError(internal.ErrorCodeInvariant,
			fmt.Sprintf("cell (%d, %d) outside zoom %d grid of %d", x, y, zoom, geo.TilesPerAxis(zoom)), nil)
	}
	g.Add(x, y, n)
	return nil
}

// Mark makes cell (x, y) present without changing its count.
// It reports whether the cell was absent before.
func (g SparseGrid) Mark(x, y int) bool {
	if g.Has(x, y) {
		return false
	}
	g.Add(x, y, 0)
	return true
}

// Get returns the count of cell (x, y) and whether it is present
func (g SparseGrid) Get(x, y int) (int, bool) {
	col, ok := g[x]
	if !ok {
		return 0, false
	}
	n, ok := col[y]
	return n, ok
}

// Has reports whether cell (x, y) is present
func (g SparseGrid) Has(x, y int) bool {
	_, ok := g.Get(x, y)
	return ok
}

// Len returns the number of present cells
func (g SparseGrid) Len() int {
	n := 0
	for _, col := range g {
		n += len(col)
	}
	return n
}

// Total returns the sum of all counts
func (g SparseGrid) Total() int {
	total := 0
	for _, col := range g {
		for _, n := range col {
			total += n
		}
	}
	return total
}

// Cells returns every present cell ordered by x, then y
func (g SparseGrid) Cells() []Cell {
	cells := make([]Cell, 0, g.Len())
	for x, col := range g {
		for y, n := range col {
			cells = append(cells, Cell{X: x, Y: y, Count: n})
		}
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].X != cells[j].X {
			return cells[i].X < cells[j].X
		}
		return cells[i].Y < cells[j].Y
	})
	return cells
}

// Bounds returns the inclusive index range of present cells.
// ok is false for an empty grid.
func (g SparseGrid) Bounds() (minX, minY, maxX, maxY int, ok bool) {
	for x, col := range g {
		for y := range col {
			if !ok {
				minX, maxX, minY, maxY = x, x, y, y
				ok = true
				continue
			}
			minX = min(minX, x)
			maxX = max(maxX, x)
			minY = min(minY, y)
			maxY = max(maxY, y)
		}
	}
	return minX, minY, maxX, maxY, ok
}

// Clone returns a deep copy of the grid
func (g SparseGrid) Clone() SparseGrid {
	out := make(SparseGrid, len(g))
	for x, col := range g {
		c := make(map[int]int, len(col))
		for y, n := range col {
			c[y] = n
		}
		out[x] = c
	}
	return out
}

// Equal reports whether two grids hold the same present cells with the same counts
func (g SparseGrid) Equal(other SparseGrid) bool {
	if g.Len() != other.Len() {
		return false
	}
	for x, col := range g {
		for y, n := range col {
			m, ok := other.Get(x, y)
			if !ok || m != n {
				return false
			}
		}
	}
	return true
}

// Validate checks every present cell lies within the zoom level and has a non-negative count
func (g SparseGrid) Validate(zoom int) error {
	if err := geo.ValidateZoom(zoom); err != nil {
		return err
	}
	for x, col := range g {
		for y, n := range col {
			if !geo.InRange(x, y, zoom) {
				return internal.NewError(internal.ErrorCodeInvariant,
					fmt.Sprintf("cell (%d, %d) outside zoom %d grid", x, y, zoom), nil)
			}
			if n < 0 {
				return internal.NewError(internal.ErrorCodeInvariant,
					fmt.Sprintf("cell (%d, %d) has negative count %d", x, y, n), nil)
			}
		}
	}
	return nil
}
