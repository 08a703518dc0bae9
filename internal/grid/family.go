// internal/grid/family.go - Zoom roll-up from the base grid to zoom 0
package grid

import (
	"fmt"

	"github.com/valpere/crimegrid/internal"
)

// ZoomFamily holds one grid per zoom level from 0 to BaseZoom.
// Levels[z] is the grid at zoom z.
type ZoomFamily struct {
	BaseZoom int
	Levels   []SparseGrid
}

// BuildZoomFamily rolls base up into every coarser zoom level.
// A parent cell exists exactly when at least one of its four children exists,
// and its count is the sum of theirs.
func BuildZoomFamily(base SparseGrid, baseZoom int) (*ZoomFamily, error) {
	if err := base.Validate(baseZoom); err != nil {
		return nil, fmt.Errorf("invalid base grid: %w", err)
	}

	levels := make([]SparseGrid, baseZoom+1)
	levels[baseZoom] = base.Clone()

	for z := baseZoom - 1; z >= 0; z-- {
		parent := New()
		for x, col := range levels[z+1] {
			for y, n := range col {
				parent.Add(x>>1, y>>1, n)
			}
		}
		levels[z] = parent
	}

	return &ZoomFamily{BaseZoom: baseZoom, Levels: levels}, nil
}

// MaxZoom returns the deepest zoom level of the family
func (f *ZoomFamily) MaxZoom() int {
	return f.BaseZoom
}

// Level returns the grid at zoom z
func (f *ZoomFamily) Level(z int) (SparseGrid, error) {
	if z < 0 || z > f.BaseZoom {
		return nil, internal.NewError(internal.ErrorCodeOutOfRange,
			fmt.Sprintf("zoom %d outside family range [0, %d]", z, f.BaseZoom), nil)
	}
	return f.Levels[z], nil
}

// Total returns the incident total at zoom z, or 0 when z is outside the family
func (f *ZoomFamily) Total(z int) int {
	g, err := f.Level(z)
	if err != nil {
		return 0
	}
	return g.Total()
}
