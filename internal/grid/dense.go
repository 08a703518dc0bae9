// internal/grid/dense.go - Dense world grid for legacy map clients
package grid

import (
	"github.com/paulmach/orb/geojson"

	"github.com/valpere/crimegrid/internal/geo"
)

// AbsentCell marks a dense grid cell outside the area of interest
const AbsentCell = -1

// WorldGrid is the dense single-file form of one zoom level.
// Grid[i][j] holds the count of cell (minX+i, minY+j).
type WorldGrid struct {
	Origin   *geojson.Geometry `json:"origin"`
	GridSize float64           `json:"grid_size"`
	Grid     [][]int           `json:"grid"`
}

// Dense lays out the bounding cell range of g as a two-dimensional array.
// Origin is the north-west corner of the range and GridSize the longitude width of one cell.
func Dense(g SparseGrid, zoom int) *WorldGrid {
	cellWidth := 360.0 / float64(geo.TilesPerAxis(zoom))

	minX, minY, maxX, maxY, ok := g.Bounds()
	if !ok {
		return &WorldGrid{
			Origin:   geojson.NewGeometry(geo.Point(0, 0, zoom)),
			GridSize: cellWidth,
			Grid:     [][]int{},
		}
	}

	cols := make([][]int, maxX-minX+1)
	for i := range cols {
		col := make([]int, maxY-minY+1)
		for j := range col {
			col[j] = AbsentCell
		}
		cols[i] = col
	}

	for x, col := range g {
		for y, n := range col {
			cols[x-minX][y-minY] = n
		}
	}

	return &WorldGrid{
		Origin:   geojson.NewGeometry(geo.Point(minX, minY, zoom)),
		GridSize: cellWidth,
		Grid:     cols,
	}
}
