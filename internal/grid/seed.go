// internal/grid/seed.go - Marking cells covered by a region boundary
package grid

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/planar"

	"github.com/valpere/crimegrid/internal"
	"github.com/valpere/crimegrid/internal/geo"
)

// areaTolerance is the share of a cell a region must cover to seed it.
// Holes that swallow a whole cell cancel the outer ring only up to rounding.
const areaTolerance = 1e-9

// Seed marks every cell at zoom that overlaps geom with positive area as present.
// Existing counts are left alone. It returns the number of newly present cells.
func Seed(g SparseGrid, geom orb.Geometry, zoom int) (int, error) {
	switch geom.(type) {
	case orb.Polygon, orb.MultiPolygon:
	default:
		return 0, internal.NewError(internal.ErrorCodeMalformedGeometry,
			fmt.Sprintf("cannot seed from %T", geom), nil)
	}

	minX, minY, maxX, maxY, err := geo.TileRange(geom.Bound(), zoom)
	if err != nil {
		return 0, err
	}

	seeded := 0
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			if g.Has(x, y) {
				continue
			}
			if !overlaps(geo.TileBound(x, y, zoom), geom) {
				continue
			}
			g.Add(x, y, 0)
			seeded++
		}
	}
	return seeded, nil
}

// overlaps reports whether geom covers a positive share of bound.
// clip works in place, so it is given a copy of geom.
func overlaps(bound orb.Bound, geom orb.Geometry) bool {
	if !bound.Intersects(geom.Bound()) {
		return false
	}
	clipped := clip.Geometry(bound, orb.Clone(geom))
	if clipped == nil {
		return false
	}
	return math.Abs(planar.Area(clipped)) > areaTolerance*planar.Area(bound)
}
