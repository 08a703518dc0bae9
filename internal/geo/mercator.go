// internal/geo/mercator.go - Web Mercator slippy tile coordinate mapping
package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/valpere/crimegrid/internal"
)

// MaxLatitude is the northern (and, negated, southern) limit of the Web Mercator projection
const MaxLatitude = 85.05112878

// MaxZoom is the deepest zoom level supported by the grid
const MaxZoom = 30

// TileCoordinate returns the slippy map (x, y) tile containing (lon, lat) at zoom.
// Points exactly on the east or south edge of the world belong to the last column or row.
func TileCoordinate(lon, lat float64, zoom int) (int, int, error) {
	if err := ValidateZoom(zoom); err != nil {
		return 0, 0, err
	}
	if err := ValidatePoint(lon, lat); err != nil {
		return 0, 0, err
	}

	n := float64(uint64(1) << uint(zoom))
	latRad := lat * math.Pi / 180.0

	x := int(math.Floor((lon + 180.0) / 360.0 * n))
	y := int(math.Floor((1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n))

	last := int(n) - 1
	if x > last && lon == 180.0 {
		x = last
	}
	if y > last && lat <= -MaxLatitude {
		y = last
	}
	if y < 0 && lat >= MaxLatitude {
		y = 0
	}

	return x, y, nil
}

// TileBound returns the geographic bounding box of tile (x, y) at zoom
func TileBound(x, y, zoom int) orb.Bound {
	nw := Point(x, y, zoom)
	se := Point(x+1, y+1, zoom)
	return orb.Bound{
		Min: orb.Point{nw.Lon(), se.Lat()},
		Max: orb.Point{se.Lon(), nw.Lat()},
	}
}

// Point returns the north-west corner of tile (x, y) at zoom.
// x and y may equal 2^zoom, which yields the east or south edge of the world.
func Point(x, y, zoom int) orb.Point {
	n := float64(uint64(1) << uint(zoom))
	lon := float64(x)/n*360.0 - 180.0
	lat := math.Atan(math.Sinh(math.Pi*(1.0-2.0*float64(y)/n))) * 180.0 / math.Pi
	return orb.Point{lon, lat}
}

// ValidatePoint checks that a location can be represented in the tile scheme
func ValidatePoint(lon, lat float64) error {
	if math.IsNaN(lon) || math.IsNaN(lat) {
		return internal.NewError(internal.ErrorCodeOutOfRange,
			fmt.Sprintf("location (%v, %v) is not a number", lon, lat), nil)
	}
	if lon < -180.0 || lon > 180.0 {
		return internal.NewError(internal.ErrorCodeOutOfRange,
			fmt.Sprintf("longitude %f outside [-180, 180]", lon), nil)
	}
	if lat < -MaxLatitude || lat > MaxLatitude {
		return internal.NewError(internal.ErrorCodeOutOfRange,
			fmt.Sprintf("latitude %f outside Mercator bounds ±%.8f", lat, MaxLatitude), nil)
	}
	return nil
}

// ValidateZoom checks that a zoom level is supported
func ValidateZoom(zoom int) error {
	if zoom < 0 || zoom > MaxZoom {
		return internal.NewError(internal.ErrorCodeValidation,
			fmt.Sprintf("invalid zoom level %d: must be between 0 and %d", zoom, MaxZoom), nil)
	}
	return nil
}

// TilesPerAxis returns 2^zoom
func TilesPerAxis(zoom int) int {
	return 1 << uint(zoom)
}

// InRange reports whether (x, y) is a valid tile index at zoom
func InRange(x, y, zoom int) bool {
	n := TilesPerAxis(zoom)
	return x >= 0 && x < n && y >= 0 && y < n
}

// TileRange returns the inclusive tile index range covering bound at zoom.
// The bound is clamped to the Mercator limits first.
func TileRange(bound orb.Bound, zoom int) (minX, minY, maxX, maxY int, err error) {
	west := math.Max(bound.Min.Lon(), -180.0)
	east := math.Min(bound.Max.Lon(), 180.0)
	south := math.Max(bound.Min.Lat(), -MaxLatitude)
	north := math.Min(bound.Max.Lat(), MaxLatitude)
	if west > east || south > north {
		return 0, 0, -1, -1, internal.NewError(internal.ErrorCodeOutOfRange,
			fmt.Sprintf("bound %v does not overlap the Mercator world", bound), nil)
	}

	minX, minY, err = TileCoordinate(west, north, zoom)
	if err != nil {
		return 0, 0, -1, -1, err
	}
	maxX, maxY, err = TileCoordinate(east, south, zoom)
	if err != nil {
		return 0, 0, -1, -1, err
	}
	return minX, minY, maxX, maxY, nil
}
