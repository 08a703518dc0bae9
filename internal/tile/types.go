// internal/tile/types.go - Tile addressing and encoded tile types
package tile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"

	"github.com/valpere/crimegrid/internal"
	"github.com/valpere/crimegrid/internal/geo"
)

// TileCoordinate represents a tile coordinate in the tile pyramid
type TileCoordinate struct {
	Z int `json:"z"`
	X int `json:"x"`
	Y int `json:"y"`
}

// TileRange represents a range of tiles to be processed
type TileRange struct {
	MinZ int `json:"min_z"`
	MaxZ int `json:"max_z"`
	MinX int `json:"min_x"`
	MaxX int `json:"max_x"`
	MinY int `json:"min_y"`
	MaxY int `json:"max_y"`
}

// EncodedTile represents a regional tile after conversion to GeoJSON
type EncodedTile struct {
	Coordinate *TileCoordinate            `json:"coordinate"`
	Data       *geojson.FeatureCollection `json:"data"`
	Metadata   *TileMetadata              `json:"metadata"`
	Error      error                      `json:"error,omitempty"`
}

// TileMetadata contains metadata about an encoded tile
type TileMetadata struct {
	CellDepth    int           `json:"cell_depth"`
	FeatureCount int           `json:"feature_count"`
	CrimeCount   int           `json:"crime_count"`
	EncodeTime   time.Duration `json:"encode_time"`
}

// NewTileCoordinate creates a new tile coordinate
func NewTileCoordinate(z, x, y int) *TileCoordinate {
	return &TileCoordinate{
		Z: z,
		X: x,
		Y: y,
	}
}

// NewTileRange creates a new tile range
func NewTileRange(minZ, maxZ, minX, maxX, minY, maxY int) *TileRange {
	return &TileRange{
		MinZ: minZ,
		MaxZ: maxZ,
		MinX: minX,
		MaxX: maxX,
		MinY: minY,
		MaxY: maxY,
	}
}

// ParseTileCoordinate parses a "z/x/y" string
func ParseTileCoordinate(s string) (*TileCoordinate, error) {
	parts := strings.Split(strings.Trim(s, "/"), "/")
	if len(parts) != 3 {
		return nil, internal.NewError(internal.ErrorCodeValidation,
			fmt.Sprintf("invalid tile coordinate %q: want z/x/y", s), nil)
	}

	values := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, internal.NewError(internal.ErrorCodeValidation,
				fmt.Sprintf("invalid tile coordinate %q", s), err)
		}
		values[i] = v
	}

	tc := NewTileCoordinate(values[0], values[1], values[2])
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	return tc, nil
}

// String returns a string representation of the tile coordinate
func (tc *TileCoordinate) String() string {
	return fmt.Sprintf("%d/%d/%d", tc.Z, tc.X, tc.Y)
}

// Validate checks that the coordinate addresses a real tile
func (tc *TileCoordinate) Validate() error {
	if err := geo.ValidateZoom(tc.Z); err != nil {
		return err
	}
	if !geo.InRange(tc.X, tc.Y, tc.Z) {
		maxCoord := geo.TilesPerAxis(tc.Z) - 1
		return internal.NewError(internal.ErrorCodeOutOfRange,
			fmt.Sprintf("invalid tile %s: x and y must be between 0 and %d", tc, maxCoord), nil)
	}
	return nil
}

// Bound returns the geographic extent of the tile
func (tc *TileCoordinate) Bound() orb.Bound {
	return geo.TileBound(tc.X, tc.Y, tc.Z)
}

// MapTile converts the coordinate to an orb map tile
func (tc *TileCoordinate) MapTile() maptile.Tile {
	return maptile.New(uint32(tc.X), uint32(tc.Y), maptile.Zoom(tc.Z))
}

// FromMapTile converts an orb map tile to a coordinate
func FromMapTile(t maptile.Tile) *TileCoordinate {
	return NewTileCoordinate(int(t.Z), int(t.X), int(t.Y))
}

// Count returns the total number of tiles in the range
func (tr *TileRange) Count() int64 {
	var total int64
	for z := tr.MinZ; z <= tr.MaxZ; z++ {
		xRange := int64(tr.MaxX - tr.MinX + 1)
		yRange := int64(tr.MaxY - tr.MinY + 1)
		total += xRange * yRange
	}
	return total
}

// Contains reports whether the range includes tc
func (tr *TileRange) Contains(tc TileCoordinate) bool {
	return tc.Z >= tr.MinZ && tc.Z <= tr.MaxZ &&
		tc.X >= tr.MinX && tc.X <= tr.MaxX &&
		tc.Y >= tr.MinY && tc.Y <= tr.MaxY
}

// Coordinates lists every tile in the range ordered by z, x, then y
func (tr *TileRange) Coordinates() []TileCoordinate {
	coords := make([]TileCoordinate, 0, max(tr.Count(), 0))
	for z := tr.MinZ; z <= tr.MaxZ; z++ {
		for x := tr.MinX; x <= tr.MaxX; x++ {
			for y := tr.MinY; y <= tr.MaxY; y++ {
				coords = append(coords, TileCoordinate{Z: z, X: x, Y: y})
			}
		}
	}
	return coords
}

// RangeForBound returns the tiles covering bound at zoom
func RangeForBound(bound orb.Bound, zoom int) (*TileRange, error) {
	minX, minY, maxX, maxY, err := geo.TileRange(bound, zoom)
	if err != nil {
		return nil, err
	}
	return NewTileRange(zoom, zoom, minX, maxX, minY, maxY), nil
}
