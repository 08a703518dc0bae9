// pkg/mvt/decoder.go - Mapbox Vector Tile decoding implementation
package mvt

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/spf13/cast"
)

// MaxZoom is the deepest zoom a TileID may address
const MaxZoom = 30

var gzipMagic = []byte{0x1f, 0x8b}

// Decoder handles decoding of Mapbox Vector Tiles from Protocol Buffer format
type Decoder struct {
	integerProperties []string
}

// NewDecoder creates a new decoder. Values of the named properties are
// normalized to int after decoding.
func NewDecoder(integerProperties ...string) *Decoder {
	return &Decoder{integerProperties: integerProperties}
}

// DecodedTile represents a decoded tile with WGS84 geometries
type DecodedTile struct {
	Layers  map[string]*geojson.FeatureCollection `json:"layers"`
	Extent  int                                   `json:"extent"`
	Version int                                   `json:"version"`
	TileID  TileID                                `json:"tile_id"`
}

// TileID represents the tile coordinates and zoom level
type TileID struct {
	Z int `json:"z"`
	X int `json:"x"`
	Y int `json:"y"`
}

// Decode decodes a plain or gzipped vector tile and projects it back to WGS84
func (d *Decoder) Decode(data []byte, tile maptile.Tile) (*DecodedTile, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty tile data")
	}

	var (
		layers mvt.Layers
		err    error
	)
	if bytes.HasPrefix(data, gzipMagic) {
		layers, err = mvt.UnmarshalGzipped(data)
	} else {
		layers, err = mvt.Unmarshal(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal MVT data: %w", err)
	}

	layers.ProjectToWGS84(tile)

	decoded := &DecodedTile{
		Layers:  make(map[string]*geojson.FeatureCollection, len(layers)),
		Extent:  int(mvt.DefaultExtent),
		Version: 2,
		TileID:  TileID{Z: int(tile.Z), X: int(tile.X), Y: int(tile.Y)},
	}

	for _, layer := range layers {
		fc := geojson.NewFeatureCollection()
		for _, f := range layer.Features {
			if f.Geometry == nil {
				continue
			}
			if err := d.normalize(f); err != nil {
				return nil, fmt.Errorf("layer %s: %w", layer.Name, err)
			}
			fc.Append(f)
		}
		decoded.Layers[layer.Name] = fc
		decoded.Extent = int(layer.Extent)
		decoded.Version = int(layer.Version)
	}

	return decoded, nil
}

func (d *Decoder) normalize(f *geojson.Feature) error {
	for _, key := range d.integerProperties {
		v, ok := f.Properties[key]
		if !ok {
			continue
		}
		n, err := cast.ToIntE(v)
		if err != nil {
			return fmt.Errorf("property %s: %w", key, err)
		}
		f.Properties[key] = n
	}
	return nil
}

// LayerNames returns the names of all layers in sorted order
func (dt *DecodedTile) LayerNames() []string {
	names := make([]string, 0, len(dt.Layers))
	for name := range dt.Layers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FeatureCount returns the total number of features across all layers
func (dt *DecodedTile) FeatureCount() int {
	count := 0
	for _, layer := range dt.Layers {
		count += len(layer.Features)
	}
	return count
}

// HasLayer checks if the tile contains a specific layer
func (dt *DecodedTile) HasLayer(layerName string) bool {
	_, exists := dt.Layers[layerName]
	return exists
}

// IsEmpty returns true if the tile contains no features
func (dt *DecodedTile) IsEmpty() bool {
	return dt.FeatureCount() == 0
}

// Collection merges the features of every layer, in layer name order
func (dt *DecodedTile) Collection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, name := range dt.LayerNames() {
		fc.Features = append(fc.Features, dt.Layers[name].Features...)
	}
	return fc
}

// String returns a string representation of the tile ID
func (tid TileID) String() string {
	return fmt.Sprintf("%d/%d/%d", tid.Z, tid.X, tid.Y)
}

// Validate checks if the tile coordinates are valid
func (tid TileID) Validate() error {
	if tid.Z < 0 || tid.Z > MaxZoom {
		return fmt.Errorf("invalid zoom level %d: must be between 0 and %d", tid.Z, MaxZoom)
	}

	maxTile := 1 << uint(tid.Z)
	if tid.X < 0 || tid.X >= maxTile {
		return fmt.Errorf("invalid X coordinate %d for zoom %d: must be between 0 and %d", tid.X, tid.Z, maxTile-1)
	}

	if tid.Y < 0 || tid.Y >= maxTile {
		return fmt.Errorf("invalid Y coordinate %d for zoom %d: must be between 0 and %d", tid.Y, tid.Z, maxTile-1)
	}

	return nil
}

// MapTile converts the tile ID to an orb map tile
func (tid TileID) MapTile() maptile.Tile {
	return maptile.New(uint32(tid.X), uint32(tid.Y), maptile.Zoom(tid.Z))
}
