// pkg/mvt/encoder.go - GeoJSON to Mapbox Vector Tile encoding
package mvt

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/simplify"
)

// DefaultLayer is the layer name used when none is configured
const DefaultLayer = "crimes"

// Encoder handles conversion of GeoJSON feature collections to Mapbox Vector Tiles
type Encoder struct {
	options *EncodeOptions
}

// EncodeOptions configures the encoding process
type EncodeOptions struct {
	Layer            string `json:"layer"`             // Name of the single output layer
	Extent           uint32 `json:"extent"`            // Tile extent in pixels
	SimplifyGeometry bool   `json:"simplify_geometry"` // Simplify geometries using Douglas-Peucker
	Gzip             bool   `json:"gzip"`              // Gzip the encoded tile
}

// NewEncoder creates a new encoder with default options
func NewEncoder() *Encoder {
	return &Encoder{
		options: &EncodeOptions{
			Layer:  DefaultLayer,
			Extent: mvt.DefaultExtent,
		},
	}
}

// NewEncoderWithOptions creates an encoder with custom options
func NewEncoderWithOptions(options *EncodeOptions) (*Encoder, error) {
	if err := ValidateEncodeOptions(options); err != nil {
		return nil, fmt.Errorf("invalid encode options: %w", err)
	}
	return &Encoder{options: options}, nil
}

// Encode projects fc, given in WGS84, onto tile and marshals it as a vector tile.
// fc is not modified.
func (e *Encoder) Encode(fc *geojson.FeatureCollection, tile maptile.Tile) ([]byte, error) {
	layer := mvt.NewLayer(e.options.Layer, cloneCollection(fc))
	layer.Extent = e.options.Extent

	layers := mvt.Layers{layer}
	layers.ProjectToTile(tile)

	if e.options.SimplifyGeometry {
		layers.Simplify(simplify.DouglasPeucker(1.0))
		layers.RemoveEmpty(1.0, 1.0)
	}

	var (
		data []byte
		err  error
	)
	if e.options.Gzip {
		data, err = mvt.MarshalGzipped(layers)
	} else {
		data, err = mvt.Marshal(layers)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tile %d/%d/%d: %w", tile.Z, tile.X, tile.Y, err)
	}
	return data, nil
}

// cloneCollection copies geometries so projection does not touch the caller's features
func cloneCollection(fc *geojson.FeatureCollection) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		nf := geojson.NewFeature(orb.Clone(f.Geometry))
		nf.ID = f.ID
		for k, v := range f.Properties {
			nf.Properties[k] = v
		}
		out.Append(nf)
	}
	return out
}

// ValidateEncodeOptions validates the encode options
func ValidateEncodeOptions(options *EncodeOptions) error {
	if options == nil {
		return fmt.Errorf("options are required")
	}
	if options.Layer == "" {
		return fmt.Errorf("layer name is required")
	}
	if options.Extent == 0 {
		return fmt.Errorf("extent must be positive")
	}
	return nil
}
