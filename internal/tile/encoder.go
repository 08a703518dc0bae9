// internal/tile/encoder.go - GeoJSON encoding of regional tiles
package tile

import (
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/valpere/crimegrid/internal/geo"
)

// CountProperty is the feature property carrying a cell's incident count
const CountProperty = "crimeCount"

// Encoder converts regional tiles into GeoJSON feature collections
type Encoder struct {
	property string
}

// NewEncoder creates an encoder writing counts under CountProperty
func NewEncoder() *Encoder {
	return &Encoder{property: CountProperty}
}

// Encode emits one rectangle feature per present cell, rows north to south and
// cells west to east within a row. Absent cells produce no feature.
func (e *Encoder) Encode(t *RegionalTile) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	w := t.Width()
	zoom := t.CellZoom()

	for oy := 0; oy < w; oy++ {
		for ox := 0; ox < w; ox++ {
			n, ok := t.Get(ox, oy)
			if !ok {
				continue
			}
			x, y := t.Absolute(ox, oy)
			f := geojson.NewFeature(geo.TileBound(x, y, zoom).ToPolygon())
			f.Properties[e.property] = n
			fc.Append(f)
		}
	}
	return fc
}

// EncodeTile encodes t and records metadata about the result.
// An invalid tile is returned with Error set and no data.
func (e *Encoder) EncodeTile(t *RegionalTile) *EncodedTile {
	start := time.Now()
	coord := t.Coordinate

	if err := t.Validate(); err != nil {
		return &EncodedTile{
			Coordinate: &coord,
			Metadata:   &TileMetadata{CellDepth: t.CellDepth},
			Error:      err,
		}
	}

	fc := e.Encode(t)
	return &EncodedTile{
		Coordinate: &coord,
		Data:       fc,
		Metadata: &TileMetadata{
			CellDepth:    t.CellDepth,
			FeatureCount: len(fc.Features),
			CrimeCount:   t.Cells.Total(),
			EncodeTime:   time.Since(start),
		},
	}
}
