// internal/tile/encoder_test.go - Unit tests for the GeoJSON tile encoder
package tile

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/valpere/crimegrid/internal"
	"github.com/valpere/crimegrid/internal/geo"
	"github.com/valpere/crimegrid/internal/grid"
)

func TestEncodeSingleCell(t *testing.T) {
	rt := &RegionalTile{
		Coordinate: TileCoordinate{Z: 10, X: 250, Y: 390},
		CellDepth:  3,
		Cells:      grid.New(),
	}
	rt.Cells.Add(2, 5, 5)

	fc := NewEncoder().Encode(rt)
	if len(fc.Features) != 1 {
		t.Fatalf("Expected 1 feature, got %d", len(fc.Features))
	}

	f := fc.Features[0]
	if f.Properties[CountProperty] != 5 {
		t.Errorf("Expected crimeCount 5, got %v", f.Properties[CountProperty])
	}

	poly, ok := f.Geometry.(orb.Polygon)
	if !ok {
		t.Fatalf("Expected polygon geometry, got %T", f.Geometry)
	}
	if len(poly) != 1 || len(poly[0]) != 5 || !poly[0].Closed() {
		t.Errorf("Expected one closed ring of 5 points, got %v", poly)
	}

	want := geo.TileBound(250*8+2, 390*8+5, 13)
	if poly.Bound() != want {
		t.Errorf("Expected cell bound %v, got %v", want, poly.Bound())
	}
}

func TestEncodeOrderAndAbsence(t *testing.T) {
	rt := &RegionalTile{
		Coordinate: TileCoordinate{Z: 0, X: 0, Y: 0},
		CellDepth:  1,
		Cells:      grid.New(),
	}
	rt.Cells.Add(1, 0, 2)
	rt.Cells.Add(0, 1, 0)
	rt.Cells.Add(1, 1, 7)

	fc := NewEncoder().Encode(rt)
	want := []int{2, 0, 7}
	if len(fc.Features) != len(want) {
		t.Fatalf("Expected %d features, got %d", len(want), len(fc.Features))
	}
	for i, n := range want {
		if got := fc.Features[i].Properties[CountProperty]; got != n {
			t.Errorf("Feature %d: expected crimeCount %d, got %v", i, n, got)
		}
	}

	// Row order: the northern row comes first.
	first := fc.Features[0].Geometry.Bound()
	last := fc.Features[2].Geometry.Bound()
	if first.Min.Lat() <= last.Min.Lat() {
		t.Errorf("Expected first feature north of last, got %v and %v", first, last)
	}
}

func TestEncodeEmptyTile(t *testing.T) {
	rt := &RegionalTile{Coordinate: TileCoordinate{Z: 3, X: 1, Y: 1}, CellDepth: 2, Cells: grid.New()}

	fc := NewEncoder().Encode(rt)
	if len(fc.Features) != 0 {
		t.Errorf("Expected no features, got %d", len(fc.Features))
	}

	data, err := json.Marshal(fc)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(string(data), `"features":[]`) {
		t.Errorf("Expected an empty features array, got %s", data)
	}
}

func TestEncodeTileMetadata(t *testing.T) {
	rt := &RegionalTile{Coordinate: TileCoordinate{Z: 1, X: 1, Y: 0}, CellDepth: 1, Cells: grid.New()}
	rt.Cells.Add(0, 0, 4)
	rt.Cells.Add(1, 1, 0)

	encoded := NewEncoder().EncodeTile(rt)
	if encoded.Coordinate.String() != "1/1/0" {
		t.Errorf("Expected coordinate 1/1/0, got %s", encoded.Coordinate)
	}
	if encoded.Metadata.FeatureCount != 2 || encoded.Metadata.CrimeCount != 4 {
		t.Errorf("Expected 2 features and 4 crimes, got %+v", encoded.Metadata)
	}
	if encoded.Metadata.CellDepth != 1 {
		t.Errorf("Expected cell depth 1, got %d", encoded.Metadata.CellDepth)
	}
}

func TestEncodeTileRejectsInvalidTile(t *testing.T) {
	tests := []struct {
		name  string
		coord TileCoordinate
		depth int
		cell  [2]int
		code  string
	}{
		{"offset outside window", TileCoordinate{Z: 1, X: 0, Y: 0}, 1, [2]int{2, 0}, internal.ErrorCodeInvariant},
		{"negative offset", TileCoordinate{Z: 1, X: 0, Y: 0}, 1, [2]int{0, -1}, internal.ErrorCodeInvariant},
		{"coordinate out of range", TileCoordinate{Z: 1, X: 2, Y: 0}, 1, [2]int{0, 0}, internal.ErrorCodeOutOfRange},
		{"invalid depth", TileCoordinate{Z: 1, X: 0, Y: 0}, -1, [2]int{0, 0}, internal.ErrorCodeValidation},
		{"cells deeper than max zoom", TileCoordinate{Z: 28, X: 0, Y: 0}, 3, [2]int{0, 0}, internal.ErrorCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := &RegionalTile{Coordinate: tt.coord, CellDepth: tt.depth, Cells: grid.New()}
			rt.Cells.Add(tt.cell[0], tt.cell[1], 1)

			encoded := NewEncoder().EncodeTile(rt)
			if !internal.HasCode(encoded.Error, tt.code) {
				t.Errorf("Expected %s, got %v", tt.code, encoded.Error)
			}
			if encoded.Data != nil {
				t.Error("Expected no data for an invalid tile")
			}
		})
	}
}
