// pkg/mvt/mvt_test.go - Unit tests for MVT encoding and decoding
package mvt

import (
	"math"
	"testing"

	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
)

func cellCollection(tile maptile.Tile) *geojson.FeatureCollection {
	// Two of the 8x8 sub-cells of tile, as the grid encoder would emit them.
	fc := geojson.NewFeatureCollection()
	children := []maptile.Tile{
		maptile.New(tile.X*8+1, tile.Y*8+2, tile.Z+3),
		maptile.New(tile.X*8+6, tile.Y*8+7, tile.Z+3),
	}
	for i, c := range children {
		f := geojson.NewFeature(c.Bound().ToPolygon())
		f.Properties["crimeCount"] = 5 * (i + 1)
		fc.Append(f)
	}
	return fc
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tile := maptile.New(4086, 6283, 14)
	fc := cellCollection(tile)

	data, err := NewEncoder().Encode(fc, tile)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	decoded, err := NewDecoder("crimeCount").Decode(data, tile)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !decoded.HasLayer(DefaultLayer) || len(decoded.LayerNames()) != 1 {
		t.Fatalf("Expected a single %s layer, got %v", DefaultLayer, decoded.LayerNames())
	}
	if decoded.FeatureCount() != 2 {
		t.Fatalf("Expected 2 features, got %d", decoded.FeatureCount())
	}
	if decoded.TileID.String() != "14/4086/6283" {
		t.Errorf("Unexpected tile id %s", decoded.TileID)
	}

	// Pixel quantization bounds the coordinate error.
	tb := tile.Bound()
	eps := (tb.Max.Lon() - tb.Min.Lon()) / 4096 * 2

	for i, f := range decoded.Collection().Features {
		if f.Properties["crimeCount"] != 5*(i+1) {
			t.Errorf("Feature %d: expected crimeCount %d, got %v (%T)", i, 5*(i+1), f.Properties["crimeCount"], f.Properties["crimeCount"])
		}
		want := fc.Features[i].Geometry.Bound()
		got := f.Geometry.Bound()
		if math.Abs(want.Min.Lon()-got.Min.Lon()) > eps || math.Abs(want.Max.Lat()-got.Max.Lat()) > eps {
			t.Errorf("Feature %d: expected bound %v, got %v", i, want, got)
		}
	}
}

func TestEncodeDoesNotModifyInput(t *testing.T) {
	tile := maptile.New(1, 1, 2)
	fc := cellCollection(tile)
	before := fc.Features[0].Geometry.Bound()

	if _, err := NewEncoder().Encode(fc, tile); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if fc.Features[0].Geometry.Bound() != before {
		t.Errorf("Expected input geometry to stay in WGS84, got %v", fc.Features[0].Geometry.Bound())
	}
}

func TestEncodeGzipped(t *testing.T) {
	encoder, err := NewEncoderWithOptions(&EncodeOptions{
		Layer:            "grid",
		Extent:           4096,
		SimplifyGeometry: true,
		Gzip:             true,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	tile := maptile.New(3, 5, 4)
	data, err := encoder.Encode(cellCollection(tile), tile)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		t.Fatal("Expected gzip magic header")
	}

	decoded, err := NewDecoder().Decode(data, tile)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !decoded.HasLayer("grid") || decoded.FeatureCount() != 2 {
		t.Errorf("Expected 2 features in layer grid, got %v", decoded.LayerNames())
	}
}

func TestValidateEncodeOptions(t *testing.T) {
	tests := []struct {
		name    string
		options *EncodeOptions
		wantErr bool
	}{
		{"valid", &EncodeOptions{Layer: "crimes", Extent: 4096}, false},
		{"nil", nil, true},
		{"missing layer", &EncodeOptions{Extent: 4096}, true},
		{"zero extent", &EncodeOptions{Layer: "crimes"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEncodeOptions(tt.options)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEncodeOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeEmptyData(t *testing.T) {
	_, err := NewDecoder().Decode([]byte{}, maptile.New(1, 1, 1))
	if err == nil {
		t.Fatal("Expected error for empty data")
	}
	if err.Error() != "empty tile data" {
		t.Errorf("Expected 'empty tile data' error, got %s", err.Error())
	}
}

func TestDecodeEmptyCollection(t *testing.T) {
	tile := maptile.New(0, 0, 1)
	data, err := NewEncoder().Encode(geojson.NewFeatureCollection(), tile)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(data) == 0 {
		// A tile with one empty layer may marshal to nothing; nothing to decode then.
		return
	}
	decoded, err := NewDecoder().Decode(data, tile)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !decoded.IsEmpty() {
		t.Errorf("Expected empty tile, got %d features", decoded.FeatureCount())
	}
}

func TestTileIDString(t *testing.T) {
	tid := TileID{Z: 14, X: 8362, Y: 5956}
	expected := "14/8362/5956"
	if tid.String() != expected {
		t.Errorf("Expected %s, got %s", expected, tid.String())
	}
	if mt := tid.MapTile(); mt.X != 8362 || mt.Y != 5956 || mt.Z != 14 {
		t.Errorf("Unexpected map tile %v", mt)
	}
}

func TestTileIDValidate(t *testing.T) {
	tests := []struct {
		name    string
		tid     TileID
		wantErr bool
	}{
		{"valid coordinates", TileID{14, 8362, 5956}, false},
		{"invalid zoom negative", TileID{-1, 0, 0}, true},
		{"invalid zoom too high", TileID{MaxZoom + 1, 0, 0}, true},
		{"invalid x negative", TileID{1, -1, 0}, true},
		{"invalid x too high", TileID{1, 2, 0}, true},
		{"invalid y negative", TileID{1, 0, -1}, true},
		{"invalid y too high", TileID{1, 0, 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tid.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
