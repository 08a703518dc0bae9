// internal/region/region_test.go - Unit tests for region boundaries
package region

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/spf13/afero"

	"github.com/valpere/crimegrid/internal"
)

const squareGeometry = `{"type":"Polygon","coordinates":[[[-90.3,38.5],[-90.1,38.5],[-90.1,38.7],[-90.3,38.7],[-90.3,38.5]]]}`

func TestParseForms(t *testing.T) {
	tests := []struct {
		name  string
		input string
		multi bool
	}{
		{"bare geometry", squareGeometry, false},
		{"feature", `{"type":"Feature","properties":{"name":"stl"},"geometry":` + squareGeometry + `}`, false},
		{"feature collection", `{"type":"FeatureCollection","features":[
			{"type":"Feature","properties":{},"geometry":` + squareGeometry + `},
			{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}
		]}`, true},
		{"multipolygon", `{"type":"MultiPolygon","coordinates":[[[[0,0],[1,0],[1,1],[0,1],[0,0]]],[[[5,5],[6,5],[6,6],[5,6],[5,5]]]]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Parse([]byte(tt.input))
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			_, isMulti := g.(orb.MultiPolygon)
			if isMulti != tt.multi {
				t.Errorf("Expected multipolygon=%v, got %T", tt.multi, g)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", `{`},
		{"point", `{"type":"Point","coordinates":[1,2]}`},
		{"unclosed ring", `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1]]]}`},
		{"short ring", `{"type":"Polygon","coordinates":[[[0,0],[1,0],[0,0]]]}`},
		{"flat ring", `{"type":"Polygon","coordinates":[[[0,0],[1,0],[2,0],[0,0]]]}`},
		{"empty collection", `{"type":"FeatureCollection","features":[]}`},
		{"feature without polygon", `{"type":"Feature","properties":{},"geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if !internal.HasCode(err, internal.ErrorCodeMalformedGeometry) {
				t.Errorf("Expected MALFORMED_REGION_GEOMETRY, got %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "regions/stl.geojson", []byte(squareGeometry), 0o644); err != nil {
		t.Fatalf("Failed to write boundary: %v", err)
	}

	r, err := Load(fs, Spec{Name: "stl", Boundary: "regions/stl.geojson", URL: "http://www.slmpd.org"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if r.HumanName != "stl" {
		t.Errorf("Expected human name to default to region name, got %s", r.HumanName)
	}
	if r.HumanURL != "http://www.slmpd.org" {
		t.Errorf("Unexpected URL %s", r.HumanURL)
	}
	if r.Bound.Min != (orb.Point{-90.3, 38.5}) || r.Bound.Max != (orb.Point{-90.1, 38.7}) {
		t.Errorf("Unexpected bound %v", r.Bound)
	}

	if _, err := Load(fs, Spec{Name: "dallas", Boundary: "regions/dallas.geojson"}); !internal.HasCode(err, internal.ErrorCodeFileSystem) {
		t.Errorf("Expected FILESYSTEM_ERROR for missing boundary, got %v", err)
	}
}

func TestContains(t *testing.T) {
	g, err := Parse([]byte(`{"type":"MultiPolygon","coordinates":[[[[0,0],[1,0],[1,1],[0,1],[0,0]]],[[[5,5],[6,5],[6,6],[5,6],[5,5]]]]}`))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	r := &Region{Name: "two", Geometry: g, Bound: g.Bound()}

	tests := []struct {
		p    orb.Point
		want bool
	}{
		{orb.Point{0.5, 0.5}, true},
		{orb.Point{5.5, 5.5}, true},
		{orb.Point{3, 3}, false},
		{orb.Point{10, 10}, false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.p); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}
