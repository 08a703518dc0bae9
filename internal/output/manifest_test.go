// internal/output/manifest_test.go - Unit tests for manifest and world grid output
package output

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/valpere/crimegrid/internal"
	"github.com/valpere/crimegrid/internal/grid"
)

func TestManifestRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := &Manifest{
		GeneratedAt: time.Date(2014, 5, 1, 0, 0, 0, 0, time.UTC),
		From:        time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC),
		To:          time.Date(2014, 4, 1, 0, 0, 0, 0, time.UTC),
		BaseZoom:    14,
		CellDepth:   3,
		Format:      FormatGeoJSON,
		Tiles:       120,
		Regions:     []RegionSummary{{Name: "stl", HumanName: "City of St. Louis", Incidents: 42}},
		Levels:      []LevelSummary{{Zoom: 0, Cells: 1, Total: 42}},
	}

	if err := WriteManifest(fs, "grid-data", m); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	got, err := ReadManifest(fs, "grid-data")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got.BaseZoom != 14 || got.CellDepth != 3 || got.Format != FormatGeoJSON {
		t.Errorf("Unexpected manifest %+v", got)
	}
	if len(got.Regions) != 1 || got.Regions[0].HumanName != "City of St. Louis" {
		t.Errorf("Unexpected regions %+v", got.Regions)
	}
	if !got.To.Equal(m.To) {
		t.Errorf("Expected window end %v, got %v", m.To, got.To)
	}
}

func TestReadManifestMissing(t *testing.T) {
	_, err := ReadManifest(afero.NewMemMapFs(), "nowhere")
	if !internal.HasCode(err, internal.ErrorCodeNotFound) {
		t.Errorf("Expected NOT_FOUND, got %v", err)
	}
}

func TestWriteWorldGrid(t *testing.T) {
	fs := afero.NewMemMapFs()
	g := grid.New()
	g.Add(1, 0, 2)
	g.Add(0, 1, 0)

	if err := WriteWorldGrid(fs, "out/grid.json", grid.Dense(g, 1), false); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	data, err := afero.ReadFile(fs, "out/grid.json")
	if err != nil {
		t.Fatalf("Expected world grid file, got %v", err)
	}

	var doc struct {
		Origin struct {
			Type        string    `json:"type"`
			Coordinates []float64 `json:"coordinates"`
		} `json:"origin"`
		GridSize float64 `json:"grid_size"`
		Grid     [][]int `json:"grid"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Expected JSON, got %v", err)
	}

	if doc.Origin.Type != "Point" || doc.Origin.Coordinates[0] != -180 {
		t.Errorf("Unexpected origin %+v", doc.Origin)
	}
	if doc.GridSize != 180 {
		t.Errorf("Expected grid size 180, got %f", doc.GridSize)
	}
	want := [][]int{{grid.AbsentCell, 0}, {2, grid.AbsentCell}}
	for i := range want {
		for j := range want[i] {
			if doc.Grid[i][j] != want[i][j] {
				t.Errorf("grid[%d][%d]: expected %d, got %d", i, j, want[i][j], doc.Grid[i][j])
			}
		}
	}
}
