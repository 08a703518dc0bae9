// internal/output/manifest.go - Render manifest and world grid documents
package output

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/valpere/crimegrid/internal"
	"github.com/valpere/crimegrid/internal/grid"
)

// ManifestName is the manifest file written next to the tile tree
const ManifestName = "manifest.json"

// Manifest describes one render pass so clients and the view command can read the tile tree
type Manifest struct {
	GeneratedAt time.Time       `json:"generated_at"`
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	BaseZoom    int             `json:"base_zoom"`
	CellDepth   int             `json:"cell_depth"`
	Format      Format          `json:"format"`
	Compression bool            `json:"compression"`
	Tiles       int             `json:"tiles"`
	Regions     []RegionSummary `json:"regions"`
	Levels      []LevelSummary  `json:"levels"`
}

// RegionSummary reports how one region contributed to the grid
type RegionSummary struct {
	Name      string `json:"name"`
	HumanName string `json:"human_name"`
	URL       string `json:"url,omitempty"`
	Incidents int    `json:"incidents"`
	Unlocated int    `json:"unlocated"`
	Rejected  int    `json:"rejected"`
	Seeded    int    `json:"seeded"`
	Error     string `json:"error,omitempty"`
}

// LevelSummary reports the size of one zoom level
type LevelSummary struct {
	Zoom  int `json:"zoom"`
	Cells int `json:"cells"`
	Total int `json:"total"`
}

// WriteManifest writes m to <baseDir>/manifest.json
func WriteManifest(fs afero.Fs, baseDir string, m *Manifest) error {
	return writeJSON(fs, filepath.Join(baseDir, ManifestName), m, true)
}

// ReadManifest reads the manifest of a tile tree
func ReadManifest(fs afero.Fs, baseDir string) (*Manifest, error) {
	path := filepath.Join(baseDir, ManifestName)
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeNotFound,
			fmt.Sprintf("no manifest at %s", path), err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, internal.NewError(internal.ErrorCodeProcessing,
			fmt.Sprintf("invalid manifest %s", path), err)
	}
	return &m, nil
}

// WriteWorldGrid writes the dense single-file grid
func WriteWorldGrid(fs afero.Fs, path string, w *grid.WorldGrid, pretty bool) error {
	return writeJSON(fs, path, w, pretty)
}

func writeJSON(fs afero.Fs, path string, v interface{}, pretty bool) error {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return internal.NewError(internal.ErrorCodeFileSystem,
			fmt.Sprintf("failed to create directory for %s", path), err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return internal.NewError(internal.ErrorCodeFileSystem,
			fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}
