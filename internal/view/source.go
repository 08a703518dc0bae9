// internal/view/source.go - Reads rendered tiles back from a tile tree
package view

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/afero"

	"github.com/valpere/crimegrid/internal"
	"github.com/valpere/crimegrid/internal/output"
	"github.com/valpere/crimegrid/internal/tile"
	"github.com/valpere/crimegrid/pkg/mvt"
)

// Source loads the feature collection of one file tile
type Source interface {
	Fetch(ctx context.Context, coord tile.TileCoordinate) (*geojson.FeatureCollection, error)
}

// LocalSource reads tiles written by output.MultiFileWriter
type LocalSource struct {
	fs         afero.Fs
	baseDir    string
	format     output.Format
	compressed bool
	decoder    *mvt.Decoder
}

// NewLocalSource creates a source over the tile tree at baseDir
func NewLocalSource(fs afero.Fs, baseDir string, format output.Format, compressed bool) (*LocalSource, error) {
	if !format.IsValid() {
		return nil, internal.NewError(internal.ErrorCodeValidation,
			fmt.Sprintf("invalid tile format %q", format), nil)
	}
	return &LocalSource{
		fs:         fs,
		baseDir:    baseDir,
		format:     format,
		compressed: compressed,
		decoder:    mvt.NewDecoder(tile.CountProperty),
	}, nil
}

// NewLocalSourceFromManifest creates a source matching the format recorded in the tree's manifest
func NewLocalSourceFromManifest(fs afero.Fs, baseDir string) (*LocalSource, *output.Manifest, error) {
	m, err := output.ReadManifest(fs, baseDir)
	if err != nil {
		return nil, nil, err
	}
	src, err := NewLocalSource(fs, baseDir, m.Format, m.Compression)
	if err != nil {
		return nil, nil, err
	}
	return src, m, nil
}

// Fetch reads one tile. A missing file is a tile outside every region and yields an empty collection.
func (s *LocalSource) Fetch(ctx context.Context, coord tile.TileCoordinate) (*geojson.FeatureCollection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := coord.Validate(); err != nil {
		return nil, err
	}

	path := output.TilePath(s.baseDir, &coord, s.format, s.compressed)
	data, err := s.read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return geojson.NewFeatureCollection(), nil
		}
		return nil, internal.NewError(internal.ErrorCodeFileSystem,
			fmt.Sprintf("failed to read tile file: %s", path), err)
	}

	switch s.format {
	case output.FormatMVT:
		decoded, err := s.decoder.Decode(data, coord.MapTile())
		if err != nil {
			return nil, internal.NewError(internal.ErrorCodeProcessing,
				fmt.Sprintf("failed to decode vector tile %s", path), err)
		}
		return decoded.Collection(), nil
	case output.FormatJSON:
		return nil, internal.NewError(internal.ErrorCodeValidation,
			"json tile trees carry tile envelopes and cannot be viewed", nil)
	default:
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, internal.NewError(internal.ErrorCodeProcessing,
				fmt.Sprintf("invalid GeoJSON in %s", path), err)
		}
		return fc, nil
	}
}

func (s *LocalSource) read(path string) ([]byte, error) {
	file, err := s.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gzipReader, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzipReader.Close()
		reader = gzipReader
	}
	return io.ReadAll(reader)
}

// ListTiles scans the tile tree for the file tiles present at zoom
func (s *LocalSource) ListTiles(zoom int) ([]tile.TileCoordinate, error) {
	root := filepath.Join(s.baseDir, fmt.Sprintf("%d", zoom))
	var tiles []tile.TileCoordinate

	err := afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		coord, err := s.parseCoordinatesFromPath(path)
		if err != nil {
			// Not a tile file
			return nil
		}
		tiles = append(tiles, *coord)
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan tile directory: %w", err)
	}
	return tiles, nil
}

// parseCoordinatesFromPath extracts tile coordinates from <base>/<z>/<x>/<y><ext>[.gz]
func (s *LocalSource) parseCoordinatesFromPath(path string) (*tile.TileCoordinate, error) {
	relPath, err := filepath.Rel(s.baseDir, path)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(filepath.ToSlash(relPath), "/")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid path structure: %s", relPath)
	}

	name := parts[2]
	name = strings.TrimSuffix(name, ".gz")
	if !strings.HasSuffix(name, s.format.Extension()) {
		return nil, fmt.Errorf("unexpected extension: %s", parts[2])
	}
	name = strings.TrimSuffix(name, s.format.Extension())

	return tile.ParseTileCoordinate(parts[0] + "/" + parts[1] + "/" + name)
}
