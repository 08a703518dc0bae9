// internal/output/types.go - Output handling types
package output

import (
	"fmt"
	"io"

	"github.com/valpere/crimegrid/internal/tile"
)

// Format represents different output formats supported by the application
type Format string

const (
	FormatGeoJSON Format = "geojson"
	FormatJSON    Format = "json"
	FormatMVT     Format = "mvt"
)

// Writer defines the interface for writing encoded tiles to various destinations
type Writer interface {
	Write(tile *tile.EncodedTile) error
	WriteBatch(tiles []*tile.EncodedTile) error
	Close() error
}

// Formatter defines the interface for formatting encoded tiles into different output formats
type Formatter interface {
	Format(tile *tile.EncodedTile) ([]byte, error)
	FormatBatch(tiles []*tile.EncodedTile) ([]byte, error)
	ContentType() string
	Extension() string
}

// Destination represents an output destination (file, stdout, etc.)
type Destination interface {
	io.WriteCloser
	Name() string
	Size() int64
}

// WriterConfig contains configuration for creating writers
type WriterConfig struct {
	Format      Format
	Pretty      bool
	Compression bool
	Metadata    bool
}

// FormatterConfig contains configuration for creating formatters
type FormatterConfig struct {
	Format       Format
	Pretty       bool
	IncludeStats bool
}

// NewWriterConfig creates a writer configuration with default values
func NewWriterConfig() *WriterConfig {
	return &WriterConfig{
		Format:      FormatGeoJSON,
		Pretty:      false,
		Compression: false,
		Metadata:    false,
	}
}

// Validate validates the writer configuration
func (c *WriterConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	return nil
}

// String returns a string representation of the format
func (f Format) String() string {
	return string(f)
}

// IsValid checks if the format is supported
func (f Format) IsValid() bool {
	switch f {
	case FormatGeoJSON, FormatJSON, FormatMVT:
		return true
	default:
		return false
	}
}

// Extension returns the file extension for tiles in this format
func (f Format) Extension() string {
	if f == FormatMVT {
		return ".mvt"
	}
	return ".json"
}
