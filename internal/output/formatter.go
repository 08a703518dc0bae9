// internal/output/formatter.go - Output formatting implementation
package output

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/valpere/crimegrid/internal/tile"
	"github.com/valpere/crimegrid/pkg/mvt"
)

// GeoJSONFormatter formats tiles as GeoJSON FeatureCollection
type GeoJSONFormatter struct {
	pretty       bool
	includeStats bool
}

// NewGeoJSONFormatter creates a new GeoJSON formatter
func NewGeoJSONFormatter(pretty, includeStats bool) *GeoJSONFormatter {
	return &GeoJSONFormatter{
		pretty:       pretty,
		includeStats: includeStats,
	}
}

// Format formats a single encoded tile as GeoJSON
func (f *GeoJSONFormatter) Format(t *tile.EncodedTile) ([]byte, error) {
	if t.Error != nil {
		return nil, fmt.Errorf("cannot format tile with error: %w", t.Error)
	}

	output := geojson.NewFeatureCollection()
	output.Features = t.Data.Features

	if f.includeStats && t.Metadata != nil {
		output.ExtraMembers = geojson.Properties{
			"_metadata": map[string]interface{}{
				"tile_coordinate": t.Coordinate,
				"cell_depth":      t.Metadata.CellDepth,
				"feature_count":   t.Metadata.FeatureCount,
				"crime_count":     t.Metadata.CrimeCount,
				"encode_time":     t.Metadata.EncodeTime,
			},
		}
	}

	return f.marshal(output)
}

// FormatBatch formats multiple tiles as a single GeoJSON FeatureCollection
func (f *GeoJSONFormatter) FormatBatch(tiles []*tile.EncodedTile) ([]byte, error) {
	collection := geojson.NewFeatureCollection()

	var totalFeatures int
	var processedTiles int
	var failedTiles int

	for _, t := range tiles {
		if t.Error != nil {
			failedTiles++
			continue
		}

		processedTiles++

		for _, feature := range t.Data.Features {
			if f.includeStats {
				feature = tagFeature(feature, t.Coordinate.String())
			}
			collection.Append(feature)
			totalFeatures++
		}
	}

	// Add collection-level metadata
	if f.includeStats {
		collection.ExtraMembers = geojson.Properties{
			"_metadata": map[string]interface{}{
				"total_tiles":     len(tiles),
				"processed_tiles": processedTiles,
				"failed_tiles":    failedTiles,
				"total_features":  totalFeatures,
				"generated_at":    time.Now().UTC(),
			},
		}
	}

	return f.marshal(collection)
}

// tagFeature returns a copy of feature whose properties name the tile it came from
func tagFeature(feature *geojson.Feature, coord string) *geojson.Feature {
	tagged := geojson.NewFeature(feature.Geometry)
	tagged.ID = feature.ID
	for k, v := range feature.Properties {
		tagged.Properties[k] = v
	}
	tagged.Properties["_tile"] = coord
	return tagged
}

func (f *GeoJSONFormatter) marshal(v interface{}) ([]byte, error) {
	if f.pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// ContentType returns the MIME type for GeoJSON
func (f *GeoJSONFormatter) ContentType() string {
	return "application/geo+json"
}

// Extension returns the tile file extension
func (f *GeoJSONFormatter) Extension() string {
	return FormatGeoJSON.Extension()
}

// JSONFormatter formats tiles as structured JSON objects
type JSONFormatter struct {
	pretty       bool
	includeStats bool
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(pretty, includeStats bool) *JSONFormatter {
	return &JSONFormatter{
		pretty:       pretty,
		includeStats: includeStats,
	}
}

// Format formats a single tile as a JSON object
func (f *JSONFormatter) Format(t *tile.EncodedTile) ([]byte, error) {
	output := f.tileObject(t)

	if f.pretty {
		return json.MarshalIndent(output, "", "  ")
	}
	return json.Marshal(output)
}

// FormatBatch formats multiple tiles as a JSON array
func (f *JSONFormatter) FormatBatch(tiles []*tile.EncodedTile) ([]byte, error) {
	output := make([]interface{}, 0, len(tiles))
	var successCount, errorCount int

	for _, t := range tiles {
		output = append(output, f.tileObject(t))
		if t.Error != nil {
			errorCount++
		} else {
			successCount++
		}
	}

	result := map[string]interface{}{
		"tiles": output,
	}

	if f.includeStats {
		result["summary"] = map[string]interface{}{
			"total_tiles":   len(tiles),
			"success_tiles": successCount,
			"failed_tiles":  errorCount,
			"generated_at":  time.Now().UTC(),
		}
	}

	if f.pretty {
		return json.MarshalIndent(result, "", "  ")
	}
	return json.Marshal(result)
}

func (f *JSONFormatter) tileObject(t *tile.EncodedTile) map[string]interface{} {
	output := map[string]interface{}{
		"coordinate": t.Coordinate,
		"data":       t.Data,
	}

	if t.Error != nil {
		output["error"] = t.Error.Error()
		output["data"] = nil
	}

	if f.includeStats && t.Metadata != nil {
		output["metadata"] = t.Metadata
	}
	return output
}

// ContentType returns the MIME type for JSON
func (f *JSONFormatter) ContentType() string {
	return "application/json"
}

// Extension returns the tile file extension
func (f *JSONFormatter) Extension() string {
	return FormatJSON.Extension()
}

// MVTFormatter formats tiles as Mapbox Vector Tiles
type MVTFormatter struct {
	encoder *mvt.Encoder
}

// NewMVTFormatter creates a new vector tile formatter
func NewMVTFormatter() *MVTFormatter {
	return &MVTFormatter{encoder: mvt.NewEncoder()}
}

// Format encodes a single tile as a vector tile in its own tile's pixel space
func (f *MVTFormatter) Format(t *tile.EncodedTile) ([]byte, error) {
	if t.Error != nil {
		return nil, fmt.Errorf("cannot format tile with error: %w", t.Error)
	}
	return f.encoder.Encode(t.Data, t.Coordinate.MapTile())
}

// FormatBatch is not supported: a vector tile covers exactly one tile
func (f *MVTFormatter) FormatBatch(tiles []*tile.EncodedTile) ([]byte, error) {
	if len(tiles) == 1 {
		return f.Format(tiles[0])
	}
	return nil, fmt.Errorf("mvt output cannot combine %d tiles into one document", len(tiles))
}

// ContentType returns the MIME type for vector tiles
func (f *MVTFormatter) ContentType() string {
	return "application/vnd.mapbox-vector-tile"
}

// Extension returns the tile file extension
func (f *MVTFormatter) Extension() string {
	return FormatMVT.Extension()
}

// NewFormatter creates a formatter based on the specified configuration
func NewFormatter(config *FormatterConfig) (Formatter, error) {
	switch config.Format {
	case FormatGeoJSON:
		return NewGeoJSONFormatter(config.Pretty, config.IncludeStats), nil
	case FormatJSON:
		return NewJSONFormatter(config.Pretty, config.IncludeStats), nil
	case FormatMVT:
		return NewMVTFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", config.Format)
	}
}

// FormatSingle is a convenience function to format a single tile
func FormatSingle(t *tile.EncodedTile, format Format, pretty bool) ([]byte, error) {
	config := &FormatterConfig{
		Format:       format,
		Pretty:       pretty,
		IncludeStats: false,
	}

	formatter, err := NewFormatter(config)
	if err != nil {
		return nil, err
	}

	return formatter.Format(t)
}
