// internal/grid/build.go - Binning incident records into a base-zoom grid
package grid

import (
	"fmt"
	"log/slog"

	"github.com/valpere/crimegrid/internal"
	"github.com/valpere/crimegrid/internal/geo"
	"github.com/valpere/crimegrid/internal/incident"
)

// BuildStats counts how records were handled by Build
type BuildStats struct {
	Located   int
	Unlocated int
	Rejected  int
}

// Total returns the number of records seen
func (s BuildStats) Total() int {
	return s.Located + s.Unlocated + s.Rejected
}

type buildOptions struct {
	strict bool
	logger *slog.Logger
}

// BuildOption configures Build
type BuildOption func(*buildOptions)

// WithStrictBounds makes Build fail on the first record located outside the Mercator world
// instead of skipping it
func WithStrictBounds() BuildOption {
	return func(o *buildOptions) {
		o.strict = true
	}
}

// WithLogger sets the logger used for rejected records
func WithLogger(logger *slog.Logger) BuildOption {
	return func(o *buildOptions) {
		o.logger = logger
	}
}

// Build bins every located record into its cell at zoom.
// Records without a location are counted as unlocated and never placed.
func Build(records []incident.Record, zoom int, opts ...BuildOption) (SparseGrid, *BuildStats, error) {
	options := &buildOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	if err := geo.ValidateZoom(zoom); err != nil {
		return nil, nil, err
	}

	g := New()
	stats := &BuildStats{}

	for i, rec := range records {
		if !rec.HasLocation() {
			stats.Unlocated++
			continue
		}

		x, y, err := geo.TileCoordinate(rec.Location.Lon(), rec.Location.Lat(), zoom)
		if err != nil {
			if options.strict {
				return nil, stats, fmt.Errorf("record %d: %w", i, err)
			}
			stats.Rejected++
			options.logger.Warn("Rejected incident outside map bounds",
				"index", i, "lon", rec.Location.Lon(), "lat", rec.Location.Lat(), "error", err)
			continue
		}

		if err := g.AddAt(zoom, x, y, 1); err != nil {
			return nil, stats, internal.NewError(internal.ErrorCodeInvariant,
				fmt.Sprintf("record %d", i), err)
		}
		stats.Located++
	}

	return g, stats, nil
}
