// internal/view/controller.go - Map view controller over rendered tiles
package view

import (
	"context"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/valpere/crimegrid/internal"
	"github.com/valpere/crimegrid/internal/geo"
	"github.com/valpere/crimegrid/internal/tile"
)

// View is the visible map area at a map zoom
type View struct {
	Bound orb.Bound
	Zoom  int
}

// Update lists the file tiles loaded and evicted by one view change
type Update struct {
	Zoom    int
	Added   []tile.TileCoordinate
	Removed []tile.TileCoordinate
}

// Controller keeps the layers of the file tiles covering the current view
type Controller struct {
	currentLayers map[tile.TileCoordinate]*geojson.FeatureCollection
	currentBounds orb.Bound
	currentZoom   int
	data          Source
	maxFileZoom   int
}

// NewController creates a controller over data. File tiles exist for zooms 0
// through baseZoom-cellDepth; deeper map zooms reuse the deepest file zoom.
func NewController(data Source, baseZoom, cellDepth int) (*Controller, error) {
	if err := tile.ValidateCellDepth(cellDepth); err != nil {
		return nil, err
	}
	if baseZoom < cellDepth {
		return nil, internal.NewError(internal.ErrorCodeValidation,
			fmt.Sprintf("base zoom %d is shallower than cell depth %d", baseZoom, cellDepth), nil)
	}
	return &Controller{
		currentLayers: make(map[tile.TileCoordinate]*geojson.FeatureCollection),
		currentZoom:   -1,
		data:          data,
		maxFileZoom:   baseZoom - cellDepth,
	}, nil
}

// FileZoom maps a map zoom to the zoom of the file tiles to show
func (c *Controller) FileZoom(mapZoom int) int {
	return min(max(mapZoom, 0), c.maxFileZoom)
}

// Update loads the file tiles covering v that are not loaded yet and evicts
// those out of view. State is left unchanged if any tile fails to load.
func (c *Controller) Update(ctx context.Context, v View) (*Update, error) {
	if err := geo.ValidateZoom(v.Zoom); err != nil {
		return nil, err
	}

	zoom := c.FileZoom(v.Zoom)
	tr, err := tile.RangeForBound(v.Bound, zoom)
	if err != nil {
		return nil, fmt.Errorf("view %v: %w", v.Bound, err)
	}

	wanted := tr.Coordinates()
	keep := make(map[tile.TileCoordinate]bool, len(wanted))
	loaded := make(map[tile.TileCoordinate]*geojson.FeatureCollection)
	for _, coord := range wanted {
		keep[coord] = true
		if _, ok := c.currentLayers[coord]; ok {
			continue
		}
		fc, err := c.data.Fetch(ctx, coord)
		if err != nil {
			return nil, fmt.Errorf("failed to load tile %s: %w", coord.String(), err)
		}
		loaded[coord] = fc
	}

	u := &Update{Zoom: zoom}
	for coord := range c.currentLayers {
		if !keep[coord] {
			delete(c.currentLayers, coord)
			u.Removed = append(u.Removed, coord)
		}
	}
	for coord, fc := range loaded {
		c.currentLayers[coord] = fc
		u.Added = append(u.Added, coord)
	}
	sortCoordinates(u.Added)
	sortCoordinates(u.Removed)

	c.currentBounds = v.Bound
	c.currentZoom = zoom
	return u, nil
}

// Collection returns the features of every loaded layer, ordered by tile
func (c *Controller) Collection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, coord := range c.Layers() {
		fc.Features = append(fc.Features, c.currentLayers[coord].Features...)
	}
	return fc
}

// Layers lists the loaded file tiles ordered by zoom, x, then y
func (c *Controller) Layers() []tile.TileCoordinate {
	coords := make([]tile.TileCoordinate, 0, len(c.currentLayers))
	for coord := range c.currentLayers {
		coords = append(coords, coord)
	}
	sortCoordinates(coords)
	return coords
}

// Bounds returns the bound of the last applied view
func (c *Controller) Bounds() orb.Bound {
	return c.currentBounds
}

// Zoom returns the file zoom of the last applied view, or -1 before the first update
func (c *Controller) Zoom() int {
	return c.currentZoom
}

func sortCoordinates(coords []tile.TileCoordinate) {
	sort.Slice(coords, func(i, j int) bool {
		a, b := coords[i], coords[j]
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})
}
