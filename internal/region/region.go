// internal/region/region.go - Region boundaries loaded from GeoJSON
package region

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/spf13/afero"

	"github.com/valpere/crimegrid/internal"
)

// Spec describes where a region's boundary lives and how it is presented
type Spec struct {
	Name      string
	Boundary  string
	HumanName string
	URL       string
}

// Region is an area of interest with a polygonal boundary
type Region struct {
	Name      string
	HumanName string
	HumanURL  string
	Geometry  orb.Geometry
	Bound     orb.Bound
}

// Load reads and validates the region boundary named by spec
func Load(fs afero.Fs, spec Spec) (*Region, error) {
	data, err := afero.ReadFile(fs, spec.Boundary)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeFileSystem,
			fmt.Sprintf("failed to read boundary of region %s", spec.Name), err)
	}

	geom, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", spec.Name, err)
	}

	humanName := spec.HumanName
	if humanName == "" {
		humanName = spec.Name
	}

	return &Region{
		Name:      spec.Name,
		HumanName: humanName,
		HumanURL:  spec.URL,
		Geometry:  geom,
		Bound:     geom.Bound(),
	}, nil
}

// Parse decodes a GeoJSON geometry, Feature or FeatureCollection into a Polygon or MultiPolygon
func Parse(data []byte) (orb.Geometry, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, malformed("invalid GeoJSON", err)
	}

	var geoms []orb.Geometry
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, malformed("invalid feature collection", err)
		}
		for _, f := range fc.Features {
			geoms = append(geoms, f.Geometry)
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, malformed("invalid feature", err)
		}
		geoms = append(geoms, f.Geometry)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, malformed("invalid geometry", err)
		}
		geoms = append(geoms, g.Geometry())
	}

	var mp orb.MultiPolygon
	for _, g := range geoms {
		switch g := g.(type) {
		case orb.Polygon:
			mp = append(mp, g)
		case orb.MultiPolygon:
			mp = append(mp, g...)
		default:
			return nil, malformed(fmt.Sprintf("boundary geometry %T is not a polygon", g), nil)
		}
	}

	if len(mp) == 0 {
		return nil, malformed("boundary has no polygons", nil)
	}
	for i, p := range mp {
		if err := validatePolygon(p); err != nil {
			return nil, fmt.Errorf("polygon %d: %w", i, err)
		}
	}

	if len(mp) == 1 {
		return mp[0], nil
	}
	return mp, nil
}

func validatePolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return malformed("polygon has no rings", nil)
	}
	for i, r := range p {
		if len(r) < 4 {
			return malformed(fmt.Sprintf("ring %d has %d points, need at least 4", i, len(r)), nil)
		}
		if !r.Closed() {
			return malformed(fmt.Sprintf("ring %d is not closed", i), nil)
		}
		if i == 0 && planar.Area(orb.Polygon{r}) == 0 {
			return malformed("outer ring has no area", nil)
		}
	}
	return nil
}

func malformed(msg string, cause error) error {
	return internal.NewError(internal.ErrorCodeMalformedGeometry, msg, cause)
}

// Contains reports whether p lies inside the region boundary
func (r *Region) Contains(p orb.Point) bool {
	if !r.Bound.Contains(p) {
		return false
	}
	switch g := r.Geometry.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, p)
	}
	return false
}
