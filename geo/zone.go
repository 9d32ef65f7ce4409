package geo

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrInvalidGeometry reports malformed or empty input geometry.
var ErrInvalidGeometry = errors.New("invalid geometry")

// MapType classifies the thematic layer a map belongs to.
type MapType string

const (
	MapZoneHumide    MapType = "zone_humide"
	MapZoneInondable MapType = "zone_inondable"
	MapHaies         MapType = "haies"
	MapZonage        MapType = "zonage"
	MapTerresEmerg   MapType = "terres_emergees"
	MapPerimeter     MapType = "perimetre"
)

// DataType qualifies how reliable a map's zones are.
type DataType string

const (
	DataCertain   DataType = "certain"
	DataUncertain DataType = "uncertain"
	DataForbidden DataType = "forbidden"
)

// Map is a named collection of zones sharing a type and a reliability level.
type Map struct {
	Name     string
	MapType  MapType
	DataType DataType
}

// Zone is a labeled polygon belonging to a map. Geometry is WGS84 and
// zones are append-only once loaded.
type Zone struct {
	ID         int
	Map        *Map
	Geometry   orb.MultiPolygon
	Attributes map[string]string
}

// Line is a labeled polyline belonging to a map, used for existing hedges.
type Line struct {
	ID       int
	Map      *Map
	Geometry orb.LineString
}

// ZoneDistance pairs a zone with its distance from a query point in meters.
type ZoneDistance struct {
	Zone     *Zone
	Distance float64
}

// asMultiPolygon normalizes polygonal GeoJSON geometry.
func asMultiPolygon(g orb.Geometry) (orb.MultiPolygon, error) {
	switch v := g.(type) {
	case orb.Polygon:
		if len(v) == 0 || len(v[0]) == 0 {
			return nil, fmt.Errorf("%w: empty polygon", ErrInvalidGeometry)
		}
		return orb.MultiPolygon{v}, nil
	case orb.MultiPolygon:
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty multipolygon", ErrInvalidGeometry)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: expected polygonal geometry, got %s", ErrInvalidGeometry, g.GeoJSONType())
	}
}

// ZonesFromFeatureCollection converts a GeoJSON feature collection into
// zones attached to the given map. String-valued feature properties are
// kept as zone attributes.
func ZonesFromFeatureCollection(m *Map, fc *geojson.FeatureCollection) ([]*Zone, error) {
	zones := make([]*Zone, 0, len(fc.Features))
	for i, f := range fc.Features {
		mp, err := asMultiPolygon(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("feature %d of map %s: %w", i, m.Name, err)
		}
		attrs := make(map[string]string)
		for k, v := range f.Properties {
			if s, ok := v.(string); ok {
				attrs[k] = s
			}
		}
		zones = append(zones, &Zone{ID: i, Map: m, Geometry: mp, Attributes: attrs})
	}
	return zones, nil
}

// LinesFromFeatureCollection converts LineString features into lines.
func LinesFromFeatureCollection(m *Map, fc *geojson.FeatureCollection) ([]*Line, error) {
	lines := make([]*Line, 0, len(fc.Features))
	for i, f := range fc.Features {
		ls, ok := f.Geometry.(orb.LineString)
		if !ok || len(ls) < 2 {
			return nil, fmt.Errorf("feature %d of map %s: %w: expected linestring", i, m.Name, ErrInvalidGeometry)
		}
		lines = append(lines, &Line{ID: i, Map: m, Geometry: ls})
	}
	return lines, nil
}
