package geo

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// ZoneFilter restricts a zone query to matching maps. Zero values match all.
type ZoneFilter struct {
	MapType  MapType
	DataType DataType
	MapName  string
}

func (f ZoneFilter) matches(z *Zone) bool {
	if f.MapType != "" && z.Map.MapType != f.MapType {
		return false
	}
	if f.DataType != "" && z.Map.DataType != f.DataType {
		return false
	}
	if f.MapName != "" && z.Map.Name != f.MapName {
		return false
	}
	return true
}

// ZoneIndex holds all loaded zones and lines. It is read-only during
// evaluations; loading happens before any evaluation starts.
type ZoneIndex struct {
	zones []*Zone
	lines []*Line
}

// NewZoneIndex builds an index over the given zones and lines.
func NewZoneIndex(zones []*Zone, lines []*Line) *ZoneIndex {
	return &ZoneIndex{zones: zones, lines: lines}
}

// AddZones appends zones to the index. Zones are append-only.
func (x *ZoneIndex) AddZones(zones ...*Zone) { x.zones = append(x.zones, zones...) }

// AddLines appends lines to the index.
func (x *ZoneIndex) AddLines(lines ...*Line) { x.lines = append(x.lines, lines...) }

// ZonesWithin returns zones whose geometry lies within radiusM meters of
// the point, ordered by distance ascending then map name. A point inside a
// zone has distance 0. Finding nothing returns an empty slice.
func (x *ZoneIndex) ZonesWithin(p orb.Point, radiusM float64, filter ZoneFilter) ([]ZoneDistance, error) {
	if !validPoint(p) {
		return nil, fmt.Errorf("%w: point %v out of range", ErrInvalidGeometry, p)
	}

	lp := ToLambert93(p)

	out := []ZoneDistance{}
	for _, z := range x.zones {
		if !filter.matches(z) {
			continue
		}
		d := x.distanceToZone(p, lp, z)
		if d <= radiusM {
			out = append(out, ZoneDistance{Zone: z, Distance: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Zone.Map.Name < out[j].Zone.Map.Name
	})
	return out, nil
}

// distanceToZone is 0 when the point is inside the zone, otherwise the
// minimum distance from the point to the zone boundary, measured in the
// Lambert-93 plane. Lambert-93 is metric over mainland France, where all
// indexed maps live.
func (x *ZoneIndex) distanceToZone(p, lp orb.Point, z *Zone) float64 {
	if planar.MultiPolygonContains(z.Geometry, p) {
		return 0
	}
	min := -1.0
	for _, poly := range z.Geometry {
		for _, ring := range poly {
			boundary := lambertLine(orb.LineString(ring))
			d := planar.DistanceFrom(boundary, lp)
			if min < 0 || d < min {
				min = d
			}
		}
	}
	if min < 0 {
		min = geo.Distance(p, z.Geometry.Bound().Center())
	}
	return min
}

// ZonesIntersecting returns zones whose geometry has a non-empty
// intersection with g. Supported query geometries: Point, LineString,
// MultiLineString, Polygon.
func (x *ZoneIndex) ZonesIntersecting(g orb.Geometry, filter ZoneFilter) ([]*Zone, error) {
	out := []*Zone{}
	for _, z := range x.zones {
		if !filter.matches(z) {
			continue
		}
		hit, err := intersectsMultiPolygon(g, z.Geometry)
		if err != nil {
			return nil, err
		}
		if hit {
			out = append(out, z)
		}
	}
	return out, nil
}

// LineClip is a line restricted to a query area, with its clipped geodesic
// length in meters.
type LineClip struct {
	Line    *Line
	Length  float64
	Clipped []orb.LineString
}

// LinesWithin clips the indexed lines to the given area and returns the
// parts falling inside along with their geodesic lengths. Lines entirely
// outside are omitted.
func (x *ZoneIndex) LinesWithin(area orb.MultiPolygon, filter ZoneFilter) []LineClip {
	out := []LineClip{}
	for _, l := range x.lines {
		if filter.MapName != "" && l.Map.Name != filter.MapName {
			continue
		}
		if filter.MapType != "" && l.Map.MapType != filter.MapType {
			continue
		}
		parts := clipLineToArea(l.Geometry, area)
		if len(parts) == 0 {
			continue
		}
		total := 0.0
		for _, p := range parts {
			total += LineLength(p)
		}
		out = append(out, LineClip{Line: l, Length: total, Clipped: parts})
	}
	return out
}

// TrimToLand intersects a convex polygon (typically a density circle) with
// the union of terres_emergees zones. Returns nil when the intersection is
// empty, e.g. a circle entirely at sea.
func (x *ZoneIndex) TrimToLand(convex orb.Polygon) (orb.MultiPolygon, error) {
	if len(convex) == 0 || len(convex[0]) < 4 {
		return nil, fmt.Errorf("%w: degenerate clip polygon", ErrInvalidGeometry)
	}
	clip := convex[0]

	var out orb.MultiPolygon
	for _, z := range x.zones {
		if z.Map.MapType != MapTerresEmerg {
			continue
		}
		for _, poly := range z.Geometry {
			if len(poly) == 0 {
				continue
			}
			clipped := clipRingToConvex(poly[0], clip)
			if len(clipped) >= 4 {
				out = append(out, orb.Polygon{clipped})
			}
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func validPoint(p orb.Point) bool {
	return p[0] >= -180 && p[0] <= 180 && p[1] >= -90 && p[1] <= 90
}
