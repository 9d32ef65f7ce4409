package geo

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Planar intersection and clipping helpers. All inputs are WGS84; these
// operate directly on lng/lat coordinates, which is exact for containment
// and intersection predicates at the scales involved.

func intersectsMultiPolygon(g orb.Geometry, mp orb.MultiPolygon) (bool, error) {
	switch v := g.(type) {
	case orb.Point:
		return planar.MultiPolygonContains(mp, v), nil
	case orb.LineString:
		return lineIntersectsMultiPolygon(v, mp), nil
	case orb.MultiLineString:
		for _, ls := range v {
			if lineIntersectsMultiPolygon(ls, mp) {
				return true, nil
			}
		}
		return false, nil
	case orb.Polygon:
		return polygonIntersectsMultiPolygon(v, mp), nil
	default:
		return false, fmt.Errorf("%w: unsupported query geometry %s", ErrInvalidGeometry, g.GeoJSONType())
	}
}

func lineIntersectsMultiPolygon(ls orb.LineString, mp orb.MultiPolygon) bool {
	for _, p := range ls {
		if planar.MultiPolygonContains(mp, p) {
			return true
		}
	}
	for _, poly := range mp {
		for _, ring := range poly {
			if lineCrossesRing(ls, ring) {
				return true
			}
		}
	}
	return false
}

func polygonIntersectsMultiPolygon(poly orb.Polygon, mp orb.MultiPolygon) bool {
	if len(poly) == 0 {
		return false
	}
	outer := poly[0]
	for _, p := range outer {
		if planar.MultiPolygonContains(mp, p) {
			return true
		}
	}
	// The zone may be entirely inside the query polygon.
	for _, zp := range mp {
		if len(zp) > 0 && len(zp[0]) > 0 && planar.PolygonContains(poly, zp[0][0]) {
			return true
		}
	}
	for _, zp := range mp {
		for _, ring := range zp {
			if lineCrossesRing(orb.LineString(outer), ring) {
				return true
			}
		}
	}
	return false
}

func lineCrossesRing(ls orb.LineString, ring orb.Ring) bool {
	for i := 1; i < len(ls); i++ {
		for j := 1; j < len(ring); j++ {
			if segmentsIntersect(ls[i-1], ls[i], ring[j-1], ring[j]) {
				return true
			}
		}
	}
	return false
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func onSegment(a, b, p orb.Point) bool {
	return p[0] >= min(a[0], b[0]) && p[0] <= max(a[0], b[0]) &&
		p[1] >= min(a[1], b[1]) && p[1] <= max(a[1], b[1])
}

func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	if d1 == 0 && onSegment(q1, q2, p1) {
		return true
	}
	if d2 == 0 && onSegment(q1, q2, p2) {
		return true
	}
	if d3 == 0 && onSegment(p1, p2, q1) {
		return true
	}
	if d4 == 0 && onSegment(p1, p2, q2) {
		return true
	}
	return false
}

// clipRingToConvex clips a subject ring against a convex ring using
// Sutherland-Hodgman. The returned ring is closed, or empty when the
// intersection is empty.
func clipRingToConvex(subject, clip orb.Ring) orb.Ring {
	// Ensure the clip ring winds counterclockwise so "inside" is to the
	// left of each edge.
	c := clip
	if signedArea(c) < 0 {
		c = reversedRing(c)
	}

	output := append(orb.Ring{}, subject...)
	if len(output) > 0 && output[0] == output[len(output)-1] {
		output = output[:len(output)-1]
	}

	for i := 1; i < len(c); i++ {
		a, b := c[i-1], c[i]
		input := output
		output = orb.Ring{}
		for j := 0; j < len(input); j++ {
			cur := input[j]
			prev := input[(j+len(input)-1)%len(input)]
			curIn := cross(a, b, cur) >= 0
			prevIn := cross(a, b, prev) >= 0
			if curIn {
				if !prevIn {
					if p, ok := lineIntersection(prev, cur, a, b); ok {
						output = append(output, p)
					}
				}
				output = append(output, cur)
			} else if prevIn {
				if p, ok := lineIntersection(prev, cur, a, b); ok {
					output = append(output, p)
				}
			}
		}
		if len(output) == 0 {
			return nil
		}
	}

	output = append(output, output[0])
	return output
}

func signedArea(r orb.Ring) float64 {
	area := 0.0
	for i := 1; i < len(r); i++ {
		area += r[i-1][0]*r[i][1] - r[i][0]*r[i-1][1]
	}
	return area / 2
}

func reversedRing(r orb.Ring) orb.Ring {
	out := make(orb.Ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}

// lineIntersection returns the intersection of infinite lines (p1,p2) and
// (p3,p4).
func lineIntersection(p1, p2, p3, p4 orb.Point) (orb.Point, bool) {
	d := (p1[0]-p2[0])*(p3[1]-p4[1]) - (p1[1]-p2[1])*(p3[0]-p4[0])
	if d == 0 {
		return orb.Point{}, false
	}
	t := ((p1[0]-p3[0])*(p3[1]-p4[1]) - (p1[1]-p3[1])*(p3[0]-p4[0])) / d
	return orb.Point{
		p1[0] + t*(p2[0]-p1[0]),
		p1[1] + t*(p2[1]-p1[1]),
	}, true
}

// clipLineToArea returns the pieces of a polyline inside the area.
func clipLineToArea(ls orb.LineString, area orb.MultiPolygon) []orb.LineString {
	var parts []orb.LineString
	var current orb.LineString

	flush := func() {
		if len(current) >= 2 {
			parts = append(parts, current)
		}
		current = nil
	}

	for i := 1; i < len(ls); i++ {
		a, b := ls[i-1], ls[i]
		for _, seg := range splitSegment(a, b, area) {
			mid := orb.Point{(seg[0][0] + seg[1][0]) / 2, (seg[0][1] + seg[1][1]) / 2}
			if planar.MultiPolygonContains(area, mid) {
				if len(current) == 0 {
					current = orb.LineString{seg[0]}
				}
				current = append(current, seg[1])
			} else {
				flush()
			}
		}
	}
	flush()
	return parts
}

// splitSegment cuts segment (a,b) at every crossing with the area boundary,
// returning consecutive sub-segments ordered from a to b.
func splitSegment(a, b orb.Point, area orb.MultiPolygon) [][2]orb.Point {
	ts := []float64{0, 1}
	for _, poly := range area {
		for _, ring := range poly {
			for j := 1; j < len(ring); j++ {
				if !segmentsIntersect(a, b, ring[j-1], ring[j]) {
					continue
				}
				if p, ok := lineIntersection(a, b, ring[j-1], ring[j]); ok {
					t := paramOnSegment(a, b, p)
					if t > 0 && t < 1 {
						ts = append(ts, t)
					}
				}
			}
		}
	}
	sort.Float64s(ts)

	var segs [][2]orb.Point
	for i := 1; i < len(ts); i++ {
		if ts[i]-ts[i-1] < 1e-12 {
			continue
		}
		segs = append(segs, [2]orb.Point{pointAt(a, b, ts[i-1]), pointAt(a, b, ts[i])})
	}
	return segs
}

func paramOnSegment(a, b, p orb.Point) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	if dx == 0 && dy == 0 {
		return 0
	}
	if abs(dx) >= abs(dy) {
		return (p[0] - a[0]) / dx
	}
	return (p[1] - a[1]) / dy
}

func pointAt(a, b orb.Point, t float64) orb.Point {
	return orb.Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
