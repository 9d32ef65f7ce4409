// Package geo provides the geospatial primitives used by the moulinette:
// coordinate projections, geodesic measurements and the in-memory zone index.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/project"
)

// GRS80 ellipsoid constants used by the Lambert-93 projection (EPSG:2154).
const (
	grs80A  = 6378137.0
	grs80E  = 0.0818191910428158
	grs80E2 = grs80E / 2
)

// Lambert-93 parameters: secant conic, standard parallels 44° and 49°,
// origin at 46.5°N 3°E, false easting/northing 700000/6600000.
var (
	l93N    float64
	l93F    float64
	l93Rho0 float64
)

const (
	l93Lon0 = 3.0 * math.Pi / 180
	l93X0   = 700000.0
	l93Y0   = 6600000.0
)

func init() {
	lat0 := 46.5 * math.Pi / 180
	lat1 := 44.0 * math.Pi / 180
	lat2 := 49.0 * math.Pi / 180

	m1 := lccM(lat1)
	m2 := lccM(lat2)
	t0 := lccT(lat0)
	t1 := lccT(lat1)
	t2 := lccT(lat2)

	l93N = (math.Log(m1) - math.Log(m2)) / (math.Log(t1) - math.Log(t2))
	l93F = m1 / (l93N * math.Pow(t1, l93N))
	l93Rho0 = grs80A * l93F * math.Pow(t0, l93N)
}

func lccM(lat float64) float64 {
	s := math.Sin(lat)
	return math.Cos(lat) / math.Sqrt(1-grs80E*grs80E*s*s)
}

func lccT(lat float64) float64 {
	s := math.Sin(lat)
	return math.Tan(math.Pi/4-lat/2) / math.Pow((1-grs80E*s)/(1+grs80E*s), grs80E2)
}

// ToLambert93 projects a WGS84 lng/lat point to Lambert-93 meters.
func ToLambert93(p orb.Point) orb.Point {
	lon := p[0] * math.Pi / 180
	lat := p[1] * math.Pi / 180

	rho := grs80A * l93F * math.Pow(lccT(lat), l93N)
	theta := l93N * (lon - l93Lon0)

	return orb.Point{
		l93X0 + rho*math.Sin(theta),
		l93Y0 + l93Rho0 - rho*math.Cos(theta),
	}
}

// FromLambert93 converts a Lambert-93 point back to WGS84 lng/lat.
func FromLambert93(p orb.Point) orb.Point {
	dx := p[0] - l93X0
	dy := l93Rho0 - (p[1] - l93Y0)

	rho := math.Sqrt(dx*dx + dy*dy)
	if l93N < 0 {
		rho = -rho
	}
	t := math.Pow(rho/(grs80A*l93F), 1/l93N)
	theta := math.Atan2(dx, dy)

	lon := theta/l93N + l93Lon0

	// Iterate the inverse isometric latitude. Converges in a handful of
	// rounds for any point on the ellipsoid.
	lat := math.Pi/2 - 2*math.Atan(t)
	for i := 0; i < 10; i++ {
		s := math.Sin(lat)
		next := math.Pi/2 - 2*math.Atan(t*math.Pow((1-grs80E*s)/(1+grs80E*s), grs80E2))
		if math.Abs(next-lat) < 1e-12 {
			lat = next
			break
		}
		lat = next
	}

	return orb.Point{lon * 180 / math.Pi, lat * 180 / math.Pi}
}

// ToMercator projects WGS84 geometry to Web Mercator (EPSG:3857).
func ToMercator(g orb.Geometry) orb.Geometry {
	return project.Geometry(orb.Clone(g), project.WGS84.ToMercator)
}

// ToWGS84 converts Web Mercator geometry back to WGS84.
func ToWGS84(g orb.Geometry) orb.Geometry {
	return project.Geometry(orb.Clone(g), project.Mercator.ToWGS84)
}

// lambertLine projects a WGS84 polyline (or ring) to Lambert-93, where
// planar distances are ground meters.
func lambertLine(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[i] = ToLambert93(p)
	}
	return out
}

// LineLength returns the geodesic length of a WGS84 polyline in meters.
func LineLength(ls orb.LineString) float64 {
	return geo.Length(ls)
}

// Area returns the geodesic area of a WGS84 polygon in square meters.
func Area(p orb.Polygon) float64 {
	return math.Abs(geo.Area(p))
}

const circleSegments = 64

// Circle approximates a geodesic circle of the given radius (meters) around
// a WGS84 center as a closed polygon. The result is convex.
func Circle(center orb.Point, radiusM float64) orb.Polygon {
	ring := make(orb.Ring, 0, circleSegments+1)
	for i := 0; i < circleSegments; i++ {
		bearing := float64(i) * 360 / circleSegments
		ring = append(ring, geo.PointAtBearingAndDistance(center, bearing, radiusM))
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}
