package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLambert93Origin(t *testing.T) {
	// The projection origin (3°E, 46.5°N) maps to the false easting and
	// northing exactly.
	p := ToLambert93(orb.Point{3, 46.5})
	assert.InDelta(t, 700000, p[0], 0.001)
	assert.InDelta(t, 6600000, p[1], 0.001)
}

func TestLambert93RoundTrip(t *testing.T) {
	points := []orb.Point{
		{-1.5536, 47.2184}, // Nantes
		{-4.4861, 48.3904}, // Brest
		{3.0573, 50.6292},  // Lille
		{7.2620, 43.7102},  // Nice
		{2.8954, 42.6887},  // Perpignan
		{3.0, 46.5},        // projection origin
	}
	for _, p := range points {
		back := FromLambert93(ToLambert93(p))
		assert.Less(t, geo.Distance(p, back), 0.01,
			"round trip of %v moved more than a centimeter", p)
	}
}

func TestLambert93MetricAtStandardParallel(t *testing.T) {
	// On the standard parallels the projection scale factor is 1, so a
	// planar distance there is a ground distance.
	a := orb.Point{1.0, 44.0}
	b := orb.Point{1.0126, 44.0}

	la := ToLambert93(a)
	lb := ToLambert93(b)
	planarD := math.Hypot(lb[0]-la[0], lb[1]-la[1])
	groundD := geo.Distance(a, b)

	require.Greater(t, groundD, 900.0)
	assert.InDelta(t, groundD, planarD, groundD*0.001)
}

func TestLambertLine(t *testing.T) {
	ls := orb.LineString{{3, 46.5}, {3.1, 46.5}}
	projected := lambertLine(ls)
	require.Len(t, projected, 2)
	assert.InDelta(t, 700000, projected[0][0], 0.001)
	assert.Greater(t, projected[1][0], projected[0][0])
}

func TestMercatorRoundTrip(t *testing.T) {
	p := orb.Point{-1.5536, 47.2184}
	back := ToWGS84(ToMercator(p)).(orb.Point)
	assert.Less(t, geo.Distance(p, back), 0.01)
}
