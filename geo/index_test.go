package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// squareAround builds a square of roughly side*2 meters centered on p.
func squareAround(p orb.Point, sideM float64) orb.MultiPolygon {
	// 1 degree of latitude is close to 111320 m.
	dLat := sideM / 111320
	dLng := dLat / 0.64 // cos(50°), near enough for Loire-Atlantique
	return orb.MultiPolygon{{{
		{p[0] - dLng, p[1] - dLat},
		{p[0] + dLng, p[1] - dLat},
		{p[0] + dLng, p[1] + dLat},
		{p[0] - dLng, p[1] + dLat},
		{p[0] - dLng, p[1] - dLat},
	}}}
}

var nantes = orb.Point{-1.5536, 47.2184}

func testIndex() *ZoneIndex {
	wetlands := &Map{Name: "Zones humides 44", MapType: MapZoneHumide, DataType: DataCertain}
	potential := &Map{Name: "Zones humides probables 44", MapType: MapZoneHumide, DataType: DataUncertain}
	flood := &Map{Name: "Zones inondables 44", MapType: MapZoneInondable, DataType: DataCertain}

	return NewZoneIndex([]*Zone{
		{ID: 1, Map: wetlands, Geometry: squareAround(nantes, 50)},
		{ID: 2, Map: potential, Geometry: squareAround(nantes, 400)},
		{ID: 3, Map: flood, Geometry: squareAround(orb.Point{nantes[0] + 0.01, nantes[1]}, 50)},
	}, nil)
}

func TestZonesWithinInside(t *testing.T) {
	index := testIndex()

	zones, err := index.ZonesWithin(nantes, 0, ZoneFilter{MapType: MapZoneHumide})
	require.NoError(t, err)
	require.Len(t, zones, 2)
	assert.Equal(t, 0.0, zones[0].Distance)
	assert.Equal(t, 0.0, zones[1].Distance)
}

func TestZonesWithinDistanceOrdering(t *testing.T) {
	index := testIndex()

	// From a point ~200m east of Nantes: inside the big potential zone,
	// outside the small certain one.
	p := orb.Point{nantes[0] + 0.0027, nantes[1]}
	zones, err := index.ZonesWithin(p, 500, ZoneFilter{MapType: MapZoneHumide})
	require.NoError(t, err)
	require.Len(t, zones, 2)

	assert.Equal(t, 2, zones[0].Zone.ID, "containing zone sorts first")
	assert.Equal(t, 0.0, zones[0].Distance)
	assert.Equal(t, 1, zones[1].Zone.ID)
	assert.Greater(t, zones[1].Distance, 50.0)
	assert.Less(t, zones[1].Distance, 250.0)
}

func TestZonesWithinFilters(t *testing.T) {
	index := testIndex()

	certain, err := index.ZonesWithin(nantes, 1000, ZoneFilter{MapType: MapZoneHumide, DataType: DataCertain})
	require.NoError(t, err)
	require.Len(t, certain, 1)
	assert.Equal(t, 1, certain[0].Zone.ID)

	byName, err := index.ZonesWithin(nantes, 1000, ZoneFilter{MapName: "Zones inondables 44"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, 3, byName[0].Zone.ID)

	all, err := index.ZonesWithin(nantes, 10000, ZoneFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3, "zero filter matches every map")
}

func TestZonesWithinInvalidPoint(t *testing.T) {
	index := testIndex()
	_, err := index.ZonesWithin(orb.Point{500, 500}, 100, ZoneFilter{})
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestZonesIntersecting(t *testing.T) {
	index := testIndex()

	line := orb.LineString{
		{nantes[0] - 0.001, nantes[1]},
		{nantes[0] + 0.001, nantes[1]},
	}
	zones, err := index.ZonesIntersecting(line, ZoneFilter{MapType: MapZoneHumide})
	require.NoError(t, err)
	assert.Len(t, zones, 2)

	far := orb.Point{nantes[0] + 1, nantes[1]}
	zones, err = index.ZonesIntersecting(far, ZoneFilter{})
	require.NoError(t, err)
	assert.Empty(t, zones)
}

func TestLineLength(t *testing.T) {
	// One degree of longitude at the equator is about 111 km.
	l := LineLength(orb.LineString{{0, 0}, {1, 0}})
	assert.InDelta(t, 111000, l, 1000)
}

func TestCircleRadius(t *testing.T) {
	circle := Circle(nantes, 200)
	require.NotEmpty(t, circle)
	for _, p := range circle[0] {
		d := LineLength(orb.LineString{nantes, p})
		assert.InDelta(t, 200, d, 5)
	}
}

func TestTrimToLand(t *testing.T) {
	land := &Map{Name: "Terres émergées", MapType: MapTerresEmerg, DataType: DataCertain}
	index := NewZoneIndex([]*Zone{
		{ID: 1, Map: land, Geometry: squareAround(nantes, 5000)},
	}, nil)

	// A circle well inside the land zone survives whole.
	got, err := index.TrimToLand(Circle(nantes, 200))
	require.NoError(t, err)
	require.NotNil(t, got)

	// A circle far at sea vanishes.
	sea := orb.Point{nantes[0] - 3, nantes[1]}
	got, err = index.TrimToLand(Circle(sea, 200))
	require.NoError(t, err)
	assert.Nil(t, got)
}
