package hedges

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/envergo/moulinette/geo"
)

// Density measures the local hedge density around a point: total existing
// hedge length inside a circle, divided by the circle's land area.
type Density struct {
	// LengthM is the clipped hedge length inside the circle, meters.
	LengthM float64
	// AreaHA is the land area of the circle in hectares.
	AreaHA float64
	// Ratio is LengthM / AreaHA; 0 when the circle holds no land.
	Ratio float64
}

// DensityAround computes the hedge density within radiusM meters of the
// point. The circle is trimmed to emerged land so sea area does not dilute
// the figure. When the whole circle is at sea the density is zero.
func DensityAround(index *geo.ZoneIndex, center orb.Point, radiusM float64) (Density, error) {
	circle := geo.Circle(center, radiusM)

	land, err := index.TrimToLand(circle)
	if err != nil {
		return Density{}, fmt.Errorf("trim density circle to land: %w", err)
	}
	if land == nil {
		return Density{}, nil
	}

	length := 0.0
	for _, clip := range index.LinesWithin(land, geo.ZoneFilter{MapType: geo.MapHaies}) {
		length += clip.Length
	}

	area := 0.0
	for _, poly := range land {
		area += geo.Area(poly)
	}
	areaHA := area / 10000

	d := Density{LengthM: length, AreaHA: areaHA}
	if areaHA > 0 {
		d.Ratio = length / areaHA
	}
	return d, nil
}
