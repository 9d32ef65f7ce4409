package hedges

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Predicate selects hedges inside a filter.
type Predicate func(Hedge) bool

// OnPac keeps hedges on declared PAC parcels.
func OnPac(h Hedge) bool { return h.Properties.OnPacParcel }

// OfKind keeps hedges of one kind.
func OfKind(k Kind) Predicate {
	return func(h Hedge) bool { return h.Properties.Kind == k }
}

// NotOfKind keeps hedges of any other kind.
func NotOfKind(k Kind) Predicate {
	return func(h Hedge) bool { return h.Properties.Kind != k }
}

// RoadsideAlignment keeps roadside tree lines, the subset rule L350-3
// applies to.
func RoadsideAlignment(h Hedge) bool {
	return h.Properties.Kind == KindAlignement && h.Properties.Roadside
}

// Set is an ordered collection of hedges. Order is the submission order and
// is preserved by every filter.
type Set struct {
	hedges []Hedge
}

// NewSet builds a set, rejecting duplicate hedge ids.
func NewSet(hs []Hedge) (*Set, error) {
	seen := make(map[string]bool, len(hs))
	for _, h := range hs {
		if seen[h.ID] {
			return nil, fmt.Errorf("duplicate hedge id %q", h.ID)
		}
		seen[h.ID] = true
	}
	return &Set{hedges: hs}, nil
}

// ParseSet decodes the JSON wire format (a list of hedge records).
func ParseSet(data []byte) (*Set, error) {
	var hs []Hedge
	if err := json.Unmarshal(data, &hs); err != nil {
		return nil, fmt.Errorf("decode hedge set: %w", err)
	}
	return NewSet(hs)
}

// All returns every hedge in submission order.
func (s *Set) All() []Hedge { return s.hedges }

// Len returns the number of hedges.
func (s *Set) Len() int { return len(s.hedges) }

// Filter returns hedges of the given type matching every predicate.
func (s *Set) Filter(t Type, preds ...Predicate) []Hedge {
	var out []Hedge
next:
	for _, h := range s.hedges {
		if h.Type != t {
			continue
		}
		for _, p := range preds {
			if !p(h) {
				continue next
			}
		}
		out = append(out, h)
	}
	return out
}

// ToRemove returns the hedges slated for removal.
func (s *Set) ToRemove() []Hedge { return s.Filter(ToRemove) }

// ToPlant returns the planned plantations.
func (s *Set) ToPlant() []Hedge { return s.Filter(ToPlant) }

// Length sums geodesic lengths over a slice of hedges.
func Length(hs []Hedge) float64 {
	total := 0.0
	for _, h := range hs {
		total += h.Length()
	}
	return total
}

// LengthToRemove is the total removal linear in meters.
func (s *Set) LengthToRemove() float64 { return Length(s.ToRemove()) }

// LengthToPlant is the total plantation linear in meters.
func (s *Set) LengthToPlant() float64 { return Length(s.ToPlant()) }

// ToRemovePac returns removal hedges on PAC parcels, excluding pure tree
// alignments which do not count against the BCAE 8 linear.
func (s *Set) ToRemovePac() []Hedge {
	return s.Filter(ToRemove, OnPac, NotOfKind(KindAlignement))
}

// ToPlantPac returns plantations declared on PAC parcels.
func (s *Set) ToPlantPac() []Hedge {
	return s.Filter(ToPlant, OnPac)
}

// LengthToRemovePac is the PAC removal linear.
func (s *Set) LengthToRemovePac() float64 { return Length(s.ToRemovePac()) }

// LengthToPlantPac is the PAC plantation linear.
func (s *Set) LengthToPlantPac() float64 { return Length(s.ToPlantPac()) }

// LengthsByKind aggregates lengths per hedge kind over a slice.
func LengthsByKind(hs []Hedge) map[Kind]float64 {
	out := make(map[Kind]float64)
	for _, h := range hs {
		out[h.Properties.Kind] += h.Length()
	}
	return out
}

// AllOfKind reports whether every hedge in the slice has the given kind.
// An empty slice reports false.
func AllOfKind(hs []Hedge, k Kind) bool {
	if len(hs) == 0 {
		return false
	}
	for _, h := range hs {
		if h.Properties.Kind != k {
			return false
		}
	}
	return true
}

// RemovalCentroid is the length-weighted centroid of the removal hedges,
// used as the center of the density circles.
func (s *Set) RemovalCentroid() (orb.Point, bool) {
	removed := s.ToRemove()
	if len(removed) == 0 {
		return orb.Point{}, false
	}
	mls := make(orb.MultiLineString, 0, len(removed))
	for _, h := range removed {
		mls = append(mls, h.Geometry)
	}
	c, _ := planar.CentroidArea(mls)
	return c, true
}

// Geometries returns the WGS84 geometry of every hedge, for intersection
// queries against activation maps.
func (s *Set) Geometries() orb.MultiLineString {
	mls := make(orb.MultiLineString, 0, len(s.hedges))
	for _, h := range s.hedges {
		mls = append(mls, h.Geometry)
	}
	return mls
}
