package geo

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Department is an administrative polygon identified by a 2- or 3-character
// code.
type Department struct {
	Code     string
	Geometry orb.MultiPolygon
	centroid orb.Point
	hasCent  bool
}

// Centroid returns the department centroid, computed lazily from the
// geometry unless one was set explicitly at load time.
func (d *Department) Centroid() orb.Point {
	if !d.hasCent {
		c, _ := planar.CentroidArea(d.Geometry)
		d.centroid = c
		d.hasCent = true
	}
	return d.centroid
}

// SetCentroid overrides the computed centroid, for departments whose
// reference centroid is maintained out of band.
func (d *Department) SetCentroid(p orb.Point) {
	d.centroid = p
	d.hasCent = true
}

// DepartmentIndex resolves departments by code or by location.
type DepartmentIndex struct {
	byCode []*Department
}

// NewDepartmentIndex builds an index over the given departments.
func NewDepartmentIndex(departments []*Department) *DepartmentIndex {
	return &DepartmentIndex{byCode: departments}
}

// ByCode returns the department with the given code, or nil.
func (x *DepartmentIndex) ByCode(code string) *Department {
	for _, d := range x.byCode {
		if d.Code == code {
			return d
		}
	}
	return nil
}

// FromPoint returns the department containing the point, or nil when the
// point falls outside every known department.
func (x *DepartmentIndex) FromPoint(p orb.Point) (*Department, error) {
	if !validPoint(p) {
		return nil, fmt.Errorf("%w: point %v out of range", ErrInvalidGeometry, p)
	}
	for _, d := range x.byCode {
		if planar.MultiPolygonContains(d.Geometry, p) {
			return d, nil
		}
	}
	return nil, nil
}
