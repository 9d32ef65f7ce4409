package geo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gopkg.in/yaml.v3"
)

// manifestFile describes the zone maps of a data directory.
const manifestFile = "maps.yaml"

// mapEntry is one map declaration in the manifest.
type mapEntry struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	DataType string `yaml:"data_type"`
	File     string `yaml:"file"`
	// Geometry is "polygons" (default) or "lines".
	Geometry string `yaml:"geometry"`
}

type manifest struct {
	Maps []mapEntry `yaml:"maps"`
}

// LoadZoneIndex reads the maps.yaml manifest under dir, loads every
// declared GeoJSON file and builds the zone index.
func LoadZoneIndex(dir string) (*ZoneIndex, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("read map manifest: %w", err)
	}
	var mf manifest
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse map manifest: %w", err)
	}

	var (
		zones []*Zone
		lines []*Line
	)
	for _, entry := range mf.Maps {
		m := &Map{
			Name:     entry.Name,
			MapType:  MapType(entry.Type),
			DataType: DataType(entry.DataType),
		}
		if m.DataType == "" {
			m.DataType = DataCertain
		}

		path := entry.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		fc, err := loadFeatureCollection(path)
		if err != nil {
			return nil, fmt.Errorf("map %s: %w", entry.Name, err)
		}

		switch entry.Geometry {
		case "", "polygons":
			zs, err := ZonesFromFeatureCollection(m, fc)
			if err != nil {
				return nil, err
			}
			zones = append(zones, zs...)
		case "lines":
			ls, err := LinesFromFeatureCollection(m, fc)
			if err != nil {
				return nil, err
			}
			lines = append(lines, ls...)
		default:
			return nil, fmt.Errorf("map %s: unknown geometry kind %q", entry.Name, entry.Geometry)
		}
	}
	return NewZoneIndex(zones, lines), nil
}

// LoadDepartments reads a GeoJSON feature collection of department
// polygons. The code is taken from the "code" property ("dep" as a
// fallback) and an optional "centroid" property [lng, lat] overrides the
// computed centroid.
func LoadDepartments(path string) (*DepartmentIndex, error) {
	fc, err := loadFeatureCollection(path)
	if err != nil {
		return nil, fmt.Errorf("load departments: %w", err)
	}

	departments := make([]*Department, 0, len(fc.Features))
	for i, f := range fc.Features {
		code, _ := f.Properties["code"].(string)
		if code == "" {
			code, _ = f.Properties["dep"].(string)
		}
		if code == "" {
			return nil, fmt.Errorf("department feature %d: missing code property", i)
		}
		mp, err := asMultiPolygon(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("department %s: %w", code, err)
		}
		d := &Department{Code: code, Geometry: mp}
		if c, ok := f.Properties["centroid"].([]any); ok && len(c) == 2 {
			lng, okLng := c[0].(float64)
			lat, okLat := c[1].(float64)
			if okLng && okLat {
				d.SetCentroid(orb.Point{lng, lat})
			}
		}
		departments = append(departments, d)
	}
	return NewDepartmentIndex(departments), nil
}

func loadFeatureCollection(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read geojson: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse geojson %s: %w", filepath.Base(path), err)
	}
	return fc, nil
}
