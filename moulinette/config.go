package moulinette

import (
	"fmt"
	"os"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Activation modes for criteria.
const (
	ActivationDepartmentCentroid = "department_centroid"
	ActivationHedgesIntersection = "hedges_intersection"
)

// ActionsSpec declares result-dependent actions a regulation or criterion
// contributes to the evaluation output.
type ActionsSpec struct {
	ToAdd      []string `yaml:"to_add"`
	ToSubtract []string `yaml:"to_subtract"`
}

// ActionDisplay resolves an action slug to its display record.
type ActionDisplay struct {
	Slug   string `yaml:"slug"`
	Label  string `yaml:"label"`
	Target string `yaml:"target"`
	Order  int    `yaml:"order"`
}

// PerimeterConfig is an administratively-bounded zone attached to a
// regulation, independently activatable.
type PerimeterConfig struct {
	ID                  string  `yaml:"id"`
	MapName             string  `yaml:"map"`
	IsActivated         bool    `yaml:"is_activated"`
	ActivationDistanceM float64 `yaml:"activation_distance_m"`
}

// CriterionConfig is one testable rule inside a regulation.
type CriterionConfig struct {
	Slug                string                  `yaml:"slug"`
	Evaluator           string                  `yaml:"evaluator"`
	ActivationMap       string                  `yaml:"activation_map"`
	ActivationMode      string                  `yaml:"activation_mode"`
	ActivationDistanceM float64                 `yaml:"activation_distance_m"`
	Weight              int                     `yaml:"weight"`
	IsOptional          bool                    `yaml:"is_optional"`
	ValidFrom           *time.Time              `yaml:"valid_from"`
	ValidTo             *time.Time              `yaml:"valid_to"`
	Settings            map[string]any          `yaml:"settings"`
	Perimeter           string                  `yaml:"perimeter"`
	Actions             map[string]*ActionsSpec `yaml:"actions_to_take"`
}

// ValidAt reports whether the criterion's validity window contains the
// date. Windows are half-open [from, to).
func (c *CriterionConfig) ValidAt(date time.Time) bool {
	return windowContains(c.ValidFrom, c.ValidTo, date)
}

// RegulationConfig is a named family of criteria sharing a result.
type RegulationConfig struct {
	Slug          string                   `yaml:"slug"`
	Weight        int                      `yaml:"weight"`
	HasPerimeters bool                     `yaml:"has_perimeters"`
	Criteria      []*CriterionConfig       `yaml:"criteria"`
	Perimeters    []*PerimeterConfig       `yaml:"perimeters"`
	// ProcedureMatrix maps the regulation result to the single-procedure
	// constraint it contributes. Missing results contribute nothing.
	ProcedureMatrix map[Result]ProcedureType `yaml:"procedure_matrix"`
	Actions         map[string]*ActionsSpec  `yaml:"actions_to_take"`
}

// SingleProcedureSettings carries the régime unique knobs.
type SingleProcedureSettings struct {
	// CoeffCompensation maps hedge kinds to the replantation coefficient
	// under the single procedure.
	CoeffCompensation map[string]float64 `yaml:"coeff_compensation"`
}

// DepartmentConfig is the per-department, time-bounded configuration the
// orchestrator selects before evaluating.
type DepartmentConfig struct {
	Department              string                  `yaml:"department"`
	IsActivated             bool                    `yaml:"is_activated"`
	ValidFrom               *time.Time              `yaml:"valid_from"`
	ValidTo                 *time.Time              `yaml:"valid_to"`
	ZHDoubt                 bool                    `yaml:"zh_doubt"`
	RegulationsAvailable    []string                `yaml:"regulations_available"`
	SingleProcedure         bool                    `yaml:"single_procedure"`
	SingleProcedureSettings SingleProcedureSettings `yaml:"single_procedure_settings"`
	AllZonesRadiusM         float64                 `yaml:"all_zones_radius_m"`
	Regulations             []*RegulationConfig     `yaml:"regulations"`
}

// ValidAt reports whether the config's validity window contains the date.
func (c *DepartmentConfig) ValidAt(date time.Time) bool {
	return windowContains(c.ValidFrom, c.ValidTo, date)
}

// Regulation returns the regulation with the given slug, or nil.
func (c *DepartmentConfig) Regulation(slug string) *RegulationConfig {
	for _, r := range c.Regulations {
		if r.Slug == slug {
			return r
		}
	}
	return nil
}

// RegulationAvailable reports whether the regulation is part of the
// config's available set. An empty set makes every configured regulation
// available.
func (c *DepartmentConfig) RegulationAvailable(slug string) bool {
	if len(c.RegulationsAvailable) == 0 {
		return true
	}
	for _, s := range c.RegulationsAvailable {
		if s == slug {
			return true
		}
	}
	return false
}

// Validate checks structural invariants of a single config.
func (c *DepartmentConfig) Validate() error {
	if c.Department == "" {
		return fmt.Errorf("department is required")
	}
	if len(c.Department) < 2 || len(c.Department) > 3 {
		return fmt.Errorf("department code %q must be 2 or 3 characters", c.Department)
	}
	if c.ValidFrom != nil && c.ValidTo != nil && !c.ValidFrom.Before(*c.ValidTo) {
		return fmt.Errorf("department %s: empty validity range", c.Department)
	}
	for _, reg := range c.Regulations {
		if reg.Slug == "" {
			return fmt.Errorf("department %s: regulation without slug", c.Department)
		}
		for result := range reg.Actions {
			if !Result(result).Valid() {
				return fmt.Errorf("regulation %s: actions keyed by unknown result %q", reg.Slug, result)
			}
		}
		for _, crit := range reg.Criteria {
			if crit.Slug == "" || crit.Evaluator == "" {
				return fmt.Errorf("regulation %s: criterion needs slug and evaluator", reg.Slug)
			}
			if crit.ValidFrom != nil && crit.ValidTo != nil && !crit.ValidFrom.Before(*crit.ValidTo) {
				return fmt.Errorf("criterion %s.%s: empty validity range", reg.Slug, crit.Slug)
			}
			switch crit.ActivationMode {
			case "", ActivationDepartmentCentroid, ActivationHedgesIntersection:
			default:
				return fmt.Errorf("criterion %s.%s: unknown activation mode %q", reg.Slug, crit.Slug, crit.ActivationMode)
			}
		}
		if err := checkCriterionOverlaps(reg); err != nil {
			return fmt.Errorf("department %s: %w", c.Department, err)
		}
	}
	return nil
}

// checkCriterionOverlaps enforces that criteria sharing an identity
// (evaluator, activation map, perimeter) have disjoint validity windows.
func checkCriterionOverlaps(reg *RegulationConfig) error {
	type identity struct {
		evaluator, activationMap, perimeter string
	}
	byID := make(map[identity][]*CriterionConfig)
	for _, crit := range reg.Criteria {
		id := identity{crit.Evaluator, crit.ActivationMap, crit.Perimeter}
		byID[id] = append(byID[id], crit)
	}
	for _, group := range byID {
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if windowsOverlap(group[i].ValidFrom, group[i].ValidTo, group[j].ValidFrom, group[j].ValidTo) {
					return fmt.Errorf("criteria %s.%s and %s.%s overlap in validity",
						reg.Slug, group[i].Slug, reg.Slug, group[j].Slug)
				}
			}
		}
	}
	return nil
}

// ConfigSet holds every loaded department config plus the shared action
// display catalog.
type ConfigSet struct {
	Configs []*DepartmentConfig
	Actions map[string]ActionDisplay
}

// LoadConfigFile parses one department config file.
func LoadConfigFile(path string) (*DepartmentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg := &DepartmentConfig{AllZonesRadiusM: 200}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if cfg.AllZonesRadiusM <= 0 {
		cfg.AllZonesRadiusM = 200
	}
	return cfg, nil
}

// LoadConfigDir loads every department config matching the glob pattern
// (doublestar syntax) under dir.
func LoadConfigDir(dir, pattern string) (*ConfigSet, error) {
	matches, err := doublestar.FilepathGlob(dir + "/" + pattern)
	if err != nil {
		return nil, fmt.Errorf("glob department configs: %w", err)
	}

	set := &ConfigSet{Actions: make(map[string]ActionDisplay)}
	for _, path := range matches {
		cfg, err := LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		set.Configs = append(set.Configs, cfg)
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

// Validate checks every config and the cross-config invariant that
// validity windows are pairwise disjoint per department.
func (s *ConfigSet) Validate() error {
	byDept := make(map[string][]*DepartmentConfig)
	for _, cfg := range s.Configs {
		if err := cfg.Validate(); err != nil {
			return err
		}
		byDept[cfg.Department] = append(byDept[cfg.Department], cfg)
	}
	for dept, configs := range byDept {
		for i := 0; i < len(configs); i++ {
			for j := i + 1; j < len(configs); j++ {
				if windowsOverlap(configs[i].ValidFrom, configs[i].ValidTo, configs[j].ValidFrom, configs[j].ValidTo) {
					return fmt.Errorf("department %s: overlapping config validity ranges", dept)
				}
			}
		}
	}
	return nil
}

// ForDepartment selects the unique config whose validity contains the
// date. Fails with ErrNoConfig when none applies.
func (s *ConfigSet) ForDepartment(code string, date time.Time) (*DepartmentConfig, error) {
	for _, cfg := range s.Configs {
		if cfg.Department == code && cfg.ValidAt(date) {
			return cfg, nil
		}
	}
	return nil, fmt.Errorf("%w: department %s at %s", ErrNoConfig, code, date.Format("2006-01-02"))
}

// Action resolves an action slug to its display record; unresolved slugs
// fall back to a bare record targeting the petitioner.
func (s *ConfigSet) Action(slug string) ActionDisplay {
	if a, ok := s.Actions[slug]; ok {
		return a
	}
	return ActionDisplay{Slug: slug, Label: slug, Target: "petitioner"}
}

func windowContains(from, to *time.Time, date time.Time) bool {
	if from != nil && date.Before(*from) {
		return false
	}
	if to != nil && !date.Before(*to) {
		return false
	}
	return true
}

func windowsOverlap(from1, to1, from2, to2 *time.Time) bool {
	// Half-open intervals with nil meaning unbounded.
	startsBefore := func(from *time.Time, to *time.Time) bool {
		if from == nil || to == nil {
			return true
		}
		return from.Before(*to)
	}
	return startsBefore(from1, to2) && startsBefore(from2, to1)
}
