package moulinette

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/envergo/moulinette/catalog"
	"github.com/envergo/moulinette/geo"
	"github.com/envergo/moulinette/hedges"
)

// Variants of the moulinette.
const (
	VariantAmenagement = "amenagement"
	VariantHaie        = "haie"
)

// Input is a single evaluation request: form-like values, an optional
// hedge set, and the evaluation date (zero means now).
type Input struct {
	Variant string
	Values  map[string]string
	Hedges  *hedges.Set
	Date    time.Time
}

// Output is the full result tree of one evaluation.
type Output struct {
	Reference     string                 `json:"reference"`
	Result        Result                 `json:"result"`
	IsAvailable   bool                   `json:"is_evaluation_available"`
	Department    string                 `json:"department,omitempty"`
	Regulations   []RegulationEvaluation `json:"regulations"`
	ActionsToTake map[string][]string    `json:"actions_to_take,omitempty"`
	Warnings      []Warning              `json:"warnings,omitempty"`
}

// CatchmentFunc looks up the catchment surface draining to a point, in
// square meters. A false return means no data.
type CatchmentFunc func(lng, lat float64) (float64, bool)

// Moulinette drives evaluations. It is safe for concurrent use: all
// per-evaluation state lives in the catalog and context created for each
// call.
type Moulinette struct {
	index       *geo.ZoneIndex
	departments *geo.DepartmentIndex
	configs     *ConfigSet
	registry    *Registry
	catchment   CatchmentFunc
	logger      *slog.Logger
}

// Option configures a Moulinette.
type Option func(*Moulinette)

// WithCatchmentLookup installs the catchment-area collaborator.
func WithCatchmentLookup(fn CatchmentFunc) Option {
	return func(m *Moulinette) { m.catchment = fn }
}

// WithRegistry overrides the evaluator registry, mainly for tests.
func WithRegistry(r *Registry) Option {
	return func(m *Moulinette) { m.registry = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Moulinette) { m.logger = l }
}

// New creates an evaluation engine over a zone index, department index and
// configuration set.
func New(index *geo.ZoneIndex, departments *geo.DepartmentIndex, configs *ConfigSet, opts ...Option) *Moulinette {
	m := &Moulinette{
		index:       index,
		departments: departments,
		configs:     configs,
		registry:    DefaultRegistry,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Evaluate runs the full pipeline: validate input, resolve department and
// config, select and run criteria, reduce to the global verdict.
//
// Invalid input returns the FieldErrors mapping as the error, recoverable
// with errors.As; errors.Is against ErrInvalidInput also matches. A missing
// or deactivated config is not an error: the output carries
// IsAvailable=false and a non_disponible result.
func (m *Moulinette) Evaluate(in Input) (*Output, error) {
	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}

	project, fieldErrs := m.parseInput(in)
	if !fieldErrs.Empty() {
		return nil, fieldErrs
	}

	out := &Output{
		Reference: evaluationReference(),
		Result:    ResultNonDisponible,
	}

	dept, err := m.resolveDepartment(project)
	if err != nil {
		return nil, err
	}
	if dept == nil {
		m.logger.Info("no department at location", slog.String("variant", project.variant))
		return out, nil
	}
	out.Department = dept.Code

	cfg, err := m.configs.ForDepartment(dept.Code, date)
	if errors.Is(err, ErrNoConfig) {
		m.logger.Info("no config for department", slog.String("department", dept.Code))
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	ctx := &Context{
		Catalog:       catalog.New(),
		Index:         m.index,
		Config:        cfg,
		Hedges:        in.Hedges,
		Date:          date,
		Logger:        m.logger,
		CatchmentArea: m.catchment,
		results:       make(map[string]Evaluation),
		regResults:    make(map[string]Result),
		warnings:      &out.Warnings,
	}
	if err := m.seedCatalog(ctx, project, cfg); err != nil {
		return nil, err
	}

	regs, err := m.selectedRegulations(ctx, project, cfg, date)
	if err != nil {
		return nil, err
	}

	for _, sel := range regs {
		re, err := m.evaluateRegulation(ctx, sel.config, sel.criteria, sel.perimetersActive)
		if err != nil {
			return nil, err
		}
		ctx.regResults[re.Slug] = re.Result
		out.Regulations = append(out.Regulations, re)
	}

	out.ActionsToTake = m.mergeActions(out.Regulations, cfg)

	if !cfg.IsActivated {
		// Admin previews still get the full tree, but no verdict.
		return out, nil
	}
	out.IsAvailable = true
	out.Result = m.globalResult(out.Regulations, cfg, in.Hedges)
	return out, nil
}

// globalResult reduces regulation results to the single verdict.
func (m *Moulinette) globalResult(regs []RegulationEvaluation, cfg *DepartmentConfig, hs *hedges.Set) Result {
	if cfg.SingleProcedure && hs != nil {
		for _, re := range regs {
			if re.ProcedureType == ProcedureInterdit {
				return ResultInterdit
			}
		}
		if hedges.AllOfKind(hs.ToRemove(), hedges.KindAlignement) {
			return GlobalHorsRegimeUnique
		}
		for _, re := range regs {
			if re.ProcedureType == ProcedureAutorisation {
				return Result(ProcedureAutorisation)
			}
		}
		return Result(ProcedureDeclaration)
	}

	results := make([]Result, 0, len(regs))
	for _, re := range regs {
		results = append(results, re.Result)
	}
	return GlobalResult(CascadeReduce(results))
}

// projectData is the cleaned input after validation and surface inference.
type projectData struct {
	variant string
	values  map[string]string

	lng, lat        float64
	createdSurface  float64
	existingSurface float64
	finalSurface    float64

	department string
}

func (m *Moulinette) parseInput(in Input) (*projectData, FieldErrors) {
	fieldErrs := make(FieldErrors)
	p := &projectData{values: in.Values}
	if p.values == nil {
		p.values = map[string]string{}
	}

	p.variant = in.Variant
	if p.variant == "" {
		if in.Hedges != nil {
			p.variant = VariantHaie
		} else {
			p.variant = VariantAmenagement
		}
	}

	checkEnum(fieldErrs, p.values, "element", "haie", "bosquet", "autre")
	checkEnum(fieldErrs, p.values, "travaux", "destruction", "entretien")

	switch p.variant {
	case VariantAmenagement:
		p.lng = parseCoord(fieldErrs, p.values, "lng", -180, 180)
		p.lat = parseCoord(fieldErrs, p.values, "lat", -90, 90)

		created, hasCreated := parseSurface(fieldErrs, p.values, "created_surface")
		existing, hasExisting := parseSurface(fieldErrs, p.values, "existing_surface")
		final, hasFinal := parseSurface(fieldErrs, p.values, "final_surface")

		switch {
		case !hasFinal && hasCreated && hasExisting:
			final = created + existing
		case !hasExisting && hasCreated && hasFinal:
			existing = final - created
		}
		if hasCreated && final < created {
			fieldErrs.Add("final_surface", "must be greater than or equal to created_surface")
		}
		p.createdSurface = created
		p.existingSurface = existing
		p.finalSurface = final

		checkEnum(fieldErrs, p.values, "autorisation_urba", "pa", "pc", "amenagement_dp", "construction_dp", "none", "other")
		checkEnum(fieldErrs, p.values, "zone_u", "oui", "non")
		checkEnum(fieldErrs, p.values, "operation_amenagement", "oui", "non")
		checkEnum(fieldErrs, p.values, "is_lotissement", "oui", "non")

	case VariantHaie:
		p.department = p.values["department"]
		if len(p.department) < 2 || len(p.department) > 3 {
			fieldErrs.Add("department", "must be a 2 or 3 character department code")
		}
		checkEnum(fieldErrs, p.values, "motif",
			"transfert_parcelles", "chemin_acces", "amelioration_culture",
			"amelioration_ecologique", "securite", "amenagement", "embellissement", "autre")
		checkEnum(fieldErrs, p.values, "reimplantation",
			"remplacement", "replantation", "renforcement", "reconnexion", "non")
		checkEnum(fieldErrs, p.values, "localisation_pac", "oui", "non")
		checkEnum(fieldErrs, p.values, "profil", "agri_pac", "autre")
		if in.Hedges == nil || in.Hedges.Len() == 0 {
			fieldErrs.Add("haies", "at least one hedge is required")
		}

	default:
		fieldErrs.Add("variant", fmt.Sprintf("unknown variant %q", p.variant))
	}

	return p, fieldErrs
}

func (m *Moulinette) resolveDepartment(p *projectData) (*geo.Department, error) {
	if p.variant == VariantHaie {
		return m.departments.ByCode(p.department), nil
	}
	dept, err := m.departments.FromPoint(orb.Point{p.lng, p.lat})
	if err != nil {
		return nil, fmt.Errorf("resolve department: %w", err)
	}
	return dept, nil
}

// seedCatalog installs the input values and the standard derived-fact
// producers, then lets every selected evaluator contribute its own.
func (m *Moulinette) seedCatalog(ctx *Context, p *projectData, cfg *DepartmentConfig) error {
	cat := ctx.Catalog
	for k, v := range p.values {
		cat.Seed(k, v)
	}

	switch p.variant {
	case VariantAmenagement:
		point := orb.Point{p.lng, p.lat}
		cat.Seed("lng", p.lng)
		cat.Seed("lat", p.lat)
		cat.Seed("lng_lat", point)
		cat.Seed("coords", geo.ToMercator(point))
		cat.Seed("created_surface", p.createdSurface)
		cat.Seed("existing_surface", p.existingSurface)
		cat.Seed("final_surface", p.finalSurface)

		for _, radius := range []float64{12, 25, 100} {
			key := fmt.Sprintf("circle_%d", int(radius))
			r := radius
			cat.Register(key, func(c *catalog.Catalog) (any, error) {
				return geo.Circle(point, r), nil
			})
		}

		index := ctx.Index
		radius := cfg.AllZonesRadiusM
		cat.Register("all_zones", func(c *catalog.Catalog) (any, error) {
			return index.ZonesWithin(point, radius, geo.ZoneFilter{})
		})
		registerZonePartitions(cat)
		registerZoneDistances(cat)

		lookup := ctx.CatchmentArea
		warn := ctx.Warn
		cat.Register("catchment_surface", func(c *catalog.Catalog) (any, error) {
			if lookup == nil {
				warn("catchment", "no catchment-area lookup configured, assuming 0")
				return 0.0, nil
			}
			v, ok := lookup(p.lng, p.lat)
			if !ok {
				warn("catchment", "no catchment data at location, assuming 0")
				return 0.0, nil
			}
			return v, nil
		})

	case VariantHaie:
		hs := ctx.Hedges
		cat.Seed("haies", hs)
		cat.Seed("lineaire_detruit", hs.LengthToRemove())
		cat.Seed("lineaire_a_planter", hs.LengthToPlant())
		cat.Seed("lineaire_detruit_pac", hs.LengthToRemovePac())
		cat.Seed("lineaire_a_planter_pac", hs.LengthToPlantPac())
		if total := p.values["lineaire_total"]; total != "" {
			if v, err := strconv.ParseFloat(total, 64); err == nil {
				cat.Seed("lineaire_total", v)
			}
		}

		index := ctx.Index
		for _, radius := range []float64{200, 5000} {
			key := fmt.Sprintf("density_%d", int(radius))
			r := radius
			cat.Register(key, func(c *catalog.Catalog) (any, error) {
				centroid, ok := hs.RemovalCentroid()
				if !ok {
					return hedges.Density{}, nil
				}
				return hedges.DensityAround(index, centroid, r)
			})
		}
	}

	// Let evaluators contribute their own lazy keys.
	for _, reg := range cfg.Regulations {
		for _, crit := range reg.Criteria {
			ev, err := m.registry.New(crit.Evaluator, crit.Settings)
			if err != nil {
				continue
			}
			if contrib, ok := ev.(CatalogContributor); ok {
				for _, c := range contrib.Contributions() {
					cat.Register(c.Key, c.Produce)
				}
			}
		}
	}
	return nil
}

// registerZonePartitions splits all_zones by (map_type, data_type) into the
// named lists criteria consume.
func registerZonePartitions(cat *catalog.Catalog) {
	partition := func(mt geo.MapType, dt geo.DataType) catalog.Producer {
		return func(c *catalog.Catalog) (any, error) {
			v, err := c.Get("all_zones")
			if err != nil {
				return nil, err
			}
			all := v.([]geo.ZoneDistance)
			var out []geo.ZoneDistance
			for _, zd := range all {
				if zd.Zone.Map.MapType == mt && zd.Zone.Map.DataType == dt {
					out = append(out, zd)
				}
			}
			return out, nil
		}
	}
	cat.Register("wetlands", partition(geo.MapZoneHumide, geo.DataCertain))
	cat.Register("potential_wetlands", partition(geo.MapZoneHumide, geo.DataUncertain))
	cat.Register("forbidden_wetlands", partition(geo.MapZoneHumide, geo.DataForbidden))
	cat.Register("flood_zones", partition(geo.MapZoneInondable, geo.DataCertain))
}

// registerZoneDistances derives the within-distance booleans from the
// partitions.
func registerZoneDistances(cat *catalog.Catalog) {
	within := func(key string, distance float64) catalog.Producer {
		return func(c *catalog.Catalog) (any, error) {
			v, err := c.Get(key)
			if err != nil {
				return nil, err
			}
			for _, zd := range v.([]geo.ZoneDistance) {
				if zd.Distance <= distance {
					return true, nil
				}
			}
			return false, nil
		}
	}
	cat.Register("wetlands_within_25m", within("wetlands", 25))
	cat.Register("wetlands_within_100m", within("wetlands", 100))
	cat.Register("forbidden_wetlands_within_25m", within("forbidden_wetlands", 25))
	cat.Register("forbidden_wetlands_within_100m", within("forbidden_wetlands", 100))
	cat.Register("potential_wetlands_within_0m", within("potential_wetlands", 0))
	cat.Register("potential_wetlands_within_10m", within("potential_wetlands", 10))
	cat.Register("flood_zones_within_12m", within("flood_zones", 12))
}

// selectedRegulation is a regulation with its activated criteria.
type selectedRegulation struct {
	config           *RegulationConfig
	criteria         []selectedCriterion
	perimetersActive []string
}

// selectedRegulations applies availability, validity and activation rules,
// then validates cross-regulation dependency ordering.
func (m *Moulinette) selectedRegulations(ctx *Context, p *projectData, cfg *DepartmentConfig, date time.Time) ([]selectedRegulation, error) {
	regs := make([]*RegulationConfig, 0, len(cfg.Regulations))
	for _, reg := range cfg.Regulations {
		if cfg.RegulationAvailable(reg.Slug) {
			regs = append(regs, reg)
		}
	}
	sort.SliceStable(regs, func(i, j int) bool { return regs[i].Weight < regs[j].Weight })

	regWeight := make(map[string]int, len(regs))
	for _, reg := range regs {
		regWeight[reg.Slug] = reg.Weight
	}

	var out []selectedRegulation
	for _, reg := range regs {
		sel := selectedRegulation{config: reg}
		for _, crit := range reg.Criteria {
			if !crit.ValidAt(date) {
				continue
			}
			if crit.IsOptional && p.values[crit.Slug] != "oui" {
				continue
			}
			active, distance, err := m.criterionActive(ctx, p, crit)
			if err != nil {
				return nil, err
			}
			if !active {
				continue
			}
			ev, err := m.registry.New(crit.Evaluator, crit.Settings)
			if err != nil {
				return nil, err
			}
			if dep, ok := ev.(Dependent); ok {
				for _, ref := range dep.Requires() {
					if ref.Regulation == reg.Slug {
						continue
					}
					if w, ok := regWeight[ref.Regulation]; ok && w >= reg.Weight {
						return nil, fmt.Errorf("%w: %s.%s depends on %s which evaluates later",
							ErrCriterionOrder, reg.Slug, crit.Slug, ref)
					}
				}
			}
			sel.criteria = append(sel.criteria, selectedCriterion{
				config:    crit,
				evaluator: ev,
				distanceM: distance,
				mapName:   crit.ActivationMap,
			})
		}

		for _, per := range reg.Perimeters {
			if !per.IsActivated {
				continue
			}
			active, err := m.perimeterActive(ctx, p, per)
			if err != nil {
				return nil, err
			}
			if active {
				sel.perimetersActive = append(sel.perimetersActive, per.ID)
			}
		}

		if len(sel.criteria) > 0 || reg.HasPerimeters {
			out = append(out, sel)
		}
	}
	return out, nil
}

// criterionActive applies the criterion's activation mode against its
// activation map.
func (m *Moulinette) criterionActive(ctx *Context, p *projectData, crit *CriterionConfig) (bool, float64, error) {
	if crit.ActivationMap == "" {
		return true, 0, nil
	}
	filter := geo.ZoneFilter{MapName: crit.ActivationMap}

	switch crit.ActivationMode {
	case ActivationHedgesIntersection:
		if ctx.Hedges == nil {
			return false, 0, nil
		}
		zones, err := m.index.ZonesIntersecting(ctx.Hedges.Geometries(), filter)
		if err != nil {
			return false, 0, err
		}
		return len(zones) > 0, 0, nil

	default: // department_centroid, also the fallback for point projects
		var point orb.Point
		if p.variant == VariantAmenagement {
			point = orb.Point{p.lng, p.lat}
		} else {
			dept := m.departments.ByCode(p.department)
			if dept == nil {
				return false, 0, nil
			}
			point = dept.Centroid()
		}
		radius := crit.ActivationDistanceM
		matches, err := m.index.ZonesWithin(point, radius, filter)
		if err != nil {
			return false, 0, err
		}
		if len(matches) == 0 {
			return false, 0, nil
		}
		return true, matches[0].Distance, nil
	}
}

// perimeterActive reports whether a perimeter reaches the project.
func (m *Moulinette) perimeterActive(ctx *Context, p *projectData, per *PerimeterConfig) (bool, error) {
	filter := geo.ZoneFilter{MapName: per.MapName}
	if p.variant == VariantHaie {
		if ctx.Hedges == nil {
			return false, nil
		}
		zones, err := m.index.ZonesIntersecting(ctx.Hedges.Geometries(), filter)
		if err != nil {
			return false, err
		}
		return len(zones) > 0, nil
	}
	matches, err := m.index.ZonesWithin(orb.Point{p.lng, p.lat}, per.ActivationDistanceM, filter)
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}

// evaluationReference is the short token attached to outputs.
func evaluationReference() string {
	id := uuid.New().String()
	return "PM" + id[:8]
}

func checkEnum(fe FieldErrors, values map[string]string, field string, allowed ...string) {
	v, ok := values[field]
	if !ok || v == "" {
		return
	}
	for _, a := range allowed {
		if v == a {
			return
		}
	}
	fe.Add(field, fmt.Sprintf("must be one of %v", allowed))
}

func parseCoord(fe FieldErrors, values map[string]string, field string, lo, hi float64) float64 {
	raw, ok := values[field]
	if !ok || raw == "" {
		fe.Add(field, "is required")
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		fe.Add(field, "must be a decimal degree value")
		return 0
	}
	if v < lo || v > hi || math.IsNaN(v) {
		fe.Add(field, fmt.Sprintf("must be between %g and %g", lo, hi))
		return 0
	}
	return v
}

func parseSurface(fe FieldErrors, values map[string]string, field string) (float64, bool) {
	raw, ok := values[field]
	if !ok || raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		fe.Add(field, "must be a positive number of square meters")
		return 0, false
	}
	return v, true
}
