package moulinette

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/envergo/moulinette/catalog"
	"github.com/envergo/moulinette/geo"
	"github.com/envergo/moulinette/hedges"
)

// Evaluation is the immutable record a criterion evaluation produces.
type Evaluation struct {
	RegulationSlug string         `json:"regulation"`
	CriterionSlug  string         `json:"slug"`
	ResultCode     string         `json:"result_code"`
	Result         Result         `json:"result"`
	DistanceM      float64        `json:"distance_m,omitempty"`
	MapName        string         `json:"map,omitempty"`
	Context        map[string]any `json:"context,omitempty"`
}

// Warning is a structured, non-fatal anomaly recorded during evaluation.
type Warning struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// CriterionRef names a criterion inside a regulation.
type CriterionRef struct {
	Regulation string
	Criterion  string
}

func (r CriterionRef) String() string { return r.Regulation + "." + r.Criterion }

// Context carries everything one criterion evaluation may consult. It is
// created per evaluation and never shared across evaluations.
type Context struct {
	Catalog    *catalog.Catalog
	Index      *geo.ZoneIndex
	Config     *DepartmentConfig
	Regulation *RegulationConfig
	Criterion  *CriterionConfig
	Hedges     *hedges.Set
	Date       time.Time
	Logger     *slog.Logger

	// Distance is the activation distance of the criterion under
	// evaluation, in meters. Zero when the activation map contains the
	// project.
	Distance float64

	// CatchmentArea looks up the runoff catchment surface at a point.
	// A false return is treated as 0 with a warning.
	CatchmentArea func(lng, lat float64) (float64, bool)

	results    map[string]Evaluation
	regResults map[string]Result
	warnings   *[]Warning
}

// ResultOf returns a previously computed criterion evaluation. Reading a
// result that has not been produced yet fails with ErrCriterionOrder.
func (ctx *Context) ResultOf(ref CriterionRef) (Evaluation, error) {
	ev, ok := ctx.results[ref.String()]
	if !ok {
		return Evaluation{}, fmt.Errorf("%w: %s", ErrCriterionOrder, ref)
	}
	return ev, nil
}

// ResultOfRegulation returns the reduced result of a regulation that
// already evaluated. Reading a regulation evaluated later, or one not
// selected at all, fails with ErrCriterionOrder.
func (ctx *Context) ResultOfRegulation(slug string) (Result, error) {
	r, ok := ctx.regResults[slug]
	if !ok {
		return "", fmt.Errorf("%w: regulation %s", ErrCriterionOrder, slug)
	}
	return r, nil
}

// HasRegulationResult reports whether a regulation already evaluated.
func (ctx *Context) HasRegulationResult(slug string) bool {
	_, ok := ctx.regResults[slug]
	return ok
}

// HasResult reports whether a criterion already evaluated, without failing.
func (ctx *Context) HasResult(ref CriterionRef) bool {
	_, ok := ctx.results[ref.String()]
	return ok
}

// Warn records a structured warning on the evaluation output.
func (ctx *Context) Warn(source, message string) {
	if ctx.warnings != nil {
		*ctx.warnings = append(*ctx.warnings, Warning{Source: source, Message: message})
	}
	if ctx.Logger != nil {
		ctx.Logger.Warn(message, slog.String("source", source))
	}
}

// Setting reads a value from the criterion's settings blob.
func (ctx *Context) Setting(key string) (any, bool) {
	if ctx.Criterion == nil || ctx.Criterion.Settings == nil {
		return nil, false
	}
	v, ok := ctx.Criterion.Settings[key]
	return v, ok
}

// SettingString reads a string setting with a default.
func (ctx *Context) SettingString(key, def string) string {
	if v, ok := ctx.Setting(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// SettingFloat reads a numeric setting with a default.
func (ctx *Context) SettingFloat(key string, def float64) float64 {
	v, ok := ctx.Setting(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return def
	}
}

// SettingBool reads a boolean setting with a default.
func (ctx *Context) SettingBool(key string, def bool) bool {
	if v, ok := ctx.Setting(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Evaluator is a single criterion rule. Evaluators are stateless values
// constructed from the criterion's settings; all evaluation state flows
// through the Context and the returned Evaluation.
type Evaluator interface {
	Slug() string
	Evaluate(ctx *Context) (Evaluation, error)
}

// CatalogContributor lets an evaluator register lazy catalog producers
// before any criterion runs.
type CatalogContributor interface {
	Contributions() []catalog.Contribution
}

// Dependent declares cross-criterion reads so the orchestrator can order
// criteria topologically and reject cycles at load time.
type Dependent interface {
	Requires() []CriterionRef
}

// ReplantationProvider exposes the replantation coefficient a criterion
// contributes to the plantation evaluation.
type ReplantationProvider interface {
	ReplantationCoefficient(ctx *Context, ev Evaluation) float64
}

// ResultMatrix maps result codes to results. A code absent from the matrix
// must itself be a valid result, mirroring codes that are results verbatim.
type ResultMatrix map[string]Result

// Resolve maps a result code through the matrix.
func (m ResultMatrix) Resolve(code string) (Result, error) {
	if r, ok := m[code]; ok {
		return r, nil
	}
	r := Result(code)
	if !r.Valid() {
		return "", fmt.Errorf("result code %q maps to no result", code)
	}
	return r, nil
}

// MustResolve is Resolve for matrices whose exhaustiveness was verified at
// startup.
func (m ResultMatrix) MustResolve(code string) Result {
	r, err := m.Resolve(code)
	if err != nil {
		panic(err)
	}
	return r
}
