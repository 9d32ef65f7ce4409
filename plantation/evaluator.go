package plantation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/envergo/moulinette/hedges"
	"github.com/envergo/moulinette/metrics"
	"github.com/envergo/moulinette/moulinette"
)

// Plantation outcomes.
const (
	Adequate   = "adequate"
	Inadequate = "inadequate"
)

// matrixKey pairs the project's global result with the plantation outcome.
type matrixKey struct {
	global     moulinette.Result
	plantation string
}

// resultMatrix combines removal and plantation into the project verdict.
// Only interdit and soumis projects get a meaningful combination; the
// plantation question does not arise for the others.
var resultMatrix = map[matrixKey]moulinette.Result{
	{moulinette.ResultInterdit, Adequate}:        moulinette.ResultInterdit,
	{moulinette.ResultInterdit, Inadequate}:      moulinette.ResultInterdit,
	{moulinette.ResultSoumis, Adequate}:          moulinette.ResultSoumis,
	{moulinette.ResultSoumis, Inadequate}:        moulinette.Result(Inadequate),
	{moulinette.ResultActionRequise, Adequate}:   moulinette.ResultNonDisponible,
	{moulinette.ResultActionRequise, Inadequate}: moulinette.ResultNonDisponible,
	{moulinette.ResultNonSoumis, Adequate}:       moulinette.ResultNonDisponible,
	{moulinette.ResultNonSoumis, Inadequate}:     moulinette.ResultNonDisponible,
	{moulinette.ResultNonDisponible, Adequate}:   moulinette.ResultNonDisponible,
	{moulinette.ResultNonDisponible, Inadequate}: moulinette.ResultNonDisponible,
}

func init() {
	globals := []moulinette.Result{
		moulinette.ResultInterdit,
		moulinette.ResultSoumis,
		moulinette.ResultActionRequise,
		moulinette.ResultNonSoumis,
		moulinette.ResultNonDisponible,
	}
	for _, g := range globals {
		for _, p := range []string{Adequate, Inadequate} {
			if _, ok := resultMatrix[matrixKey{g, p}]; !ok {
				panic(fmt.Sprintf("plantation result matrix misses %s/%s", g, p))
			}
		}
	}
}

// Result is the outcome of a plantation evaluation.
type Result struct {
	Result       string            `json:"result"`
	GlobalResult moulinette.Result `json:"global_result"`
	ResultCode   string            `json:"result_code"`
	R            float64           `json:"replantation_coefficient"`
	Conditions   []ConditionResult `json:"conditions"`
	Unfulfilled  []string          `json:"unfulfilled_conditions,omitempty"`
}

// Evaluator checks plantation adequacy against an evaluated project.
type Evaluator struct {
	quality *QualityClient
	logger  *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithQualityClient installs the publicodes side channel.
func WithQualityClient(c *QualityClient) Option {
	return func(e *Evaluator) { e.quality = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// NewEvaluator builds a plantation evaluator.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs every applicable condition and combines the verdict with
// the project's global result.
func (e *Evaluator) Evaluate(ctx context.Context, out *moulinette.Output, hs *hedges.Set, reimplantation string) (*Result, error) {
	if hs == nil {
		return nil, fmt.Errorf("plantation: no hedges to evaluate")
	}

	in := conditionInput{
		hedges:         hs,
		r:              replantationCoefficient(out),
		reimplantation: reimplantation,
	}
	in.minLengthAARoadside, in.hasAlignementArbres = roadsideMinimum(out)

	res := &Result{R: in.r}
	for _, cond := range []func(conditionInput) (ConditionResult, bool){
		minLengthCondition,
		minLengthPacCondition,
		safetyCondition,
		treeAlignmentsCondition,
		strengtheningCondition,
	} {
		cr, applicable := cond(in)
		if !applicable {
			continue
		}
		res.Conditions = append(res.Conditions, cr)
	}
	res.Conditions = append(res.Conditions, e.qualityCondition(ctx, in))

	res.Result = Adequate
	for _, cr := range res.Conditions {
		if !cr.Result {
			res.Result = Inadequate
			res.Unfulfilled = append(res.Unfulfilled, cr.Condition)
		}
	}

	res.GlobalResult = resultMatrix[matrixKey{normalizeGlobal(out.Result), res.Result}]
	res.ResultCode = fmt.Sprintf("%s_%s", out.Result, res.Result)
	return res, nil
}

// qualityCondition consults the publicodes service when configured and
// falls back to the local computation on any failure.
func (e *Evaluator) qualityCondition(ctx context.Context, in conditionInput) ConditionResult {
	minimum, planted := qualityLengths(in)

	if e.quality != nil {
		ok, err := e.quality.Check(ctx, minimum, planted)
		if err == nil {
			return ConditionResult{
				Condition: CondQuality,
				Result:    ok,
				Context:   map[string]any{"source": "publicodes"},
			}
		}
		metrics.QualityFallbacksTotal.Inc()
		e.logger.Warn("quality service unavailable, using local computation",
			slog.String("error", err.Error()))
	}

	missing := qualityMissing(minimum, planted)
	sufficient := true
	missingOut := make(map[string]float64, len(missing))
	for kind, length := range missing {
		if length > 0 {
			sufficient = false
		}
		missingOut[string(kind)] = length
	}
	return ConditionResult{
		Condition: CondQuality,
		Result:    sufficient,
		Context:   map[string]any{"missing_plantation": missingOut},
	}
}

// replantationCoefficient picks R from the declaring regulation with the
// most severe result.
func replantationCoefficient(out *moulinette.Output) float64 {
	best := -1
	r := 0.0
	for _, re := range out.Regulations {
		if !re.DeclaresR {
			continue
		}
		if rank := re.Result.Severity(); best < 0 || rank < best {
			best = rank
			r = re.ReplantationR
		}
	}
	return r
}

// roadsideMinimum digs the roadside tree alignment replacement minimum out
// of the alignement_arbres evaluation.
func roadsideMinimum(out *moulinette.Output) (float64, bool) {
	for _, re := range out.Regulations {
		if re.Slug != "alignement_arbres" {
			continue
		}
		for _, ev := range re.Criteria {
			if ev.CriterionSlug != "alignement_arbres" {
				continue
			}
			if v, ok := ev.Context["minimum_length_to_plant_aa_bord_voie"].(float64); ok {
				return v, true
			}
		}
	}
	return 0, false
}

// normalizeGlobal folds the single-procedure verdict space into the matrix
// rows: both procedure outcomes behave like soumis, and a project outside
// the single procedure has no plantation verdict.
func normalizeGlobal(r moulinette.Result) moulinette.Result {
	switch r {
	case moulinette.Result(moulinette.ProcedureAutorisation), moulinette.Result(moulinette.ProcedureDeclaration):
		return moulinette.ResultSoumis
	case moulinette.GlobalHorsRegimeUnique:
		return moulinette.ResultNonDisponible
	}
	return r
}
