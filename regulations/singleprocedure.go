package regulations

import (
	"math"

	"github.com/envergo/moulinette/hedges"
	"github.com/envergo/moulinette/moulinette"
)

// Single-procedure (régime unique) criteria introduced by the loi haies.
// In departments running the pilot, one declaration covers every hedge
// regulation at once; elsewhere the droit constant applies.

// regimeUniqueHaie reports whether the project falls under the single
// procedure. Removals made only of tree alignments stay outside it.
type regimeUniqueHaie struct{}

var regimeUniqueHaieCodes = map[pair]string{
	{"regime_unique", "aa_only"}:     "non_concerne_aa",
	{"regime_unique", "has_hedges"}:  "soumis",
	{"droit_constant", "aa_only"}:    "non_concerne",
	{"droit_constant", "has_hedges"}: "non_concerne",
}

var regimeUniqueHaieResults = moulinette.ResultMatrix{
	"non_concerne_aa": moulinette.ResultNonConcerne,
	"non_concerne":    moulinette.ResultNonConcerne,
	"soumis":          moulinette.ResultSoumis,
}

func (regimeUniqueHaie) Slug() string { return "regime_unique_haie.regime_unique_haie" }

func (regimeUniqueHaie) Evaluate(ctx *moulinette.Context) (moulinette.Evaluation, error) {
	regime := "droit_constant"
	if ctx.Config != nil && ctx.Config.SingleProcedure {
		regime = "regime_unique"
	}

	composition := "has_hedges"
	if ctx.Hedges != nil && hedges.AllOfKind(ctx.Hedges.ToRemove(), hedges.KindAlignement) {
		composition = "aa_only"
	}

	return evaluation(regimeUniqueHaieCodes[pair{regime, composition}], regimeUniqueHaieResults,
		map[string]any{"regime": regime})
}

// ReplantationCoefficient averages the departmental per-kind coefficients
// over the removal. Tree alignments follow L350-3 and are excluded here.
func (regimeUniqueHaie) ReplantationCoefficient(ctx *moulinette.Context, ev moulinette.Evaluation) float64 {
	if ctx.Config == nil || !ctx.Config.SingleProcedure || ctx.Hedges == nil {
		return 0
	}
	coeffs := ctx.Config.SingleProcedureSettings.CoeffCompensation
	if len(coeffs) == 0 {
		return 0
	}
	removed := ctx.Hedges.LengthToRemove()
	if removed <= 0 {
		return 0
	}

	minimum := 0.0
	for kind, length := range hedges.LengthsByKind(ctx.Hedges.Filter(hedges.ToRemove, hedges.NotOfKind(hedges.KindAlignement))) {
		minimum += length * coeffs[string(kind)]
	}
	return math.Round(minimum/removed*100) / 100
}

// sitesClassesHaie: hedge work inside a site classé perimeter always needs
// the special authorization.
type sitesClassesHaie struct{}

func (sitesClassesHaie) Slug() string { return "sites_classes.sites_classes_haie" }

func (sitesClassesHaie) Evaluate(ctx *moulinette.Context) (moulinette.Evaluation, error) {
	return evaluation("soumis", moulinette.ResultMatrix{"soumis": moulinette.ResultSoumis}, nil)
}

// reservesNaturelles: the procedure inside a nature reserve depends on
// whether its management plan regulates hedge removal.
type reservesNaturelles struct{}

var reservesNaturellesResults = moulinette.ResultMatrix{
	"soumis_declaration":  moulinette.ResultSoumisDeclaration,
	"soumis_autorisation": moulinette.ResultSoumisAutorisation,
}

func (reservesNaturelles) Slug() string { return "reserves_naturelles.reserves_naturelles" }

func (reservesNaturelles) Evaluate(ctx *moulinette.Context) (moulinette.Evaluation, error) {
	code := "soumis_autorisation"
	if ctx.SettingString("plan_gestion", "non") == "oui" {
		code = "soumis_declaration"
	}
	return evaluation(code, reservesNaturellesResults, nil)
}

func init() {
	register("regime_unique_haie.regime_unique_haie", func(map[string]any) (moulinette.Evaluator, error) {
		return regimeUniqueHaie{}, nil
	})
	register("sites_classes.sites_classes_haie", func(map[string]any) (moulinette.Evaluator, error) {
		return sitesClassesHaie{}, nil
	})
	register("reserves_naturelles.reserves_naturelles", func(map[string]any) (moulinette.Evaluator, error) {
		return reservesNaturelles{}, nil
	})

	for _, regime := range []string{"regime_unique", "droit_constant"} {
		for _, composition := range []string{"aa_only", "has_hedges"} {
			code, ok := regimeUniqueHaieCodes[pair{regime, composition}]
			if !ok {
				panic("regime unique code matrix misses " + regime + "/" + composition)
			}
			regimeUniqueHaieResults.MustResolve(code)
		}
	}
}
