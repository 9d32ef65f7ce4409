package regulations

import (
	"math"

	"github.com/envergo/moulinette/moulinette"
)

// Water law criteria (IOTA rubriques). Each rubrique computes a
// (zone status, size bucket) tuple and looks it up in its code matrix.

// wlZoneHumide implements rubrique 3.3.1.0: wetland destruction.
type wlZoneHumide struct{}

var wlZoneHumideCodes = map[pair]string{
	{"inside", "big"}:                 "soumis",
	{"inside", "medium"}:              "action_requise",
	{"inside", "small"}:               "non_soumis",
	{"close_to", "big"}:               "action_requise_proche",
	{"close_to", "medium"}:            "non_soumis",
	{"close_to", "small"}:             "non_soumis",
	{"inside_potential", "big"}:       "action_requise_dans_doute",
	{"inside_potential", "medium"}:    "non_soumis",
	{"inside_potential", "small"}:     "non_soumis",
	{"inside_wetlands_dpt", "big"}:    "action_requise_tout_dpt",
	{"inside_wetlands_dpt", "medium"}: "action_requise_tout_dpt",
	{"inside_wetlands_dpt", "small"}:  "non_soumis",
	{"outside", "big"}:                "non_concerne",
	{"outside", "medium"}:             "non_concerne",
	{"outside", "small"}:              "non_concerne",
}

var wlZoneHumideResults = moulinette.ResultMatrix{
	"soumis":                    moulinette.ResultSoumis,
	"non_soumis":                moulinette.ResultNonSoumis,
	"non_concerne":              moulinette.ResultNonConcerne,
	"action_requise":            moulinette.ResultActionRequise,
	"action_requise_proche":     moulinette.ResultActionRequise,
	"action_requise_dans_doute": moulinette.ResultActionRequise,
	"action_requise_tout_dpt":   moulinette.ResultActionRequise,
}

func (wlZoneHumide) Slug() string { return "loi_sur_leau.zone_humide" }

func (wlZoneHumide) Evaluate(ctx *moulinette.Context) (moulinette.Evaluation, error) {
	var status string
	switch {
	case boolValue(ctx.Catalog, "wetlands_within_25m"):
		status = "inside"
	case boolValue(ctx.Catalog, "wetlands_within_100m"):
		status = "close_to"
	case boolValue(ctx.Catalog, "potential_wetlands_within_0m"):
		status = "inside_potential"
	case ctx.Config != nil && ctx.Config.ZHDoubt:
		status = "inside_wetlands_dpt"
	default:
		status = "outside"
	}

	created := floatValue(ctx.Catalog, "created_surface")
	size := "small"
	switch {
	case created >= 1000:
		size = "big"
	case created >= 700:
		size = "medium"
	}

	return evaluation(wlZoneHumideCodes[pair{status, size}], wlZoneHumideResults,
		map[string]any{"wetland_status": status, "project_size": size})
}

// wlZoneInondable implements rubrique 3.2.2.0: flood zone fill. A big
// project whose existing footprint already reaches the threshold falls
// under the PAC alternative procedure.
type wlZoneInondable struct{}

var wlZoneInondableResults = moulinette.ResultMatrix{
	"soumis":         moulinette.ResultSoumis,
	"soumis_ou_pac":  moulinette.ResultSoumisOuPac,
	"action_requise": moulinette.ResultActionRequise,
	"non_soumis":     moulinette.ResultNonSoumis,
	"non_concerne":   moulinette.ResultNonConcerne,
}

func (wlZoneInondable) Slug() string { return "loi_sur_leau.zone_inondable" }

func (wlZoneInondable) Evaluate(ctx *moulinette.Context) (moulinette.Evaluation, error) {
	inside := boolValue(ctx.Catalog, "flood_zones_within_12m")
	final := floatValue(ctx.Catalog, "final_surface")
	existing := floatValue(ctx.Catalog, "existing_surface")

	var code string
	switch {
	case !inside && final >= 300:
		code = "non_concerne"
	case !inside:
		code = "non_soumis"
	case final >= 400 && existing >= 400:
		code = "soumis_ou_pac"
	case final >= 400:
		code = "soumis"
	case final >= 300:
		code = "action_requise"
	default:
		code = "non_soumis"
	}
	return evaluation(code, wlZoneInondableResults, nil)
}

// pvSol reports a ground-mounted photovoltaic project, which rubrique
// 2.1.5.0 treats separately.
func pvSol(ctx *moulinette.Context) bool {
	return ctx.Catalog.StringDefault("evalenv_rubrique_30-localisation", "") == "sol"
}

var wlEcoulementResults = moulinette.ResultMatrix{
	"soumis":                moulinette.ResultSoumis,
	"soumis_ou_pac":         moulinette.ResultSoumisOuPac,
	"action_requise":        moulinette.ResultActionRequise,
	"action_requise_pv_sol": moulinette.ResultActionRequise,
	"non_soumis":            moulinette.ResultNonSoumis,
	"non_soumis_pv_sol":     moulinette.ResultNonSoumis,
}

// wlEcoulementSansBV implements rubrique 2.1.5.0 on the project surface
// alone, for departments without catchment data.
type wlEcoulementSansBV struct{}

func (wlEcoulementSansBV) Slug() string { return "loi_sur_leau.ecoulement_sans_bv" }

func (wlEcoulementSansBV) Evaluate(ctx *moulinette.Context) (moulinette.Evaluation, error) {
	final := floatValue(ctx.Catalog, "final_surface")

	var code string
	switch {
	case pvSol(ctx) && final >= 10000:
		code = "action_requise_pv_sol"
	case pvSol(ctx):
		code = "non_soumis_pv_sol"
	case final >= 10000:
		code = "soumis_ou_pac"
	case final >= 8000:
		code = "action_requise"
	default:
		code = "non_soumis"
	}
	return evaluation(code, wlEcoulementResults, nil)
}

// wlEcoulementAvecBV implements rubrique 2.1.5.0 including the upstream
// catchment area draining to the project.
type wlEcoulementAvecBV struct{}

func (wlEcoulementAvecBV) Slug() string { return "loi_sur_leau.ecoulement_avec_bv" }

func (wlEcoulementAvecBV) Evaluate(ctx *moulinette.Context) (moulinette.Evaluation, error) {
	final := floatValue(ctx.Catalog, "final_surface")
	catchment, err := ctx.Catalog.Float("catchment_surface")
	if err != nil {
		return moulinette.Evaluation{}, err
	}
	// Catchment surfaces come from a raster model; displayed and summed
	// values are rounded to the nearest 500 m².
	total := final + math.Round(catchment/500)*500

	var code string
	switch {
	case final < 1500:
		code = "non_soumis"
	case pvSol(ctx) && total >= 10000:
		code = "action_requise_pv_sol"
	case pvSol(ctx):
		code = "non_soumis_pv_sol"
	case final >= 10000:
		code = "soumis"
	case total >= 8000:
		code = "action_requise"
	default:
		code = "non_soumis"
	}
	return evaluation(code, wlEcoulementResults,
		map[string]any{"catchment_surface": catchment, "total_surface": total})
}

func init() {
	register("loi_sur_leau.zone_humide", func(map[string]any) (moulinette.Evaluator, error) {
		return wlZoneHumide{}, nil
	})
	register("loi_sur_leau.zone_inondable", func(map[string]any) (moulinette.Evaluator, error) {
		return wlZoneInondable{}, nil
	})
	register("loi_sur_leau.ecoulement_sans_bv", func(map[string]any) (moulinette.Evaluator, error) {
		return wlEcoulementSansBV{}, nil
	})
	register("loi_sur_leau.ecoulement_avec_bv", func(map[string]any) (moulinette.Evaluator, error) {
		return wlEcoulementAvecBV{}, nil
	})

	// Every (status, size) tuple must resolve, and every code must map to
	// a result.
	for _, status := range []string{"inside", "close_to", "inside_potential", "inside_wetlands_dpt", "outside"} {
		for _, size := range []string{"big", "medium", "small"} {
			code, ok := wlZoneHumideCodes[pair{status, size}]
			if !ok {
				panic("zone humide code matrix misses " + status + "/" + size)
			}
			wlZoneHumideResults.MustResolve(code)
		}
	}
}
