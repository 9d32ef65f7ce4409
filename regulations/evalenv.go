package regulations

import (
	"github.com/envergo/moulinette/moulinette"
)

// Environmental assessment (évaluation environnementale) criteria,
// rubrique 39 of the R122-2 nomenclature plus the optional rubriques.

var evalenvResults = moulinette.ResultMatrix{
	"systematique": moulinette.ResultSystematique,
	"cas_par_cas":  moulinette.ResultCasParCas,
	"non_soumis":   moulinette.ResultNonSoumis,
	"non_concerne": moulinette.ResultNonConcerne,
}

// eeEmprise buckets the project footprint. Above 4 ha the assessment is
// systematic, except inside an urban zone where it degrades to a
// case-by-case review.
type eeEmprise struct{}

var eeEmpriseCodes = map[pair]string{
	{"40000", "oui"}: "cas_par_cas",
	{"40000", "non"}: "systematique",
	{"10000", "oui"}: "cas_par_cas",
	{"10000", "non"}: "cas_par_cas",
	{"0", "oui"}:     "non_soumis",
	{"0", "non"}:     "non_soumis",
}

func (eeEmprise) Slug() string { return "evalenv.emprise" }

func (eeEmprise) Evaluate(ctx *moulinette.Context) (moulinette.Evaluation, error) {
	emprise := floatValue(ctx.Catalog, "emprise")
	final := floatValue(ctx.Catalog, "final_surface")

	bucket := "0"
	switch {
	case emprise >= 40000 && final >= 40000:
		bucket = "40000"
	case emprise >= 10000 && final >= 10000:
		bucket = "10000"
	}

	zoneU := ctx.Catalog.StringDefault("zone_u", "non")
	if zoneU != "oui" {
		zoneU = "non"
	}
	return evaluation(eeEmpriseCodes[pair{bucket, zoneU}], evalenvResults,
		map[string]any{"bucket": bucket})
}

// eeSurfacePlancher asks whether the floor surface crosses the 3000 m²
// single threshold.
type eeSurfacePlancher struct{}

func (eeSurfacePlancher) Slug() string { return "evalenv.surface_plancher" }

func (eeSurfacePlancher) Evaluate(ctx *moulinette.Context) (moulinette.Evaluation, error) {
	code := "non_soumis"
	if ctx.Catalog.StringDefault("surface_plancher_sup_thld", "non") == "oui" {
		code = "cas_par_cas"
	}
	return evaluation(code, evalenvResults, nil)
}

// eeTerrainAssiette buckets the land parcel surface, and only applies to
// opérations d'aménagement.
type eeTerrainAssiette struct{}

func (eeTerrainAssiette) Slug() string { return "evalenv.terrain_assiette" }

func (eeTerrainAssiette) Evaluate(ctx *moulinette.Context) (moulinette.Evaluation, error) {
	if ctx.Catalog.StringDefault("operation_amenagement", "non") != "oui" {
		return evaluation("non_concerne", evalenvResults, nil)
	}

	assiette := floatValue(ctx.Catalog, "terrain_assiette")
	var code string
	switch {
	case assiette >= 100000:
		code = "systematique"
	case assiette >= 50000:
		code = "cas_par_cas"
	default:
		code = "non_soumis"
	}
	return evaluation(code, evalenvResults, map[string]any{"terrain_assiette": assiette})
}

// eePhotovoltaique implements rubrique 30. It is an optional criterion:
// the user opts in before the power and location questions appear.
type eePhotovoltaique struct{}

var eePhotovoltaiqueCodes = map[pair]string{
	{"lt_300kWc", "sol"}:               "non_soumis",
	{"lt_300kWc", "aire_arti"}:         "non_soumis",
	{"lt_300kWc", "aire_non_arti"}:     "non_soumis",
	{"lt_300kWc", "batiment_clos"}:     "non_soumis",
	{"lt_300kWc", "batiment_ouvert"}:   "non_soumis",
	{"lt_300kWc", "aucun"}:             "non_soumis",
	{"300_1000kWc", "sol"}:             "cas_par_cas_sol",
	{"300_1000kWc", "aire_arti"}:       "non_soumis_ombriere",
	{"300_1000kWc", "aire_non_arti"}:   "cas_par_cas_ombriere",
	{"300_1000kWc", "batiment_clos"}:   "non_soumis_toiture",
	{"300_1000kWc", "batiment_ouvert"}: "cas_par_cas_toiture",
	{"300_1000kWc", "aucun"}:           "non_soumis",
	{"gte_1000kWc", "sol"}:             "systematique_sol",
	{"gte_1000kWc", "aire_arti"}:       "non_soumis_ombriere",
	{"gte_1000kWc", "aire_non_arti"}:   "cas_par_cas_ombriere",
	{"gte_1000kWc", "batiment_clos"}:   "non_soumis_toiture",
	{"gte_1000kWc", "batiment_ouvert"}: "systematique_toiture",
	{"gte_1000kWc", "aucun"}:           "non_soumis",
}

var eePhotovoltaiqueResults = moulinette.ResultMatrix{
	"non_soumis":           moulinette.ResultNonSoumis,
	"non_soumis_ombriere":  moulinette.ResultNonSoumis,
	"non_soumis_toiture":   moulinette.ResultNonSoumis,
	"cas_par_cas_sol":      moulinette.ResultCasParCas,
	"cas_par_cas_toiture":  moulinette.ResultCasParCas,
	"cas_par_cas_ombriere": moulinette.ResultCasParCas,
	"systematique_sol":     moulinette.ResultSystematique,
	"systematique_toiture": moulinette.ResultSystematique,
}

func (eePhotovoltaique) Slug() string { return "evalenv.photovoltaique" }

func (eePhotovoltaique) Evaluate(ctx *moulinette.Context) (moulinette.Evaluation, error) {
	puissance := ctx.Catalog.StringDefault("evalenv_rubrique_30-puissance", "lt_300kWc")
	localisation := ctx.Catalog.StringDefault("evalenv_rubrique_30-localisation", "aucun")

	code, ok := eePhotovoltaiqueCodes[pair{puissance, localisation}]
	if !ok {
		code = "non_soumis"
	}
	return evaluation(code, eePhotovoltaiqueResults, nil)
}

func init() {
	register("evalenv.emprise", func(map[string]any) (moulinette.Evaluator, error) {
		return eeEmprise{}, nil
	})
	register("evalenv.surface_plancher", func(map[string]any) (moulinette.Evaluator, error) {
		return eeSurfacePlancher{}, nil
	})
	register("evalenv.terrain_assiette", func(map[string]any) (moulinette.Evaluator, error) {
		return eeTerrainAssiette{}, nil
	})
	register("evalenv.photovoltaique", func(map[string]any) (moulinette.Evaluator, error) {
		return eePhotovoltaique{}, nil
	})

	for _, bucket := range []string{"40000", "10000", "0"} {
		for _, zoneU := range []string{"oui", "non"} {
			code, ok := eeEmpriseCodes[pair{bucket, zoneU}]
			if !ok {
				panic("emprise code matrix misses " + bucket + "/" + zoneU)
			}
			evalenvResults.MustResolve(code)
		}
	}
	for _, code := range eePhotovoltaiqueCodes {
		eePhotovoltaiqueResults.MustResolve(code)
	}
}
