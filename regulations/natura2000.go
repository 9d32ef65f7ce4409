package regulations

import (
	"github.com/envergo/moulinette/hedges"
	"github.com/envergo/moulinette/moulinette"
)

// Natura 2000 criteria: évaluation des incidences (EIN) triggers.

// n2000ZoneHumide is the Natura 2000 wetland trigger. The thresholds are
// lower than the water law's, and forbidden wetland maps count as certain.
type n2000ZoneHumide struct{}

var n2000ZoneHumideCodes = map[pair]string{
	{"inside", "big"}:                "soumis",
	{"inside", "small"}:              "non_soumis",
	{"close_to", "big"}:              "action_requise_proche",
	{"close_to", "small"}:            "non_soumis_proche",
	{"inside_potential", "big"}:      "action_requise_dans_doute",
	{"inside_potential", "small"}:    "non_soumis_dans_doute",
	{"inside_wetlands_dpt", "big"}:   "action_requise_tout_dpt",
	{"inside_wetlands_dpt", "small"}: "non_soumis",
	{"outside", "big"}:               "non_concerne",
	{"outside", "small"}:             "non_concerne",
}

var n2000ZoneHumideResults = moulinette.ResultMatrix{
	"soumis":                    moulinette.ResultSoumis,
	"non_soumis":                moulinette.ResultNonSoumis,
	"action_requise_proche":     moulinette.ResultActionRequise,
	"non_soumis_proche":         moulinette.ResultNonSoumis,
	"action_requise_dans_doute": moulinette.ResultActionRequise,
	"non_soumis_dans_doute":     moulinette.ResultNonSoumis,
	"action_requise_tout_dpt":   moulinette.ResultActionRequise,
	"non_concerne":              moulinette.ResultNonConcerne,
}

func (n2000ZoneHumide) Slug() string { return "natura2000.zone_humide" }

func (n2000ZoneHumide) Evaluate(ctx *moulinette.Context) (moulinette.Evaluation, error) {
	var status string
	switch {
	case boolValue(ctx.Catalog, "wetlands_within_25m") || boolValue(ctx.Catalog, "forbidden_wetlands_within_25m"):
		status = "inside"
	case boolValue(ctx.Catalog, "wetlands_within_100m") || boolValue(ctx.Catalog, "forbidden_wetlands_within_100m"):
		status = "close_to"
	case boolValue(ctx.Catalog, "potential_wetlands_within_0m"):
		status = "inside_potential"
	case ctx.Config != nil && ctx.Config.ZHDoubt:
		status = "inside_wetlands_dpt"
	default:
		status = "outside"
	}

	size := "small"
	if floatValue(ctx.Catalog, "created_surface") >= 100 {
		size = "big"
	}

	return evaluation(n2000ZoneHumideCodes[pair{status, size}], n2000ZoneHumideResults,
		map[string]any{"wetland_status": status, "project_size": size})
}

// n2000ZoneInondable is the Natura 2000 flood zone trigger.
type n2000ZoneInondable struct{}

var n2000ZoneInondableResults = moulinette.ResultMatrix{
	"soumis":       moulinette.ResultSoumis,
	"non_soumis":   moulinette.ResultNonSoumis,
	"non_concerne": moulinette.ResultNonConcerne,
}

func (n2000ZoneInondable) Slug() string { return "natura2000.zone_inondable" }

func (n2000ZoneInondable) Evaluate(ctx *moulinette.Context) (moulinette.Evaluation, error) {
	inside := boolValue(ctx.Catalog, "flood_zones_within_12m")
	big := floatValue(ctx.Catalog, "final_surface") >= 200

	var code string
	switch {
	case !inside:
		code = "non_concerne"
	case big:
		code = "soumis"
	default:
		code = "non_soumis"
	}
	return evaluation(code, n2000ZoneInondableResults, nil)
}

// n2000IOTA subjects water-law-regulated projects to EIN. It reads the
// reduced result of the loi_sur_leau regulation, so that regulation must
// carry a lower weight.
type n2000IOTA struct{}

func (n2000IOTA) Slug() string { return "natura2000.iota" }

func (n2000IOTA) Requires() []moulinette.CriterionRef {
	return []moulinette.CriterionRef{{Regulation: "loi_sur_leau"}}
}

func (n2000IOTA) Evaluate(ctx *moulinette.Context) (moulinette.Evaluation, error) {
	iota, err := ctx.ResultOfRegulation("loi_sur_leau")
	if err != nil {
		// No water law regulation in this config: nothing to relay.
		return moulinette.Evaluation{
			ResultCode: "non_disponible",
			Result:     moulinette.ResultNonDisponible,
		}, nil
	}

	var r moulinette.Result
	switch iota {
	case moulinette.ResultSoumis, moulinette.ResultSoumisOuPac:
		r = moulinette.ResultSoumis
	case moulinette.ResultNonSoumis:
		r = moulinette.ResultNonSoumis
	default:
		r = moulinette.ResultIotaAVerifier
	}
	return moulinette.Evaluation{ResultCode: string(r), Result: r}, nil
}

// n2000Lotissement subjects lotissements inside or next to a Natura 2000
// perimeter.
type n2000Lotissement struct{}

var n2000LotissementResults = moulinette.ResultMatrix{
	"soumis_dedans":              moulinette.ResultSoumis,
	"soumis_proximite_immediate": moulinette.ResultSoumis,
	"non_soumis":                 moulinette.ResultNonSoumis,
}

func (n2000Lotissement) Slug() string { return "natura2000.lotissement" }

func (n2000Lotissement) Evaluate(ctx *moulinette.Context) (moulinette.Evaluation, error) {
	isLotissement := ctx.Catalog.StringDefault("is_lotissement", "non")
	position := "proximite_immediate"
	if ctx.Distance <= 0 {
		position = "dedans"
	}

	code := "non_soumis"
	if isLotissement == "oui" {
		code = "soumis_" + position
	}
	return evaluation(code, n2000LotissementResults, map[string]any{"position": position})
}

// n2000AutorisationUrba keys the EIN requirement on the project's planning
// permission regime.
type n2000AutorisationUrba struct{}

var n2000AutorisationUrbaCodes = map[string]string{
	"pa":              "soumis",
	"pc":              "soumis",
	"amenagement_dp":  "soumis",
	"construction_dp": "soumis",
	"none":            "non_soumis",
	"other":           "a_verifier",
}

var n2000AutorisationUrbaResults = moulinette.ResultMatrix{
	"soumis":     moulinette.ResultSoumis,
	"a_verifier": moulinette.ResultAVerifier,
	"non_soumis": moulinette.ResultNonSoumis,
}

func (n2000AutorisationUrba) Slug() string { return "natura2000.autorisation_urba" }

func (n2000AutorisationUrba) Evaluate(ctx *moulinette.Context) (moulinette.Evaluation, error) {
	autorisation := ctx.Catalog.StringDefault("autorisation_urba", "other")

	// Some departments exempt lotissements from the PA rule.
	if ctx.SettingBool("exception_lotissement", false) &&
		autorisation == "pa" && ctx.Catalog.StringDefault("is_lotissement", "non") == "oui" {
		return evaluation("non_soumis", n2000AutorisationUrbaResults, nil)
	}

	code, ok := n2000AutorisationUrbaCodes[autorisation]
	if !ok {
		code = "a_verifier"
	}
	return evaluation(code, n2000AutorisationUrbaResults, nil)
}

// n2000Haie is the hedge-variant trigger. The criterion only runs when a
// hedge intersects the perimeter; removing nothing but tree alignments is
// out of EIN scope.
type n2000Haie struct {
	result string
}

var n2000HaieResults = moulinette.ResultMatrix{
	"soumis":          moulinette.ResultSoumis,
	"non_soumis":      moulinette.ResultNonSoumis,
	"non_concerne_aa": moulinette.ResultNonConcerne,
}

func (n2000Haie) Slug() string { return "natura2000.natura2000_haie" }

func (e n2000Haie) Evaluate(ctx *moulinette.Context) (moulinette.Evaluation, error) {
	if ctx.Hedges == nil {
		return evaluation("non_soumis", n2000HaieResults, nil)
	}
	if hedges.AllOfKind(ctx.Hedges.ToRemove(), hedges.KindAlignement) {
		return evaluation("non_concerne_aa", n2000HaieResults, nil)
	}
	return evaluation(e.result, n2000HaieResults, nil)
}

func init() {
	register("natura2000.zone_humide", func(map[string]any) (moulinette.Evaluator, error) {
		return n2000ZoneHumide{}, nil
	})
	register("natura2000.zone_inondable", func(map[string]any) (moulinette.Evaluator, error) {
		return n2000ZoneInondable{}, nil
	})
	register("natura2000.iota", func(map[string]any) (moulinette.Evaluator, error) {
		return n2000IOTA{}, nil
	})
	register("natura2000.lotissement", func(map[string]any) (moulinette.Evaluator, error) {
		return n2000Lotissement{}, nil
	})
	register("natura2000.autorisation_urba", func(map[string]any) (moulinette.Evaluator, error) {
		return n2000AutorisationUrba{}, nil
	})
	register("natura2000.natura2000_haie", func(settings map[string]any) (moulinette.Evaluator, error) {
		result := "soumis"
		if v, ok := settings["result"].(string); ok && v != "" {
			result = v
		}
		return n2000Haie{result: result}, nil
	})

	for _, status := range []string{"inside", "close_to", "inside_potential", "inside_wetlands_dpt", "outside"} {
		for _, size := range []string{"big", "small"} {
			code, ok := n2000ZoneHumideCodes[pair{status, size}]
			if !ok {
				panic("natura2000 zone humide code matrix misses " + status + "/" + size)
			}
			n2000ZoneHumideResults.MustResolve(code)
		}
	}
}
