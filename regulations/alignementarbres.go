package regulations

import (
	"github.com/envergo/moulinette/hedges"
	"github.com/envergo/moulinette/moulinette"
)

// alignementArbres implements code de l'environnement L350-3: roadside
// tree alignments. The rule only bites when a removed hedge is an
// alignement along a road; the outcome then depends on the removal motive.
type alignementArbres struct{}

var alignementArbresCodes = map[pair]string{
	{"oui", "transfert_parcelles"}:     "soumis_autorisation",
	{"oui", "amelioration_culture"}:    "soumis_autorisation",
	{"oui", "amelioration_ecologique"}: "soumis_autorisation",
	{"oui", "chemin_acces"}:            "soumis_autorisation",
	{"oui", "amenagement"}:             "soumis_autorisation",
	{"oui", "autre"}:                   "soumis_autorisation",
	{"oui", "securite"}:                "soumis_securite",
	{"oui", "embellissement"}:          "soumis_esthetique",
	{"non", "transfert_parcelles"}:     "non_soumis",
	{"non", "amelioration_culture"}:    "non_soumis",
	{"non", "amelioration_ecologique"}: "non_soumis",
	{"non", "chemin_acces"}:            "non_soumis",
	{"non", "amenagement"}:             "non_soumis",
	{"non", "autre"}:                   "non_soumis",
	{"non", "securite"}:                "non_soumis",
	{"non", "embellissement"}:          "non_soumis",
}

var alignementArbresResults = moulinette.ResultMatrix{
	"non_soumis":          moulinette.ResultNonSoumis,
	"soumis_securite":     moulinette.ResultSoumisDeclaration,
	"soumis_esthetique":   moulinette.ResultSoumisDeclaration,
	"soumis_autorisation": moulinette.ResultSoumisAutorisation,
}

func (alignementArbres) Slug() string { return "alignement_arbres.alignement_arbres" }

func (alignementArbres) Evaluate(ctx *moulinette.Context) (moulinette.Evaluation, error) {
	motif := ctx.Catalog.StringDefault("motif", "autre")

	roadside := "non"
	if ctx.Hedges != nil && len(ctx.Hedges.Filter(hedges.ToRemove, hedges.RoadsideAlignment)) > 0 {
		roadside = "oui"
	}

	code, ok := alignementArbresCodes[pair{roadside, motif}]
	if !ok {
		code = alignementArbresCodes[pair{roadside, "autre"}]
	}

	var rate float64
	switch code {
	case "soumis_autorisation":
		rate = 2.0
	case "soumis_securite", "soumis_esthetique":
		rate = 1.0
	}
	var minimum, minimumRoadside float64
	if ctx.Hedges != nil {
		minimum = rate * hedges.Length(ctx.Hedges.Filter(hedges.ToRemove, hedges.OfKind(hedges.KindAlignement)))
		minimumRoadside = rate * hedges.Length(ctx.Hedges.Filter(hedges.ToRemove, hedges.RoadsideAlignment))
	}

	return evaluation(code, alignementArbresResults, map[string]any{
		"minimum_length_to_plant_aa":           minimum,
		"minimum_length_to_plant_aa_bord_voie": minimumRoadside,
	})
}

// ReplantationCoefficient averages the per-hedge coefficient over the
// whole removal: alignements count at the code's rate, other hedges at 0.
func (alignementArbres) ReplantationCoefficient(ctx *moulinette.Context, ev moulinette.Evaluation) float64 {
	if ctx.Hedges == nil {
		return 0
	}
	removed := ctx.Hedges.LengthToRemove()
	if removed <= 0 {
		return 0
	}
	minimum, _ := ev.Context["minimum_length_to_plant_aa"].(float64)
	return minimum / removed
}

func init() {
	register("alignement_arbres.alignement_arbres", func(map[string]any) (moulinette.Evaluator, error) {
		return alignementArbres{}, nil
	})
	for _, code := range alignementArbresCodes {
		alignementArbresResults.MustResolve(code)
	}
}
