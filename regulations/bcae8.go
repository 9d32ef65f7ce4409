package regulations

import (
	"github.com/envergo/moulinette/moulinette"
)

// bcae8 implements the PAC conditionality rule on hedge maintenance
// (BCAE 8). The decision tree is kept explicit rather than flattened into
// a matrix: the input space is wide and most branches share outcomes.
type bcae8 struct{}

var bcae8Results = moulinette.ResultMatrix{
	"non_soumis":                   moulinette.ResultNonSoumis,
	"non_soumis_petit":             moulinette.ResultNonSoumis,
	"soumis_remplacement":          moulinette.ResultSoumis,
	"soumis_transfert_parcelles":   moulinette.ResultSoumis,
	"soumis_meilleur_emplacement":  moulinette.ResultSoumis,
	"soumis_chemin_acces":          moulinette.ResultSoumis,
	"soumis_amenagement":           moulinette.ResultSoumis,
	"soumis_autre":                 moulinette.ResultSoumis,
	"interdit_transfert_parcelles": moulinette.ResultInterdit,
	"interdit_chemin_acces":        moulinette.ResultInterdit,
	"interdit_amenagement":         moulinette.ResultInterdit,
	"interdit_autre":               moulinette.ResultInterdit,
}

// bcae8R holds the per-code replantation coefficient contributed to the
// plantation check. Prefect-ordered removals (fire, sanitary, ditch) carry
// no replantation duty.
var bcae8R = map[string]float64{
	"non_soumis":                   0,
	"non_soumis_petit":             1,
	"soumis_remplacement":          1,
	"soumis_transfert_parcelles":   1,
	"soumis_meilleur_emplacement":  1,
	"soumis_chemin_acces":          1,
	"soumis_amenagement":           1,
	"soumis_autre":                 0,
	"interdit_transfert_parcelles": 1,
	"interdit_chemin_acces":        1,
	"interdit_amenagement":         1,
	"interdit_autre":               1,
}

func (bcae8) Slug() string { return "conditionnalite_pac.bcae8" }

func (bcae8) Evaluate(ctx *moulinette.Context) (moulinette.Evaluation, error) {
	cat := ctx.Catalog
	profil := cat.StringDefault("profil", "autre")
	motif := cat.StringDefault("motif", "autre")
	reimplantation := cat.StringDefault("reimplantation", "non")
	motifQC := cat.StringDefault("motif_qc", "aucun")
	amenagementDup := cat.StringDefault("amenagement_dup", "non")

	var removed, removedPac, total float64
	if ctx.Hedges != nil {
		removed = ctx.Hedges.LengthToRemove()
		removedPac = ctx.Hedges.LengthToRemovePac()
	}
	total = floatValue(cat, "lineaire_total")

	// The small-destruction exception is measured on PAC parcels only.
	// With no declared total linear the 2% branch cannot apply.
	isPetit := removedPac <= 5 || (total > 0 && removedPac <= 0.02*total)

	code := bcae8Code(profil, motif, reimplantation, motifQC, amenagementDup, isPetit, removed)
	return evaluation(code, bcae8Results, map[string]any{
		"lineaire_detruit":     removed,
		"lineaire_detruit_pac": removedPac,
		"is_petit":             isPetit,
	})
}

func bcae8Code(profil, motif, reimplantation, motifQC, amenagementDup string, isPetit bool, removed float64) string {
	if profil != "agri_pac" {
		return "non_soumis"
	}

	cheminAcces := func() string {
		if removed <= 10 {
			return "soumis_chemin_acces"
		}
		return "interdit_chemin_acces"
	}
	prefectOrder := func() string {
		if motifQC == "aucun" {
			return "interdit_autre"
		}
		return "soumis_autre"
	}
	amenagement := func() string {
		if amenagementDup == "oui" {
			return "soumis_amenagement"
		}
		return "interdit_amenagement"
	}

	switch reimplantation {
	case "remplacement":
		if isPetit {
			return "non_soumis_petit"
		}
		return "soumis_remplacement"

	case "replantation", "renforcement", "reconnexion":
		if isPetit {
			return "non_soumis_petit"
		}
		switch motif {
		case "transfert_parcelles", "amelioration_culture":
			return "soumis_transfert_parcelles"
		case "amelioration_ecologique":
			return "soumis_meilleur_emplacement"
		case "chemin_acces":
			return cheminAcces()
		case "amenagement":
			return amenagement()
		default: // securite, embellissement, autre
			return prefectOrder()
		}

	default: // reimplantation=non
		switch motif {
		case "chemin_acces":
			return cheminAcces()
		case "amenagement":
			return amenagement()
		case "securite", "embellissement", "autre":
			return prefectOrder()
		default: // transfert_parcelles, amelioration_culture, amelioration_ecologique
			return "interdit_transfert_parcelles"
		}
	}
}

// ReplantationCoefficient scales the per-code coefficient by the PAC share
// of the removal: only hedges on PAC parcels owe BCAE 8 compensation.
func (bcae8) ReplantationCoefficient(ctx *moulinette.Context, ev moulinette.Evaluation) float64 {
	base := bcae8R[ev.ResultCode]
	if base == 0 || ctx.Hedges == nil {
		return 0
	}
	removed := ctx.Hedges.LengthToRemove()
	if removed <= 0 {
		return 0
	}
	return base * ctx.Hedges.LengthToRemovePac() / removed
}

func init() {
	register("conditionnalite_pac.bcae8", func(map[string]any) (moulinette.Evaluator, error) {
		return bcae8{}, nil
	})
	for code := range bcae8R {
		bcae8Results.MustResolve(code)
	}
}
