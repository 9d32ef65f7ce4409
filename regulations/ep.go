package regulations

import (
	"fmt"

	"github.com/envergo/moulinette/geo"
	"github.com/envergo/moulinette/hedges"
	"github.com/envergo/moulinette/moulinette"
)

// Protected species (espèces protégées) criteria. Hedges shelter protected
// fauna; destroying one needs at least a screening, at worst a derogation.

// epSimple is the default protected species criterion: hedge destruction
// is always subject to screening.
type epSimple struct{}

func (epSimple) Slug() string { return "ep.ep_simple" }

func (epSimple) Evaluate(ctx *moulinette.Context) (moulinette.Evaluation, error) {
	return evaluation("soumis", moulinette.ResultMatrix{"soumis": moulinette.ResultSoumis}, nil)
}

// epAisne keys on whether the removal is replanted and whether highly
// sensitive species live in the hedges.
type epAisne struct{}

var epAisneResults = moulinette.ResultMatrix{
	"interdit":              moulinette.ResultInterdit,
	"derogation_inventaire": moulinette.ResultDerogationInventaire,
	"derogation_simplifiee": moulinette.ResultDerogationSimplifiee,
}

func (epAisne) Slug() string { return "ep.ep_aisne" }

func (epAisne) Evaluate(ctx *moulinette.Context) (moulinette.Evaluation, error) {
	hasReimplantation := ctx.Catalog.StringDefault("reimplantation", "non") != "non"
	sensitive := ctx.Catalog.StringDefault("especes_sensibles", "non") == "oui"

	var code string
	switch {
	case !hasReimplantation:
		code = "interdit"
	case sensitive:
		code = "derogation_inventaire"
	default:
		code = "derogation_simplifiee"
	}
	return evaluation(code, epAisneResults, nil)
}

func (epAisne) ReplantationCoefficient(ctx *moulinette.Context, ev moulinette.Evaluation) float64 {
	return 1.5
}

// epNormandieKey indexes the Normandie decision matrix: worst per-hedge
// coefficient bucket, whether every hedge is short, whether every removal
// is a clear cut, and the replantation intent.
type epNormandieKey struct {
	rBucket        string
	lte20Every     bool
	clearCutEvery  bool
	reimplantation string
}

var epNormandieCodes = map[epNormandieKey]string{
	{"0", true, false, "non"}:           "dispense_10m",
	{"0", true, false, "remplacement"}:  "dispense_10m",
	{"0", true, false, "replantation"}:  "dispense_10m",
	{"0", true, true, "non"}:            "dispense_10m",
	{"0", true, true, "remplacement"}:   "dispense_10m",
	{"0", true, true, "replantation"}:   "dispense_10m",
	{"0", false, false, "non"}:          "dispense_10m",
	{"0", false, false, "remplacement"}: "dispense_10m",
	{"0", false, false, "replantation"}: "dispense_10m",
	{"0", false, true, "non"}:           "dispense_10m",
	{"0", false, true, "remplacement"}:  "dispense_10m",
	{"0", false, true, "replantation"}:  "dispense_10m",

	{"lte_1", true, false, "non"}:           "interdit",
	{"lte_1", true, false, "remplacement"}:  "dispense_20m",
	{"lte_1", true, false, "replantation"}:  "dispense_20m",
	{"lte_1", true, true, "non"}:            "interdit",
	{"lte_1", true, true, "remplacement"}:   "dispense_coupe_a_blanc",
	{"lte_1", true, true, "replantation"}:   "dispense_20m",
	{"lte_1", false, false, "non"}:          "interdit",
	{"lte_1", false, false, "remplacement"}: "dispense",
	{"lte_1", false, false, "replantation"}: "dispense",
	{"lte_1", false, true, "non"}:           "interdit",
	{"lte_1", false, true, "remplacement"}:  "dispense_coupe_a_blanc",
	{"lte_1", false, true, "replantation"}:  "dispense",

	{"gt_1", true, false, "non"}:           "interdit",
	{"gt_1", true, false, "remplacement"}:  "derogation_simplifiee",
	{"gt_1", true, false, "replantation"}:  "derogation_simplifiee",
	{"gt_1", true, true, "non"}:            "interdit",
	{"gt_1", true, true, "remplacement"}:   "dispense_coupe_a_blanc",
	{"gt_1", true, true, "replantation"}:   "derogation_simplifiee",
	{"gt_1", false, false, "non"}:          "interdit",
	{"gt_1", false, false, "remplacement"}: "derogation_simplifiee",
	{"gt_1", false, false, "replantation"}: "derogation_simplifiee",
	{"gt_1", false, true, "non"}:           "interdit",
	{"gt_1", false, true, "remplacement"}:  "dispense_coupe_a_blanc",
	{"gt_1", false, true, "replantation"}:  "derogation_simplifiee",
}

var epNormandieResults = moulinette.ResultMatrix{
	"interdit":               moulinette.ResultInterdit,
	"derogation_simplifiee":  moulinette.ResultDerogationSimplifiee,
	"dispense_coupe_a_blanc": moulinette.ResultDispenseSousCond,
	"dispense_20m":           moulinette.ResultDispenseSousCond,
	"dispense_10m":           moulinette.ResultDispense,
	"dispense_L350":          moulinette.ResultDispenseSousCond,
	"dispense":               moulinette.ResultDispenseSousCond,
	"a_verifier_L350":        moulinette.ResultAVerifier,
}

// Density ratio ranges, from the densest landscapes to the sparsest.
var epNormandieRanges = []string{
	"gt_1.6", "gt_1.2_lte_1.6", "gte_0.8_lte_1.2", "gte_0.5_lt_0.8", "lt_0.5",
}

// Normandie natural-area groups. Group 1 is the bocage under the heaviest
// pressure; absent covers removals outside any mapped group.
var epNormandieZones = []string{
	"normandie_groupe_1", "normandie_groupe_2", "normandie_groupe_3",
	"normandie_groupe_4", "normandie_groupe_5", "normandie_groupe_absent",
}

// epNormandieCoefficients holds the per-hedge compensation coefficient,
// keyed by zone then density ratio range. Each row lists one value per
// hedge kind in the order of hedges.Kinds: degradee, buissonnante,
// arbustive, alignement, mixte.
var epNormandieCoefficients = map[string]map[string][5]float64{
	"normandie_groupe_1": {
		"gt_1.6":          {1.2, 1.4, 1.6, 1.6, 1.8},
		"gt_1.2_lte_1.6":  {1.4, 1.6, 1.8, 1.8, 2},
		"gte_0.8_lte_1.2": {1.6, 1.8, 2, 2, 2.2},
		"gte_0.5_lt_0.8":  {1.8, 2, 2.5, 2.5, 3},
		"lt_0.5":          {2.2, 2.6, 3.2, 3.2, 3.5},
	},
	"normandie_groupe_2": {
		"gt_1.6":          {1, 1, 1.4, 1.4, 1.6},
		"gt_1.2_lte_1.6":  {1.2, 1.4, 1.6, 1.6, 1.8},
		"gte_0.8_lte_1.2": {1.4, 1.6, 1.8, 1.8, 2},
		"gte_0.5_lt_0.8":  {1.6, 1.8, 2, 2, 2.6},
		"lt_0.5":          {2, 2.2, 2.6, 2.6, 3.2},
	},
	"normandie_groupe_3": {
		"gt_1.6":          {1, 1, 1, 1, 1.2},
		"gt_1.2_lte_1.6":  {1, 1, 1.2, 1.2, 1.4},
		"gte_0.8_lte_1.2": {1, 1.2, 1.4, 1.4, 1.6},
		"gte_0.5_lt_0.8":  {1.4, 1.6, 1.8, 1.8, 2.2},
		"lt_0.5":          {1.8, 2, 2.2, 2.2, 2.6},
	},
	"normandie_groupe_4": {
		"gt_1.6":          {1, 1, 1, 1, 1},
		"gt_1.2_lte_1.6":  {1, 1, 1, 1, 1.2},
		"gte_0.8_lte_1.2": {1, 1, 1.2, 1.2, 1.4},
		"gte_0.5_lt_0.8":  {1.2, 1.4, 1.6, 1.6, 1.8},
		"lt_0.5":          {1.6, 1.8, 2, 2, 2.2},
	},
	"normandie_groupe_5": {
		"gt_1.6":          {1, 1, 1, 1, 1},
		"gt_1.2_lte_1.6":  {1, 1, 1, 1, 1},
		"gte_0.8_lte_1.2": {1, 1, 1, 1, 1.2},
		"gte_0.5_lt_0.8":  {1, 1.2, 1.4, 1.4, 1.6},
		"lt_0.5":          {1.4, 1.6, 1.8, 1.8, 2},
	},
	"normandie_groupe_absent": {
		"gt_1.6":          {1, 1, 1, 1, 1.2},
		"gt_1.2_lte_1.6":  {1, 1, 1.2, 1.2, 1.4},
		"gte_0.8_lte_1.2": {1, 1.2, 1.4, 1.4, 1.6},
		"gte_0.5_lt_0.8":  {1.4, 1.6, 1.8, 1.8, 2.2},
		"lt_0.5":          {1.8, 2, 2.2, 2.2, 2.6},
	},
}

// hedgeCoefficient reads the coefficient grid for one hedge kind. Unknown
// zones fall back to the absent group.
func hedgeCoefficient(kind hedges.Kind, ratioRange, zone string) float64 {
	rows, ok := epNormandieCoefficients[zone]
	if !ok {
		rows = epNormandieCoefficients["normandie_groupe_absent"]
	}
	row := rows[ratioRange]
	for i, k := range hedges.Kinds {
		if k == kind {
			return row[i]
		}
	}
	return 1
}

// epNormandie is the Normandie protected species criterion. Each removed
// hedge gets its own compensation coefficient; the matrix outcome depends
// on the worst of them and on hedge-wide properties. When every removed
// hedge is a roadside alignement, the L350-3 outcome supersedes this
// criterion's own matrix.
type epNormandie struct{}

func (epNormandie) Slug() string { return "ep.ep_normandie" }

func (epNormandie) Requires() []moulinette.CriterionRef {
	return []moulinette.CriterionRef{{Regulation: "alignement_arbres", Criterion: "alignement_arbres"}}
}

// densityRatioRange buckets the exploitation-to-landscape density ratio.
func densityRatioRange(ratio float64) string {
	switch {
	case ratio > 1.6:
		return "gt_1.6"
	case ratio > 1.2:
		return "gt_1.2_lte_1.6"
	case ratio >= 0.8:
		return "gte_0.8_lte_1.2"
	case ratio >= 0.5:
		return "gte_0.5_lt_0.8"
	default:
		return "lt_0.5"
	}
}

// normandieZoneID finds the natural-area group containing the removal
// centroid on the zonage maps.
func normandieZoneID(ctx *moulinette.Context) (string, error) {
	const fallback = "normandie_groupe_absent"
	if ctx.Hedges == nil || ctx.Index == nil {
		return fallback, nil
	}
	centroid, ok := ctx.Hedges.RemovalCentroid()
	if !ok {
		return fallback, nil
	}
	zones, err := ctx.Index.ZonesIntersecting(centroid, geo.ZoneFilter{MapType: geo.MapZonage})
	if err != nil {
		return "", err
	}
	for _, z := range zones {
		if id, ok := z.Attributes["identifiant_zone"]; ok && id != "" {
			return id, nil
		}
	}
	return fallback, nil
}

func (e epNormandie) Evaluate(ctx *moulinette.Context) (moulinette.Evaluation, error) {
	if ctx.Hedges == nil {
		return moulinette.Evaluation{}, fmt.Errorf("ep_normandie: no hedges to evaluate")
	}

	densityExploitation := floatValue(ctx.Catalog, "exploitation_density")
	if densityExploitation == 0 && ctx.Catalog.Provides("density_200") {
		// No declared figure: measure the density around the removal
		// site instead.
		v, err := ctx.Catalog.Get("density_200")
		if err != nil {
			return moulinette.Evaluation{}, err
		}
		if d, ok := v.(hedges.Density); ok {
			densityExploitation = d.Ratio
		}
	}
	ratio := 1.0
	if densityExploitation > 0 {
		v, err := ctx.Catalog.Get("density_5000")
		if err != nil {
			return moulinette.Evaluation{}, err
		}
		// A zero landscape density is an edge case (sea, bare plain); the
		// average ratio of 1 applies.
		if d, ok := v.(hedges.Density); ok && d.Ratio != 0 {
			ratio = densityExploitation / d.Ratio
		}
	}
	ratioRange := densityRatioRange(ratio)

	zoneID, err := normandieZoneID(ctx)
	if err != nil {
		return moulinette.Evaluation{}, err
	}

	reimplantation := ctx.Catalog.StringDefault("reimplantation", "non")
	matrixReimplantation := reimplantation
	switch reimplantation {
	case "renforcement", "reconnexion":
		matrixReimplantation = "replantation"
	}

	clearCutEvery := true
	roadsideEvery := true
	lte20Every := true
	var rMax, minimumLength float64

	removed := ctx.Hedges.ToRemove()
	for _, h := range removed {
		if !h.IsClearCut() {
			clearCutEvery = false
		}
		if !hedges.RoadsideAlignment(h) {
			roadsideEvery = false
		}
		length := h.Length()
		if length > 20 {
			lte20Every = false
		}

		var r float64
		switch {
		case length <= 10:
			r = 0
		case h.Properties.NonBocageSpecies:
			r = 1
		case length <= 20:
			r = 1
		case matrixReimplantation == "remplacement" && h.IsClearCut():
			r = 1
		default:
			r = hedgeCoefficient(h.Properties.Kind, ratioRange, zoneID)
		}
		if r > rMax {
			rMax = r
		}
		minimumLength += length * r
	}

	aggregatedR := 0.0
	if total := hedges.Length(removed); total > 0 {
		aggregatedR = minimumLength / total
	}

	rBucket := "gt_1"
	switch {
	case rMax == 0:
		rBucket = "0"
	case rMax <= 1:
		rBucket = "lte_1"
	}

	roadsideEvery = roadsideEvery && len(removed) > 0
	code, err := e.resultCode(ctx, epNormandieKey{rBucket, lte20Every, clearCutEvery, matrixReimplantation}, roadsideEvery)
	if err != nil {
		return moulinette.Evaluation{}, err
	}

	return evaluation(code, epNormandieResults, map[string]any{
		"aggregated_r":  aggregatedR,
		"r_max":         rMax,
		"density_ratio": ratio,
		"density_zone":  zoneID,
	})
}

// resultCode applies the L350-3 cross-read before falling back to the
// matrix: a removal made only of roadside alignements follows the tree
// alignment regulation's outcome.
func (epNormandie) resultCode(ctx *moulinette.Context, key epNormandieKey, roadsideEvery bool) (string, error) {
	ref := moulinette.CriterionRef{Regulation: "alignement_arbres", Criterion: "alignement_arbres"}
	if roadsideEvery && ctx.Config != nil && ctx.Config.Regulation("alignement_arbres") != nil {
		if !ctx.HasRegulationResult("alignement_arbres") {
			_, err := ctx.ResultOf(ref)
			return "", err
		}
		// The criterion may be configured yet inactive here; the matrix
		// then decides as usual.
		if ctx.HasResult(ref) {
			aa, err := ctx.ResultOf(ref)
			if err != nil {
				return "", err
			}
			switch aa.ResultCode {
			case "soumis_securite":
				return "dispense_L350", nil
			case "soumis_esthetique", "soumis_autorisation":
				return "a_verifier_L350", nil
			}
		}
	}

	code, ok := epNormandieCodes[key]
	if !ok {
		return "", fmt.Errorf("ep_normandie: no code for %+v", key)
	}
	return code, nil
}

// ReplantationCoefficient returns the aggregated per-hedge coefficient.
// L350-3 outcomes fix it to 1.
func (epNormandie) ReplantationCoefficient(ctx *moulinette.Context, ev moulinette.Evaluation) float64 {
	if ev.ResultCode == "dispense_L350" || ev.ResultCode == "a_verifier_L350" {
		return 1.0
	}
	if r, ok := ev.Context["aggregated_r"].(float64); ok {
		return r
	}
	return 0
}

func init() {
	register("ep.ep_simple", func(map[string]any) (moulinette.Evaluator, error) {
		return epSimple{}, nil
	})
	register("ep.ep_aisne", func(map[string]any) (moulinette.Evaluator, error) {
		return epAisne{}, nil
	})
	register("ep.ep_normandie", func(map[string]any) (moulinette.Evaluator, error) {
		return epNormandie{}, nil
	})

	for _, bucket := range []string{"0", "lte_1", "gt_1"} {
		for _, lte20 := range []bool{true, false} {
			for _, clearCut := range []bool{true, false} {
				for _, reimplantation := range []string{"non", "remplacement", "replantation"} {
					code, ok := epNormandieCodes[epNormandieKey{bucket, lte20, clearCut, reimplantation}]
					if !ok {
						panic(fmt.Sprintf("ep normandie code matrix misses %s/%v/%v/%s", bucket, lte20, clearCut, reimplantation))
					}
					epNormandieResults.MustResolve(code)
				}
			}
		}
	}
	for _, zone := range epNormandieZones {
		rows, ok := epNormandieCoefficients[zone]
		if !ok {
			panic("ep normandie coefficient matrix misses zone " + zone)
		}
		for _, r := range epNormandieRanges {
			if _, ok := rows[r]; !ok {
				panic("ep normandie coefficient matrix misses " + zone + "/" + r)
			}
		}
	}
}
