// Package plantation decides whether the replacement hedges of a removal
// project are adequate: enough linear planted, of the right types, at safe
// locations, against the replantation coefficient the regulations demand.
package plantation

import (
	"math"

	"github.com/envergo/moulinette/hedges"
)

// Condition identifiers, also used as keys in the output.
const (
	CondMinLength      = "length_to_plant"
	CondMinLengthPac   = "length_to_plant_pac"
	CondSafety         = "do_not_plant_under_power_line"
	CondQuality        = "quality"
	CondTreeAlignments = "tree_alignments"
	CondStrengthening  = "strengthening"
)

// ConditionResult is the outcome of one acceptability condition.
type ConditionResult struct {
	Condition string         `json:"condition"`
	Result    bool           `json:"result"`
	Context   map[string]any `json:"context,omitempty"`
}

// conditionInput carries everything the conditions consult.
type conditionInput struct {
	hedges         *hedges.Set
	r              float64
	reimplantation string

	// minLengthAARoadside is the roadside tree alignment replacement
	// minimum taken from the alignement_arbres evaluation.
	minLengthAARoadside float64
	hasAlignementArbres bool
}

// minLengthCondition: total planted linear must reach R times the removed
// linear.
func minLengthCondition(in conditionInput) (ConditionResult, bool) {
	toPlant := in.hedges.LengthToPlant()
	toRemove := in.hedges.LengthToRemove()
	minimum := in.r * toRemove

	return ConditionResult{
		Condition: CondMinLength,
		Result:    toPlant >= minimum,
		Context: map[string]any{
			"R":                       in.r,
			"length_to_plant":         toPlant,
			"length_to_remove":        toRemove,
			"minimum_length_to_plant": minimum,
			"left_to_plant":           math.Max(0, minimum-toPlant),
		},
	}, true
}

// minLengthPacCondition: the PAC linear must be replanted meter for meter.
// R is ignored on PAC parcels unless it is zero.
func minLengthPacCondition(in conditionInput) (ConditionResult, bool) {
	rPac := 0.0
	if in.r > 0 {
		rPac = 1
	}
	toPlant := in.hedges.LengthToPlantPac()
	minimum := in.hedges.LengthToRemovePac() * rPac

	return ConditionResult{
		Condition: CondMinLengthPac,
		Result:    toPlant >= minimum,
		Context: map[string]any{
			"length_to_plant_pac":         toPlant,
			"minimum_length_to_plant_pac": minimum,
			"left_to_plant_pac":           math.Max(0, minimum-toPlant),
		},
	}, true
}

// safetyCondition: no high-growing hedge (alignement, mixte) planted under
// a power line.
func safetyCondition(in conditionInput) (ConditionResult, bool) {
	unsafe := in.hedges.Filter(hedges.ToPlant, func(h hedges.Hedge) bool {
		kind := h.Properties.Kind
		return (kind == hedges.KindAlignement || kind == hedges.KindMixte) && h.Properties.UnderPowerLine
	})

	ids := make([]string, 0, len(unsafe))
	for _, h := range unsafe {
		ids = append(ids, h.ID)
	}
	return ConditionResult{
		Condition: CondSafety,
		Result:    len(unsafe) == 0,
		Context:   map[string]any{"unsafe_hedges": ids},
	}, true
}

// treeAlignmentsCondition: roadside tree alignments have their own
// replacement minimum, settled along the road.
func treeAlignmentsCondition(in conditionInput) (ConditionResult, bool) {
	if !in.hasAlignementArbres {
		return ConditionResult{}, false
	}
	toPlant := hedges.Length(in.hedges.Filter(hedges.ToPlant, hedges.RoadsideAlignment))
	delta := in.minLengthAARoadside - toPlant

	return ConditionResult{
		Condition: CondTreeAlignments,
		Result:    delta <= 0,
		Context: map[string]any{
			"length_to_plant_aa_bord_voie":         toPlant,
			"minimum_length_to_plant_aa_bord_voie": in.minLengthAARoadside,
			"aa_bord_voie_delta":                   math.Max(0, delta),
		},
	}, true
}

// strengtheningCondition: strengthening and regarnishing can stand in for
// at most 20% of the minimum plantation. Replacing in place makes the
// question moot.
func strengtheningCondition(in conditionInput) (ConditionResult, bool) {
	if in.reimplantation == "remplacement" {
		return ConditionResult{}, false
	}

	strengthening := hedges.Length(in.hedges.Filter(hedges.ToPlant, func(h hedges.Hedge) bool {
		return h.Properties.StrengtheningOnly
	}))
	maximum := 0.2 * in.r * in.hedges.LengthToRemove()

	return ConditionResult{
		Condition: CondStrengthening,
		Result:    strengthening <= maximum,
		Context: map[string]any{
			"strengthening_length": strengthening,
			"strengthening_max":    maximum,
			"strengthening_excess": math.Max(0, strengthening-maximum),
		},
	}, true
}

// plantKinds lists the kinds a petitioner can plant. Degraded hedges are
// not plantable.
var plantKinds = []hedges.Kind{
	hedges.KindBuissonnante, hedges.KindArbustive, hedges.KindAlignement, hedges.KindMixte,
}

// qualityLengths builds the per-kind minimum and planted linears the
// quality check compares.
func qualityLengths(in conditionInput) (minimum, planted map[hedges.Kind]float64) {
	minimum = make(map[hedges.Kind]float64, len(hedges.Kinds))
	for kind, length := range hedges.LengthsByKind(in.hedges.ToRemove()) {
		minimum[kind] = in.r * length
	}
	planted = make(map[hedges.Kind]float64, len(plantKinds))
	for kind, length := range hedges.LengthsByKind(in.hedges.ToPlant()) {
		if kind != hedges.KindDegradee {
			planted[kind] = length
		}
	}
	return minimum, planted
}

// qualityMissing computes the per-kind missing plantation. A destroyed
// hedge must be compensated by a hedge of at least equal ecological value:
// mixte by mixte; alignement by alignement or mixte; arbustive by
// arbustive; buissonnante by buissonnante or arbustive; degradee by
// buissonnante, arbustive or mixte. Surplus of a better kind absorbs the
// deficit of the kinds below it.
func qualityMissing(minimum, planted map[hedges.Kind]float64) map[hedges.Kind]float64 {
	surplus := func(k hedges.Kind) float64 {
		return math.Max(0, planted[k]-minimum[k])
	}
	deficit := func(k hedges.Kind) float64 {
		return math.Max(0, minimum[k]-planted[k])
	}

	mixteForAlignement := surplus(hedges.KindMixte)
	mixteForDegradee := math.Max(0, surplus(hedges.KindMixte)-deficit(hedges.KindAlignement))
	arbustiveForBuissonnante := surplus(hedges.KindArbustive)
	arbustiveForDegradee := math.Max(0, surplus(hedges.KindArbustive)-deficit(hedges.KindBuissonnante))
	buissonnanteForDegradee := surplus(hedges.KindBuissonnante)

	return map[hedges.Kind]float64{
		hedges.KindMixte:      deficit(hedges.KindMixte),
		hedges.KindAlignement: math.Max(0, minimum[hedges.KindAlignement]-planted[hedges.KindAlignement]-mixteForAlignement),
		hedges.KindArbustive:  deficit(hedges.KindArbustive),
		hedges.KindBuissonnante: math.Max(0,
			minimum[hedges.KindBuissonnante]-planted[hedges.KindBuissonnante]-arbustiveForBuissonnante),
		hedges.KindDegradee: math.Max(0,
			minimum[hedges.KindDegradee]-mixteForDegradee-arbustiveForDegradee-buissonnanteForDegradee),
	}
}
