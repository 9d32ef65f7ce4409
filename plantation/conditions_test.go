package plantation

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envergo/moulinette/hedges"
)

// testHedge builds a hedge of roughly lengthM meters near Caen.
func testHedge(id string, typ hedges.Type, kind hedges.Kind, lengthM float64) hedges.Hedge {
	const lat = 49.18
	dLng := lengthM / (111320 * 0.654)
	return hedges.Hedge{
		ID:       id,
		Type:     typ,
		Geometry: orb.LineString{{-0.37, lat}, {-0.37 + dLng, lat}},
		Properties: hedges.Properties{
			Kind: kind,
		},
	}
}

func testSet(t *testing.T, hs ...hedges.Hedge) *hedges.Set {
	t.Helper()
	s, err := hedges.NewSet(hs)
	require.NoError(t, err)
	return s
}

func TestMinLengthCondition(t *testing.T) {
	// 100m removed at R=1.5 requires 150m planted.
	in := conditionInput{
		r: 1.5,
		hedges: testSet(t,
			testHedge("D1", hedges.ToRemove, hedges.KindMixte, 100),
			testHedge("P1", hedges.ToPlant, hedges.KindMixte, 160),
		),
	}
	cr, applicable := minLengthCondition(in)
	require.True(t, applicable)
	assert.True(t, cr.Result)
	assert.InDelta(t, 150, cr.Context["minimum_length_to_plant"].(float64), 4)
	assert.Zero(t, cr.Context["left_to_plant"].(float64))

	in.hedges = testSet(t,
		testHedge("D1", hedges.ToRemove, hedges.KindMixte, 100),
		testHedge("P1", hedges.ToPlant, hedges.KindMixte, 100),
	)
	cr, _ = minLengthCondition(in)
	assert.False(t, cr.Result)
	assert.InDelta(t, 50, cr.Context["left_to_plant"].(float64), 4)
}

func TestMinLengthPacCondition(t *testing.T) {
	onPac := testHedge("D1", hedges.ToRemove, hedges.KindMixte, 100)
	onPac.Properties.OnPacParcel = true
	plantedPac := testHedge("P1", hedges.ToPlant, hedges.KindMixte, 100)
	plantedPac.Properties.OnPacParcel = true

	// PAC removal is replanted meter for meter even when R exceeds 1.
	in := conditionInput{r: 2, hedges: testSet(t, onPac, plantedPac)}
	cr, applicable := minLengthPacCondition(in)
	require.True(t, applicable)
	assert.True(t, cr.Result)
	assert.InDelta(t, 100, cr.Context["minimum_length_to_plant_pac"].(float64), 3)

	// A zero coefficient waives the PAC minimum too.
	shortPlant := testHedge("P1", hedges.ToPlant, hedges.KindMixte, 10)
	in = conditionInput{r: 0, hedges: testSet(t, onPac, shortPlant)}
	cr, _ = minLengthPacCondition(in)
	assert.True(t, cr.Result)
	assert.Zero(t, cr.Context["minimum_length_to_plant_pac"].(float64))
}

func TestSafetyCondition(t *testing.T) {
	unsafe := testHedge("P1", hedges.ToPlant, hedges.KindMixte, 50)
	unsafe.Properties.UnderPowerLine = true
	lowGrowing := testHedge("P2", hedges.ToPlant, hedges.KindBuissonnante, 50)
	lowGrowing.Properties.UnderPowerLine = true

	in := conditionInput{hedges: testSet(t, unsafe, lowGrowing)}
	cr, applicable := safetyCondition(in)
	require.True(t, applicable)
	assert.False(t, cr.Result)
	assert.Equal(t, []string{"P1"}, cr.Context["unsafe_hedges"])

	// Bushy hedges may grow under a power line.
	in = conditionInput{hedges: testSet(t, lowGrowing)}
	cr, _ = safetyCondition(in)
	assert.True(t, cr.Result)
}

func TestTreeAlignmentsCondition(t *testing.T) {
	in := conditionInput{hedges: testSet(t)}
	_, applicable := treeAlignmentsCondition(in)
	assert.False(t, applicable, "without an alignement_arbres evaluation the condition does not apply")

	planted := testHedge("P1", hedges.ToPlant, hedges.KindAlignement, 100)
	planted.Properties.Roadside = true
	in = conditionInput{
		hedges:              testSet(t, planted),
		hasAlignementArbres: true,
		minLengthAARoadside: 90,
	}
	cr, applicable := treeAlignmentsCondition(in)
	require.True(t, applicable)
	assert.True(t, cr.Result)

	in.minLengthAARoadside = 150
	cr, _ = treeAlignmentsCondition(in)
	assert.False(t, cr.Result)
	assert.InDelta(t, 50, cr.Context["aa_bord_voie_delta"].(float64), 4)
}

func TestStrengtheningCondition(t *testing.T) {
	strengthening := testHedge("P1", hedges.ToPlant, hedges.KindMixte, 30)
	strengthening.Properties.StrengtheningOnly = true
	fresh := testHedge("P2", hedges.ToPlant, hedges.KindMixte, 100)
	removed := testHedge("D1", hedges.ToRemove, hedges.KindMixte, 100)

	// At R=1, 30m of strengthening exceeds the 20m cap (20% of 100m).
	in := conditionInput{r: 1, hedges: testSet(t, strengthening, fresh, removed)}
	cr, applicable := strengtheningCondition(in)
	require.True(t, applicable)
	assert.False(t, cr.Result)
	assert.InDelta(t, 10, cr.Context["strengthening_excess"].(float64), 2)

	// At R=2 the cap doubles.
	in.r = 2
	cr, _ = strengtheningCondition(in)
	assert.True(t, cr.Result)

	// Replacement in place skips the question.
	in.reimplantation = "remplacement"
	_, applicable = strengtheningCondition(in)
	assert.False(t, applicable)
}

func TestQualityMissing(t *testing.T) {
	tests := []struct {
		name    string
		minimum map[hedges.Kind]float64
		planted map[hedges.Kind]float64
		want    map[hedges.Kind]float64
	}{
		{
			name:    "like for like",
			minimum: map[hedges.Kind]float64{hedges.KindMixte: 100},
			planted: map[hedges.Kind]float64{hedges.KindMixte: 100},
			want:    map[hedges.Kind]float64{},
		},
		{
			name:    "mixte surplus absorbs alignement deficit",
			minimum: map[hedges.Kind]float64{hedges.KindAlignement: 50},
			planted: map[hedges.Kind]float64{hedges.KindMixte: 60},
			want:    map[hedges.Kind]float64{},
		},
		{
			name:    "alignement cannot stand in for mixte",
			minimum: map[hedges.Kind]float64{hedges.KindMixte: 50},
			planted: map[hedges.Kind]float64{hedges.KindAlignement: 80},
			want:    map[hedges.Kind]float64{hedges.KindMixte: 50},
		},
		{
			name:    "arbustive covers buissonnante",
			minimum: map[hedges.Kind]float64{hedges.KindBuissonnante: 40},
			planted: map[hedges.Kind]float64{hedges.KindArbustive: 40},
			want:    map[hedges.Kind]float64{},
		},
		{
			name:    "buissonnante does not cover arbustive",
			minimum: map[hedges.Kind]float64{hedges.KindArbustive: 40},
			planted: map[hedges.Kind]float64{hedges.KindBuissonnante: 40},
			want:    map[hedges.Kind]float64{hedges.KindArbustive: 40},
		},
		{
			name:    "degradee compensated by any richer kind",
			minimum: map[hedges.Kind]float64{hedges.KindDegradee: 60},
			planted: map[hedges.Kind]float64{hedges.KindBuissonnante: 30, hedges.KindMixte: 30},
			want:    map[hedges.Kind]float64{},
		},
		{
			name: "surplus spent on alignement is gone for degradee",
			minimum: map[hedges.Kind]float64{
				hedges.KindAlignement: 50,
				hedges.KindDegradee:   30,
			},
			planted: map[hedges.Kind]float64{hedges.KindMixte: 60},
			want:    map[hedges.Kind]float64{hedges.KindDegradee: 20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			missing := qualityMissing(tt.minimum, tt.planted)
			for kind, want := range tt.want {
				assert.InDelta(t, want, missing[kind], 0.01, string(kind))
			}
			for kind, got := range missing {
				if _, expected := tt.want[kind]; !expected {
					assert.Zero(t, got, "unexpected deficit for %s", kind)
				}
			}
		})
	}
}

func TestQualityLengthsExcludesDegradeePlantation(t *testing.T) {
	in := conditionInput{
		r: 2,
		hedges: testSet(t,
			testHedge("D1", hedges.ToRemove, hedges.KindBuissonnante, 50),
			testHedge("P1", hedges.ToPlant, hedges.KindDegradee, 80),
			testHedge("P2", hedges.ToPlant, hedges.KindArbustive, 80),
		),
	}
	minimum, planted := qualityLengths(in)
	assert.InDelta(t, 100, minimum[hedges.KindBuissonnante], 3, "R scales the minimum")
	assert.NotContains(t, planted, hedges.KindDegradee, "degraded hedges cannot be planted")
	assert.InDelta(t, 80, planted[hedges.KindArbustive], 3)
}
