package regulations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envergo/moulinette/hedges"
)

func TestAlignementArbres(t *testing.T) {
	roadside := testHedge("D1", hedges.ToRemove, hedges.KindAlignement, 100, false)
	roadside.Properties.Roadside = true
	fieldAlignment := testHedge("D2", hedges.ToRemove, hedges.KindAlignement, 100, false)
	mixte := testHedge("D3", hedges.ToRemove, hedges.KindMixte, 100, false)

	tests := []struct {
		name     string
		hs       []hedges.Hedge
		motif    string
		wantCode string
	}{
		{
			name: "roadside alignment for works",
			hs:   []hedges.Hedge{roadside}, motif: "amenagement",
			wantCode: "soumis_autorisation",
		},
		{
			name: "roadside alignment for safety",
			hs:   []hedges.Hedge{roadside}, motif: "securite",
			wantCode: "soumis_securite",
		},
		{
			name: "roadside alignment for embellishment",
			hs:   []hedges.Hedge{roadside}, motif: "embellissement",
			wantCode: "soumis_esthetique",
		},
		{
			name: "alignment away from a road",
			hs:   []hedges.Hedge{fieldAlignment}, motif: "amenagement",
			wantCode: "non_soumis",
		},
		{
			name: "no alignment at all",
			hs:   []hedges.Hedge{mixte}, motif: "amenagement",
			wantCode: "non_soumis",
		},
		{
			name: "unknown motive falls back to the strict cell",
			hs:   []hedges.Hedge{roadside}, motif: "motif_inconnu",
			wantCode: "soumis_autorisation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := evalCtx(map[string]any{"motif": tt.motif})
			ctx.Hedges = testSet(t, tt.hs...)

			ev, err := alignementArbres{}.Evaluate(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, ev.ResultCode)
		})
	}
}

func TestAlignementArbresMinimumLengths(t *testing.T) {
	roadside := testHedge("D1", hedges.ToRemove, hedges.KindAlignement, 100, false)
	roadside.Properties.Roadside = true
	fieldAlignment := testHedge("D2", hedges.ToRemove, hedges.KindAlignement, 50, false)
	mixte := testHedge("D3", hedges.ToRemove, hedges.KindMixte, 50, false)

	ctx := evalCtx(map[string]any{"motif": "amenagement"})
	ctx.Hedges = testSet(t, roadside, fieldAlignment, mixte)

	ev, err := alignementArbres{}.Evaluate(ctx)
	require.NoError(t, err)
	require.Equal(t, "soumis_autorisation", ev.ResultCode)

	// Authorization doubles the replanting duty on all alignments; the
	// roadside figure only counts the roadside one.
	assert.InDelta(t, 300, ev.Context["minimum_length_to_plant_aa"].(float64), 8)
	assert.InDelta(t, 200, ev.Context["minimum_length_to_plant_aa_bord_voie"].(float64), 6)

	// 300m owed over 200m removed.
	assert.InDelta(t, 1.5, alignementArbres{}.ReplantationCoefficient(ctx, ev), 0.05)
}

func TestAlignementArbresSafetyRate(t *testing.T) {
	roadside := testHedge("D1", hedges.ToRemove, hedges.KindAlignement, 100, false)
	roadside.Properties.Roadside = true

	ctx := evalCtx(map[string]any{"motif": "securite"})
	ctx.Hedges = testSet(t, roadside)

	ev, err := alignementArbres{}.Evaluate(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 100, ev.Context["minimum_length_to_plant_aa"].(float64), 3)
	assert.InDelta(t, 1.0, alignementArbres{}.ReplantationCoefficient(ctx, ev), 0.02)
}
