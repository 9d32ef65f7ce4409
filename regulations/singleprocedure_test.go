package regulations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envergo/moulinette/hedges"
	"github.com/envergo/moulinette/moulinette"
)

func TestRegimeUniqueHaie(t *testing.T) {
	pilot := &moulinette.DepartmentConfig{Department: "44", SingleProcedure: true}
	droitConstant := &moulinette.DepartmentConfig{Department: "14"}

	mixed := testSet(t, testHedge("D1", hedges.ToRemove, hedges.KindMixte, 50, false))
	aaOnly := testSet(t, testHedge("D1", hedges.ToRemove, hedges.KindAlignement, 50, false))

	tests := []struct {
		name     string
		config   *moulinette.DepartmentConfig
		set      *hedges.Set
		wantCode string
	}{
		{"pilot department", pilot, mixed, "soumis"},
		{"pilot department, alignments only", pilot, aaOnly, "non_concerne_aa"},
		{"droit constant", droitConstant, mixed, "non_concerne"},
		{"droit constant, alignments only", droitConstant, aaOnly, "non_concerne"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := evalCtx(nil)
			ctx.Config = tt.config
			ctx.Hedges = tt.set

			ev, err := regimeUniqueHaie{}.Evaluate(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, ev.ResultCode)
		})
	}
}

func TestRegimeUniqueReplantationCoefficient(t *testing.T) {
	ctx := evalCtx(nil)
	ctx.Config = &moulinette.DepartmentConfig{
		Department:      "44",
		SingleProcedure: true,
		SingleProcedureSettings: moulinette.SingleProcedureSettings{
			CoeffCompensation: map[string]float64{
				"mixte":        2,
				"buissonnante": 1,
			},
		},
	}
	// 100m mixte at 2, 100m buissonnante at 1, 100m alignement excluded.
	ctx.Hedges = testSet(t,
		testHedge("D1", hedges.ToRemove, hedges.KindMixte, 100, false),
		testHedge("D2", hedges.ToRemove, hedges.KindBuissonnante, 100, false),
		testHedge("D3", hedges.ToRemove, hedges.KindAlignement, 100, false),
	)

	ev, err := regimeUniqueHaie{}.Evaluate(ctx)
	require.NoError(t, err)

	r := regimeUniqueHaie{}.ReplantationCoefficient(ctx, ev)
	assert.InDelta(t, 1.0, r, 0.02, "(100*2 + 100*1) / 300 removed")
}

func TestRegimeUniqueNoDutyOutsidePilot(t *testing.T) {
	ctx := evalCtx(nil)
	ctx.Config = &moulinette.DepartmentConfig{Department: "14"}
	ctx.Hedges = testSet(t, testHedge("D1", hedges.ToRemove, hedges.KindMixte, 100, false))

	assert.Zero(t, regimeUniqueHaie{}.ReplantationCoefficient(ctx, moulinette.Evaluation{}))
}

func TestReservesNaturelles(t *testing.T) {
	ctx := evalCtx(nil)
	ev, err := reservesNaturelles{}.Evaluate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "soumis_autorisation", ev.ResultCode)

	ctx.Criterion = &moulinette.CriterionConfig{
		Settings: map[string]any{"plan_gestion": "oui"},
	}
	ev, err = reservesNaturelles{}.Evaluate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "soumis_declaration", ev.ResultCode)
}

func TestConstantEvaluator(t *testing.T) {
	c, err := newConstant("code_rural.code_rural", "a_verifier",
		moulinette.ResultMatrix{"a_verifier": moulinette.ResultAVerifier})(nil)
	require.NoError(t, err)

	ev, err := c.Evaluate(evalCtx(nil))
	require.NoError(t, err)
	assert.Equal(t, "a_verifier", ev.ResultCode)
	assert.Equal(t, moulinette.ResultAVerifier, ev.Result)
}

func TestDefaultRegistryHasAllEvaluators(t *testing.T) {
	slugs := []string{
		"loi_sur_leau.zone_humide",
		"loi_sur_leau.zone_inondable",
		"loi_sur_leau.ecoulement_sans_bv",
		"loi_sur_leau.ecoulement_avec_bv",
		"loi_sur_leau.autres_rubriques",
		"natura2000.zone_humide",
		"natura2000.zone_inondable",
		"natura2000.iota",
		"natura2000.lotissement",
		"natura2000.autorisation_urba",
		"natura2000.natura2000_haie",
		"evalenv.emprise",
		"evalenv.surface_plancher",
		"evalenv.terrain_assiette",
		"evalenv.photovoltaique",
		"evalenv.autres_rubriques",
		"conditionnalite_pac.bcae8",
		"alignement_arbres.alignement_arbres",
		"ep.ep_simple",
		"ep.ep_aisne",
		"ep.ep_normandie",
		"regime_unique_haie.regime_unique_haie",
		"sites_classes.sites_classes_haie",
		"reserves_naturelles.reserves_naturelles",
		"code_rural.code_rural",
		"urbanisme_haie.urbanisme_haie",
		"dep.dep",
	}
	for _, slug := range slugs {
		ev, err := moulinette.DefaultRegistry.New(slug, nil)
		require.NoError(t, err, slug)
		assert.Equal(t, slug, ev.Slug())
	}
}
