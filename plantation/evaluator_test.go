package plantation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envergo/moulinette/hedges"
	"github.com/envergo/moulinette/moulinette"
)

func TestReplantationCoefficientPicksMostSevere(t *testing.T) {
	out := &moulinette.Output{
		Regulations: []moulinette.RegulationEvaluation{
			{Slug: "ep", Result: moulinette.ResultNonSoumis, ReplantationR: 0.5, DeclaresR: true},
			{Slug: "conditionnalite_pac", Result: moulinette.ResultInterdit, ReplantationR: 1, DeclaresR: true},
			{Slug: "natura2000", Result: moulinette.ResultSoumis, ReplantationR: 3, DeclaresR: false},
		},
	}
	assert.Equal(t, 1.0, replantationCoefficient(out), "interdit outranks non_soumis; silent regulations are ignored")

	assert.Zero(t, replantationCoefficient(&moulinette.Output{}))
}

func TestRoadsideMinimum(t *testing.T) {
	out := &moulinette.Output{
		Regulations: []moulinette.RegulationEvaluation{
			{
				Slug: "alignement_arbres",
				Criteria: []moulinette.Evaluation{{
					CriterionSlug: "alignement_arbres",
					Context:       map[string]any{"minimum_length_to_plant_aa_bord_voie": 120.0},
				}},
			},
		},
	}
	minimum, ok := roadsideMinimum(out)
	require.True(t, ok)
	assert.Equal(t, 120.0, minimum)

	_, ok = roadsideMinimum(&moulinette.Output{})
	assert.False(t, ok)
}

func TestNormalizeGlobal(t *testing.T) {
	assert.Equal(t, moulinette.ResultSoumis,
		normalizeGlobal(moulinette.Result(moulinette.ProcedureAutorisation)))
	assert.Equal(t, moulinette.ResultSoumis,
		normalizeGlobal(moulinette.Result(moulinette.ProcedureDeclaration)))
	assert.Equal(t, moulinette.ResultNonDisponible,
		normalizeGlobal(moulinette.GlobalHorsRegimeUnique))
	assert.Equal(t, moulinette.ResultInterdit, normalizeGlobal(moulinette.ResultInterdit))
}

func TestEvaluateAdequate(t *testing.T) {
	out := &moulinette.Output{
		Result: moulinette.ResultSoumis,
		Regulations: []moulinette.RegulationEvaluation{
			{Slug: "ep", Result: moulinette.ResultSoumis, ReplantationR: 1, DeclaresR: true},
		},
	}
	hs := testSet(t,
		testHedge("D1", hedges.ToRemove, hedges.KindMixte, 100),
		testHedge("P1", hedges.ToPlant, hedges.KindMixte, 110),
	)

	res, err := NewEvaluator().Evaluate(context.Background(), out, hs, "replantation")
	require.NoError(t, err)

	assert.Equal(t, Adequate, res.Result)
	assert.Equal(t, moulinette.ResultSoumis, res.GlobalResult)
	assert.Equal(t, "soumis_adequate", res.ResultCode)
	assert.Equal(t, 1.0, res.R)
	assert.Empty(t, res.Unfulfilled)
}

func TestEvaluateInadequate(t *testing.T) {
	out := &moulinette.Output{
		Result: moulinette.ResultSoumis,
		Regulations: []moulinette.RegulationEvaluation{
			{Slug: "ep", Result: moulinette.ResultSoumis, ReplantationR: 2, DeclaresR: true},
		},
	}
	// 100m removed at R=2, only 50m planted.
	hs := testSet(t,
		testHedge("D1", hedges.ToRemove, hedges.KindMixte, 100),
		testHedge("P1", hedges.ToPlant, hedges.KindMixte, 50),
	)

	res, err := NewEvaluator().Evaluate(context.Background(), out, hs, "replantation")
	require.NoError(t, err)

	assert.Equal(t, Inadequate, res.Result)
	assert.Equal(t, moulinette.Result(Inadequate), res.GlobalResult)
	assert.Contains(t, res.Unfulfilled, CondMinLength)
	assert.Contains(t, res.Unfulfilled, CondQuality)
}

func TestEvaluateForbiddenProjectStaysForbidden(t *testing.T) {
	out := &moulinette.Output{
		Result: moulinette.ResultInterdit,
		Regulations: []moulinette.RegulationEvaluation{
			{Slug: "conditionnalite_pac", Result: moulinette.ResultInterdit, ReplantationR: 1, DeclaresR: true},
		},
	}
	hs := testSet(t,
		testHedge("D1", hedges.ToRemove, hedges.KindMixte, 100),
		testHedge("P1", hedges.ToPlant, hedges.KindMixte, 200),
	)

	res, err := NewEvaluator().Evaluate(context.Background(), out, hs, "replantation")
	require.NoError(t, err)
	assert.Equal(t, Adequate, res.Result)
	assert.Equal(t, moulinette.ResultInterdit, res.GlobalResult, "no plantation redeems a forbidden removal")
}

func TestEvaluateRequiresHedges(t *testing.T) {
	_, err := NewEvaluator().Evaluate(context.Background(), &moulinette.Output{}, nil, "non")
	assert.Error(t, err)
}

func TestQualityConditionUsesService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"is_quality_sufficient": false}`))
	}))
	defer srv.Close()

	e := NewEvaluator(WithQualityClient(NewQualityClient(srv.URL, 0)))
	in := conditionInput{
		r: 1,
		hedges: testSet(t,
			testHedge("D1", hedges.ToRemove, hedges.KindMixte, 100),
			testHedge("P1", hedges.ToPlant, hedges.KindMixte, 100),
		),
	}
	cr := e.qualityCondition(context.Background(), in)
	assert.False(t, cr.Result, "the service verdict wins over the local computation")
	assert.Equal(t, "publicodes", cr.Context["source"])
}

func TestQualityConditionFallsBackOnServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewEvaluator(WithQualityClient(NewQualityClient(srv.URL, 0)))
	in := conditionInput{
		r: 1,
		hedges: testSet(t,
			testHedge("D1", hedges.ToRemove, hedges.KindMixte, 100),
			testHedge("P1", hedges.ToPlant, hedges.KindMixte, 110),
		),
	}
	cr := e.qualityCondition(context.Background(), in)
	assert.True(t, cr.Result, "local computation decides when the service fails")
	assert.NotContains(t, cr.Context, "source")
}

func TestQualityClientCheck(t *testing.T) {
	var got qualityRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"is_quality_sufficient": true}`))
	}))
	defer srv.Close()

	ok, err := NewQualityClient(srv.URL, 0).Check(context.Background(),
		map[hedges.Kind]float64{hedges.KindMixte: 100},
		map[hedges.Kind]float64{hedges.KindMixte: 120},
	)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 100.0, got.MinimumLengthsToPlant["mixte"])
	assert.Equal(t, 120.0, got.LengthsToPlant["mixte"])
}
