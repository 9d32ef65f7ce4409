package regulations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envergo/moulinette/catalog"
	"github.com/envergo/moulinette/moulinette"
)

// evalCtx builds a minimal criterion context over seeded catalog values.
func evalCtx(values map[string]any) *moulinette.Context {
	cat := catalog.New()
	for k, v := range values {
		cat.Seed(k, v)
	}
	return &moulinette.Context{Catalog: cat}
}

func TestZoneHumideThresholds(t *testing.T) {
	tests := []struct {
		name     string
		values   map[string]any
		zhDoubt  bool
		wantCode string
		want     moulinette.Result
	}{
		{
			name:     "inside big",
			values:   map[string]any{"wetlands_within_25m": true, "created_surface": 1000.0},
			wantCode: "soumis",
			want:     moulinette.ResultSoumis,
		},
		{
			name:     "inside medium lower bound",
			values:   map[string]any{"wetlands_within_25m": true, "created_surface": 700.0},
			wantCode: "action_requise",
			want:     moulinette.ResultActionRequise,
		},
		{
			name:     "inside just below medium",
			values:   map[string]any{"wetlands_within_25m": true, "created_surface": 699.0},
			wantCode: "non_soumis",
			want:     moulinette.ResultNonSoumis,
		},
		{
			name:     "inside just below big",
			values:   map[string]any{"wetlands_within_25m": true, "created_surface": 999.0},
			wantCode: "action_requise",
			want:     moulinette.ResultActionRequise,
		},
		{
			name:     "close to big",
			values:   map[string]any{"wetlands_within_100m": true, "created_surface": 1500.0},
			wantCode: "action_requise_proche",
			want:     moulinette.ResultActionRequise,
		},
		{
			name:     "close to medium",
			values:   map[string]any{"wetlands_within_100m": true, "created_surface": 800.0},
			wantCode: "non_soumis",
			want:     moulinette.ResultNonSoumis,
		},
		{
			name:     "potential wetland big",
			values:   map[string]any{"potential_wetlands_within_0m": true, "created_surface": 1200.0},
			wantCode: "action_requise_dans_doute",
			want:     moulinette.ResultActionRequise,
		},
		{
			name:     "department doubt medium",
			values:   map[string]any{"created_surface": 750.0},
			zhDoubt:  true,
			wantCode: "action_requise_tout_dpt",
			want:     moulinette.ResultActionRequise,
		},
		{
			name:     "outside",
			values:   map[string]any{"created_surface": 5000.0},
			wantCode: "non_concerne",
			want:     moulinette.ResultNonConcerne,
		},
		{
			name:     "surface as form string",
			values:   map[string]any{"wetlands_within_25m": true, "created_surface": "1000"},
			wantCode: "soumis",
			want:     moulinette.ResultSoumis,
		},
		{
			name: "inside beats close to",
			values: map[string]any{
				"wetlands_within_25m":  true,
				"wetlands_within_100m": true,
				"created_surface":      1000.0,
			},
			wantCode: "soumis",
			want:     moulinette.ResultSoumis,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := evalCtx(tt.values)
			if tt.zhDoubt {
				ctx.Config = &moulinette.DepartmentConfig{Department: "44", ZHDoubt: true}
			}
			ev, err := wlZoneHumide{}.Evaluate(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, ev.ResultCode)
			assert.Equal(t, tt.want, ev.Result)
		})
	}
}

func TestZoneInondable(t *testing.T) {
	tests := []struct {
		name     string
		values   map[string]any
		wantCode string
	}{
		{
			name:     "inside above 400",
			values:   map[string]any{"flood_zones_within_12m": true, "final_surface": 400.0},
			wantCode: "soumis",
		},
		{
			name: "inside above 400 with existing footprint",
			values: map[string]any{
				"flood_zones_within_12m": true,
				"final_surface":          500.0,
				"existing_surface":       450.0,
			},
			wantCode: "soumis_ou_pac",
		},
		{
			name:     "inside between 300 and 400",
			values:   map[string]any{"flood_zones_within_12m": true, "final_surface": 399.0},
			wantCode: "action_requise",
		},
		{
			name:     "inside below 300",
			values:   map[string]any{"flood_zones_within_12m": true, "final_surface": 299.0},
			wantCode: "non_soumis",
		},
		{
			name:     "outside big project",
			values:   map[string]any{"final_surface": 2000.0},
			wantCode: "non_concerne",
		},
		{
			name:     "outside small project",
			values:   map[string]any{"final_surface": 100.0},
			wantCode: "non_soumis",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := wlZoneInondable{}.Evaluate(evalCtx(tt.values))
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, ev.ResultCode)
		})
	}
}

func TestEcoulementSansBV(t *testing.T) {
	tests := []struct {
		name     string
		values   map[string]any
		wantCode string
	}{
		{
			name:     "above one hectare",
			values:   map[string]any{"final_surface": 10000.0},
			wantCode: "soumis_ou_pac",
		},
		{
			name:     "between thresholds",
			values:   map[string]any{"final_surface": 8000.0},
			wantCode: "action_requise",
		},
		{
			name:     "small",
			values:   map[string]any{"final_surface": 7999.0},
			wantCode: "non_soumis",
		},
		{
			name: "ground photovoltaic above one hectare",
			values: map[string]any{
				"final_surface":                    12000.0,
				"evalenv_rubrique_30-localisation": "sol",
			},
			wantCode: "action_requise_pv_sol",
		},
		{
			name: "ground photovoltaic small",
			values: map[string]any{
				"final_surface":                    9000.0,
				"evalenv_rubrique_30-localisation": "sol",
			},
			wantCode: "non_soumis_pv_sol",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := wlEcoulementSansBV{}.Evaluate(evalCtx(tt.values))
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, ev.ResultCode)
		})
	}
}

func TestEcoulementAvecBV(t *testing.T) {
	tests := []struct {
		name      string
		final     float64
		catchment float64
		wantCode  string
	}{
		{
			name:  "small projects are exempt regardless of catchment",
			final: 1499, catchment: 100000,
			wantCode: "non_soumis",
		},
		{
			name:  "project surface alone above one hectare",
			final: 10000, catchment: 0,
			wantCode: "soumis",
		},
		{
			name:  "catchment pushes total over the action threshold",
			final: 2000, catchment: 6400,
			wantCode: "action_requise",
		},
		{
			name:  "catchment rounding keeps total below threshold",
			final: 2000, catchment: 5700,
			// 5700 rounds to 5500; total 7500 < 8000.
			wantCode: "non_soumis",
		},
		{
			name:  "catchment rounding lifts total over threshold",
			final: 2000, catchment: 5800,
			// 5800 rounds to 6000; total 8000.
			wantCode: "action_requise",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := wlEcoulementAvecBV{}.Evaluate(evalCtx(map[string]any{
				"final_surface":     tt.final,
				"catchment_surface": tt.catchment,
			}))
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, ev.ResultCode)
		})
	}
}

func TestEcoulementAvecBVMissingCatchment(t *testing.T) {
	_, err := wlEcoulementAvecBV{}.Evaluate(evalCtx(map[string]any{"final_surface": 2000.0}))
	assert.Error(t, err)
}
