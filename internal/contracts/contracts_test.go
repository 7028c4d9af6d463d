package contracts

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTarget() TargetConfig {
	return TargetConfig{
		ModelName:        DefaultModelName,
		ContextBudget:    512,
		PredictionBudget: 64,
		InputPatchSize:   16,
		QuantileSet:      []float64{0.1, 0.5, 0.9},
		MaxCovariates:    DefaultMaxCovariates,
	}
}

func validGlobal() GlobalContext {
	return GlobalContext{
		PredictionHorizon: 12,
		ContextStrategy:   DefaultContextStrategy,
		FrequencyPolicy:   DefaultFrequencyPolicy,
	}
}

func TestSeriesArray_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    [][]float64
		wantErr bool
	}{
		{name: "flat array wraps into one variate", input: `{"values":[1,2,3]}`, want: [][]float64{{1, 2, 3}}},
		{name: "nested array kept", input: `{"values":[[1,2],[3,4]]}`, want: [][]float64{{1, 2}, {3, 4}}},
		{name: "empty array", input: `{"values":[]}`, want: [][]float64{{}}},
		{name: "mixed dimensionality", input: `{"values":[[1,2],3]}`, wantErr: true},
		{name: "mixed flat then nested", input: `{"values":[1,[2]]}`, wantErr: true},
		{name: "non numeric", input: `{"values":["a"]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s SeriesArray
			err := json.Unmarshal([]byte(tt.input), &s)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Values)
		})
	}
}

func TestSeriesArray_UnmarshalKeepsOtherFields(t *testing.T) {
	var s SeriesArray
	require.NoError(t, json.Unmarshal([]byte(`{"values":[1,2],"timestamps":["2024-01-01","2024-01-02"],"units":"kWh","scale_factor":1000}`), &s))

	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, s.Timestamps)
	require.NotNil(t, s.Units)
	assert.Equal(t, "kWh", *s.Units)
	require.NotNil(t, s.ScaleFactor)
	assert.Equal(t, 1000.0, *s.ScaleFactor)
	assert.NoError(t, s.Validate())
}

func TestSeriesArray_Validate(t *testing.T) {
	tests := []struct {
		name    string
		series  *SeriesArray
		wantErr bool
	}{
		{name: "univariate", series: NewUnivariate([]float64{1, 2, 3})},
		{name: "aligned timestamps", series: NewUnivariate([]float64{1, 2}, "2024-01-01", "2024-01-02")},
		{name: "ragged variates", series: &SeriesArray{Values: [][]float64{{1, 2}, {3}}}, wantErr: true},
		{name: "timestamp mismatch", series: NewUnivariate([]float64{1, 2}, "2024-01-01"), wantErr: true},
		{name: "empty", series: &SeriesArray{Values: [][]float64{{}}}, wantErr: true},
		{name: "nil", series: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.series.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCovariateSeries_Len(t *testing.T) {
	assert.Equal(t, 3, NumericCovariate(1, 2, 3).Len())
	assert.Equal(t, 2, CategoricalCovariate("a", "b").Len())

	nested := CovariateSeries{Values: []any{[]any{1.0, 2.0, 3.0}}}
	assert.Equal(t, 3, nested.Len())
}

func TestCovariateSeries_Validate(t *testing.T) {
	cov := NumericCovariate(1, 2)
	cov.Timestamps = []string{"2024-01-01"}
	assert.ErrorIs(t, cov.Validate(), ErrInvalid)

	bad := NumericCovariate(1)
	bad.Type = "ordinal"
	assert.ErrorIs(t, bad.Validate(), ErrInvalid)
}

func TestTargetConfig_Defaults(t *testing.T) {
	var cfg TargetConfig
	require.NoError(t, json.Unmarshal([]byte(`{"context_budget":10,"prediction_budget":5,"input_patch_size":2,"quantile_set":[0.5]}`), &cfg))

	assert.Equal(t, DefaultModelName, cfg.ModelName)
	assert.Equal(t, DefaultMaxCovariates, cfg.MaxCovariates)
	assert.NoError(t, cfg.Validate())

	require.NoError(t, json.Unmarshal([]byte(`{"context_budget":10,"prediction_budget":5,"input_patch_size":2,"quantile_set":[0.5],"max_covariates":0}`), &cfg))
	assert.Equal(t, 0, cfg.MaxCovariates)
}

func TestTargetConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TargetConfig)
		wantErr bool
	}{
		{name: "valid", mutate: func(*TargetConfig) {}},
		{name: "zero context budget", mutate: func(c *TargetConfig) { c.ContextBudget = 0 }, wantErr: true},
		{name: "zero prediction budget", mutate: func(c *TargetConfig) { c.PredictionBudget = 0 }, wantErr: true},
		{name: "negative max covariates", mutate: func(c *TargetConfig) { c.MaxCovariates = -1 }, wantErr: true},
		{name: "empty quantiles", mutate: func(c *TargetConfig) { c.QuantileSet = nil }, wantErr: true},
		{name: "unsorted quantiles", mutate: func(c *TargetConfig) { c.QuantileSet = []float64{0.5, 0.1} }, wantErr: true},
		{name: "duplicate quantiles", mutate: func(c *TargetConfig) { c.QuantileSet = []float64{0.1, 0.1} }, wantErr: true},
		{name: "quantile at zero", mutate: func(c *TargetConfig) { c.QuantileSet = []float64{0, 0.5} }, wantErr: true},
		{name: "quantile at one", mutate: func(c *TargetConfig) { c.QuantileSet = []float64{0.5, 1} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTarget()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGlobalContext_DefaultsAndReports(t *testing.T) {
	var g GlobalContext
	require.NoError(t, json.Unmarshal([]byte(`{"prediction_horizon":24}`), &g))

	assert.Equal(t, DefaultContextStrategy, g.ContextStrategy)
	assert.Equal(t, DefaultFrequencyPolicy, g.FrequencyPolicy)
	assert.NoError(t, g.Validate())

	g.AddReport("s1", StatusHorizonCapped, "")
	g.AddReport("s1", StatusContextTruncated, "Context truncated")

	data, err := json.Marshal(g.ValidationReports)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"series_id":"s1","status":"horizon_capped"},{"series_id":"s1","status":"context_truncated","detail":"Context truncated"}]`, string(data))

	clone := g.Clone()
	clone.AddReport("s2", StatusCovariateDropped, "")
	assert.Len(t, g.ValidationReports, 2)
	assert.Len(t, clone.ValidationReports, 3)
}

func TestGlobalContext_Validate(t *testing.T) {
	g := validGlobal()
	g.PredictionHorizon = 0
	assert.ErrorIs(t, g.Validate(), ErrInvalid)

	g = validGlobal()
	g.FrequencyPolicy = "guess"
	assert.ErrorIs(t, g.Validate(), ErrInvalid)
}

func TestForecastPayload_Validate(t *testing.T) {
	horizon := 2
	entry := func() SeriesCatalogEntry {
		return SeriesCatalogEntry{
			SeriesID:       "s1",
			Target:         *NewUnivariate([]float64{1, 2, 3}),
			PastCovariates: map[string]CovariateSeries{"temp": NumericCovariate(1, 2, 3)},
		}
	}

	tests := []struct {
		name    string
		payload func() ForecastPayload
		wantErr string
	}{
		{
			name: "valid",
			payload: func() ForecastPayload {
				return ForecastPayload{Target: validTarget(), GlobalContext: validGlobal(), SeriesCatalog: []SeriesCatalogEntry{entry()}}
			},
		},
		{
			name: "empty catalog",
			payload: func() ForecastPayload {
				return ForecastPayload{Target: validTarget(), GlobalContext: validGlobal()}
			},
			wantErr: "series_catalog must contain at least one series entry",
		},
		{
			name: "past covariate length mismatch",
			payload: func() ForecastPayload {
				e := entry()
				e.PastCovariates["temp"] = NumericCovariate(1, 2)
				return ForecastPayload{Target: validTarget(), GlobalContext: validGlobal(), SeriesCatalog: []SeriesCatalogEntry{e}}
			},
			wantErr: "past covariate 'temp' must match target history length (2 != 3)",
		},
		{
			name: "future covariate vs requested horizon",
			payload: func() ForecastPayload {
				e := entry()
				e.RequestedHorizon = &horizon
				e.FutureCovariates = map[string]CovariateSeries{"promo": NumericCovariate(1, 0, 1)}
				return ForecastPayload{Target: validTarget(), GlobalContext: validGlobal(), SeriesCatalog: []SeriesCatalogEntry{e}}
			},
			wantErr: "future covariate 'promo' must match requested horizon (3 != 2)",
		},
		{
			name: "covariate cap exceeded",
			payload: func() ForecastPayload {
				target := validTarget()
				target.MaxCovariates = 0
				return ForecastPayload{Target: target, GlobalContext: validGlobal(), SeriesCatalog: []SeriesCatalogEntry{entry()}}
			},
			wantErr: "series 's1' exceeds max_covariates (1 > 0)",
		},
		{
			name: "duplicate series",
			payload: func() ForecastPayload {
				return ForecastPayload{Target: validTarget(), GlobalContext: validGlobal(), SeriesCatalog: []SeriesCatalogEntry{entry(), entry()}}
			},
			wantErr: "duplicate series_id 's1'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.payload()
			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSeriesFragment_ConfidenceOr(t *testing.T) {
	conf := 0.9
	assert.Equal(t, 0.9, (&SeriesFragment{Confidence: &conf}).ConfidenceOr(0.5))
	assert.Equal(t, 0.5, (&SeriesFragment{}).ConfidenceOr(0.5))
}

func TestSeriesFragment_Validate(t *testing.T) {
	f := SeriesFragment{ChunkID: "c1"}
	assert.ErrorIs(t, f.Validate(), ErrInvalid)

	f.SeriesID = "s1"
	f.Target = &SeriesArray{Values: [][]float64{{1, 2}, {1}}}
	assert.ErrorIs(t, f.Validate(), ErrInvalid)

	f.Target = NewUnivariate([]float64{1, 2})
	assert.NoError(t, f.Validate())
}

func TestCovariateArray_JSON(t *testing.T) {
	data, err := json.Marshal(CovariateArray{Numeric: []float64{1, 2.5}})
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2.5]`, string(data))

	data, err = json.Marshal(CovariateArray{Categorical: []string{"a", "b"}})
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(data))

	var back CovariateArray
	require.NoError(t, json.Unmarshal([]byte(`["x"]`), &back))
	assert.True(t, back.IsCategorical())
	assert.Equal(t, 1, back.Len())

	sliced := CovariateArray{Numeric: []float64{1, 2, 3}}.Slice(1)
	assert.Equal(t, []float64{2, 3}, sliced.Numeric)
}

func TestQuantileKey(t *testing.T) {
	assert.Equal(t, "0.100", QuantileKey(0.1))
	assert.Equal(t, "0.500", QuantileKey(0.5))
	assert.Equal(t, "0.975", QuantileKey(0.975))
}
