package forecastconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := "../../config/chronos2.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, yamlData, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, yamlData)

	// 저장소 프로필 == 내장 기본값
	assert.Equal(t, Default(), cfg)

	hash, err := Hash(cfg)
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	// 동일 설정 → 동일 해시
	hash2, err := Hash(Default())
	require.NoError(t, err)
	assert.Equal(t, hash, hash2)
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestParse_UnknownField(t *testing.T) {
	data := []byte(`
meta:
  profile_id: p
target:
  model_name: chronos-2
  context_budget: 64
  prediction_budget: 16
  input_patch_size: 16
  quantile_set: [0.5]
  max_covariate: 3
defaults:
  prediction_horizon: 8
  context_strategy: truncate_latest
  frequency_policy: accept_as_is
`)
	_, err := Parse(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_covariate")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing profile id", mutate: func(c *Config) { c.Meta.ProfileID = "" }, field: "meta.profile_id"},
		{name: "zero context budget", mutate: func(c *Config) { c.Target.ContextBudget = 0 }, field: "target"},
		{name: "unsorted quantiles", mutate: func(c *Config) { c.Target.QuantileSet = []float64{0.9, 0.1} }, field: "target"},
		{name: "quantile out of range", mutate: func(c *Config) { c.Target.QuantileSet = []float64{0.5, 1.0} }, field: "target"},
		{name: "zero horizon", mutate: func(c *Config) { c.Defaults.PredictionHorizon = 0 }, field: "defaults.prediction_horizon"},
		{name: "unknown strategy", mutate: func(c *Config) { c.Defaults.ContextStrategy = "sliding" }, field: "defaults.context_strategy"},
		{name: "unknown policy", mutate: func(c *Config) { c.Defaults.FrequencyPolicy = "guess" }, field: "defaults.frequency_policy"},
		{name: "confidence above one", mutate: func(c *Config) { c.Defaults.DefaultConfidence = 1.5 }, field: "defaults.default_confidence"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestWarn(t *testing.T) {
	assert.Empty(t, Warn(Default()))

	cfg := Default()
	cfg.Defaults.PredictionHorizon = 256
	cfg.Target.ContextBudget = 100
	cfg.Target.AllowedFrequencies = []string{"1d", "fortnightly"}
	cfg.Target.MaxCovariates = 0
	cfg.Target.QuantileSet = []float64{0.1, 0.9}

	codes := make([]string, 0)
	for _, w := range Warn(cfg) {
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []string{
		"HORIZON_ABOVE_BUDGET",
		"CONTEXT_NOT_PATCH_ALIGNED",
		"UNKNOWN_FREQUENCY",
		"COVARIATES_DISABLED",
		"NO_MEDIAN",
	}, codes)
}

func TestGlobalContext_IsFreshPerCall(t *testing.T) {
	cfg := Default()

	g1 := cfg.GlobalContext()
	g1.AddReport("s1", "horizon_capped", "x")
	g2 := cfg.GlobalContext()

	assert.Equal(t, 96, g2.PredictionHorizon)
	assert.Empty(t, g2.ValidationReports)
}

func TestTargetConfig_Copy(t *testing.T) {
	cfg := Default()
	target := cfg.TargetConfig()
	target.QuantileSet[0] = 0.05

	assert.Equal(t, 0.1, cfg.Target.QuantileSet[0])
}
