package forecastconfig

import "github.com/wonny/forecaster/internal/contracts"

// Config is the model profile used to build every forecast request
// ⭐ SSOT: target 제약과 전역 기본값은 이 파일에서만 정의
type Config struct {
	Meta     Meta                   `yaml:"meta" json:"meta"`
	Target   contracts.TargetConfig `yaml:"target" json:"target"`
	Defaults Defaults               `yaml:"defaults" json:"defaults"`
}

// Meta 프로필 식별 정보
type Meta struct {
	ProfileID string `yaml:"profile_id" json:"profile_id"`
	Version   string `yaml:"version" json:"version"`
}

// Defaults 요청 단위 기본값
type Defaults struct {
	PredictionHorizon int     `yaml:"prediction_horizon" json:"prediction_horizon"`
	ContextStrategy   string  `yaml:"context_strategy" json:"context_strategy"`
	FrequencyPolicy   string  `yaml:"frequency_policy" json:"frequency_policy"`
	DefaultConfidence float64 `yaml:"default_confidence" json:"default_confidence"`
}

// Default returns the built-in chronos-2 profile
func Default() *Config {
	guidelines := "Use daily cadence when uncertain; resample irregular data before inference."
	return &Config{
		Meta: Meta{ProfileID: "chronos2_default", Version: "1"},
		Target: contracts.TargetConfig{
			ModelName:           contracts.DefaultModelName,
			ContextBudget:       8192,
			PredictionBudget:    128,
			InputPatchSize:      32,
			QuantileSet:         []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9},
			AllowedFrequencies:  []string{"1d", "1h", "1wk"},
			MaxCovariates:       contracts.DefaultMaxCovariates,
			FrequencyGuidelines: &guidelines,
		},
		Defaults: Defaults{
			PredictionHorizon: 96,
			ContextStrategy:   contracts.DefaultContextStrategy,
			FrequencyPolicy:   contracts.DefaultFrequencyPolicy,
			DefaultConfidence: 0.5,
		},
	}
}

// GlobalContext returns a fresh per-request context built from the defaults
func (c *Config) GlobalContext() *contracts.GlobalContext {
	return &contracts.GlobalContext{
		PredictionHorizon: c.Defaults.PredictionHorizon,
		ContextStrategy:   c.Defaults.ContextStrategy,
		FrequencyPolicy:   c.Defaults.FrequencyPolicy,
	}
}

// TargetConfig returns a copy of the target limits
func (c *Config) TargetConfig() contracts.TargetConfig {
	t := c.Target
	t.QuantileSet = append([]float64(nil), c.Target.QuantileSet...)
	t.AllowedFrequencies = append([]string(nil), c.Target.AllowedFrequencies...)
	return t
}
