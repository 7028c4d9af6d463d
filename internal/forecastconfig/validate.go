package forecastconfig

import (
	"fmt"
	"slices"

	"github.com/wonny/forecaster/internal/contracts"
	"github.com/wonny/forecaster/internal/preprocess"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.ProfileID == "" {
		return ValidationError{"meta.profile_id", "required"}
	}

	// === Target ===
	if err := cfg.Target.Validate(); err != nil {
		return ValidationError{"target", err.Error()}
	}

	// === Defaults ===
	d := cfg.Defaults
	if d.PredictionHorizon <= 0 {
		return ValidationError{"defaults.prediction_horizon", "must be > 0"}
	}
	if d.ContextStrategy != contracts.DefaultContextStrategy {
		return ValidationError{"defaults.context_strategy", fmt.Sprintf("must be '%s'", contracts.DefaultContextStrategy)}
	}
	if d.FrequencyPolicy != contracts.DefaultFrequencyPolicy && d.FrequencyPolicy != contracts.FrequencyPolicyAcceptAsIs {
		return ValidationError{"defaults.frequency_policy", fmt.Sprintf("must be %s or %s", contracts.DefaultFrequencyPolicy, contracts.FrequencyPolicyAcceptAsIs)}
	}
	if d.DefaultConfidence < 0 || d.DefaultConfidence > 1 {
		return ValidationError{"defaults.default_confidence", "must be in range [0, 1]"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// 기본 horizon 이 모델 한도를 넘으면 매 요청마다 horizon_capped 발생
	if cfg.Defaults.PredictionHorizon > cfg.Target.PredictionBudget {
		warnings = append(warnings, Warning{
			Code: "HORIZON_ABOVE_BUDGET",
			Message: fmt.Sprintf("defaults.prediction_horizon=%d > target.prediction_budget=%d: every series will be capped",
				cfg.Defaults.PredictionHorizon, cfg.Target.PredictionBudget),
		})
	}

	if cfg.Target.InputPatchSize > 0 && cfg.Target.ContextBudget%cfg.Target.InputPatchSize != 0 {
		warnings = append(warnings, Warning{
			Code: "CONTEXT_NOT_PATCH_ALIGNED",
			Message: fmt.Sprintf("context_budget=%d is not a multiple of input_patch_size=%d",
				cfg.Target.ContextBudget, cfg.Target.InputPatchSize),
		})
	}

	for _, freq := range cfg.Target.AllowedFrequencies {
		if _, err := preprocess.ParseFrequency(freq); err != nil {
			warnings = append(warnings, Warning{
				Code:    "UNKNOWN_FREQUENCY",
				Message: fmt.Sprintf("allowed frequency %q cannot be projected into timestamps", freq),
			})
		}
	}

	if cfg.Target.MaxCovariates == 0 {
		warnings = append(warnings, Warning{
			Code:    "COVARIATES_DISABLED",
			Message: "max_covariates=0: every covariate will be dropped",
		})
	}

	if !slices.Contains(cfg.Target.QuantileSet, 0.5) {
		warnings = append(warnings, Warning{
			Code:    "NO_MEDIAN",
			Message: "quantile_set has no 0.5 level",
		})
	}

	return warnings
}
