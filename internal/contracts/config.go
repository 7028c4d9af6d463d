package contracts

import (
	"encoding/json"
	"fmt"
	"sort"
)

const (
	DefaultModelName       = "chronos-2"
	DefaultMaxCovariates   = 24
	DefaultContextStrategy = "truncate_latest"
	DefaultFrequencyPolicy = "resample_to_allowed"

	// FrequencyPolicyAcceptAsIs keeps whatever cadence the fragments declared
	FrequencyPolicyAcceptAsIs = "accept_as_is"
)

// Validation report statuses
const (
	StatusFrequencyConflict = "frequency_conflict"
	StatusCovariateDropped  = "covariate_dropped"
	StatusHorizonCapped     = "horizon_capped"
	StatusContextTruncated  = "context_truncated"
)

// TargetConfig holds model-imposed limits for one request
// ⭐ SSOT: context/prediction budget 과 quantile 레벨은 여기서만 정의
type TargetConfig struct {
	ModelName           string    `json:"model_name" yaml:"model_name" validate:"required"`
	ContextBudget       int       `json:"context_budget" yaml:"context_budget" validate:"gte=1"`
	PredictionBudget    int       `json:"prediction_budget" yaml:"prediction_budget" validate:"gte=1"`
	InputPatchSize      int       `json:"input_patch_size" yaml:"input_patch_size" validate:"gte=1"`
	QuantileSet         []float64 `json:"quantile_set" yaml:"quantile_set" validate:"min=1"`
	AllowedFrequencies  []string  `json:"allowed_frequencies" yaml:"allowed_frequencies"`
	MaxCovariates       int       `json:"max_covariates" yaml:"max_covariates" validate:"gte=0"`
	FrequencyGuidelines *string   `json:"frequency_guidelines,omitempty" yaml:"frequency_guidelines,omitempty"`
}

// UnmarshalJSON applies defaults for omitted fields
func (c *TargetConfig) UnmarshalJSON(data []byte) error {
	type alias TargetConfig
	a := alias{
		ModelName:     DefaultModelName,
		MaxCovariates: DefaultMaxCovariates,
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*c = TargetConfig(a)
	return nil
}

// Validate checks budgets and the quantile ordering
func (c *TargetConfig) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}
	if !sort.Float64sAreSorted(c.QuantileSet) {
		return fmt.Errorf("%w: quantile_set must be sorted in ascending order", ErrInvalid)
	}
	for i := 1; i < len(c.QuantileSet); i++ {
		if c.QuantileSet[i] == c.QuantileSet[i-1] {
			return fmt.Errorf("%w: quantile_set must be strictly ascending", ErrInvalid)
		}
	}
	if c.QuantileSet[0] <= 0 || c.QuantileSet[len(c.QuantileSet)-1] >= 1 {
		return fmt.Errorf("%w: quantile_set must lie strictly within (0, 1)", ErrInvalid)
	}
	return nil
}

// ValidationReport is a non-fatal audit entry for a corrective action
type ValidationReport struct {
	SeriesID string `json:"series_id"`
	Status   string `json:"status"`
	Detail   string `json:"detail,omitempty"`
}

// GlobalContext holds request-wide defaults and the shared report list.
// 요청 단위로 생성하고 요청 간 공유하지 않음 (동시 쓰기 보호 없음)
type GlobalContext struct {
	PredictionHorizon int                `json:"prediction_horizon" yaml:"prediction_horizon" validate:"gt=0"`
	ContextStrategy   string             `json:"context_strategy" yaml:"context_strategy" validate:"required"`
	FrequencyPolicy   string             `json:"frequency_policy" yaml:"frequency_policy" validate:"oneof=resample_to_allowed accept_as_is"`
	ValidationReports []ValidationReport `json:"validation_reports" yaml:"-"`
}

// UnmarshalJSON applies defaults for omitted fields
func (g *GlobalContext) UnmarshalJSON(data []byte) error {
	type alias GlobalContext
	a := alias{
		ContextStrategy: DefaultContextStrategy,
		FrequencyPolicy: DefaultFrequencyPolicy,
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*g = GlobalContext(a)
	return nil
}

// Validate checks the horizon and policy fields
func (g *GlobalContext) Validate() error {
	return validateStruct(g)
}

// AddReport appends a validation report; an empty detail is omitted
func (g *GlobalContext) AddReport(seriesID, status, detail string) {
	g.ValidationReports = append(g.ValidationReports, ValidationReport{
		SeriesID: seriesID,
		Status:   status,
		Detail:   detail,
	})
}

// Clone returns a copy with its own report slice
func (g *GlobalContext) Clone() *GlobalContext {
	clone := *g
	clone.ValidationReports = append([]ValidationReport(nil), g.ValidationReports...)
	return &clone
}
