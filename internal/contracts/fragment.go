package contracts

import "fmt"

// SeriesFragment is a partial contribution about one series.
// 필드가 없으면 "의견 없음" 이지 0 이 아님
type SeriesFragment struct {
	ChunkID          string                     `json:"chunk_id"`
	SeriesID         string                     `json:"series_id" validate:"required"`
	Summary          *string                    `json:"summary,omitempty" validate:"omitempty,max=512"`
	Frequency        *string                    `json:"frequency,omitempty"`
	Target           *SeriesArray               `json:"target,omitempty"`
	PastCovariates   map[string]CovariateSeries `json:"past_covariates,omitempty"`
	FutureCovariates map[string]CovariateSeries `json:"future_covariates,omitempty"`
	Issues           []string                   `json:"issues,omitempty"`
	Confidence       *float64                   `json:"confidence,omitempty"`
}

// Validate checks the fragment's own structure (not its consistency with others)
func (f *SeriesFragment) Validate() error {
	if err := validateStruct(f); err != nil {
		return err
	}
	if f.Target != nil {
		if err := f.Target.Validate(); err != nil {
			return fmt.Errorf("fragment %q target: %w", f.ChunkID, err)
		}
	}
	for name, cov := range f.PastCovariates {
		if err := cov.Validate(); err != nil {
			return fmt.Errorf("fragment %q past covariate %q: %w", f.ChunkID, name, err)
		}
	}
	for name, cov := range f.FutureCovariates {
		if err := cov.Validate(); err != nil {
			return fmt.Errorf("fragment %q future covariate %q: %w", f.ChunkID, name, err)
		}
	}
	return nil
}

// ConfidenceOr returns the fragment confidence or the fallback when absent
func (f *SeriesFragment) ConfidenceOr(fallback float64) float64 {
	if f.Confidence == nil {
		return fallback
	}
	return *f.Confidence
}
