package contracts

import "fmt"

// SchemaVersion of the canonical payload and the response
const SchemaVersion = "1.0"

// SeriesMetadata describes how a series was assembled
type SeriesMetadata struct {
	ContextLength        *int           `json:"context_length,omitempty"`
	Downsampling         map[string]any `json:"downsampling,omitempty"`
	MissingValueStrategy *string        `json:"missing_value_strategy,omitempty"`
	Confidence           *float64       `json:"confidence,omitempty"`
	Notes                []string       `json:"notes,omitempty"`
	DroppedCovariates    []string       `json:"dropped_covariates,omitempty"`
}

// SeriesCatalogEntry is the canonical, fragment-free view of one series
// ⭐ SSOT: aggregation 이후 불변
type SeriesCatalogEntry struct {
	SeriesID         string                     `json:"series_id" validate:"required"`
	DisplayName      *string                    `json:"display_name,omitempty"`
	Summary          *string                    `json:"summary,omitempty" validate:"omitempty,max=512"`
	Frequency        *string                    `json:"frequency,omitempty"`
	Target           SeriesArray                `json:"target"`
	PastCovariates   map[string]CovariateSeries `json:"past_covariates,omitempty"`
	FutureCovariates map[string]CovariateSeries `json:"future_covariates,omitempty"`
	RequestedHorizon *int                       `json:"requested_horizon,omitempty"`
	Metadata         *SeriesMetadata            `json:"metadata,omitempty"`
}

// CovariateCount returns |past| + |future|
func (e *SeriesCatalogEntry) CovariateCount() int {
	return len(e.PastCovariates) + len(e.FutureCovariates)
}

// DroppedCovariates returns the names evicted during aggregation
func (e *SeriesCatalogEntry) DroppedCovariates() []string {
	if e.Metadata == nil {
		return nil
	}
	return e.Metadata.DroppedCovariates
}

// Validate checks the entry's target and covariate alignment
func (e *SeriesCatalogEntry) Validate() error {
	if err := validateStruct(e); err != nil {
		return err
	}
	if err := e.Target.Validate(); err != nil {
		return fmt.Errorf("series '%s' target: %w", e.SeriesID, err)
	}

	targetLength := e.Target.Length()
	for name, cov := range e.PastCovariates {
		if err := cov.Validate(); err != nil {
			return fmt.Errorf("series '%s' past covariate '%s': %w", e.SeriesID, name, err)
		}
		if cov.Len() != targetLength {
			return fmt.Errorf("%w: past covariate '%s' must match target history length (%d != %d)",
				ErrInvalid, name, cov.Len(), targetLength)
		}
	}
	for name, cov := range e.FutureCovariates {
		if err := cov.Validate(); err != nil {
			return fmt.Errorf("series '%s' future covariate '%s': %w", e.SeriesID, name, err)
		}
		if e.RequestedHorizon != nil && cov.Len() != *e.RequestedHorizon {
			return fmt.Errorf("%w: future covariate '%s' must match requested horizon (%d != %d)",
				ErrInvalid, name, cov.Len(), *e.RequestedHorizon)
		}
	}
	return nil
}

// CovariateCatalogEntry documents an available covariate
type CovariateCatalogEntry struct {
	CovariateID string        `json:"covariate_id" validate:"required"`
	Description *string       `json:"description,omitempty"`
	Type        CovariateType `json:"type,omitempty" validate:"omitempty,oneof=continuous categorical"`
	Units       *string       `json:"units,omitempty"`
	ScaleFactor *float64      `json:"scale_factor,omitempty"`
}

// RequestMeta is optional metadata carried alongside a request
type RequestMeta struct {
	JobID     *string  `json:"job_id,omitempty"`
	CreatedAt *string  `json:"created_at,omitempty"`
	LLMOrigin []string `json:"llm_origin,omitempty"`
	Notes     []string `json:"notes,omitempty"`
}

// ForecastPayload is the canonical multi-series request
// ⭐ SSOT: aggregation 결과이자 preprocessing 입력
type ForecastPayload struct {
	SchemaVersion    string                  `json:"schema_version"`
	Target           TargetConfig            `json:"chronos_target"`
	GlobalContext    GlobalContext           `json:"global_context"`
	SeriesCatalog    []SeriesCatalogEntry    `json:"series_catalog"`
	CovariateCatalog []CovariateCatalogEntry `json:"covariate_catalog,omitempty"`
	RequestMeta      *RequestMeta            `json:"request_meta,omitempty"`
}

// Validate checks the whole payload: configs, non-empty catalog, per-series covariate cap
func (p *ForecastPayload) Validate() error {
	if err := p.Target.Validate(); err != nil {
		return fmt.Errorf("chronos_target: %w", err)
	}
	if err := p.GlobalContext.Validate(); err != nil {
		return fmt.Errorf("global_context: %w", err)
	}
	if len(p.SeriesCatalog) == 0 {
		return fmt.Errorf("%w: series_catalog must contain at least one series entry", ErrInvalid)
	}

	seen := make(map[string]struct{}, len(p.SeriesCatalog))
	for i := range p.SeriesCatalog {
		entry := &p.SeriesCatalog[i]
		if err := entry.Validate(); err != nil {
			return err
		}
		if _, dup := seen[entry.SeriesID]; dup {
			return fmt.Errorf("%w: duplicate series_id '%s' in series_catalog", ErrInvalid, entry.SeriesID)
		}
		seen[entry.SeriesID] = struct{}{}

		if total := entry.CovariateCount(); total > p.Target.MaxCovariates {
			return fmt.Errorf("%w: series '%s' exceeds max_covariates (%d > %d)",
				ErrInvalid, entry.SeriesID, total, p.Target.MaxCovariates)
		}
	}
	for i := range p.CovariateCatalog {
		if err := validateStruct(&p.CovariateCatalog[i]); err != nil {
			return fmt.Errorf("covariate_catalog: %w", err)
		}
	}
	return nil
}
