package contracts

import "fmt"

// QuantileKey formats a quantile level as a response map key ("0.100")
func QuantileKey(level float64) string {
	return fmt.Sprintf("%.3f", level)
}

// SeriesForecastQuantiles holds quantile forecasts for one series
type SeriesForecastQuantiles struct {
	QuantileLevels []float64              `json:"quantile_levels"`
	Values         map[string][][]float64 `json:"values"` // quantile -> [variate][horizon]
}

// SeriesForecastResult is the response entry for one series
type SeriesForecastResult struct {
	SeriesID           string                  `json:"series_id"`
	Frequency          *string                 `json:"frequency,omitempty"`
	ContextSummary     *string                 `json:"context_summary,omitempty"`
	ForecastTimestamps []string                `json:"forecast_timestamps,omitempty"`
	PointForecast      [][]float64             `json:"point_forecast"`
	Quantiles          SeriesForecastQuantiles `json:"quantiles"`
	Units              *string                 `json:"units,omitempty"`
	ScaleFactor        *float64                `json:"scale_factor,omitempty"`
	DroppedCovariates  []string                `json:"dropped_covariates,omitempty"`
	Device             string                  `json:"device"`
	Horizon            int                     `json:"horizon"`
	Metadata           *SeriesMetadata         `json:"metadata,omitempty"`
}

// EngineInfo identifies the engine that produced a forecast
type EngineInfo struct {
	Device    string `json:"device"`
	ModelName string `json:"model_name"`
}

// ForecastResponse is the top-level forecast response
type ForecastResponse struct {
	SchemaVersion  string                 `json:"schema_version"`
	JobID          string                 `json:"job_id,omitempty"`
	RequestMeta    *RequestMeta           `json:"request_meta,omitempty"`
	QuantileLevels []float64              `json:"quantile_levels"`
	Series         []SeriesForecastResult `json:"series"`
	Warnings       []ValidationReport     `json:"warnings,omitempty"`
	EngineInfo     EngineInfo             `json:"engine_info"`
}
