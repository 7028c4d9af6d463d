package contracts

import "encoding/json"

// CovariateArray is a normalized one-dimensional covariate.
// 숫자형이면 Numeric, 라벨이 섞이면 Categorical 만 채움
type CovariateArray struct {
	Numeric     []float64
	Categorical []string
}

// Len returns the array length
func (a CovariateArray) Len() int {
	if a.Categorical != nil {
		return len(a.Categorical)
	}
	return len(a.Numeric)
}

// IsCategorical reports whether the array holds labels
func (a CovariateArray) IsCategorical() bool {
	return a.Categorical != nil
}

// Slice returns the elements in [from, len)
func (a CovariateArray) Slice(from int) CovariateArray {
	if a.Categorical != nil {
		return CovariateArray{Categorical: append([]string(nil), a.Categorical[from:]...)}
	}
	return CovariateArray{Numeric: append([]float64(nil), a.Numeric[from:]...)}
}

// MarshalJSON emits a plain JSON array
func (a CovariateArray) MarshalJSON() ([]byte, error) {
	if a.Categorical != nil {
		return json.Marshal(a.Categorical)
	}
	if a.Numeric == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a.Numeric)
}

// UnmarshalJSON accepts numbers or labels
func (a *CovariateArray) UnmarshalJSON(data []byte) error {
	var numeric []float64
	if err := json.Unmarshal(data, &numeric); err == nil {
		*a = CovariateArray{Numeric: numeric}
		return nil
	}
	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return err
	}
	*a = CovariateArray{Categorical: labels}
	return nil
}

// SeriesTask is one inference input: target plus optional covariates
type SeriesTask struct {
	Target           [][]float64               `json:"target"`
	PastCovariates   map[string]CovariateArray `json:"past_covariates,omitempty"`
	FutureCovariates map[string]CovariateArray `json:"future_covariates,omitempty"`
}

// PreparedSeriesMetadata is the per-series preprocessing output
type PreparedSeriesMetadata struct {
	SeriesID           string          `json:"series_id"`
	Frequency          *string         `json:"frequency,omitempty"`
	HistoryTimestamps  []string        `json:"history_timestamps,omitempty"`
	ForecastTimestamps []string        `json:"forecast_timestamps,omitempty"`
	Units              *string         `json:"units,omitempty"`
	ScaleFactor        *float64        `json:"scale_factor,omitempty"`
	DroppedCovariates  []string        `json:"dropped_covariates"`
	Horizon            int             `json:"horizon"`
	HistoryLength      int             `json:"history_length"`
	Metadata           *SeriesMetadata `json:"metadata,omitempty"`
	Summary            *string         `json:"summary,omitempty"`
}

// PreparedBatch is the ready-to-infer batch shared by all series
// ⭐ SSOT: PredictionLength = 시리즈별 horizon 의 최댓값
type PreparedBatch struct {
	Tasks            []SeriesTask             `json:"tasks"`
	SeriesMetadata   []PreparedSeriesMetadata `json:"series_metadata"`
	PredictionLength int                      `json:"prediction_length"`
	QuantileLevels   []float64                `json:"quantile_levels"`
}
