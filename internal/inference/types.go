package inference

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/forecaster/internal/contracts"
)

var (
	// ErrEngine is wrapped by every engine-side failure
	ErrEngine = errors.New("inference engine error")

	// ErrShape means the engine answered with arrays that do not match the batch
	ErrShape = errors.New("inference response shape mismatch")
)

// Engine runs a prepared batch through the forecasting model
type Engine interface {
	Forecast(ctx context.Context, batch *contracts.PreparedBatch) (*Result, error)
	Info(ctx context.Context) (contracts.EngineInfo, error)
}

// SeriesOutput is the raw forecast for one task
type SeriesOutput struct {
	Quantiles     [][][]float64 // [variate][horizon][quantile]
	PointForecast [][]float64   // [variate][horizon]
}

// Result is the engine output for a whole batch, one entry per task in order
type Result struct {
	SeriesOutputs  []SeriesOutput
	QuantileLevels []float64
	Device         string
}

// StatusError is a non-2xx engine response
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("inference engine returned %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrEngine
}

// predictRequest is the wire body of POST /predict
type predictRequest struct {
	Inputs           []contracts.SeriesTask `json:"inputs"`
	PredictionLength int                    `json:"prediction_length"`
	QuantileLevels   []float64              `json:"quantile_levels"`
	BatchSize        int                    `json:"batch_size"`
}

// predictResponse is the wire body returned by POST /predict
type predictResponse struct {
	Quantiles [][][][]float64 `json:"quantiles"` // [series][variate][horizon][quantile]
	Mean      [][][]float64   `json:"mean"`      // [series][variate][horizon]
	Device    string          `json:"device"`
}
