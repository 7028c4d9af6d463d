package forecast

import (
	"fmt"

	"github.com/wonny/forecaster/internal/contracts"
	"github.com/wonny/forecaster/internal/inference"
)

// BuildResponse pairs each prepared series with its engine output (by position)
// and trims the engine output to the series' own horizon.
func BuildResponse(payload *contracts.ForecastPayload, batch *contracts.PreparedBatch, result *inference.Result) (*contracts.ForecastResponse, error) {
	if len(result.SeriesOutputs) != len(batch.SeriesMetadata) {
		return nil, fmt.Errorf("%w: %d outputs for %d series",
			inference.ErrShape, len(result.SeriesOutputs), len(batch.SeriesMetadata))
	}

	series := make([]contracts.SeriesForecastResult, len(batch.SeriesMetadata))
	for i, meta := range batch.SeriesMetadata {
		out := result.SeriesOutputs[i]

		var dropped []string
		if len(meta.DroppedCovariates) > 0 {
			dropped = meta.DroppedCovariates
		}

		series[i] = contracts.SeriesForecastResult{
			SeriesID:           meta.SeriesID,
			Frequency:          meta.Frequency,
			ContextSummary:     meta.Summary,
			ForecastTimestamps: meta.ForecastTimestamps,
			PointForecast:      trimHorizon(out.PointForecast, meta.Horizon),
			Quantiles:          buildQuantiles(out.Quantiles, result.QuantileLevels, meta.Horizon),
			Units:              meta.Units,
			ScaleFactor:        meta.ScaleFactor,
			DroppedCovariates:  dropped,
			Device:             result.Device,
			Horizon:            meta.Horizon,
			Metadata:           meta.Metadata,
		}
	}

	var warnings []contracts.ValidationReport
	if len(payload.GlobalContext.ValidationReports) > 0 {
		warnings = append(warnings, payload.GlobalContext.ValidationReports...)
	}

	return &contracts.ForecastResponse{
		SchemaVersion:  payload.SchemaVersion,
		RequestMeta:    payload.RequestMeta,
		QuantileLevels: append([]float64(nil), result.QuantileLevels...),
		Series:         series,
		Warnings:       warnings,
		EngineInfo: contracts.EngineInfo{
			Device:    result.Device,
			ModelName: payload.Target.ModelName,
		},
	}, nil
}

// buildQuantiles re-keys [variate][horizon][q] as q -> [variate][horizon]
func buildQuantiles(quantiles [][][]float64, levels []float64, horizon int) contracts.SeriesForecastQuantiles {
	values := make(map[string][][]float64, len(levels))
	for idx, level := range levels {
		perVariate := make([][]float64, len(quantiles))
		for v, steps := range quantiles {
			n := min(horizon, len(steps))
			row := make([]float64, n)
			for h := 0; h < n; h++ {
				row[h] = steps[h][idx]
			}
			perVariate[v] = row
		}
		values[contracts.QuantileKey(level)] = perVariate
	}
	return contracts.SeriesForecastQuantiles{
		QuantileLevels: append([]float64(nil), levels...),
		Values:         values,
	}
}

func trimHorizon(values [][]float64, horizon int) [][]float64 {
	out := make([][]float64, len(values))
	for v, row := range values {
		out[v] = row[:min(horizon, len(row))]
	}
	return out
}
