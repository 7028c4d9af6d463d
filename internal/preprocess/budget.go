package preprocess

import (
	"fmt"

	"github.com/wonny/forecaster/internal/contracts"
)

// History is one series' normalized history window
type History struct {
	Target         [][]float64
	Timestamps     []string
	PastCovariates map[string]contracts.CovariateArray
}

// Length returns the per-variate history length
func (h History) Length() int {
	if len(h.Target) == 0 {
		return 0
	}
	return len(h.Target[0])
}

// EnforceBudget keeps the latest contextBudget points of the target, timestamps
// and every past covariate. Only truncate_latest is supported.
func EnforceBudget(seriesID string, h History, contextBudget int, strategy string, sink ReportSink) (History, error) {
	length := h.Length()
	if length <= contextBudget {
		return h, nil
	}

	if strategy != contracts.DefaultContextStrategy {
		return h, &Error{
			SeriesID: seriesID,
			Field:    "context_strategy",
			Message:  fmt.Sprintf("Unsupported context strategy: %s", strategy),
			Err:      ErrUnsupportedStrategy,
		}
	}

	start := length - contextBudget
	truncated := History{
		Target: make([][]float64, len(h.Target)),
	}
	for i, variate := range h.Target {
		truncated.Target[i] = append([]float64(nil), variate[start:]...)
	}
	if len(h.Timestamps) > 0 {
		truncated.Timestamps = append([]string(nil), h.Timestamps[start:]...)
	}
	if len(h.PastCovariates) > 0 {
		truncated.PastCovariates = make(map[string]contracts.CovariateArray, len(h.PastCovariates))
		for name, cov := range h.PastCovariates {
			truncated.PastCovariates[name] = cov.Slice(start)
		}
	}

	if len(truncated.Timestamps) > 0 {
		if _, err := InferCadence(truncated.Timestamps); err != nil {
			return h, &Error{
				SeriesID: seriesID,
				Field:    "target.timestamps",
				Message:  "Unable to infer frequency after truncation.",
				Err:      fmt.Errorf("%w: %w", ErrCadenceLost, err),
			}
		}
	}

	sink.AddReport(seriesID, contracts.StatusContextTruncated, fmt.Sprintf(
		"Context truncated from %d to %d for series '%s'.", length, contextBudget, seriesID))

	return truncated, nil
}
