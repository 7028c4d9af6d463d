package preprocess

import (
	"fmt"
	"sort"

	"github.com/wonny/forecaster/internal/contracts"
)

// HorizonResult is the outcome of ResolveHorizon
type HorizonResult struct {
	Requested int
	Resolved  int
}

// Capped reports whether the model budget reduced the requested horizon
func (h HorizonResult) Capped() bool {
	return h.Requested > h.Resolved
}

// ResolveHorizon picks the series' requested horizon (or the global default),
// clamps it to the prediction budget and checks every future covariate against it.
func ResolveHorizon(entry *contracts.SeriesCatalogEntry, target contracts.TargetConfig, defaultHorizon int, sink ReportSink) (HorizonResult, error) {
	requested := defaultHorizon
	if entry.RequestedHorizon != nil && *entry.RequestedHorizon != 0 {
		requested = *entry.RequestedHorizon
	}

	result := HorizonResult{Requested: requested, Resolved: min(requested, target.PredictionBudget)}
	if result.Resolved <= 0 {
		return result, &Error{
			SeriesID: entry.SeriesID,
			Field:    "requested_horizon",
			Message:  fmt.Sprintf("Invalid prediction horizon for series '%s'.", entry.SeriesID),
			Err:      ErrInvalidHorizon,
		}
	}

	if result.Capped() {
		sink.AddReport(entry.SeriesID, contracts.StatusHorizonCapped, fmt.Sprintf(
			"Requested horizon %d trimmed to model limit %d for series '%s'.",
			result.Requested, result.Resolved, entry.SeriesID))
	}

	for _, name := range sortedCovariateNames(entry.FutureCovariates) {
		if n := entry.FutureCovariates[name].Len(); n != result.Resolved {
			return result, futureLengthError(entry.SeriesID, name, n, result.Resolved)
		}
	}

	return result, nil
}

func futureLengthError(seriesID, name string, got, horizon int) *Error {
	return &Error{
		SeriesID: seriesID,
		Field:    "future_covariates." + name,
		Message: fmt.Sprintf("Future covariate '%s' for series '%s' must match resolved horizon (%d != %d).",
			name, seriesID, got, horizon),
		Err: ErrCovariateLength,
	}
}

func sortedCovariateNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
