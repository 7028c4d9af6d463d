package preprocess

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/forecaster/internal/contracts"
)

// Assembler turns a canonical payload into a ready-to-infer batch
// ⭐ SSOT: horizon / context budget / timestamp 투영은 여기서만 적용
type Assembler struct {
	workers int
	log     zerolog.Logger
}

// NewAssembler 순차 처리 assembler 생성
func NewAssembler(log zerolog.Logger) *Assembler {
	return NewAssemblerWithWorkers(1, log)
}

// NewAssemblerWithWorkers 시리즈 병렬 처리 수 지정하여 생성
func NewAssemblerWithWorkers(workers int, log zerolog.Logger) *Assembler {
	if workers < 1 {
		workers = 1
	}
	return &Assembler{
		workers: workers,
		log:     log.With().Str("component", "preprocess.assembler").Logger(),
	}
}

type preparedSeries struct {
	task    contracts.SeriesTask
	meta    contracts.PreparedSeriesMetadata
	reports seriesReports
	err     error
}

// Prepare normalizes every catalog entry. Series are independent and may be
// prepared concurrently; reports are appended to payload.GlobalContext in
// catalog order and the first failing series (in catalog order) is returned.
func (a *Assembler) Prepare(ctx context.Context, payload *contracts.ForecastPayload) (*contracts.PreparedBatch, error) {
	if len(payload.SeriesCatalog) == 0 {
		return nil, &Error{
			Field:   "series_catalog",
			Message: "series_catalog must contain at least one series entry.",
			Err:     ErrEmptyCatalog,
		}
	}

	results := make([]preparedSeries, len(payload.SeriesCatalog))

	var g errgroup.Group
	g.SetLimit(a.workers)
	for i := range payload.SeriesCatalog {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entry := &payload.SeriesCatalog[i]
			res := &results[i]
			res.task, res.meta, res.err = a.prepareSeries(entry, payload.Target, &payload.GlobalContext, &res.reports)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch := &contracts.PreparedBatch{
		Tasks:          make([]contracts.SeriesTask, 0, len(results)),
		SeriesMetadata: make([]contracts.PreparedSeriesMetadata, 0, len(results)),
		QuantileLevels: append([]float64(nil), payload.Target.QuantileSet...),
	}
	for i := range results {
		res := &results[i]
		res.reports.flush(&payload.GlobalContext)
		if res.err != nil {
			a.log.Error().
				Err(res.err).
				Str("series_id", payload.SeriesCatalog[i].SeriesID).
				Msg("forecast.preprocess.failed")
			return nil, res.err
		}
		batch.Tasks = append(batch.Tasks, res.task)
		batch.SeriesMetadata = append(batch.SeriesMetadata, res.meta)
		batch.PredictionLength = max(batch.PredictionLength, res.meta.Horizon)
	}

	a.log.Info().
		Int("num_series", len(batch.Tasks)).
		Int("prediction_length", batch.PredictionLength).
		Int("workers", a.workers).
		Msg("forecast.preprocess.completed")

	return batch, nil
}

// prepareSeries: horizon → normalize → length checks → budget → timestamps
func (a *Assembler) prepareSeries(
	entry *contracts.SeriesCatalogEntry,
	target contracts.TargetConfig,
	global *contracts.GlobalContext,
	sink *seriesReports,
) (contracts.SeriesTask, contracts.PreparedSeriesMetadata, error) {
	var (
		task contracts.SeriesTask
		meta contracts.PreparedSeriesMetadata
	)

	horizon, err := ResolveHorizon(entry, target, global.PredictionHorizon, sink)
	if err != nil {
		return task, meta, err
	}
	if horizon.Capped() {
		a.log.Info().
			Str("series_id", entry.SeriesID).
			Int("requested", horizon.Requested).
			Int("resolved", horizon.Resolved).
			Msg("forecast.horizon_capped")
	}

	history := History{
		Target:     copyTarget(entry.Target.Values),
		Timestamps: append([]string(nil), entry.Target.Timestamps...),
	}
	historyLength := history.Length()

	if len(entry.PastCovariates) > 0 {
		history.PastCovariates = make(map[string]contracts.CovariateArray, len(entry.PastCovariates))
		for _, name := range sortedCovariateNames(entry.PastCovariates) {
			arr, err := NormalizeCovariate(entry.SeriesID, "past_covariates."+name, entry.PastCovariates[name])
			if err != nil {
				return task, meta, err
			}
			if arr.Len() != historyLength {
				return task, meta, pastLengthError(entry.SeriesID, name, arr.Len(), historyLength)
			}
			history.PastCovariates[name] = arr
		}
	}

	var future map[string]contracts.CovariateArray
	if len(entry.FutureCovariates) > 0 {
		future = make(map[string]contracts.CovariateArray, len(entry.FutureCovariates))
		for _, name := range sortedCovariateNames(entry.FutureCovariates) {
			// 길이는 ResolveHorizon 에서 이미 확인
			arr, err := NormalizeCovariate(entry.SeriesID, "future_covariates."+name, entry.FutureCovariates[name])
			if err != nil {
				return task, meta, err
			}
			future[name] = arr
		}
	}

	history, err = EnforceBudget(entry.SeriesID, history, target.ContextBudget, global.ContextStrategy, sink)
	if err != nil {
		return task, meta, err
	}
	if history.Length() < historyLength {
		a.log.Info().
			Str("series_id", entry.SeriesID).
			Int("original_length", historyLength).
			Int("budget", target.ContextBudget).
			Msg("forecast.context_truncated")
	}

	var forecastTimestamps []string
	if entry.Frequency != nil {
		forecastTimestamps = ProjectTimestamps(history.Timestamps, *entry.Frequency, horizon.Resolved)
		if forecastTimestamps == nil && len(history.Timestamps) > 0 {
			a.log.Warn().
				Str("series_id", entry.SeriesID).
				Str("frequency", *entry.Frequency).
				Msg("forecast.timestamps.unprojectable")
		}
	}

	task = contracts.SeriesTask{
		Target:           history.Target,
		PastCovariates:   history.PastCovariates,
		FutureCovariates: future,
	}

	var historyTimestamps []string
	if len(history.Timestamps) > 0 {
		historyTimestamps = history.Timestamps
	}
	meta = contracts.PreparedSeriesMetadata{
		SeriesID:           entry.SeriesID,
		Frequency:          entry.Frequency,
		HistoryTimestamps:  historyTimestamps,
		ForecastTimestamps: forecastTimestamps,
		Units:              entry.Target.Units,
		ScaleFactor:        entry.Target.ScaleFactor,
		DroppedCovariates:  append([]string{}, entry.DroppedCovariates()...),
		Horizon:            horizon.Resolved,
		HistoryLength:      history.Length(),
		Metadata:           entry.Metadata,
		Summary:            entry.Summary,
	}

	return task, meta, nil
}

func pastLengthError(seriesID, name string, got, historyLength int) *Error {
	return &Error{
		SeriesID: seriesID,
		Field:    "past_covariates." + name,
		Message: fmt.Sprintf("Past covariate '%s' for series '%s' must match history length (%d != %d).",
			name, seriesID, got, historyLength),
		Err: ErrCovariateLength,
	}
}
