package forecast

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wonny/forecaster/internal/aggregation"
	"github.com/wonny/forecaster/internal/contracts"
	"github.com/wonny/forecaster/internal/forecastconfig"
	"github.com/wonny/forecaster/internal/inference"
	"github.com/wonny/forecaster/internal/metrics"
	"github.com/wonny/forecaster/internal/preprocess"
	"github.com/wonny/forecaster/pkg/redis"
)

// JobStore records forecast runs; *Repository satisfies it
type JobStore interface {
	CreateJob(ctx context.Context, job *Job) error
	MarkRunning(ctx context.Context, id uuid.UUID, seriesCount int) error
	CompleteJob(ctx context.Context, id uuid.UUID, response json.RawMessage, series []SeriesRecord) error
	FailJob(ctx context.Context, id uuid.UUID, message string) error
}

// FragmentRequest is the fragment-level input of a forecast run
type FragmentRequest struct {
	Fragments         []contracts.SeriesFragment        `json:"fragments"`
	RequestMeta       *contracts.RequestMeta            `json:"request_meta,omitempty"`
	CovariateCatalog  []contracts.CovariateCatalogEntry `json:"covariate_catalog,omitempty"`
	PredictionHorizon *int                              `json:"prediction_horizon,omitempty"`
}

// Validate checks every fragment's own contract
func (r *FragmentRequest) Validate() error {
	for i := range r.Fragments {
		if err := r.Fragments[i].Validate(); err != nil {
			return fmt.Errorf("fragments[%d]: %w", i, err)
		}
	}
	if r.PredictionHorizon != nil && *r.PredictionHorizon <= 0 {
		return fmt.Errorf("%w: prediction_horizon must be > 0", contracts.ErrInvalid)
	}
	return nil
}

// PreparedResult is the dry-run output of Prepare
type PreparedResult struct {
	Payload *contracts.ForecastPayload `json:"payload"`
	Batch   *contracts.PreparedBatch   `json:"batch"`
	Cached  bool                       `json:"cached"`
}

// Service runs the fragment → payload → batch → engine → response pipeline
// ⭐ SSOT: forecast 실행 흐름은 여기서만 조립
type Service struct {
	profile    *forecastconfig.Config
	configHash string
	aggregator *aggregation.Aggregator
	assembler  *preprocess.Assembler
	engine     inference.Engine
	jobs       JobStore
	cache      *redis.Cache
	cacheTTL   time.Duration
	log        zerolog.Logger
}

// NewService 새 서비스 생성 (job 저장/캐시는 With* 로 선택)
func NewService(
	profile *forecastconfig.Config,
	aggregator *aggregation.Aggregator,
	assembler *preprocess.Assembler,
	engine inference.Engine,
	log zerolog.Logger,
) (*Service, error) {
	hash, err := forecastconfig.Hash(profile)
	if err != nil {
		return nil, fmt.Errorf("hash forecast profile: %w", err)
	}
	return &Service{
		profile:    profile,
		configHash: hash,
		aggregator: aggregator,
		assembler:  assembler,
		engine:     engine,
		log:        log.With().Str("component", "forecast.service").Logger(),
	}, nil
}

// WithJobStore persists every run
func (s *Service) WithJobStore(jobs JobStore) *Service {
	s.jobs = jobs
	return s
}

// WithCache caches Prepare results
func (s *Service) WithCache(cache *redis.Cache, ttl time.Duration) *Service {
	s.cache = cache
	s.cacheTTL = ttl
	return s
}

// Engine returns the inference engine
func (s *Service) Engine() inference.Engine {
	return s.engine
}

// Run aggregates fragments and forecasts every resulting series
func (s *Service) Run(ctx context.Context, req *FragmentRequest) (*contracts.ForecastResponse, error) {
	if err := req.Validate(); err != nil {
		metrics.RecordError(metrics.StageAggregate)
		return nil, err
	}

	job, err := s.startJob(ctx, req, s.profile.Target.ModelName, 0)
	if err != nil {
		return nil, err
	}

	payload, err := s.aggregate(req)
	if err != nil {
		s.failJob(ctx, job, err)
		return nil, err
	}

	return s.forecast(ctx, job, payload)
}

// RunPayload forecasts an already canonical payload
func (s *Service) RunPayload(ctx context.Context, payload *contracts.ForecastPayload) (*contracts.ForecastResponse, error) {
	if err := payload.Validate(); err != nil {
		metrics.RecordError(metrics.StagePrepare)
		return nil, err
	}

	job, err := s.startJob(ctx, payload, payload.Target.ModelName, len(payload.SeriesCatalog))
	if err != nil {
		return nil, err
	}
	return s.forecast(ctx, job, payload)
}

// Prepare runs aggregation and preprocessing only (no engine call).
// 동일 profile + 동일 요청은 캐시에서 반환
func (s *Service) Prepare(ctx context.Context, req *FragmentRequest) (*PreparedResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key, err := s.cacheKey(req)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		var cached PreparedResult
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn().Err(err).Msg("forecast.prepare.cache_read_failed")
		} else if found {
			cached.Cached = true
			s.log.Debug().Str("key", key).Msg("forecast.prepare.cache_hit")
			return &cached, nil
		}
	}

	payload, err := s.aggregate(req)
	if err != nil {
		return nil, err
	}
	batch, err := s.prepare(ctx, payload)
	if err != nil {
		return nil, err
	}

	result := &PreparedResult{Payload: payload, Batch: batch}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.cacheTTL); err != nil {
			s.log.Warn().Err(err).Msg("forecast.prepare.cache_write_failed")
		}
	}
	return result, nil
}

// Aggregate exposes the aggregation step alone
func (s *Service) Aggregate(req *FragmentRequest) (*contracts.ForecastPayload, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.aggregate(req)
}

func (s *Service) aggregate(req *FragmentRequest) (*contracts.ForecastPayload, error) {
	metrics.RecordFragments(len(req.Fragments))

	global := s.profile.GlobalContext()
	if req.PredictionHorizon != nil {
		global.PredictionHorizon = *req.PredictionHorizon
	}

	payload, err := s.aggregator.Aggregate(
		s.profile.TargetConfig(),
		global,
		req.Fragments,
		aggregation.WithRequestMeta(req.RequestMeta),
		aggregation.WithCovariateCatalog(req.CovariateCatalog),
	)
	if err != nil {
		metrics.RecordError(metrics.StageAggregate)
		return nil, err
	}
	if err := payload.Validate(); err != nil {
		metrics.RecordError(metrics.StageAggregate)
		return nil, err
	}

	metrics.RecordSeries(metrics.StageAggregate, len(payload.SeriesCatalog))
	return payload, nil
}

func (s *Service) prepare(ctx context.Context, payload *contracts.ForecastPayload) (*contracts.PreparedBatch, error) {
	batch, err := s.assembler.Prepare(ctx, payload)
	if err != nil {
		metrics.RecordError(metrics.StagePrepare)
		return nil, err
	}
	metrics.RecordSeries(metrics.StagePrepare, len(batch.Tasks))
	return batch, nil
}

func (s *Service) forecast(ctx context.Context, job *Job, payload *contracts.ForecastPayload) (*contracts.ForecastResponse, error) {
	batch, err := s.prepare(ctx, payload)
	if err != nil {
		s.failJob(ctx, job, err)
		return nil, err
	}
	for _, report := range payload.GlobalContext.ValidationReports {
		metrics.RecordValidationReport(report.Status)
	}

	if s.jobs != nil {
		if err := s.jobs.MarkRunning(ctx, job.ID, len(batch.Tasks)); err != nil {
			s.log.Error().Err(err).Str("job_id", job.ID.String()).Msg("forecast.job.mark_running_failed")
		}
	}

	result, err := s.engine.Forecast(ctx, batch)
	if err != nil {
		metrics.RecordError(metrics.StageInference)
		s.failJob(ctx, job, err)
		return nil, err
	}
	metrics.RecordSeries(metrics.StageInference, len(result.SeriesOutputs))

	resp, err := BuildResponse(payload, batch, result)
	if err != nil {
		metrics.RecordError(metrics.StageInference)
		s.failJob(ctx, job, err)
		return nil, err
	}
	resp.JobID = job.ID.String()

	s.completeJob(ctx, job, batch, resp)

	s.log.Info().
		Str("job_id", resp.JobID).
		Int("num_series", len(resp.Series)).
		Int("num_warnings", len(resp.Warnings)).
		Str("device", resp.EngineInfo.Device).
		Msg("forecast.run.completed")

	return resp, nil
}

func (s *Service) startJob(ctx context.Context, request any, modelName string, seriesCount int) (*Job, error) {
	job := &Job{
		ID:          uuid.New(),
		ModelName:   modelName,
		ConfigHash:  s.configHash,
		SeriesCount: seriesCount,
	}
	if s.jobs == nil {
		return job, nil
	}

	raw, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal job request: %w", err)
	}
	job.Request = raw

	if err := s.jobs.CreateJob(ctx, job); err != nil {
		metrics.RecordError(metrics.StagePersist)
		return nil, err
	}
	return job, nil
}

func (s *Service) failJob(ctx context.Context, job *Job, cause error) {
	s.log.Warn().Err(cause).Str("job_id", job.ID.String()).Msg("forecast.run.failed")
	if s.jobs == nil {
		return
	}
	// 요청 ctx 가 취소되어도 실패 기록은 남김
	if err := s.jobs.FailJob(context.WithoutCancel(ctx), job.ID, cause.Error()); err != nil {
		metrics.RecordError(metrics.StagePersist)
		s.log.Error().Err(err).Str("job_id", job.ID.String()).Msg("forecast.job.fail_record_failed")
	}
}

func (s *Service) completeJob(ctx context.Context, job *Job, batch *contracts.PreparedBatch, resp *contracts.ForecastResponse) {
	if s.jobs == nil {
		return
	}

	raw, err := json.Marshal(resp)
	if err == nil {
		var records []SeriesRecord
		records, err = seriesRecords(batch, resp)
		if err == nil {
			err = s.jobs.CompleteJob(ctx, job.ID, raw, records)
		}
	}
	if err != nil {
		metrics.RecordError(metrics.StagePersist)
		s.log.Error().Err(err).Str("job_id", job.ID.String()).Msg("forecast.job.complete_failed")
	}
}

func seriesRecords(batch *contracts.PreparedBatch, resp *contracts.ForecastResponse) ([]SeriesRecord, error) {
	records := make([]SeriesRecord, len(resp.Series))
	for i := range resp.Series {
		forecast, err := json.Marshal(resp.Series[i])
		if err != nil {
			return nil, fmt.Errorf("marshal series %s: %w", resp.Series[i].SeriesID, err)
		}
		meta := batch.SeriesMetadata[i]
		records[i] = SeriesRecord{
			SeriesID:          meta.SeriesID,
			Frequency:         meta.Frequency,
			Horizon:           meta.Horizon,
			HistoryLength:     meta.HistoryLength,
			DroppedCovariates: meta.DroppedCovariates,
			Forecast:          forecast,
		}
	}
	return records, nil
}

// cacheKey = sha256(profile hash + canonical request JSON)
func (s *Service) cacheKey(req *FragmentRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(s.configHash))
	h.Write(body)
	return redis.PreparedKey(hex.EncodeToString(h.Sum(nil))), nil
}

// IsInputError reports whether err was caused by the request contents
func IsInputError(err error) bool {
	var (
		aggErr  *aggregation.Error
		prepErr *preprocess.Error
	)
	return errors.As(err, &aggErr) || errors.As(err, &prepErr) || errors.Is(err, contracts.ErrInvalid)
}
