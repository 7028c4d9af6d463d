package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/forecaster/internal/contracts"
	"github.com/wonny/forecaster/internal/metrics"
	"github.com/wonny/forecaster/pkg/httputil"
	"github.com/wonny/forecaster/pkg/logger"
	"github.com/wonny/forecaster/pkg/redis"
)

const (
	predictPath = "/predict"
	enginePath  = "/engine"

	// 오류 응답 본문은 로그/에러 메시지용으로 앞부분만 보관
	maxErrorBody = 512
)

// Client handles communication with the hosted forecasting engine
// ⭐ SSOT: 추론 엔진 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	baseURL    string
	batchSize  int
	cache      *redis.Cache
	log        zerolog.Logger
}

// NewClient creates a new inference engine client
func NewClient(httpClient *httputil.Client, baseURL string, batchSize int, log *logger.Logger) *Client {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		batchSize:  batchSize,
		log:        log.Component("inference.client"),
	}
}

// WithCache caches engine info lookups
func (c *Client) WithCache(cache *redis.Cache) *Client {
	c.cache = cache
	return c
}

// Forecast sends the batch to the engine and returns one output per task
func (c *Client) Forecast(ctx context.Context, batch *contracts.PreparedBatch) (*Result, error) {
	req := predictRequest{
		Inputs:           batch.Tasks,
		PredictionLength: batch.PredictionLength,
		QuantileLevels:   batch.QuantileLevels,
		BatchSize:        c.batchSize,
	}

	c.log.Info().
		Int("num_series", len(batch.Tasks)).
		Int("prediction_length", batch.PredictionLength).
		Int("batch_size", c.batchSize).
		Msg("inference.forecast.start")

	start := time.Now()
	resp, err := c.httpClient.PostJSON(ctx, c.baseURL+predictPath, req)
	if err != nil {
		return nil, fmt.Errorf("%w: predict request failed: %w", ErrEngine, err)
	}
	defer resp.Body.Close()
	metrics.ObserveEngineDuration(time.Since(start))

	var out predictResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}

	result, err := toResult(batch, &out)
	if err != nil {
		return nil, err
	}

	c.log.Info().
		Int("num_series", len(result.SeriesOutputs)).
		Str("device", result.Device).
		Dur("duration", time.Since(start)).
		Msg("inference.forecast.complete")

	return result, nil
}

// Info returns the engine's model name and device
func (c *Client) Info(ctx context.Context) (contracts.EngineInfo, error) {
	var info contracts.EngineInfo

	key := redis.EngineInfoKey(c.baseURL)
	if c.cache != nil {
		found, err := c.cache.Get(ctx, key, &info)
		if err != nil {
			c.log.Warn().Err(err).Msg("inference.engine_info.cache_read_failed")
		} else if found {
			return info, nil
		}
	}

	resp, err := c.httpClient.Get(ctx, c.baseURL+enginePath)
	if err != nil {
		return info, fmt.Errorf("%w: engine info request failed: %w", ErrEngine, err)
	}
	defer resp.Body.Close()

	if err := decode(resp, &info); err != nil {
		return info, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, info, redis.TTLShort); err != nil {
			c.log.Warn().Err(err).Msg("inference.engine_info.cache_write_failed")
		}
	}
	return info, nil
}

func decode(resp *http.Response, dest interface{}) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", ErrEngine, err)
	}
	return nil
}

// toResult checks the engine arrays against the batch
func toResult(batch *contracts.PreparedBatch, out *predictResponse) (*Result, error) {
	n := len(batch.Tasks)
	if len(out.Quantiles) != n || len(out.Mean) != n {
		return nil, fmt.Errorf("%w: expected %d series, got %d quantile and %d mean entries",
			ErrShape, n, len(out.Quantiles), len(out.Mean))
	}

	result := &Result{
		SeriesOutputs:  make([]SeriesOutput, n),
		QuantileLevels: append([]float64(nil), batch.QuantileLevels...),
		Device:         out.Device,
	}
	for i := range out.Quantiles {
		if err := checkSeries(i, out.Quantiles[i], out.Mean[i], len(batch.Tasks[i].Target), len(batch.QuantileLevels)); err != nil {
			return nil, err
		}
		result.SeriesOutputs[i] = SeriesOutput{
			Quantiles:     out.Quantiles[i],
			PointForecast: out.Mean[i],
		}
	}
	return result, nil
}

func checkSeries(idx int, quantiles [][][]float64, mean [][]float64, variates, levels int) error {
	if len(quantiles) != variates || len(mean) != variates {
		return fmt.Errorf("%w: series %d expected %d variates, got %d quantile and %d mean",
			ErrShape, idx, variates, len(quantiles), len(mean))
	}
	for v := range quantiles {
		if len(quantiles[v]) != len(mean[v]) {
			return fmt.Errorf("%w: series %d variate %d horizon differs between quantiles (%d) and mean (%d)",
				ErrShape, idx, v, len(quantiles[v]), len(mean[v]))
		}
		for h, row := range quantiles[v] {
			if len(row) != levels {
				return fmt.Errorf("%w: series %d variate %d step %d expected %d quantiles, got %d",
					ErrShape, idx, v, h, levels, len(row))
			}
		}
	}
	return nil
}
