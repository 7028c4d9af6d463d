package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/forecaster/internal/contracts"
	"github.com/wonny/forecaster/internal/forecast"
	"github.com/wonny/forecaster/pkg/logger"
)

func TestRetentionJob_DeletesBeforeCutoff(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2024, 6, 30, 3, 0, 0, 0, time.UTC)
	cutoff := now.AddDate(0, 0, -30)

	mock.ExpectExec("DELETE FROM forecast_jobs").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	job := NewRetentionJob(forecast.NewRepository(mock), 30, logger.Nop())
	job.now = func() time.Time { return now }

	assert.Equal(t, "job_retention", job.Name())
	assert.Equal(t, "0 0 3 * * *", job.Schedule())
	require.NoError(t, job.Run(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

type pruneFunc func(ctx context.Context, cutoff time.Time) (int64, error)

func (f pruneFunc) DeleteJobsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return f(ctx, cutoff)
}

func TestRetentionJob_Disabled(t *testing.T) {
	called := false
	job := NewRetentionJob(pruneFunc(func(context.Context, time.Time) (int64, error) {
		called = true
		return 0, nil
	}), 0, logger.Nop())

	require.NoError(t, job.Run(context.Background()))
	assert.False(t, called)
}

func TestRetentionJob_Error(t *testing.T) {
	job := NewRetentionJob(pruneFunc(func(context.Context, time.Time) (int64, error) {
		return 0, errors.New("db down")
	}), 7, logger.Nop())

	err := job.Run(context.Background())
	assert.ErrorContains(t, err, "prune forecast jobs: db down")
}

type infoFunc func(ctx context.Context) (contracts.EngineInfo, error)

func (f infoFunc) Info(ctx context.Context) (contracts.EngineInfo, error) { return f(ctx) }

func TestEngineProbeJob(t *testing.T) {
	ok := NewEngineProbeJob(infoFunc(func(context.Context) (contracts.EngineInfo, error) {
		return contracts.EngineInfo{Device: "cuda", ModelName: "chronos-2"}, nil
	}), logger.Nop())
	assert.Equal(t, "engine_probe", ok.Name())
	assert.NoError(t, ok.Run(context.Background()))

	down := NewEngineProbeJob(infoFunc(func(context.Context) (contracts.EngineInfo, error) {
		return contracts.EngineInfo{}, errors.New("connection refused")
	}), logger.Nop())
	assert.ErrorContains(t, down.Run(context.Background()), "connection refused")
}
