package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/forecaster/pkg/logger"
)

// JobPruner deletes recorded forecast jobs; *forecast.Repository satisfies it
type JobPruner interface {
	DeleteJobsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionJob deletes forecast jobs older than the retention window
type RetentionJob struct {
	pruner    JobPruner
	retention time.Duration
	now       func() time.Time
	logger    *logger.Logger
}

// NewRetentionJob creates a new retention job keeping the last retentionDays days
func NewRetentionJob(pruner JobPruner, retentionDays int, log *logger.Logger) *RetentionJob {
	return &RetentionJob{
		pruner:    pruner,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		now:       time.Now,
		logger:    log,
	}
}

// Name returns the job name
func (j *RetentionJob) Name() string {
	return "job_retention"
}

// Schedule returns the cron schedule (daily at 03:00)
func (j *RetentionJob) Schedule() string {
	return "0 0 3 * * *"
}

// Run deletes jobs created before now - retention.
// forecast_series 는 ON DELETE CASCADE 로 함께 삭제
func (j *RetentionJob) Run(ctx context.Context) error {
	if j.retention <= 0 {
		j.logger.Debug("Job retention disabled")
		return nil
	}

	cutoff := j.now().Add(-j.retention)
	deleted, err := j.pruner.DeleteJobsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune forecast jobs: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"cutoff":  cutoff.Format(time.RFC3339),
		"deleted": deleted,
	}).Info("Forecast job retention completed")

	return nil
}
