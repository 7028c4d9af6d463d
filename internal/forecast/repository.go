package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrJobNotFound is returned when no job has the requested id
var ErrJobNotFound = errors.New("forecast job not found")

// JobStatus is the lifecycle state of a forecast job
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// DB is the subset of pgx used by the repository.
// *pgxpool.Pool 과 pgxmock.PgxPoolIface 모두 만족
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Job is one recorded forecast run
type Job struct {
	ID           uuid.UUID       `json:"id"`
	Status       JobStatus       `json:"status"`
	ModelName    string          `json:"model_name"`
	ConfigHash   string          `json:"config_hash"`
	SeriesCount  int             `json:"series_count"`
	Request      json.RawMessage `json:"request,omitempty"`
	Response     json.RawMessage `json:"response,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
}

// SeriesRecord is the stored forecast of one series within a job
type SeriesRecord struct {
	SeriesID          string
	Frequency         *string
	Horizon           int
	HistoryLength     int
	DroppedCovariates []string
	Forecast          json.RawMessage
}

// Repository forecast job 저장소
type Repository struct {
	db DB
}

// NewRepository 새 저장소 생성
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// CreateJob inserts a pending job; ID and CreatedAt are filled when empty
func (r *Repository) CreateJob(ctx context.Context, job *Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	job.Status = JobPending

	query := `
		INSERT INTO forecast_jobs
			(id, status, model_name, config_hash, series_count, request, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		job.ID, string(job.Status), job.ModelName, job.ConfigHash,
		job.SeriesCount, []byte(job.Request), job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert forecast job: %w", err)
	}
	return nil
}

// MarkRunning moves a job to running once its batch is prepared
func (r *Repository) MarkRunning(ctx context.Context, id uuid.UUID, seriesCount int) error {
	query := `
		UPDATE forecast_jobs
		SET status = $2, series_count = $3, started_at = $4
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, string(JobRunning), seriesCount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// CompleteJob stores the response and per-series rows in one transaction
func (r *Repository) CompleteJob(ctx context.Context, id uuid.UUID, response json.RawMessage, series []SeriesRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := completeJob(ctx, tx, id, response, series); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func completeJob(ctx context.Context, tx pgx.Tx, id uuid.UUID, response json.RawMessage, series []SeriesRecord) error {
	updateQuery := `
		UPDATE forecast_jobs
		SET status = $2, response = $3, finished_at = $4
		WHERE id = $1`

	tag, err := tx.Exec(ctx, updateQuery, id, string(JobSucceeded), []byte(response), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update forecast job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}

	insertQuery := `
		INSERT INTO forecast_series
			(job_id, series_id, frequency, horizon, history_length, dropped_covariates, forecast)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, s := range series {
		dropped := s.DroppedCovariates
		if dropped == nil {
			dropped = []string{}
		}
		droppedJSON, err := json.Marshal(dropped)
		if err != nil {
			return fmt.Errorf("marshal dropped covariates: %w", err)
		}

		if _, err := tx.Exec(ctx, insertQuery,
			id, s.SeriesID, s.Frequency, s.Horizon, s.HistoryLength, droppedJSON, []byte(s.Forecast),
		); err != nil {
			return fmt.Errorf("insert forecast series %s: %w", s.SeriesID, err)
		}
	}
	return nil
}

// FailJob records a failed job with its error message
func (r *Repository) FailJob(ctx context.Context, id uuid.UUID, message string) error {
	query := `
		UPDATE forecast_jobs
		SET status = $2, error_message = $3, finished_at = $4
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, string(JobFailed), message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// GetJob 단건 조회 (request/response 포함)
func (r *Repository) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	query := `
		SELECT id, status, model_name, config_hash, series_count, request, response,
		       error_message, created_at, started_at, finished_at
		FROM forecast_jobs
		WHERE id = $1`

	var (
		job    Job
		status string
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&job.ID, &status, &job.ModelName, &job.ConfigHash, &job.SeriesCount,
		&job.Request, &job.Response, &job.ErrorMessage,
		&job.CreatedAt, &job.StartedAt, &job.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get forecast job: %w", err)
	}
	job.Status = JobStatus(status)
	return &job, nil
}

// ListJobs 최근 job 목록 (request/response 제외)
func (r *Repository) ListJobs(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, status, model_name, config_hash, series_count,
		       error_message, created_at, started_at, finished_at
		FROM forecast_jobs
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list forecast jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]Job, 0)
	for rows.Next() {
		var (
			job    Job
			status string
		)
		if err := rows.Scan(
			&job.ID, &status, &job.ModelName, &job.ConfigHash, &job.SeriesCount,
			&job.ErrorMessage, &job.CreatedAt, &job.StartedAt, &job.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan forecast job: %w", err)
		}
		job.Status = JobStatus(status)
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// DeleteJobsBefore removes jobs (and their series via cascade) created before t
func (r *Repository) DeleteJobsBefore(ctx context.Context, t time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM forecast_jobs WHERE created_at < $1`, t)
	if err != nil {
		return 0, fmt.Errorf("delete forecast jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}
