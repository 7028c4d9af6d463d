package database

// Schema holds the DDL for forecast job bookkeeping.
// forecast_series 는 job 삭제 시 함께 삭제됨 (ON DELETE CASCADE)
const Schema = `
CREATE TABLE IF NOT EXISTS forecast_jobs (
    id              UUID PRIMARY KEY,
    status          TEXT        NOT NULL,
    model_name      TEXT        NOT NULL,
    config_hash     TEXT        NOT NULL,
    series_count    INTEGER     NOT NULL DEFAULT 0,
    request         JSONB       NOT NULL,
    response        JSONB,
    error_message   TEXT,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    started_at      TIMESTAMPTZ,
    finished_at     TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_forecast_jobs_created_at ON forecast_jobs (created_at);

CREATE TABLE IF NOT EXISTS forecast_series (
    job_id             UUID    NOT NULL REFERENCES forecast_jobs(id) ON DELETE CASCADE,
    series_id          TEXT    NOT NULL,
    frequency          TEXT,
    horizon            INTEGER NOT NULL,
    history_length     INTEGER NOT NULL,
    dropped_covariates JSONB   NOT NULL DEFAULT '[]',
    forecast           JSONB   NOT NULL,
    PRIMARY KEY (job_id, series_id)
);
`
