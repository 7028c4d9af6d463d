package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/wonny/forecaster/internal/contracts"
	"github.com/wonny/forecaster/internal/forecast"
	"github.com/wonny/forecaster/internal/inference"
	"github.com/wonny/forecaster/pkg/logger"
)

// maxBodyBytes caps request bodies (fragments can be large)
const maxBodyBytes = 32 << 20

// JobReader is the read side of the job store; *forecast.Repository satisfies it
type JobReader interface {
	GetJob(ctx context.Context, id uuid.UUID) (*forecast.Job, error)
	ListJobs(ctx context.Context, limit int) ([]forecast.Job, error)
}

// ForecastHandler handles forecast API endpoints
// ⭐ SSOT: Forecast API 핸들러는 이 구조체에서만
type ForecastHandler struct {
	service *forecast.Service
	jobs    JobReader
	logger  *logger.Logger
}

// NewForecastHandler creates a new forecast handler.
// jobs 가 nil 이면 job 조회 엔드포인트는 503
func NewForecastHandler(service *forecast.Service, jobs JobReader, log *logger.Logger) *ForecastHandler {
	return &ForecastHandler{
		service: service,
		jobs:    jobs,
		logger:  log,
	}
}

// RunForecast aggregates fragments and returns the forecast response
// POST /api/forecast
func (h *ForecastHandler) RunForecast(w http.ResponseWriter, r *http.Request) {
	var req forecast.FragmentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.service.Run(r.Context(), &req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// PrepareForecast runs aggregation + preprocessing without calling the engine
// POST /api/forecast/prepare
func (h *ForecastHandler) PrepareForecast(w http.ResponseWriter, r *http.Request) {
	var req forecast.FragmentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.service.Prepare(r.Context(), &req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// RunPayload forecasts an already aggregated payload
// POST /api/forecast/payload
func (h *ForecastHandler) RunPayload(w http.ResponseWriter, r *http.Request) {
	var payload contracts.ForecastPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	resp, err := h.service.RunPayload(r.Context(), &payload)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// ListJobs returns recent forecast jobs
// GET /api/forecast/jobs?limit=50
func (h *ForecastHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		respondError(w, http.StatusServiceUnavailable, "job store is not configured")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			respondError(w, http.StatusBadRequest, "limit must be an integer between 1 and 500")
			return
		}
		limit = n
	}

	jobs, err := h.jobs.ListJobs(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list forecast jobs")
		respondError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// GetJob returns one job with its request and response
// GET /api/forecast/jobs/{id}
func (h *ForecastHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		respondError(w, http.StatusServiceUnavailable, "job store is not configured")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.jobs.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, forecast.ErrJobNotFound) {
			respondError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.WithError(err).WithField("job_id", id.String()).Error("Failed to get forecast job")
		respondError(w, http.StatusInternalServerError, "failed to get job")
		return
	}

	respondJSON(w, http.StatusOK, job)
}

// EngineInfo reports the inference engine's model and device
// GET /api/engine
func (h *ForecastHandler) EngineInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Engine().Info(r.Context())
	if err != nil {
		h.logger.WithError(err).Warn("Inference engine info unavailable")
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, info)
}

// respondServiceError maps pipeline errors onto HTTP status codes
func (h *ForecastHandler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", r.URL.Path).Error("Forecast request failed")
	}
	respondError(w, status, err.Error())
}

func errorStatus(err error) int {
	switch {
	case forecast.IsInputError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, inference.ErrEngine), errors.Is(err, inference.ErrShape):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes the JSON body, answering 400 on failure
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
