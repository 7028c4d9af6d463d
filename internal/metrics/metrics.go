package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline stages used as the "stage" label
const (
	StageAggregate = "aggregate"
	StagePrepare   = "prepare"
	StageInference = "inference"
	StagePersist   = "persist"
)

// =============================================================================
// Prometheus Metrics for the Forecast Pipeline
// =============================================================================

var (
	// fragmentsTotal counts fragments received for aggregation.
	fragmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "forecast",
		Name:      "fragments_total",
		Help:      "Total fragments received for aggregation",
	})

	// seriesTotal counts series leaving each stage.
	// Labels: stage (aggregate, prepare, inference)
	seriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forecast",
		Name:      "series_total",
		Help:      "Total series produced per pipeline stage",
	}, []string{"stage"})

	// validationReportsTotal counts non-fatal corrective actions.
	// Labels: status (frequency_conflict, covariate_dropped, horizon_capped, context_truncated)
	validationReportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forecast",
		Name:      "validation_reports_total",
		Help:      "Total validation reports by status",
	}, []string{"status"})

	// errorsTotal counts fatal failures per stage.
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forecast",
		Name:      "errors_total",
		Help:      "Total pipeline errors by stage",
	}, []string{"stage"})

	// engineDuration measures inference engine round trips.
	engineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "forecast",
		Name:      "engine_duration_seconds",
		Help:      "Inference engine call latency in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})
)

// RecordFragments adds n received fragments
func RecordFragments(n int) {
	fragmentsTotal.Add(float64(n))
}

// RecordSeries adds n series that completed stage
func RecordSeries(stage string, n int) {
	seriesTotal.WithLabelValues(stage).Add(float64(n))
}

// RecordValidationReport counts one report by status
func RecordValidationReport(status string) {
	validationReportsTotal.WithLabelValues(status).Inc()
}

// RecordError counts one failure at stage
func RecordError(stage string) {
	errorsTotal.WithLabelValues(stage).Inc()
}

// ObserveEngineDuration records an engine call latency
func ObserveEngineDuration(d time.Duration) {
	engineDuration.Observe(d.Seconds())
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
