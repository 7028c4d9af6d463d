package aggregation

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wonny/forecaster/internal/contracts"
)

// DefaultConfidence applies to fragments that carry no confidence of their own
const DefaultConfidence = 0.5

// Option customizes a single Aggregate call
type Option func(*options)

type options struct {
	defaultConfidence float64
	requestMeta       *contracts.RequestMeta
	covariateCatalog  []contracts.CovariateCatalogEntry
}

// WithDefaultConfidence overrides the confidence used for fragments without one
func WithDefaultConfidence(c float64) Option {
	return func(o *options) { o.defaultConfidence = c }
}

// WithRequestMeta attaches request metadata to the payload
func WithRequestMeta(meta *contracts.RequestMeta) Option {
	return func(o *options) { o.requestMeta = meta }
}

// WithCovariateCatalog attaches the covariate catalog to the payload
func WithCovariateCatalog(catalog []contracts.CovariateCatalogEntry) Option {
	return func(o *options) { o.covariateCatalog = catalog }
}

// Aggregator merges fragments into a canonical payload
// ⭐ SSOT: fragment → series catalog 변환은 여기서만
type Aggregator struct {
	defaultConfidence float64
	log               zerolog.Logger
}

// NewAggregator 기본 confidence(0.5) 로 생성
func NewAggregator(log zerolog.Logger) *Aggregator {
	return NewAggregatorWithConfidence(DefaultConfidence, log)
}

// NewAggregatorWithConfidence confidence 기본값 지정하여 생성
func NewAggregatorWithConfidence(defaultConfidence float64, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		defaultConfidence: defaultConfidence,
		log:               log.With().Str("component", "aggregation.coordinator").Logger(),
	}
}

// Aggregate folds fragments (in arrival order) into one catalog entry per series_id.
// Reports for recovered conditions are appended to global, which the payload then carries.
func (a *Aggregator) Aggregate(
	target contracts.TargetConfig,
	global *contracts.GlobalContext,
	fragments []contracts.SeriesFragment,
	opts ...Option,
) (*contracts.ForecastPayload, error) {
	o := options{defaultConfidence: a.defaultConfidence}
	for _, opt := range opts {
		opt(&o)
	}

	if len(fragments) == 0 {
		return nil, &Error{Message: "No fragments provided for aggregation.", Err: ErrNoFragments}
	}

	// series_id 최초 등장 순서 유지
	var order []string
	groups := make(map[string]*aggregatedSeries)

	for i := range fragments {
		frag := &fragments[i]
		series, ok := groups[frag.SeriesID]
		if !ok {
			series = newAggregatedSeries(frag.SeriesID)
			groups[frag.SeriesID] = series
			order = append(order, frag.SeriesID)
		}
		series.fold(frag, frag.ConfidenceOr(o.defaultConfidence), global, a.log)
	}

	catalog := make([]contracts.SeriesCatalogEntry, 0, len(order))
	for _, seriesID := range order {
		series := groups[seriesID]
		if series.target == nil {
			return nil, &Error{
				SeriesID: seriesID,
				Message:  fmt.Sprintf("Series '%s' is missing target values after aggregation.", seriesID),
				Err:      ErrMissingTarget,
			}
		}

		enforceCovariateCap(series, target.MaxCovariates, global, a.log)
		catalog = append(catalog, series.entry())
	}

	a.log.Info().
		Int("num_series", len(catalog)).
		Int("num_fragments", len(fragments)).
		Int("num_reports", len(global.ValidationReports)).
		Msg("forecast.fragments.aggregated")

	return &contracts.ForecastPayload{
		SchemaVersion:    contracts.SchemaVersion,
		Target:           target,
		GlobalContext:    *global.Clone(),
		SeriesCatalog:    catalog,
		CovariateCatalog: o.covariateCatalog,
		RequestMeta:      o.requestMeta,
	}, nil
}
