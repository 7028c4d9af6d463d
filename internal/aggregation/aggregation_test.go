package aggregation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/forecaster/internal/contracts"
)

func ptr[T any](v T) *T { return &v }

func testTarget(maxCovariates int) contracts.TargetConfig {
	return contracts.TargetConfig{
		ModelName:        contracts.DefaultModelName,
		ContextBudget:    512,
		PredictionBudget: 64,
		InputPatchSize:   16,
		QuantileSet:      []float64{0.1, 0.5, 0.9},
		MaxCovariates:    maxCovariates,
	}
}

func testGlobal() *contracts.GlobalContext {
	return &contracts.GlobalContext{
		PredictionHorizon: 12,
		ContextStrategy:   contracts.DefaultContextStrategy,
		FrequencyPolicy:   contracts.DefaultFrequencyPolicy,
	}
}

func series(n int, offset float64) *contracts.SeriesArray {
	values := make([]float64, n)
	for i := range values {
		values[i] = offset + float64(i)
	}
	return contracts.NewUnivariate(values)
}

func reportsWithStatus(reports []contracts.ValidationReport, status string) []contracts.ValidationReport {
	var out []contracts.ValidationReport
	for _, r := range reports {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

func TestAggregate_NoFragments(t *testing.T) {
	agg := NewAggregator(zerolog.Nop())

	payload, err := agg.Aggregate(testTarget(24), testGlobal(), nil)
	require.Error(t, err)
	assert.Nil(t, payload)

	var aggErr *Error
	require.True(t, errors.As(err, &aggErr))
	assert.ErrorIs(t, err, ErrNoFragments)
	assert.Equal(t, "No fragments provided for aggregation.", err.Error())
}

func TestAggregate_CovariatesOnlySeriesFails(t *testing.T) {
	agg := NewAggregator(zerolog.Nop())
	fragments := []contracts.SeriesFragment{
		{ChunkID: "c1", SeriesID: "s1", Target: series(3, 0)},
		{ChunkID: "c2", SeriesID: "s2", PastCovariates: map[string]contracts.CovariateSeries{"temp": contracts.NumericCovariate(1, 2, 3)}},
		{ChunkID: "c3", SeriesID: "s2", Confidence: ptr(0.99), FutureCovariates: map[string]contracts.CovariateSeries{"promo": contracts.NumericCovariate(1)}},
	}

	_, err := agg.Aggregate(testTarget(24), testGlobal(), fragments)
	require.Error(t, err)

	var aggErr *Error
	require.True(t, errors.As(err, &aggErr))
	assert.ErrorIs(t, err, ErrMissingTarget)
	assert.Equal(t, "s2", aggErr.SeriesID)
	assert.Equal(t, "Series 's2' is missing target values after aggregation.", err.Error())
}

func TestAggregate_OneEntryPerSeries(t *testing.T) {
	agg := NewAggregator(zerolog.Nop())
	fragments := []contracts.SeriesFragment{
		{ChunkID: "c1", SeriesID: "b", Target: series(4, 0)},
		{ChunkID: "c2", SeriesID: "a", Target: series(4, 10)},
		{ChunkID: "c3", SeriesID: "b", Issues: []string{"partial table"}},
		{ChunkID: "c4", SeriesID: "b", Target: series(4, 20), Confidence: ptr(0.7)},
		{ChunkID: "c5", SeriesID: "a", Summary: ptr("weekly sales")},
	}

	payload, err := agg.Aggregate(testTarget(24), testGlobal(), fragments)
	require.NoError(t, err)

	require.Len(t, payload.SeriesCatalog, 2)
	// first-seen order
	assert.Equal(t, "b", payload.SeriesCatalog[0].SeriesID)
	assert.Equal(t, "a", payload.SeriesCatalog[1].SeriesID)
	assert.Equal(t, contracts.SchemaVersion, payload.SchemaVersion)

	assert.Equal(t, []float64{20, 21, 22, 23}, payload.SeriesCatalog[0].Target.Values[0])
	require.NotNil(t, payload.SeriesCatalog[0].Metadata)
	assert.Equal(t, []string{"partial table"}, payload.SeriesCatalog[0].Metadata.Notes)
	assert.Nil(t, payload.SeriesCatalog[1].Metadata)
}

func TestAggregate_FrequencyConflictScenario(t *testing.T) {
	agg := NewAggregator(zerolog.Nop())
	global := testGlobal()
	fragments := []contracts.SeriesFragment{
		{ChunkID: "A", SeriesID: "s1", Confidence: ptr(0.9), Frequency: ptr("1d"), Target: series(10, 0)},
		{ChunkID: "B", SeriesID: "s1", Confidence: ptr(0.4), Frequency: ptr("1h")},
	}

	payload, err := agg.Aggregate(testTarget(24), global, fragments)
	require.NoError(t, err)
	require.Len(t, payload.SeriesCatalog, 1)

	entry := payload.SeriesCatalog[0]
	require.NotNil(t, entry.Frequency)
	assert.Equal(t, "1d", *entry.Frequency)
	assert.Equal(t, 10, entry.Target.Length())
	assert.Equal(t, float64(0), entry.Target.Values[0][0])

	conflicts := reportsWithStatus(payload.GlobalContext.ValidationReports, contracts.StatusFrequencyConflict)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "s1", conflicts[0].SeriesID)
	assert.Equal(t, "Conflicting frequency '1h' for series 's1'. Keeping '1d'.", conflicts[0].Detail)

	require.NotNil(t, entry.Metadata)
	assert.Equal(t, []string{conflicts[0].Detail}, entry.Metadata.Notes)
}

func TestAggregate_FrequencyFirstSeenWinsRegardlessOfConfidence(t *testing.T) {
	agg := NewAggregator(zerolog.Nop())
	fragments := []contracts.SeriesFragment{
		{ChunkID: "A", SeriesID: "s1", Confidence: ptr(0.1), Frequency: ptr("1h"), Target: series(3, 0)},
		{ChunkID: "B", SeriesID: "s1", Confidence: ptr(0.9), Frequency: ptr("1d")},
		{ChunkID: "C", SeriesID: "s1", Frequency: ptr("1h")},
	}

	payload, err := agg.Aggregate(testTarget(24), testGlobal(), fragments)
	require.NoError(t, err)

	assert.Equal(t, "1h", *payload.SeriesCatalog[0].Frequency)
	assert.Len(t, reportsWithStatus(payload.GlobalContext.ValidationReports, contracts.StatusFrequencyConflict), 1)
}

func TestAggregate_TargetSelection(t *testing.T) {
	tests := []struct {
		name      string
		fragments []contracts.SeriesFragment
		wantFirst float64
	}{
		{
			name: "tie favors later fragment",
			fragments: []contracts.SeriesFragment{
				{SeriesID: "s", Confidence: ptr(0.6), Target: series(3, 0)},
				{SeriesID: "s", Confidence: ptr(0.6), Target: series(3, 100)},
			},
			wantFirst: 100,
		},
		{
			name: "lower confidence does not replace",
			fragments: []contracts.SeriesFragment{
				{SeriesID: "s", Confidence: ptr(0.8), Target: series(3, 0)},
				{SeriesID: "s", Confidence: ptr(0.3), Target: series(3, 100)},
			},
			wantFirst: 0,
		},
		{
			name: "default confidence applies when absent",
			fragments: []contracts.SeriesFragment{
				{SeriesID: "s", Confidence: ptr(0.6), Target: series(3, 0)},
				{SeriesID: "s", Target: series(3, 100)},
			},
			wantFirst: 0,
		},
		{
			name: "default confidence ties with explicit 0.5",
			fragments: []contracts.SeriesFragment{
				{SeriesID: "s", Confidence: ptr(0.5), Target: series(3, 0)},
				{SeriesID: "s", Target: series(3, 100)},
			},
			wantFirst: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := NewAggregator(zerolog.Nop()).Aggregate(testTarget(24), testGlobal(), tt.fragments)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFirst, payload.SeriesCatalog[0].Target.Values[0][0])
		})
	}
}

func TestAggregate_CustomDefaultConfidence(t *testing.T) {
	fragments := []contracts.SeriesFragment{
		{SeriesID: "s", Confidence: ptr(0.6), Target: series(3, 0)},
		{SeriesID: "s", Target: series(3, 100)},
	}

	payload, err := NewAggregatorWithConfidence(0.7, zerolog.Nop()).Aggregate(testTarget(24), testGlobal(), fragments)
	require.NoError(t, err)
	assert.Equal(t, float64(100), payload.SeriesCatalog[0].Target.Values[0][0])

	payload, err = NewAggregator(zerolog.Nop()).Aggregate(testTarget(24), testGlobal(), fragments, WithDefaultConfidence(0.1))
	require.NoError(t, err)
	assert.Equal(t, float64(0), payload.SeriesCatalog[0].Target.Values[0][0])
}

func TestAggregate_SummarySelection(t *testing.T) {
	t.Run("first issue is provisional summary", func(t *testing.T) {
		fragments := []contracts.SeriesFragment{
			{SeriesID: "s", Issues: []string{"units unclear", "gap in march"}},
			{SeriesID: "s", Confidence: ptr(0.2), Target: series(3, 0)},
		}
		payload, err := NewAggregator(zerolog.Nop()).Aggregate(testTarget(24), testGlobal(), fragments)
		require.NoError(t, err)
		require.NotNil(t, payload.SeriesCatalog[0].Summary)
		assert.Equal(t, "units unclear", *payload.SeriesCatalog[0].Summary)
	})

	t.Run("higher confidence summary replaces provisional", func(t *testing.T) {
		fragments := []contracts.SeriesFragment{
			{SeriesID: "s", Confidence: ptr(0.2), Issues: []string{"units unclear"}},
			{SeriesID: "s", Confidence: ptr(0.9), Target: series(3, 0), Summary: ptr("daily revenue")},
		}
		payload, err := NewAggregator(zerolog.Nop()).Aggregate(testTarget(24), testGlobal(), fragments)
		require.NoError(t, err)
		assert.Equal(t, "daily revenue", *payload.SeriesCatalog[0].Summary)
	})

	t.Run("lower confidence summary does not replace", func(t *testing.T) {
		fragments := []contracts.SeriesFragment{
			{SeriesID: "s", Confidence: ptr(0.9), Target: series(3, 0), Summary: ptr("daily revenue")},
			{SeriesID: "s", Confidence: ptr(0.3), Summary: ptr("something else")},
			{SeriesID: "s", Confidence: ptr(0.3), Issues: []string{"late issue"}},
		}
		payload, err := NewAggregator(zerolog.Nop()).Aggregate(testTarget(24), testGlobal(), fragments)
		require.NoError(t, err)
		assert.Equal(t, "daily revenue", *payload.SeriesCatalog[0].Summary)
		assert.Equal(t, []string{"late issue"}, payload.SeriesCatalog[0].Metadata.Notes)
	})
}

func TestAggregate_CovariateMergeTieIsDeterministic(t *testing.T) {
	fragments := []contracts.SeriesFragment{
		{SeriesID: "s", Target: series(3, 0), PastCovariates: map[string]contracts.CovariateSeries{"temp": contracts.NumericCovariate(1, 1, 1)}},
		{SeriesID: "s", PastCovariates: map[string]contracts.CovariateSeries{"temp": contracts.NumericCovariate(2, 2, 2)}},
		{SeriesID: "s", Confidence: ptr(0.1), PastCovariates: map[string]contracts.CovariateSeries{"temp": contracts.NumericCovariate(3, 3, 3)}},
	}

	for run := 0; run < 5; run++ {
		payload, err := NewAggregator(zerolog.Nop()).Aggregate(testTarget(24), testGlobal(), fragments)
		require.NoError(t, err)
		assert.Equal(t, []any{2.0, 2.0, 2.0}, payload.SeriesCatalog[0].PastCovariates["temp"].Values, "run %d", run)
	}
}

func TestCandidateSet_KeepsPositionOnReplace(t *testing.T) {
	set := newCandidateSet()
	assert.True(t, set.merge("a", contracts.NumericCovariate(1), 0.5))
	assert.True(t, set.merge("b", contracts.NumericCovariate(1), 0.5))
	assert.True(t, set.merge("a", contracts.NumericCovariate(2), 0.5))
	assert.False(t, set.merge("b", contracts.NumericCovariate(2), 0.4))

	assert.Equal(t, []string{"a", "b"}, set.names)
	assert.True(t, set.remove("a"))
	assert.False(t, set.remove("a"))
	assert.Equal(t, []string{"b"}, set.names)
	assert.Equal(t, 1, set.len())
}

func TestAggregate_CapacityDropsLowestConfidence(t *testing.T) {
	// 30 covariates, distinct confidences, alternating scopes
	fragments := []contracts.SeriesFragment{{SeriesID: "s", Confidence: ptr(1.0), Target: series(3, 0)}}
	for i := 0; i < 30; i++ {
		name := fmt.Sprintf("cov%02d", i)
		frag := contracts.SeriesFragment{SeriesID: "s", Confidence: ptr(0.01 * float64(i+1))}
		if i%2 == 0 {
			frag.PastCovariates = map[string]contracts.CovariateSeries{name: contracts.NumericCovariate(1, 2, 3)}
		} else {
			frag.FutureCovariates = map[string]contracts.CovariateSeries{name: contracts.NumericCovariate(1)}
		}
		fragments = append(fragments, frag)
	}

	global := testGlobal()
	payload, err := NewAggregator(zerolog.Nop()).Aggregate(testTarget(24), global, fragments)
	require.NoError(t, err)

	entry := payload.SeriesCatalog[0]
	assert.Equal(t, 24, entry.CovariateCount())

	wantDropped := []string{"cov00", "cov01", "cov02", "cov03", "cov04", "cov05"}
	assert.Equal(t, wantDropped, entry.DroppedCovariates())

	for i := 6; i < 30; i++ {
		name := fmt.Sprintf("cov%02d", i)
		_, inPast := entry.PastCovariates[name]
		_, inFuture := entry.FutureCovariates[name]
		assert.True(t, inPast || inFuture, "expected %s to survive", name)
	}

	drops := reportsWithStatus(payload.GlobalContext.ValidationReports, contracts.StatusCovariateDropped)
	require.Len(t, drops, 6)
	assert.Equal(t, "Dropped covariate 'cov00' to respect max_covariates=24.", drops[0].Detail)
	assert.Len(t, entry.Metadata.Notes, 6)

	// caller's context also carries the reports
	assert.Len(t, reportsWithStatus(global.ValidationReports, contracts.StatusCovariateDropped), 6)
}

func TestAggregate_CapacityTiesEvictPastFirst(t *testing.T) {
	fragments := []contracts.SeriesFragment{{
		SeriesID:         "s",
		Target:           series(3, 0),
		PastCovariates:   map[string]contracts.CovariateSeries{"a": contracts.NumericCovariate(1, 2, 3)},
		FutureCovariates: map[string]contracts.CovariateSeries{"b": contracts.NumericCovariate(1)},
	}}

	payload, err := NewAggregator(zerolog.Nop()).Aggregate(testTarget(1), testGlobal(), fragments)
	require.NoError(t, err)

	entry := payload.SeriesCatalog[0]
	assert.Nil(t, entry.PastCovariates)
	assert.Contains(t, entry.FutureCovariates, "b")
	assert.Equal(t, []string{"a"}, entry.DroppedCovariates())
}

func TestAggregate_CapacityZeroDropsAll(t *testing.T) {
	fragments := []contracts.SeriesFragment{{
		SeriesID:       "s",
		Target:         series(3, 0),
		PastCovariates: map[string]contracts.CovariateSeries{"a": contracts.NumericCovariate(1, 2, 3), "b": contracts.NumericCovariate(1, 2, 3)},
	}}

	payload, err := NewAggregator(zerolog.Nop()).Aggregate(testTarget(0), testGlobal(), fragments)
	require.NoError(t, err)
	assert.Equal(t, 0, payload.SeriesCatalog[0].CovariateCount())
	assert.Len(t, payload.GlobalContext.ValidationReports, 2)
}

func TestAggregate_NoEvictionUnderCap(t *testing.T) {
	fragments := []contracts.SeriesFragment{{
		SeriesID:       "s",
		Target:         series(3, 0),
		PastCovariates: map[string]contracts.CovariateSeries{"a": contracts.NumericCovariate(1, 2, 3)},
	}}

	payload, err := NewAggregator(zerolog.Nop()).Aggregate(testTarget(1), testGlobal(), fragments)
	require.NoError(t, err)
	assert.Empty(t, payload.GlobalContext.ValidationReports)
	assert.Nil(t, payload.SeriesCatalog[0].Metadata)
}

func TestAggregate_PassThroughOptions(t *testing.T) {
	meta := &contracts.RequestMeta{JobID: ptr("job-1")}
	catalog := []contracts.CovariateCatalogEntry{{CovariateID: "temp", Type: contracts.CovariateContinuous}}
	fragments := []contracts.SeriesFragment{{SeriesID: "s", Target: series(3, 0)}}

	payload, err := NewAggregator(zerolog.Nop()).Aggregate(testTarget(24), testGlobal(), fragments,
		WithRequestMeta(meta), WithCovariateCatalog(catalog))
	require.NoError(t, err)

	assert.Same(t, meta, payload.RequestMeta)
	assert.Equal(t, catalog, payload.CovariateCatalog)
	assert.Equal(t, 24, payload.Target.MaxCovariates)
	assert.Equal(t, 12, payload.GlobalContext.PredictionHorizon)
	assert.NoError(t, payload.Validate())
}
