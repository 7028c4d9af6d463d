package aggregation

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/wonny/forecaster/internal/contracts"
)

type covariateScope string

const (
	scopePast   covariateScope = "past"
	scopeFuture covariateScope = "future"
)

type evictionCandidate struct {
	scope      covariateScope
	name       string
	confidence float64
}

// enforceCovariateCap evicts the lowest-confidence covariates until
// |past| + |future| <= maxCovariates. Returns the evicted names in eviction order.
func enforceCovariateCap(s *aggregatedSeries, maxCovariates int, global *contracts.GlobalContext, log zerolog.Logger) []string {
	total := s.past.len() + s.future.len()
	if total <= maxCovariates {
		return nil
	}

	// past 먼저, 그 다음 future (각각 삽입 순서)
	candidates := make([]evictionCandidate, 0, total)
	for _, name := range s.past.names {
		c, _ := s.past.get(name)
		candidates = append(candidates, evictionCandidate{scope: scopePast, name: name, confidence: c.confidence})
	}
	for _, name := range s.future.names {
		c, _ := s.future.get(name)
		candidates = append(candidates, evictionCandidate{scope: scopeFuture, name: name, confidence: c.confidence})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].confidence < candidates[j].confidence
	})

	var dropped []string
	for s.past.len()+s.future.len() > maxCovariates && len(candidates) > 0 {
		victim := candidates[0]
		candidates = candidates[1:]

		switch victim.scope {
		case scopePast:
			s.past.remove(victim.name)
		case scopeFuture:
			s.future.remove(victim.name)
		}

		msg := fmt.Sprintf("Dropped covariate '%s' to respect max_covariates=%d.", victim.name, maxCovariates)
		log.Warn().
			Str("series_id", s.seriesID).
			Str("covariate", victim.name).
			Str("scope", string(victim.scope)).
			Float64("confidence", victim.confidence).
			Msg("forecast.covariate.dropped")
		s.issues = append(s.issues, msg)
		s.dropped = append(s.dropped, victim.name)
		dropped = append(dropped, victim.name)
		global.AddReport(s.seriesID, contracts.StatusCovariateDropped, msg)
	}

	return dropped
}
