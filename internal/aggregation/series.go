package aggregation

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wonny/forecaster/internal/contracts"
)

// aggregatedSeries accumulates every fragment for one series_id during a single Aggregate call
type aggregatedSeries struct {
	seriesID         string
	frequency        *string
	summary          *string
	target           *contracts.SeriesArray
	targetConfidence float64
	past             *candidateSet
	future           *candidateSet
	issues           []string
	dropped          []string
}

func newAggregatedSeries(seriesID string) *aggregatedSeries {
	return &aggregatedSeries{
		seriesID: seriesID,
		past:     newCandidateSet(),
		future:   newCandidateSet(),
	}
}

// fold merges one fragment. 순서: frequency → target → summary → past → future → issues
func (s *aggregatedSeries) fold(frag *contracts.SeriesFragment, confidence float64, global *contracts.GlobalContext, log zerolog.Logger) {
	if frag.Frequency != nil && *frag.Frequency != "" {
		if s.frequency != nil && *s.frequency != *frag.Frequency {
			// first-seen wins, confidence 무관
			msg := fmt.Sprintf("Conflicting frequency '%s' for series '%s'. Keeping '%s'.",
				*frag.Frequency, s.seriesID, *s.frequency)
			log.Warn().
				Str("series_id", s.seriesID).
				Str("chunk_id", frag.ChunkID).
				Str("kept", *s.frequency).
				Str("rejected", *frag.Frequency).
				Msg("forecast.fragment.frequency_conflict")
			s.issues = append(s.issues, msg)
			global.AddReport(s.seriesID, contracts.StatusFrequencyConflict, msg)
		} else {
			freq := *frag.Frequency
			s.frequency = &freq
		}
	}

	if frag.Target != nil && confidence >= s.targetConfidence {
		s.target = frag.Target
		s.targetConfidence = confidence
	}

	if frag.Summary != nil && *frag.Summary != "" && (s.summary == nil || confidence >= s.targetConfidence) {
		summary := *frag.Summary
		s.summary = &summary
	} else if s.summary == nil && len(frag.Issues) > 0 {
		// 임시 summary: 이후 충분한 confidence 의 summary 가 오면 교체됨
		provisional := frag.Issues[0]
		s.summary = &provisional
	}

	for _, name := range sortedNames(frag.PastCovariates) {
		s.past.merge(name, frag.PastCovariates[name], confidence)
	}
	for _, name := range sortedNames(frag.FutureCovariates) {
		s.future.merge(name, frag.FutureCovariates[name], confidence)
	}

	s.issues = append(s.issues, frag.Issues...)
}

// entry materializes the catalog entry; metadata only when notes or drops exist
func (s *aggregatedSeries) entry() contracts.SeriesCatalogEntry {
	entry := contracts.SeriesCatalogEntry{
		SeriesID:         s.seriesID,
		Summary:          s.summary,
		Frequency:        s.frequency,
		Target:           *s.target,
		PastCovariates:   s.past.covariates(),
		FutureCovariates: s.future.covariates(),
	}
	if len(s.issues) > 0 || len(s.dropped) > 0 {
		entry.Metadata = &contracts.SeriesMetadata{
			Notes:             append([]string(nil), s.issues...),
			DroppedCovariates: append([]string(nil), s.dropped...),
		}
		if len(entry.Metadata.Notes) == 0 {
			entry.Metadata.Notes = nil
		}
		if len(entry.Metadata.DroppedCovariates) == 0 {
			entry.Metadata.DroppedCovariates = nil
		}
	}
	return entry
}
