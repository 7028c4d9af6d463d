package aggregation

import (
	"sort"

	"github.com/wonny/forecaster/internal/contracts"
)

// candidate is the currently selected value for one covariate name
type candidate struct {
	covariate  contracts.CovariateSeries
	confidence float64
}

// candidateSet keeps covariate candidates in first-insertion order.
// 교체된 이름은 원래 위치를 유지함 (capacity 단계의 stable sort 기준)
type candidateSet struct {
	names  []string
	byName map[string]candidate
}

func newCandidateSet() *candidateSet {
	return &candidateSet{byName: make(map[string]candidate)}
}

// merge replaces the candidate iff confidence >= existing confidence.
// 동률이면 나중 fragment 가 이김 (>=, not >)
func (s *candidateSet) merge(name string, cov contracts.CovariateSeries, confidence float64) bool {
	existing, ok := s.byName[name]
	if ok && confidence < existing.confidence {
		return false
	}
	if !ok {
		s.names = append(s.names, name)
	}
	s.byName[name] = candidate{covariate: cov, confidence: confidence}
	return true
}

func (s *candidateSet) remove(name string) bool {
	if _, ok := s.byName[name]; !ok {
		return false
	}
	delete(s.byName, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			break
		}
	}
	return true
}

func (s *candidateSet) len() int {
	return len(s.names)
}

func (s *candidateSet) get(name string) (candidate, bool) {
	c, ok := s.byName[name]
	return c, ok
}

// covariates materializes the selection; nil when empty
func (s *candidateSet) covariates() map[string]contracts.CovariateSeries {
	if len(s.names) == 0 {
		return nil
	}
	out := make(map[string]contracts.CovariateSeries, len(s.names))
	for _, name := range s.names {
		out[name] = s.byName[name].covariate
	}
	return out
}

// sortedNames gives a fragment's covariate map a stable iteration order
func sortedNames(m map[string]contracts.CovariateSeries) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
