package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CovariateType tags a covariate as numeric or label valued
type CovariateType string

const (
	CovariateContinuous  CovariateType = "continuous"
	CovariateCategorical CovariateType = "categorical"
)

// SeriesArray is an ordered multi-variate numeric history
// ⭐ SSOT: target 값은 항상 [variate][time] 형태로 보관
type SeriesArray struct {
	Values       [][]float64 `json:"values" yaml:"values"`
	Timestamps   []string    `json:"timestamps,omitempty" yaml:"timestamps,omitempty"`
	SourceChunks []string    `json:"source_chunks,omitempty" yaml:"source_chunks,omitempty"`
	Units        *string     `json:"units,omitempty" yaml:"units,omitempty"`
	ScaleFactor  *float64    `json:"scale_factor,omitempty" yaml:"scale_factor,omitempty"`
	Normalized   *bool       `json:"normalized,omitempty" yaml:"normalized,omitempty"`
}

// NewUnivariate wraps a single variate
func NewUnivariate(values []float64, timestamps ...string) *SeriesArray {
	return &SeriesArray{
		Values:     [][]float64{values},
		Timestamps: timestamps,
	}
}

// Length returns the per-variate history length
func (s *SeriesArray) Length() int {
	if s == nil || len(s.Values) == 0 {
		return 0
	}
	return len(s.Values[0])
}

// Variates returns the number of co-evolving variates
func (s *SeriesArray) Variates() int {
	if s == nil {
		return 0
	}
	return len(s.Values)
}

// Validate checks that all variates share one length and timestamps align
func (s *SeriesArray) Validate() error {
	if s == nil || len(s.Values) == 0 {
		return fmt.Errorf("%w: series values must not be empty", ErrInvalid)
	}
	expected := len(s.Values[0])
	if expected == 0 {
		return fmt.Errorf("%w: series values must not be empty", ErrInvalid)
	}
	for _, row := range s.Values[1:] {
		if len(row) != expected {
			return fmt.Errorf("%w: all variates must share the same history length", ErrInvalid)
		}
	}
	if len(s.Timestamps) > 0 && len(s.Timestamps) != expected {
		return fmt.Errorf("%w: timestamps length must match the history length of values (%d != %d)",
			ErrInvalid, len(s.Timestamps), expected)
	}
	return nil
}

// UnmarshalJSON accepts both a flat array (one variate) and a nested array.
func (s *SeriesArray) UnmarshalJSON(data []byte) error {
	type alias SeriesArray
	var raw struct {
		alias
		Values []json.RawMessage `json:"values"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = SeriesArray(raw.alias)
	if len(raw.Values) == 0 {
		s.Values = [][]float64{{}}
		return nil
	}

	if isJSONArray(raw.Values[0]) {
		s.Values = make([][]float64, 0, len(raw.Values))
		for _, rowRaw := range raw.Values {
			if !isJSONArray(rowRaw) {
				return fmt.Errorf("mixed dimensionality detected in series values")
			}
			var row []float64
			if err := json.Unmarshal(rowRaw, &row); err != nil {
				return fmt.Errorf("series values: %w", err)
			}
			s.Values = append(s.Values, row)
		}
		return nil
	}

	flat := make([]float64, 0, len(raw.Values))
	for _, v := range raw.Values {
		if isJSONArray(v) {
			return fmt.Errorf("mixed dimensionality detected in series values")
		}
		var f float64
		if err := json.Unmarshal(v, &f); err != nil {
			return fmt.Errorf("series values: %w", err)
		}
		flat = append(flat, f)
	}
	s.Values = [][]float64{flat}
	return nil
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}

// CovariateSeries is a named auxiliary signal aligned to history (past) or horizon (future).
// Values 는 숫자, 문자열, 또는 단일 nested row 를 허용 (전처리 단계에서 1차원으로 정규화)
type CovariateSeries struct {
	Values      []any         `json:"values" yaml:"values"`
	Timestamps  []string      `json:"timestamps,omitempty" yaml:"timestamps,omitempty"`
	Type        CovariateType `json:"type,omitempty" yaml:"type,omitempty" validate:"omitempty,oneof=continuous categorical"`
	Units       *string       `json:"units,omitempty" yaml:"units,omitempty"`
	ScaleFactor *float64      `json:"scale_factor,omitempty" yaml:"scale_factor,omitempty"`
}

// NumericCovariate builds a continuous covariate from floats
func NumericCovariate(values ...float64) CovariateSeries {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return CovariateSeries{Values: out, Type: CovariateContinuous}
}

// CategoricalCovariate builds a categorical covariate from labels
func CategoricalCovariate(labels ...string) CovariateSeries {
	out := make([]any, len(labels))
	for i, v := range labels {
		out[i] = v
	}
	return CovariateSeries{Values: out, Type: CovariateCategorical}
}

// Len returns the aligned length; a single nested row counts as its inner length.
func (c CovariateSeries) Len() int {
	if len(c.Values) == 1 {
		if row, ok := c.Values[0].([]any); ok {
			return len(row)
		}
	}
	return len(c.Values)
}

// Validate checks the covariate type tag and timestamp alignment
func (c CovariateSeries) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}
	if len(c.Timestamps) > 0 && len(c.Timestamps) != c.Len() {
		return fmt.Errorf("%w: covariate timestamps must match value length (%d != %d)",
			ErrInvalid, len(c.Timestamps), c.Len())
	}
	return nil
}
