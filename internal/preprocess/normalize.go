package preprocess

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/wonny/forecaster/internal/contracts"
)

// NormalizeCovariate flattens a covariate into a one-dimensional numeric or label array.
// 단일 row 의 2차원 입력은 펼치고, 여러 row 또는 3차원 이상은 거부
func NormalizeCovariate(seriesID, field string, cov contracts.CovariateSeries) (contracts.CovariateArray, error) {
	values := cov.Values

	nested := 0
	for _, v := range values {
		if _, ok := v.([]any); ok {
			nested++
		}
	}
	if nested > 0 {
		if nested != len(values) || len(values) != 1 {
			return contracts.CovariateArray{}, shapeError(seriesID, field, "Covariate arrays must be one-dimensional after normalisation.")
		}
		values = values[0].([]any)
		for _, v := range values {
			if _, ok := v.([]any); ok {
				return contracts.CovariateArray{}, shapeError(seriesID, field, "Covariate arrays cannot exceed 2 dimensions.")
			}
		}
	}

	numeric := make([]float64, len(values))
	labels := make([]string, len(values))
	categorical := false
	for i, v := range values {
		f, s, isNumber, err := scalar(v)
		if err != nil {
			return contracts.CovariateArray{}, shapeError(seriesID, field, err.Error())
		}
		if isNumber {
			numeric[i] = f
			labels[i] = strconv.FormatFloat(f, 'g', -1, 64)
		} else {
			categorical = true
			labels[i] = s
		}
	}

	if categorical {
		return contracts.CovariateArray{Categorical: labels}, nil
	}
	return contracts.CovariateArray{Numeric: numeric}, nil
}

func scalar(v any) (float64, string, bool, error) {
	switch x := v.(type) {
	case float64:
		return x, "", true, nil
	case float32:
		return float64(x), "", true, nil
	case int:
		return float64(x), "", true, nil
	case int64:
		return float64(x), "", true, nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, "", false, fmt.Errorf("invalid covariate number %q", x.String())
		}
		return f, "", true, nil
	case string:
		return 0, x, false, nil
	default:
		return 0, "", false, fmt.Errorf("unsupported covariate value of type %T", v)
	}
}

func shapeError(seriesID, field, msg string) *Error {
	return &Error{SeriesID: seriesID, Field: field, Message: msg, Err: ErrCovariateShape}
}

func copyTarget(values [][]float64) [][]float64 {
	out := make([][]float64, len(values))
	for i, row := range values {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
