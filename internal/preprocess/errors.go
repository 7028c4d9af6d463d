package preprocess

import "errors"

var (
	ErrInvalidHorizon      = errors.New("invalid prediction horizon")
	ErrCovariateLength     = errors.New("covariate length mismatch")
	ErrCovariateShape      = errors.New("covariate shape")
	ErrUnsupportedStrategy = errors.New("unsupported context strategy")
	ErrCadenceLost         = errors.New("cadence lost after truncation")
	ErrEmptyCatalog        = errors.New("empty series catalog")
)

// Error is a fatal preprocessing failure for one series
type Error struct {
	SeriesID string
	Field    string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}
