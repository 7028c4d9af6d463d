package aggregation

import "errors"

var (
	// ErrNoFragments is returned when Aggregate is called with nothing to merge
	ErrNoFragments = errors.New("no fragments")
	// ErrMissingTarget is returned when a series never received a target
	ErrMissingTarget = errors.New("missing target")
)

// Error is a fatal, non-retryable aggregation failure
type Error struct {
	SeriesID string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}
