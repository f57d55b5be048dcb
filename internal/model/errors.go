package model

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyWindow is returned when no input rows were supplied.
	ErrEmptyWindow = errors.New("window has no rows")

	// ErrInvalidHorizon is returned for a non-positive or too large forecast horizon.
	ErrInvalidHorizon = errors.New("invalid forecast horizon")

	// ErrPredictionUnavailable wraps any failure of the sequence predictor.
	ErrPredictionUnavailable = errors.New("prediction unavailable")
)

// ShapeError reports a row whose width is not NumFeatures.
type ShapeError struct {
	Row   int
	Width int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("row %d has %d features, expected %d", e.Row, e.Width, NumFeatures)
}

// InsufficientDataError reports a window shorter than SequenceLength when
// padding is disabled.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("window has %d rows, need at least %d", e.Have, e.Need)
}

// IsInputError reports whether err was caused by invalid caller input
// rather than by the predictor backend.
func IsInputError(err error) bool {
	var shapeErr *ShapeError
	var dataErr *InsufficientDataError
	return errors.As(err, &shapeErr) ||
		errors.As(err, &dataErr) ||
		errors.Is(err, ErrEmptyWindow) ||
		errors.Is(err, ErrInvalidHorizon)
}
