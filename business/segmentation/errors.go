package segmentation

import "errors"

var (
	// ErrInsufficientData means an axis population is below the configured minimum.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrMissingScaler flags a stored segment without scaler parameters.
	ErrMissingScaler = errors.New("segment has no scaler parameters")
	// ErrDimensionMismatch flags a center, scaler and feature list that disagree in length.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrUnknownAxis       = errors.New("unknown axis")
	ErrNoSegments        = errors.New("no usable segments")
	ErrNotFound          = errors.New("not found")
)
