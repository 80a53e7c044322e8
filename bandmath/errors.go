package bandmath

import "errors"

var (
	// ErrLength indicates an output tile shorter than its input.
	ErrLength = errors.New("tile length mismatch")
	// ErrBandIndex indicates a band index outside the reduced bands.
	ErrBandIndex = errors.New("band index out of range")
)
