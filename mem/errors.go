package mem

import "errors"

var (
	// ErrNotFound indicates no in-memory dataset has the requested name.
	ErrNotFound = errors.New("dataset not found")
	// ErrInvalidSize indicates non-positive raster dimensions or band count.
	ErrInvalidSize = errors.New("invalid raster size")
)
