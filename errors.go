package rasterblock

import "errors"

var (
	// ErrOpen indicates the input dataset could not be opened.
	ErrOpen = errors.New("open dataset failed")
	// ErrInvalidOutputPath indicates an empty output path, or one equal to the input path.
	ErrInvalidOutputPath = errors.New("invalid output path")
	// ErrTypeMismatchForInPlace indicates in-place processing with differing element types.
	ErrTypeMismatchForInPlace = errors.New("in-place processing requires matching element types")
	// ErrDriverUnavailable indicates the requested output driver is not registered.
	ErrDriverUnavailable = errors.New("driver unavailable")
	// ErrDriverLacksCreate indicates the output driver cannot create datasets.
	ErrDriverLacksCreate = errors.New("driver lacks create capability")
	// ErrCreate indicates the output driver refused to create the dataset.
	ErrCreate = errors.New("create dataset failed")
	// ErrTileRead indicates a tile read failed.
	ErrTileRead = errors.New("tile read failed")
	// ErrCallback indicates the transform callback reported failure.
	ErrCallback = errors.New("callback failed")
	// ErrTileWrite indicates a tile write or band flush failed.
	ErrTileWrite = errors.New("tile write failed")
	// ErrBufferType indicates a tile buffer of unsupported type or wrong length.
	ErrBufferType = errors.New("unsupported tile buffer")
	// ErrBandRange indicates a band index outside 1..BandCount.
	ErrBandRange = errors.New("band index out of range")
	// ErrTileBounds indicates a tile rectangle outside the raster extent.
	ErrTileBounds = errors.New("tile outside raster extent")
	// ErrClosed indicates use of a closed dataset.
	ErrClosed = errors.New("dataset closed")
	// ErrReadOnly indicates a write to a dataset opened read-only.
	ErrReadOnly = errors.New("dataset opened read-only")
	// ErrUnknownDataType indicates an unknown element type name or value.
	ErrUnknownDataType = errors.New("unknown data type")
	// ErrUnknownBlockShape indicates an unknown block shape name.
	ErrUnknownBlockShape = errors.New("unknown block shape")
	// ErrCreateOption indicates a malformed or unsupported creation option.
	ErrCreateOption = errors.New("invalid creation option")
)
