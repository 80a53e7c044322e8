package main

import (
	"fmt"

	"github.com/woozymasta/rasterblock"
	"github.com/woozymasta/rasterblock/bandmath"
)

// applyJob is one apply invocation.
type applyJob struct {
	input   string
	output  string
	op      string
	value   float64
	inPlace bool
	opts    *rasterblock.Options
}

// runApply runs job with tiles read and written as the element type of dtype,
// which in-place runs require.
func runApply(dtype rasterblock.DataType, job applyJob) error {
	switch dtype {
	case rasterblock.Byte:
		return applyAs[uint8](job)
	case rasterblock.UInt16:
		return applyAs[uint16](job)
	case rasterblock.Int16:
		return applyAs[int16](job)
	case rasterblock.UInt32:
		return applyAs[uint32](job)
	case rasterblock.Int32:
		return applyAs[int32](job)
	case rasterblock.Float32:
		return applyAs[float32](job)
	case rasterblock.Float64:
		return applyAs[float64](job)
	default:
		return fmt.Errorf("%w: %s", rasterblock.ErrUnknownDataType, dtype)
	}
}

func applyAs[T rasterblock.Element](job applyJob) error {
	fn := bandmath.Scale[T](job.value)
	if job.op == "offset" {
		fn = bandmath.Offset[T](job.value)
	}

	p := rasterblock.New[T, T](job.input, job.output, job.opts)
	defer func() { _ = p.Close() }()

	return p.Run(fn, rasterblock.ShapeDefault, job.inPlace)
}
