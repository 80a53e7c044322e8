// Package bandmath provides ready-made tile callbacks for rasterblock
// processors. Arithmetic runs on float64 lanes through go-highway and the
// results are rounded and saturated to the output element type.
package bandmath

import (
	"fmt"

	"github.com/ajroetker/go-highway/hwy"

	"github.com/woozymasta/rasterblock"
)

// Scale returns a transform writing in*factor. It is safe for in-place runs.
func Scale[T rasterblock.Element](factor float64) rasterblock.TransformFunc[T, T] {
	return func(in, out []T, _ rasterblock.BlockInfo) error {
		return affine(in, out, factor, 0)
	}
}

// Offset returns a transform writing in+delta. It is safe for in-place runs.
func Offset[T rasterblock.Element](delta float64) rasterblock.TransformFunc[T, T] {
	return func(in, out []T, _ rasterblock.BlockInfo) error {
		return affine(in, out, 1, delta)
	}
}

// Mean returns a reduction writing the per-pixel mean of all input bands.
func Mean[T, U rasterblock.Element]() rasterblock.ReduceFunc[T, U] {
	return func(in [][]T, out []U, _ rasterblock.BlockInfo) error {
		if len(in) == 0 {
			return fmt.Errorf("%w: no input bands", ErrBandIndex)
		}

		sum := make([]float64, len(out))
		band := make([]float64, len(out))
		for _, src := range in {
			if err := widen(band, src); err != nil {
				return err
			}
			eachVector(len(sum), func(lo, hi int) {
				hwy.Store(hwy.Add(hwy.Load(sum[lo:hi]), hwy.Load(band[lo:hi])), sum[lo:hi])
			})
		}

		n := hwy.Set(float64(len(in)))
		eachVector(len(sum), func(lo, hi int) {
			hwy.Store(hwy.Div(hwy.Load(sum[lo:hi]), n), sum[lo:hi])
		})

		narrow(out, sum)

		return nil
	}
}

// NormalizedDifference returns a reduction writing (a-b)/(a+b) for the
// 1-based bands a and b, e.g. NDVI with a = NIR and b = red. Pixels where
// a+b is zero are written as zero.
func NormalizedDifference[T, U rasterblock.Element](a, b int) rasterblock.ReduceFunc[T, U] {
	return func(in [][]T, out []U, _ rasterblock.BlockInfo) error {
		for _, band := range []int{a, b} {
			if band < 1 || band > len(in) {
				return fmt.Errorf("%w: %d of %d", ErrBandIndex, band, len(in))
			}
		}

		x := make([]float64, len(out))
		y := make([]float64, len(out))
		if err := widen(x, in[a-1]); err != nil {
			return err
		}
		if err := widen(y, in[b-1]); err != nil {
			return err
		}

		zero := hwy.Zero[float64]()
		eachVector(len(x), func(lo, hi int) {
			vx, vy := hwy.Load(x[lo:hi]), hwy.Load(y[lo:hi])
			den := hwy.Add(vx, vy)
			q := hwy.Div(hwy.Sub(vx, vy), den)
			hwy.Store(hwy.IfThenElse(hwy.Equal(den, zero), zero, q), x[lo:hi])
		})

		narrow(out, x)

		return nil
	}
}

func affine[T rasterblock.Element](in, out []T, mul, add float64) error {
	if len(out) < len(in) {
		return fmt.Errorf("%w: %d outputs for %d inputs", ErrLength, len(out), len(in))
	}

	buf := make([]float64, len(in))
	if err := widen(buf, in); err != nil {
		return err
	}

	m, a := hwy.Set(mul), hwy.Set(add)
	eachVector(len(buf), func(lo, hi int) {
		hwy.Store(hwy.FMA(hwy.Load(buf[lo:hi]), m, a), buf[lo:hi])
	})

	narrow(out[:len(in)], buf)

	return nil
}

// eachVector calls fn for consecutive [lo, hi) ranges of at most one vector.
func eachVector(n int, fn func(lo, hi int)) {
	lanes := hwy.MaxLanes[float64]()
	hwy.ProcessWithTail[float64](n,
		func(off int) { fn(off, off+lanes) },
		func(off, count int) { fn(off, off+count) },
	)
}

func widen[T rasterblock.Element](dst []float64, src []T) error {
	if len(src) != len(dst) {
		return fmt.Errorf("%w: band holds %d elements, tile %d", ErrLength, len(src), len(dst))
	}
	for i, v := range src {
		dst[i] = float64(v)
	}

	return nil
}

func narrow[U rasterblock.Element](dst []U, src []float64) {
	for i, v := range src {
		dst[i] = rasterblock.FromFloat64[U](v)
	}
}
