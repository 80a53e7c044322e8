package bandmath_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/rasterblock"
	"github.com/woozymasta/rasterblock/bandmath"
	"github.com/woozymasta/rasterblock/mem"
)

var info = rasterblock.BlockInfo{}

func TestScale(t *testing.T) {
	t.Parallel()

	in := []float32{0, 1, 2.5, -4, 8, 16, 32, 64, 128, 3}
	out := make([]float32, len(in))
	require.NoError(t, bandmath.Scale[float32](0.5)(in, out, info))
	assert.Equal(t, []float32{0, 0.5, 1.25, -2, 4, 8, 16, 32, 64, 1.5}, out)
}

func TestScaleSaturatesIntegers(t *testing.T) {
	t.Parallel()

	in := []uint8{0, 1, 2, 100, 127, 128, 200}
	require.NoError(t, bandmath.Scale[uint8](2)(in, in, info))
	assert.Equal(t, []uint8{0, 2, 4, 200, 254, 255, 255}, in)

	neg := []int16{5, -5, 30000}
	require.NoError(t, bandmath.Scale[int16](-1.5)(neg, neg, info))
	assert.Equal(t, []int16{-8, 8, -32768}, neg)
}

func TestOffset(t *testing.T) {
	t.Parallel()

	in := []uint16{0, 10, 65530, 3}
	out := make([]uint16, len(in))
	require.NoError(t, bandmath.Offset[uint16](10)(in, out, info))
	assert.Equal(t, []uint16{10, 20, 65535, 13}, out)

	err := bandmath.Offset[uint16](1)(in, out[:2], info)
	require.ErrorIs(t, err, bandmath.ErrLength)
}

func TestMean(t *testing.T) {
	t.Parallel()

	in := [][]uint8{
		{0, 10, 255, 1, 7},
		{0, 20, 255, 2, 8},
		{0, 31, 255, 2, 9},
	}
	out := make([]float64, 5)
	require.NoError(t, bandmath.Mean[uint8, float64]()(in, out, info))
	assert.InDeltaSlice(t, []float64{0, 61.0 / 3, 255, 5.0 / 3, 8}, out, 1e-12)

	rounded := make([]uint8, 5)
	require.NoError(t, bandmath.Mean[uint8, uint8]()(in, rounded, info))
	assert.Equal(t, []uint8{0, 20, 255, 2, 8}, rounded)

	require.ErrorIs(t, bandmath.Mean[uint8, uint8]()(nil, rounded, info), bandmath.ErrBandIndex)
}

func TestNormalizedDifference(t *testing.T) {
	t.Parallel()

	red := []uint16{10, 0, 50, 0, 30}
	nir := []uint16{30, 0, 50, 40, 10}
	out := make([]float32, 5)

	fn := bandmath.NormalizedDifference[uint16, float32](2, 1)
	require.NoError(t, fn([][]uint16{red, nir}, out, info))
	assert.InDeltaSlice(t, []float32{0.5, 0, 0, 1, -0.5}, out, 1e-6)

	err := bandmath.NormalizedDifference[uint16, float32](3, 1)([][]uint16{red, nir}, out, info)
	require.ErrorIs(t, err, bandmath.ErrBandIndex)
}

func TestProcessorWithBandMath(t *testing.T) {
	t.Parallel()

	drv := mem.New()
	var reg rasterblock.Registry
	reg.Register(drv)

	ds, err := drv.Create("bands", 9, 5, 2, rasterblock.UInt16, nil)
	require.NoError(t, err)
	require.NoError(t, drv.Fill("bands", func(band, x, y int) float64 {
		return float64(band*100 + x + y)
	}))
	require.NoError(t, ds.Close())

	opts := &rasterblock.Options{MaxTileExtent: 4, OutputFormat: mem.DriverName, Registry: &reg}

	scale := rasterblock.New[uint16, uint16]("bands", "", opts)
	require.NoError(t, scale.Run(bandmath.Scale[uint16](2), rasterblock.Square, true))
	require.NoError(t, scale.Close())

	nd := rasterblock.New[uint16, float32]("bands", "nd", opts)
	require.NoError(t, nd.RunReduction(bandmath.NormalizedDifference[uint16, float32](2, 1), rasterblock.HorizontalStrip))
	require.NoError(t, nd.Close())

	planes, err := drv.Planes("nd")
	require.NoError(t, err)
	require.Len(t, planes, 1)

	for y := range 5 {
		for x := range 9 {
			r, n := float64(2*(100+x+y)), float64(2*(200+x+y))
			want := (n - r) / (n + r)
			assert.InDelta(t, want, planes[0][y*9+x], 1e-6, "pixel %d,%d", x, y)
		}
	}
}
