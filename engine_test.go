package rasterblock

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// testSetup registers a fake driver in a private registry and returns both.
func testSetup(t *testing.T) (*fakeDriver, *Options) {
	t.Helper()

	drv := newFakeDriver("FAKE")
	reg := &Registry{}
	reg.Register(drv)

	return drv, &Options{Registry: reg, OutputFormat: "FAKE"}
}

func requireNoLiveSlabs(t *testing.T, before int64) {
	t.Helper()
	require.Equal(t, before, liveSlabs.Load(), "tile buffers leaked")
}

func copyTransform[T Element](in []T, out []T, _ BlockInfo) error {
	copy(out, in)
	return nil
}

func TestRunCallbackCardinality(t *testing.T) {
	drv, opts := testSetup(t)
	drv.add("in.fake", 12, 12, 3, Float32, func(band, x, y int) float64 { return float64(band*1000 + y*12 + x) })
	opts.MaxTileExtent = 5

	p := New[float32, float64]("in.fake", "out.fake", opts)
	defer func() { require.NoError(t, p.Close()) }()

	var infos []BlockInfo
	err := p.Run(func(in []float32, out []float64, info BlockInfo) error {
		require.Len(t, in, info.Tile.Len())
		require.Len(t, out, info.Tile.Len())
		for i, v := range in {
			out[i] = float64(v) * 2
		}
		infos = append(infos, info)
		return nil
	}, Square, false)
	require.NoError(t, err)

	// 3 bands x 3x3 non-empty tiles
	require.Len(t, infos, 27)
	for i, info := range infos {
		require.Equal(t, i+1, info.Index)
		require.Equal(t, 27, info.Total)
		require.Equal(t, 3, info.BandCount)
		require.Equal(t, PerBandTransform, info.Mode)
		require.Equal(t, i/9+1, info.Band)
	}

	out := drv.sets["out.fake"]
	require.NotNil(t, out)
	require.Equal(t, Float64, out.DataType())
	require.Equal(t, 3, out.BandCount())
	require.Equal(t, 1, out.closes)
	for band := 1; band <= 3; band++ {
		for y := 0; y < 12; y++ {
			for x := 0; x < 12; x++ {
				require.Equal(t, float64(band*1000+y*12+x)*2, out.planes[band-1][y*12+x])
			}
		}
	}
	// every write is followed by a flush of the same band
	require.Len(t, out.flushes, 27)
	for i, w := range out.writes {
		require.Equal(t, w.band, out.flushes[i])
	}
}

func TestRunRasterScanOrder(t *testing.T) {
	drv, opts := testSetup(t)
	in := drv.add("in.fake", 12, 12, 1, Byte, func(int, int, int) float64 { return 1 })
	opts.MaxTileExtent = 5

	p := New[uint8, uint8]("in.fake", "out.fake", opts)
	require.NoError(t, p.Run(copyTransform[uint8], ShapeDefault, false))

	want := Plan(12, 12, 5, Square).Tiles()
	require.Len(t, in.reads, len(want))
	for i, call := range in.reads {
		require.Equal(t, want[i], call.tile)
	}
}

func TestRunReductionAveragesBands(t *testing.T) {
	before := liveSlabs.Load()
	drv, opts := testSetup(t)
	drv.add("rgb.fake", 9, 7, 3, UInt16, func(int, int, int) float64 { return 321 })
	opts.MaxTileExtent = 4

	p := New[uint16, uint16]("rgb.fake", "mean.fake", opts)
	calls := 0
	err := p.RunReduction(func(in [][]uint16, out []uint16, info BlockInfo) error {
		calls++
		require.Len(t, in, 3)
		require.Equal(t, Reduction, info.Mode)
		require.Zero(t, info.Band)
		for i := range out {
			sum := 0
			for _, band := range in {
				sum += int(band[i])
			}
			out[i] = uint16(sum / len(in))
		}
		return nil
	}, Square)
	require.NoError(t, err)
	require.NoError(t, p.Close())

	g := Plan(9, 7, 4, Square)
	require.Equal(t, g.TileCount(), calls)

	out := drv.sets["mean.fake"]
	require.Equal(t, 1, out.BandCount())
	for _, v := range out.planes[0] {
		require.Equal(t, float64(321), v)
	}
	requireNoLiveSlabs(t, before)
}

func TestRunInPlaceTypeMismatchBeforeIO(t *testing.T) {
	drv, opts := testSetup(t)
	drv.add("in.fake", 4, 4, 1, Float32, func(int, int, int) float64 { return 1 })

	p := New[float32, float64]("in.fake", "", opts)
	err := p.Run(func([]float32, []float64, BlockInfo) error {
		t.Fatal("callback must not run")
		return nil
	}, Square, true)
	require.ErrorIs(t, err, ErrTypeMismatchForInPlace)
	require.Zero(t, drv.opens, "input opened before type check")
	require.Zero(t, drv.creates)
}

func TestRunInPlaceDatasetTypeMismatch(t *testing.T) {
	drv, opts := testSetup(t)
	in := drv.add("in.fake", 4, 4, 2, Int16, func(int, int, int) float64 { return 5 })

	p := New[float32, float32]("in.fake", "", opts)
	err := p.Run(copyTransform[float32], Square, true)
	require.ErrorIs(t, err, ErrTypeMismatchForInPlace)
	require.Empty(t, in.reads)
	require.Empty(t, in.writes)
	for _, v := range in.planes[0] {
		require.Equal(t, float64(5), v)
	}
}

func TestRunInPlaceAliasesBuffers(t *testing.T) {
	before := liveSlabs.Load()
	drv, opts := testSetup(t)
	in := drv.add("in.fake", 6, 5, 2, Int32, func(band, x, y int) float64 { return float64(band + x + y) })
	opts.MaxTileExtent = 4

	p := New[int32, int32]("in.fake", "", opts)
	err := p.Run(func(in, out []int32, _ BlockInfo) error {
		require.Same(t, &in[0], &out[0])
		for i := range out {
			out[i] = -in[i]
		}
		return nil
	}, Square, true)
	require.NoError(t, err)

	require.Zero(t, drv.creates)
	require.Equal(t, Update, in.mode)
	for band := 1; band <= 2; band++ {
		for y := 0; y < 5; y++ {
			for x := 0; x < 6; x++ {
				require.Equal(t, -float64(band+x+y), in.planes[band-1][y*6+x])
			}
		}
	}
	require.NoError(t, p.Close())
	requireNoLiveSlabs(t, before)
}

func TestRunInPlaceReopensForUpdate(t *testing.T) {
	drv, opts := testSetup(t)
	in := drv.add("in.fake", 3, 3, 1, Byte, func(int, int, int) float64 { return 7 })

	p := New[uint8, uint8]("in.fake", "", opts)
	_, err := p.Plan(Square)
	require.NoError(t, err)
	require.Equal(t, ReadOnly, in.mode)

	require.NoError(t, p.Run(copyTransform[uint8], Square, true))
	require.Equal(t, Update, in.mode)
	require.Equal(t, 2, drv.opens)
}

func TestRunOutputPathGuard(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		output string
	}{
		{name: "empty", input: "in.fake", output: ""},
		{name: "same", input: "in.fake", output: "in.fake"},
		{name: "same-cleaned", input: "dir/in.fake", output: "dir/../dir/in.fake"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			drv, opts := testSetup(t)
			drv.add(tc.input, 2, 2, 1, Byte, func(int, int, int) float64 { return 0 })

			p := New[uint8, uint8](tc.input, tc.output, opts)
			require.ErrorIs(t, p.Run(copyTransform[uint8], Square, false), ErrInvalidOutputPath)
			require.ErrorIs(t, p.RunReduction(func([][]uint8, []uint8, BlockInfo) error { return nil }, Square), ErrInvalidOutputPath)
			require.Zero(t, drv.opens)
			require.Zero(t, drv.creates)
		})
	}
}

func TestRunDriverChecks(t *testing.T) {
	t.Run("unavailable", func(t *testing.T) {
		drv, opts := testSetup(t)
		drv.add("in.fake", 2, 2, 1, Byte, func(int, int, int) float64 { return 0 })
		opts.OutputFormat = "NOPE"

		p := New[uint8, uint8]("in.fake", "out.fake", opts)
		require.ErrorIs(t, p.Run(copyTransform[uint8], Square, false), ErrDriverUnavailable)
	})

	t.Run("lacks-create", func(t *testing.T) {
		drv, opts := testSetup(t)
		drv.noCreate = true
		drv.add("in.fake", 2, 2, 1, Byte, func(int, int, int) float64 { return 0 })

		p := New[uint8, uint8]("in.fake", "out.fake", opts)
		require.ErrorIs(t, p.Run(copyTransform[uint8], Square, false), ErrDriverLacksCreate)
		require.Zero(t, drv.creates)
	})

	t.Run("create-refused", func(t *testing.T) {
		drv, opts := testSetup(t)
		drv.failCreate = true
		drv.add("in.fake", 2, 2, 1, Byte, func(int, int, int) float64 { return 0 })

		p := New[uint8, uint8]("in.fake", "out.fake", opts)
		err := p.Run(copyTransform[uint8], Square, false)
		require.ErrorIs(t, err, ErrCreate)
	})

	t.Run("open-failure", func(t *testing.T) {
		_, opts := testSetup(t)

		p := New[uint8, uint8]("missing.fake", "out.fake", opts)
		require.ErrorIs(t, p.Run(copyTransform[uint8], Square, false), ErrOpen)
	})
}

func TestRunAbortsOnCallbackFailure(t *testing.T) {
	before := liveSlabs.Load()
	drv, opts := testSetup(t)
	in := drv.add("in.fake", 12, 12, 2, Float64, func(int, int, int) float64 { return 1 })
	opts.MaxTileExtent = 5

	p := New[float64, float64]("in.fake", "out.fake", opts)
	out := (*fakeDataset)(nil)
	calls := 0
	err := p.Run(func(_, _ []float64, info BlockInfo) error {
		calls++
		if out == nil {
			out = drv.sets["out.fake"]
		}
		if info.Index == 4 {
			return errors.New("stop")
		}
		return nil
	}, Square, false)
	require.ErrorIs(t, err, ErrCallback)

	require.Equal(t, 4, calls)
	require.Len(t, in.reads, 4)
	require.Len(t, out.writes, 3)
	require.Equal(t, 1, out.closes)
	require.Equal(t, []string{"out.fake"}, drv.removed)
	requireNoLiveSlabs(t, before)
}

func TestRunInPlaceAbortKeepsInput(t *testing.T) {
	before := liveSlabs.Load()
	drv, opts := testSetup(t)
	in := drv.add("in.fake", 10, 10, 1, Int16, func(_, x, y int) float64 { return float64(x + 10*y) })
	opts.MaxTileExtent = 5

	p := New[int16, int16]("in.fake", "", opts)
	calls := 0
	err := p.Run(func(in, out []int16, info BlockInfo) error {
		calls++
		if info.Index == 3 {
			return errors.New("stop")
		}
		for i := range in {
			out[i] = in[i] + 1000
		}
		return nil
	}, Square, true)
	require.ErrorIs(t, err, ErrCallback)

	require.Equal(t, 3, calls)
	require.Empty(t, drv.removed)
	require.Zero(t, in.closes)
	require.Len(t, in.writes, 2)
	require.Equal(t, []int{1, 1}, in.flushes)
	for y := range 10 {
		for x := range 10 {
			want := float64(x + 10*y)
			if y < 5 {
				want += 1000
			}
			require.Equal(t, want, in.planes[0][y*10+x], "pixel (%d,%d)", x, y)
		}
	}
	requireNoLiveSlabs(t, before)

	require.NoError(t, p.Close())
	require.Equal(t, 1, in.closes)
	require.Contains(t, drv.sets, "in.fake")
}

func TestRunAbortsOnReadFailure(t *testing.T) {
	before := liveSlabs.Load()
	drv, opts := testSetup(t)
	drv.add("in.fake", 10, 10, 2, Byte, func(int, int, int) float64 { return 1 })
	drv.failReadAt = 3
	opts.MaxTileExtent = 5

	var finished []error
	opts.Observer = observerFunc(func(_ RunInfo, _ int, err error) { finished = append(finished, err) })

	p := New[uint8, uint8]("in.fake", "out.fake", opts)
	calls := 0
	err := p.Run(func(in, out []uint8, _ BlockInfo) error {
		calls++
		copy(out, in)
		return nil
	}, Square, false)
	require.ErrorIs(t, err, ErrTileRead)
	require.ErrorContains(t, err, errInjected.Error())
	require.Equal(t, 2, calls)
	require.Equal(t, []string{"out.fake"}, drv.removed)
	require.Len(t, finished, 1)
	require.ErrorIs(t, finished[0], ErrTileRead)
	requireNoLiveSlabs(t, before)
}

func TestRunReductionAbortsOnWriteFailure(t *testing.T) {
	before := liveSlabs.Load()
	drv, opts := testSetup(t)
	in := drv.add("in.fake", 10, 10, 4, Float32, func(int, int, int) float64 { return 1 })
	drv.failWriteAt = 2
	opts.MaxTileExtent = 5

	p := New[float32, float32]("in.fake", "out.fake", opts)
	err := p.RunReduction(func(_ [][]float32, _ []float32, _ BlockInfo) error { return nil }, Square)
	require.ErrorIs(t, err, ErrTileWrite)

	// two tiles read across all four bands, nothing after the failing write
	require.Len(t, in.reads, 8)
	require.Equal(t, []string{"out.fake"}, drv.removed)
	requireNoLiveSlabs(t, before)
}

func TestRunOutputTypeOverride(t *testing.T) {
	drv, opts := testSetup(t)
	drv.add("in.fake", 3, 3, 1, Float64, func(_, x, _ int) float64 { return float64(x) * 300 })
	opts.OutputType = Byte

	p := New[float64, float64]("in.fake", "out.fake", opts)
	require.NoError(t, p.Run(copyTransform[float64], Square, false))

	out := drv.sets["out.fake"]
	require.Equal(t, Byte, out.DataType())
	require.Equal(t, []float64{0, 255, 255}, out.planes[0][:3])
}

func TestRunObserverAndSetters(t *testing.T) {
	drv, opts := testSetup(t)
	drv.add("in.fake", 20, 10, 1, Byte, func(int, int, int) float64 { return 0 })

	var started []RunInfo
	var blocks []int
	opts.Observer = &recordingObserver{started: &started, blocks: &blocks}

	p := New[uint8, uint8]("in.fake", "out.fake", opts)
	p.SetMaxTileExtent(10)
	p.SetBlockShape(VerticalStrip)
	require.NoError(t, p.Run(copyTransform[uint8], ShapeDefault, false))

	require.Len(t, started, 1)
	require.Equal(t, 6, started[0].Grid.XStep)
	require.Equal(t, 10, started[0].Grid.YStep)
	require.Equal(t, "FAKE", started[0].Format)
	require.NotEmpty(t, started[0].ID)
	require.Equal(t, []int{started[0].Grid.TileCount()}, blocks)

	p.SetOutputFormat("")
	require.ErrorIs(t, p.Run(copyTransform[uint8], Square, false), ErrDriverUnavailable)
}

func TestNewWithDataset(t *testing.T) {
	drv, opts := testSetup(t)
	ds := drv.add("in.fake", 4, 4, 1, Byte, func(int, int, int) float64 { return 3 })
	ds.mode = Update

	p := NewWithDataset[uint8, uint8](ds, "out.fake", opts)
	require.NoError(t, p.Run(copyTransform[uint8], Square, false))
	require.NoError(t, p.Run(func(in, out []uint8, _ BlockInfo) error {
		for i := range out {
			out[i] = in[i] + 1
		}
		return nil
	}, Square, true))
	require.Zero(t, drv.opens)
	require.Equal(t, float64(4), ds.planes[0][0])

	require.NoError(t, p.Close())
	require.Equal(t, 1, ds.closes)
	require.NoError(t, p.Close())
}

type observerFunc func(info RunInfo, blocks int, err error)

func (observerFunc) RunStarted(RunInfo) {}

func (f observerFunc) RunFinished(info RunInfo, blocks int, err error) { f(info, blocks, err) }

type recordingObserver struct {
	started *[]RunInfo
	blocks  *[]int
}

func (o *recordingObserver) RunStarted(info RunInfo) { *o.started = append(*o.started, info) }

func (o *recordingObserver) RunFinished(_ RunInfo, blocks int, _ error) {
	*o.blocks = append(*o.blocks, blocks)
}
