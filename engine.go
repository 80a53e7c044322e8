package rasterblock

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
)

// ProcessingMode tells per-band transforms and reductions apart.
type ProcessingMode int

const (
	// PerBandTransform maps every input band to the output band of the same index.
	PerBandTransform ProcessingMode = iota
	// Reduction maps all input bands of a tile to a single output band.
	Reduction
)

// String implements fmt.Stringer.
func (m ProcessingMode) String() string {
	if m == Reduction {
		return "reduction"
	}

	return "per-band"
}

// BlockInfo describes the tile handed to a callback.
type BlockInfo struct {
	Mode ProcessingMode
	// Band is the 1-based band being transformed; 0 in reductions.
	Band int
	// BandCount is the number of input bands.
	BandCount int
	Tile      Tile
	// Index counts processed tiles from 1 across the whole run.
	Index int
	// Total is the number of tiles the run processes.
	Total int
}

// TransformFunc transforms one band tile. in and out hold Tile.Width*Tile.Height
// elements in row-major order and share memory when running in place. Neither
// slice may be retained after the call. A non-nil error aborts the run.
type TransformFunc[T, U Element] func(in []T, out []U, info BlockInfo) error

// ReduceFunc folds the tiles of every input band, in[band-1], into out.
type ReduceFunc[T, U Element] func(in [][]T, out []U, info BlockInfo) error

// Processor streams tiles of one input dataset through caller-supplied
// callbacks. T is the element type tiles are read as and U the element type
// callbacks write. A Processor runs one operation at a time.
type Processor[T, U Element] struct {
	input  string
	output string
	ds     Dataset
	mode   AccessMode
	opts   Options
}

// New returns a processor reading the dataset at input, which is opened on
// the first run. output is the path of datasets created by runs; it is
// ignored for in-place runs.
func New[T, U Element](input, output string, opts *Options) *Processor[T, U] {
	return &Processor[T, U]{
		input:  input,
		output: output,
		opts:   opts.withDefaults(),
	}
}

// NewWithDataset returns a processor over an already open dataset. The
// processor takes ownership of ds and closes it in Close. In-place runs
// require ds to be writable.
func NewWithDataset[T, U Element](ds Dataset, output string, opts *Options) *Processor[T, U] {
	return &Processor[T, U]{
		output: output,
		ds:     ds,
		mode:   Update,
		opts:   opts.withDefaults(),
	}
}

// SetMaxTileExtent sets the maximum tile extent for subsequent runs.
func (p *Processor[T, U]) SetMaxTileExtent(n int) {
	if n == 0 {
		n = DefaultMaxTileExtent
	}
	p.opts.MaxTileExtent = n
}

// SetOutputFormat sets the output driver for subsequent runs.
func (p *Processor[T, U]) SetOutputFormat(format string) {
	if format == "" {
		format = DefaultOutputFormat
	}
	p.opts.OutputFormat = format
}

// SetBlockShape sets the shape used by runs called with ShapeDefault.
func (p *Processor[T, U]) SetBlockShape(shape BlockShape) {
	if shape == ShapeDefault {
		shape = Square
	}
	p.opts.BlockShape = shape
}

// Plan returns the grid a run with shape would use. It opens the input if needed.
func (p *Processor[T, U]) Plan(shape BlockShape) (Grid, error) {
	ds, err := p.dataset(ReadOnly)
	if err != nil {
		return Grid{}, err
	}

	return p.plan(ds, shape), nil
}

// Close closes the input dataset. It is a no-op when nothing is open.
func (p *Processor[T, U]) Close() error {
	if p.ds == nil {
		return nil
	}
	err := p.ds.Close()
	p.ds = nil

	return err
}

// Run applies fn to every tile of every band. With inPlace the results are
// written back to the input, which is opened for update; otherwise a new
// dataset with the input's size and band count is created at the output path.
//
// The first failure stops the run. Buffers are released and a created output
// is closed and removed; an in-place input keeps the tiles written so far.
func (p *Processor[T, U]) Run(fn TransformFunc[T, U], shape BlockShape, inPlace bool) error {
	if inPlace && DataTypeOf[T]() != DataTypeOf[U]() {
		return fmt.Errorf("%w: reading %s, writing %s", ErrTypeMismatchForInPlace, DataTypeOf[T](), DataTypeOf[U]())
	}
	if !inPlace {
		if err := p.checkOutput(); err != nil {
			return err
		}
	}

	mode := ReadOnly
	if inPlace {
		mode = Update
	}
	in, err := p.dataset(mode)
	if err != nil {
		return err
	}
	if inPlace && in.DataType() != DataTypeOf[U]() {
		return fmt.Errorf("%w: dataset stores %s, writing %s", ErrTypeMismatchForInPlace, in.DataType(), DataTypeOf[U]())
	}

	bands := in.BandCount()
	steps := make([]tileStep[T, U], bands)
	for i := range steps {
		band := i + 1
		steps[i] = tileStep[T, U]{
			reads: []int{band},
			write: band,
			invoke: func(tiles [][]T, out []U, info BlockInfo) error {
				info.Band = band
				return fn(tiles[0], out, info)
			},
		}
	}

	return p.execute(in, PerBandTransform, shape, inPlace, bands, 1, steps)
}

// RunReduction applies fn to the tiles of all bands at once and writes a
// new single-band dataset at the output path. Failures are handled as in Run.
func (p *Processor[T, U]) RunReduction(fn ReduceFunc[T, U], shape BlockShape) error {
	if err := p.checkOutput(); err != nil {
		return err
	}

	in, err := p.dataset(ReadOnly)
	if err != nil {
		return err
	}

	bands := in.BandCount()
	reads := make([]int, bands)
	for i := range reads {
		reads[i] = i + 1
	}
	steps := []tileStep[T, U]{{reads: reads, write: 1, invoke: fn}}

	return p.execute(in, Reduction, shape, false, bands, bands, steps)
}

// tileStep is one pass over the grid: the bands read into the input
// buffers, the callback, and the output band written.
type tileStep[T, U Element] struct {
	reads  []int
	write  int
	invoke func(in [][]T, out []U, info BlockInfo) error
}

// execute runs steps one after another over the planned grid. It owns the
// output dataset and the buffers for the duration of the call.
func (p *Processor[T, U]) execute(in Dataset, mode ProcessingMode, shape BlockShape, inPlace bool, bands, inputs int, steps []tileStep[T, U]) (err error) {
	grid := p.plan(in, shape)
	outBands := bands
	if mode == Reduction {
		outBands = 1
	}

	info := RunInfo{
		ID:         uuid.NewString(),
		Mode:       mode,
		Input:      p.input,
		Output:     p.output,
		Format:     p.opts.OutputFormat,
		InPlace:    inPlace,
		Bands:      bands,
		OutputType: p.outputType(),
		Grid:       grid,
	}
	if inPlace {
		info.Output = p.input
		info.Format = ""
		info.OutputType = in.DataType()
	}

	log := p.opts.Logger.With(slog.String("run", info.ID), slog.String("mode", mode.String()))
	log.Debug("run started",
		slog.Int("width", grid.Width), slog.Int("height", grid.Height), slog.Int("bands", bands),
		slog.Int("x_step", grid.XStep), slog.Int("y_step", grid.YStep), slog.Int("tiles", grid.TileCount()),
		slog.Bool("in_place", inPlace))

	if p.opts.Observer != nil {
		p.opts.Observer.RunStarted(info)
	}

	processed := 0
	defer func() {
		if err != nil {
			log.Error("run failed", slog.Int("blocks", processed), slog.Any("error", err))
		} else {
			log.Info("run finished", slog.Int("blocks", processed))
		}
		if p.opts.Observer != nil {
			p.opts.Observer.RunFinished(info, processed, err)
		}
	}()

	out := in
	if !inPlace {
		created, drv, cerr := p.opts.Registry.create(p.opts.OutputFormat, p.output, in.Width(), in.Height(), outBands, info.OutputType, p.opts.CreateOptions)
		if cerr != nil {
			return cerr
		}
		out = created
		defer func() {
			err = p.closeOutput(log, created, drv, err)
		}()
	}

	bufs := acquireBuffers[T, U](inputs, grid.BufferLen(), inPlace)
	defer bufs.release()

	tiles := grid.Tiles()
	total := len(tiles) * len(steps)
	for _, step := range steps {
		for _, t := range tiles {
			if err := p.processTile(in, out, bufs, step, BlockInfo{
				Mode:      mode,
				BandCount: bands,
				Tile:      t,
				Index:     processed + 1,
				Total:     total,
			}); err != nil {
				return err
			}
			processed++
		}
	}

	return nil
}

// processTile reads the step's bands for one tile, invokes the callback and
// writes and flushes the result.
func (p *Processor[T, U]) processTile(in, out Dataset, bufs *tileBuffers[T, U], step tileStep[T, U], info BlockInfo) error {
	t := info.Tile
	inBufs, outBuf := bufs.tile(t)

	for i, band := range step.reads {
		if err := in.ReadTile(band, t.X, t.Y, t.Width, t.Height, inBufs[i]); err != nil {
			return fmt.Errorf("%w: band %d block %d at (%d,%d): %v", ErrTileRead, band, info.Index, t.X, t.Y, err)
		}
	}

	if err := step.invoke(inBufs, outBuf, info); err != nil {
		return fmt.Errorf("%w: block %d of %d: %w", ErrCallback, info.Index, info.Total, err)
	}

	if err := out.WriteTile(step.write, t.X, t.Y, t.Width, t.Height, outBuf); err != nil {
		return fmt.Errorf("%w: band %d block %d at (%d,%d): %v", ErrTileWrite, step.write, info.Index, t.X, t.Y, err)
	}
	if err := out.Flush(step.write); err != nil {
		return fmt.Errorf("%w: flush band %d: %v", ErrTileWrite, step.write, err)
	}

	return nil
}

// closeOutput closes a created output. After a failed run the dataset is
// also removed when its driver supports it; the run error is kept.
func (p *Processor[T, U]) closeOutput(log *slog.Logger, ds Dataset, drv Driver, runErr error) error {
	closeErr := ds.Close()
	if runErr == nil {
		if closeErr != nil {
			return fmt.Errorf("%w: close %q: %v", ErrTileWrite, p.output, closeErr)
		}
		return nil
	}

	if closeErr != nil {
		log.Warn("closing discarded output failed", slog.String("path", p.output), slog.Any("error", closeErr))
	}
	if r, ok := drv.(Remover); ok {
		if err := r.Remove(p.output); err != nil {
			log.Warn("removing discarded output failed", slog.String("path", p.output), slog.Any("error", err))
		}
	}

	return runErr
}

// checkOutput validates the output path of a run creating a new dataset.
func (p *Processor[T, U]) checkOutput() error {
	if p.output == "" {
		return fmt.Errorf("%w: empty", ErrInvalidOutputPath)
	}
	if p.input != "" && filepath.Clean(p.input) == filepath.Clean(p.output) {
		return fmt.Errorf("%w: %q is the input", ErrInvalidOutputPath, p.output)
	}

	return nil
}

// dataset returns the input, opening it with mode when needed. A path
// opened read-only is reopened for update when an in-place run needs it.
func (p *Processor[T, U]) dataset(mode AccessMode) (Dataset, error) {
	if p.ds != nil && (mode == ReadOnly || p.mode == Update || p.input == "") {
		return p.ds, nil
	}
	if p.input == "" {
		return nil, fmt.Errorf("%w: no input dataset or path", ErrOpen)
	}

	if p.ds != nil {
		if err := p.ds.Close(); err != nil {
			p.opts.Logger.Warn("closing read-only input failed", slog.String("path", p.input), slog.Any("error", err))
		}
		p.ds = nil
	}

	ds, _, err := p.opts.Registry.Open(p.input, mode)
	if err != nil {
		return nil, err
	}
	p.ds = ds
	p.mode = mode

	return ds, nil
}

func (p *Processor[T, U]) plan(ds Dataset, shape BlockShape) Grid {
	if shape == ShapeDefault {
		shape = p.opts.BlockShape
	}

	return Plan(ds.Width(), ds.Height(), p.opts.MaxTileExtent, shape)
}

func (p *Processor[T, U]) outputType() DataType {
	if p.opts.OutputType.Valid() {
		return p.opts.OutputType
	}

	return DataTypeOf[U]()
}
