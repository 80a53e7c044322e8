package rasterblock

import "log/slog"

const (
	// DefaultMaxTileExtent is the default maximum tile size along each axis, in elements.
	DefaultMaxTileExtent = 5000
	// DefaultOutputFormat is the driver used for new outputs unless configured otherwise.
	DefaultOutputFormat = "TILED"
)

// Options configures a Processor. A nil *Options uses the defaults.
type Options struct {
	// MaxTileExtent caps tile width and height. 0 means DefaultMaxTileExtent.
	MaxTileExtent int
	// OutputFormat names the driver creating outputs. Empty means DefaultOutputFormat.
	OutputFormat string
	// BlockShape is used by runs called with ShapeDefault. ShapeDefault here means Square.
	BlockShape BlockShape
	// OutputType overrides the stored type of created outputs. Unknown uses the
	// output element type of the processor.
	OutputType DataType
	// CreateOptions are passed to Driver.Create, e.g. "COMPRESS=LZ4".
	CreateOptions []string
	// Registry resolves drivers. Nil uses Default().
	Registry *Registry
	// Logger receives run diagnostics. Nil discards them.
	Logger *slog.Logger
	// Observer is notified when runs start and finish.
	Observer Observer
}

// withDefaults returns a copy of opts with zero fields filled in.
func (opts *Options) withDefaults() Options {
	var o Options
	if opts != nil {
		o = *opts
		o.CreateOptions = append([]string(nil), opts.CreateOptions...)
	}

	if o.MaxTileExtent == 0 {
		o.MaxTileExtent = DefaultMaxTileExtent
	}
	if o.OutputFormat == "" {
		o.OutputFormat = DefaultOutputFormat
	}
	if o.BlockShape == ShapeDefault {
		o.BlockShape = Square
	}
	if o.Registry == nil {
		o.Registry = Default()
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}

	return o
}

// RunInfo describes one run to an Observer.
type RunInfo struct {
	ID         string
	Mode       ProcessingMode
	Input      string
	Output     string
	Format     string
	InPlace    bool
	Bands      int
	OutputType DataType
	Grid       Grid
}

// Observer is notified around every run that passes its precondition checks.
type Observer interface {
	RunStarted(info RunInfo)
	// RunFinished receives the number of tiles processed and the run error, if any.
	RunFinished(info RunInfo, blocks int, err error)
}
