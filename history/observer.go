package history

import (
	"log/slog"
	"sync"

	"github.com/woozymasta/rasterblock"
)

// Observer records processor runs in a Store. Storage failures are logged
// and never fail the run.
type Observer struct {
	store  *Store
	logger *slog.Logger

	mu      sync.Mutex
	running map[string]*Record
}

var _ rasterblock.Observer = (*Observer)(nil)

// NewObserver returns an observer writing to store. A nil logger discards messages.
func NewObserver(store *Store, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Observer{
		store:   store,
		logger:  logger,
		running: make(map[string]*Record),
	}
}

// runArgs is the JSON stored in Record.Args.
type runArgs struct {
	Format     string `json:"format,omitempty"`
	InPlace    bool   `json:"in_place"`
	Bands      int    `json:"bands"`
	OutputType string `json:"output_type"`
	TileWidth  int    `json:"tile_width"`
	TileHeight int    `json:"tile_height"`
	Tiles      int    `json:"tiles"`
}

// RunStarted implements rasterblock.Observer.
func (o *Observer) RunStarted(info rasterblock.RunInfo) {
	output := info.Output
	if info.InPlace {
		output = ""
	}

	rec, err := o.store.Begin(info.ID, info.Mode.String(), info.Input, output, runArgs{
		Format:     info.Format,
		InPlace:    info.InPlace,
		Bands:      info.Bands,
		OutputType: info.OutputType.String(),
		TileWidth:  info.Grid.XStep,
		TileHeight: info.Grid.YStep,
		Tiles:      info.Grid.TileCount(),
	})
	if err != nil {
		o.logger.Warn("record run start", slog.String("run", info.ID), slog.Any("error", err))
		return
	}

	o.mu.Lock()
	o.running[info.ID] = rec
	o.mu.Unlock()
}

// RunFinished implements rasterblock.Observer.
func (o *Observer) RunFinished(info rasterblock.RunInfo, blocks int, runErr error) {
	o.mu.Lock()
	rec, ok := o.running[info.ID]
	delete(o.running, info.ID)
	o.mu.Unlock()

	if !ok {
		return
	}
	if err := o.store.Finish(rec, blocks, runErr); err != nil {
		o.logger.Warn("record run finish", slog.String("run", info.ID), slog.Any("error", err))
	}
}
