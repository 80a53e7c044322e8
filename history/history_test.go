package history_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/rasterblock"
	"github.com/woozymasta/rasterblock/history"
	"github.com/woozymasta/rasterblock/mem"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()

	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestStatusTransitions(t *testing.T) {
	t.Parallel()

	store := openStore(t)

	ok, err := store.Begin("run-1", "per-band", "in.tif", "out.tif", map[string]any{"op": "scale", "value": 2})
	require.NoError(t, err)
	assert.Equal(t, history.Running, ok.Status)
	assert.NotZero(t, ok.ID)

	bad, err := store.Begin("run-2", "reduction", "in.tif", "mean.tif", nil)
	require.NoError(t, err)

	require.NoError(t, store.Finish(ok, 12, nil))
	require.NoError(t, store.Finish(bad, 3, assert.AnError))

	got, err := store.Get("run-1")
	require.NoError(t, err)
	assert.Equal(t, history.Done, got.Status)
	assert.Equal(t, 12, got.Blocks)
	assert.Empty(t, got.Error)
	require.NotNil(t, got.FinishedAt)
	assert.JSONEq(t, `{"op":"scale","value":2}`, string(got.Args))

	got, err = store.Get("run-2")
	require.NoError(t, err)
	assert.Equal(t, history.Failed, got.Status)
	assert.Equal(t, assert.AnError.Error(), got.Error)

	_, err = store.Get("missing")
	require.ErrorIs(t, err, history.ErrReadRecords)
}

func TestListNewestFirst(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	for _, id := range []string{"a", "b", "c"} {
		_, err := store.Begin(id, "per-band", "in", "out", nil)
		require.NoError(t, err)
	}

	recs, err := store.List(2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "c", recs[0].RunID)
	assert.Equal(t, "b", recs[1].RunID)

	all, err := store.List(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStatusString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "running", history.Running.String())
	assert.Equal(t, "done", history.Done.String())
	assert.Equal(t, "failed", history.Failed.String())
	assert.Equal(t, "Status(7)", history.Status(7).String())
}

func TestObserverRecordsRuns(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	drv := mem.New()
	var reg rasterblock.Registry
	reg.Register(drv)

	_, err := drv.Create("src", 10, 6, 2, rasterblock.Float32, nil)
	require.NoError(t, err)

	opts := &rasterblock.Options{
		MaxTileExtent: 4,
		OutputFormat:  mem.DriverName,
		Registry:      &reg,
		Observer:      history.NewObserver(store, nil),
	}

	p := rasterblock.New[float32, float32]("src", "dst", opts)
	require.NoError(t, p.Run(func(in, out []float32, _ rasterblock.BlockInfo) error {
		copy(out, in)
		return nil
	}, rasterblock.Square, false))

	err = p.Run(func(_, _ []float32, info rasterblock.BlockInfo) error {
		if info.Index == 2 {
			return assert.AnError
		}
		return nil
	}, rasterblock.Square, true)
	require.ErrorIs(t, err, rasterblock.ErrCallback)
	require.NoError(t, p.Close())

	recs, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	failed, done := recs[0], recs[1]
	assert.Equal(t, history.Done, done.Status)
	assert.Equal(t, "per-band", done.Mode)
	assert.Equal(t, "src", done.SourcePath)
	assert.Equal(t, "dst", done.OutputPath)
	assert.Equal(t, 2*3*2, done.Blocks)

	var args map[string]any
	require.NoError(t, json.Unmarshal(done.Args, &args))
	assert.Equal(t, mem.DriverName, args["format"])
	assert.EqualValues(t, 6, args["tiles"])

	assert.Equal(t, history.Failed, failed.Status)
	assert.Empty(t, failed.OutputPath)
	assert.Equal(t, 1, failed.Blocks)
	assert.Contains(t, failed.Error, assert.AnError.Error())
}

func TestObserverLogsStoreFailures(t *testing.T) {
	t.Parallel()

	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	var out bytes.Buffer
	obs := history.NewObserver(store, slog.New(slog.NewJSONHandler(&out, nil)))
	obs.RunStarted(rasterblock.RunInfo{ID: "run-closed", Input: "in", Output: "out"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "record run start", entry["msg"])
	assert.Equal(t, "run-closed", entry["run"])
	assert.NotEmpty(t, entry["error"])

	// nothing was recorded, so finishing the run is a no-op
	out.Reset()
	obs.RunFinished(rasterblock.RunInfo{ID: "run-closed"}, 0, nil)
	assert.Zero(t, out.Len())
}
