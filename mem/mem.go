// Package mem implements an in-memory storage driver. Datasets live inside
// the Driver value, keyed by name, until they are removed.
package mem

import (
	"fmt"
	"sync"

	"github.com/woozymasta/rasterblock"
)

// DriverName is the output format name of the in-memory driver.
const DriverName = "MEM"

// Default is the driver registered in the default registry.
var Default = New()

func init() {
	rasterblock.Register(Default)
}

// Driver stores datasets in memory.
type Driver struct {
	mu   sync.Mutex
	sets map[string]*raster
}

// New returns an empty in-memory driver.
func New() *Driver {
	return &Driver{sets: make(map[string]*raster)}
}

// Name implements rasterblock.Driver.
func (d *Driver) Name() string { return DriverName }

// CanCreate implements rasterblock.Driver.
func (d *Driver) CanCreate() bool { return true }

// Probe reports whether a dataset named path exists.
func (d *Driver) Probe(path string) bool {
	_, ok := d.lookup(path)
	return ok
}

// Open returns a new handle to the dataset named path.
func (d *Driver) Open(path string, mode rasterblock.AccessMode) (rasterblock.Dataset, error) {
	r, ok := d.lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
	}

	return &Dataset{raster: r, mode: mode}, nil
}

// Create allocates a zero-filled dataset, replacing any dataset of the same name.
// Creation options are ignored.
func (d *Driver) Create(path string, width, height, bands int, dtype rasterblock.DataType, _ []string) (rasterblock.Dataset, error) {
	if width <= 0 || height <= 0 || bands <= 0 {
		return nil, fmt.Errorf("%w: %dx%d with %d bands", ErrInvalidSize, width, height, bands)
	}
	if !dtype.Valid() {
		return nil, fmt.Errorf("%w: %s", rasterblock.ErrUnknownDataType, dtype)
	}

	r := &raster{width: width, height: height, dtype: dtype, bands: make([][]byte, bands)}
	for i := range r.bands {
		r.bands[i] = make([]byte, width*height*dtype.Size())
	}

	d.mu.Lock()
	d.sets[path] = r
	d.mu.Unlock()

	return &Dataset{raster: r, mode: rasterblock.Update}, nil
}

// Remove discards the dataset named path.
func (d *Driver) Remove(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.sets[path]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	delete(d.sets, path)

	return nil
}

// Fill sets every pixel of the dataset named path to fn(band, x, y).
func (d *Driver) Fill(path string, fn func(band, x, y int) float64) error {
	r, ok := d.lookup(path)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, path)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for b, plane := range r.bands {
		for y := range r.height {
			for x := range r.width {
				r.dtype.Encode(plane, y*r.width+x, fn(b+1, x, y))
			}
		}
	}

	return nil
}

// Planes returns a copy of every band of the dataset named path as float64 rows.
func (d *Driver) Planes(path string) ([][]float64, error) {
	r, ok := d.lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	planes := make([][]float64, len(r.bands))
	for b, plane := range r.bands {
		planes[b] = make([]float64, r.width*r.height)
		for i := range planes[b] {
			planes[b][i] = r.dtype.Decode(plane, i)
		}
	}

	return planes, nil
}

func (d *Driver) lookup(path string) (*raster, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.sets[path]
	return r, ok
}

// raster is the shared pixel storage behind every handle of one dataset.
type raster struct {
	mu            sync.RWMutex
	width, height int
	dtype         rasterblock.DataType
	// bands hold little-endian encoded pixels, row-major.
	bands [][]byte
}

// Dataset is one handle to an in-memory raster.
type Dataset struct {
	*raster
	mode   rasterblock.AccessMode
	closed bool
}

var _ rasterblock.Dataset = (*Dataset)(nil)

// Width implements rasterblock.Dataset.
func (ds *Dataset) Width() int { return ds.width }

// Height implements rasterblock.Dataset.
func (ds *Dataset) Height() int { return ds.height }

// BandCount implements rasterblock.Dataset.
func (ds *Dataset) BandCount() int { return len(ds.bands) }

// DataType implements rasterblock.Dataset.
func (ds *Dataset) DataType() rasterblock.DataType { return ds.dtype }

// ReadTile implements rasterblock.Dataset.
func (ds *Dataset) ReadTile(band, x, y, w, h int, buf any) error {
	if ds.closed {
		return rasterblock.ErrClosed
	}
	if _, err := rasterblock.CheckTile(ds, band, x, y, w, h, buf); err != nil {
		return err
	}

	ds.mu.RLock()
	defer ds.mu.RUnlock()

	plane := ds.bands[band-1]
	for row := range h {
		if err := rasterblock.DecodeRow(buf, row*w, plane, ds.dtype, (y+row)*ds.width+x, w); err != nil {
			return err
		}
	}

	return nil
}

// WriteTile implements rasterblock.Dataset.
func (ds *Dataset) WriteTile(band, x, y, w, h int, buf any) error {
	if ds.closed {
		return rasterblock.ErrClosed
	}
	if ds.mode != rasterblock.Update {
		return rasterblock.ErrReadOnly
	}
	if _, err := rasterblock.CheckTile(ds, band, x, y, w, h, buf); err != nil {
		return err
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	plane := ds.bands[band-1]
	for row := range h {
		if err := rasterblock.EncodeRow(plane, ds.dtype, (y+row)*ds.width+x, buf, row*w, w); err != nil {
			return err
		}
	}

	return nil
}

// Flush implements rasterblock.Dataset. Writes are immediately visible.
func (ds *Dataset) Flush(band int) error {
	if ds.closed {
		return rasterblock.ErrClosed
	}
	if band < 1 || band > len(ds.bands) {
		return fmt.Errorf("%w: %d of %d", rasterblock.ErrBandRange, band, len(ds.bands))
	}

	return nil
}

// Close implements rasterblock.Dataset. The data stays in the driver.
func (ds *Dataset) Close() error {
	ds.closed = true
	return nil
}
