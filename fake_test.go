package rasterblock

import (
	"errors"
	"fmt"
)

var errInjected = errors.New("injected failure")

// fakeDriver is an in-package storage driver recording every call.
type fakeDriver struct {
	name     string
	noCreate bool
	sets     map[string]*fakeDataset
	removed  []string
	opens    int
	creates  int

	// failCreate makes Create return an error.
	failCreate bool
	// failReadAt / failWriteAt fail the n-th (1-based) ReadTile / WriteTile on created or opened datasets.
	failReadAt  int
	failWriteAt int
}

func newFakeDriver(name string) *fakeDriver {
	return &fakeDriver{name: name, sets: make(map[string]*fakeDataset)}
}

func (d *fakeDriver) Name() string    { return d.name }
func (d *fakeDriver) CanCreate() bool { return !d.noCreate }

func (d *fakeDriver) Open(path string, mode AccessMode) (Dataset, error) {
	d.opens++
	ds, ok := d.sets[path]
	if !ok {
		return nil, fmt.Errorf("%q: not found", path)
	}
	ds.closed = false
	ds.mode = mode

	return ds, nil
}

func (d *fakeDriver) Create(path string, width, height, bands int, dtype DataType, _ []string) (Dataset, error) {
	d.creates++
	if d.failCreate {
		return nil, errInjected
	}
	ds := newFakeDataset(d, width, height, bands, dtype)
	ds.mode = Update
	d.sets[path] = ds

	return ds, nil
}

func (d *fakeDriver) Remove(path string) error {
	d.removed = append(d.removed, path)
	delete(d.sets, path)

	return nil
}

// add registers an input dataset filled with fill(band, x, y).
func (d *fakeDriver) add(path string, width, height, bands int, dtype DataType, fill func(band, x, y int) float64) *fakeDataset {
	ds := newFakeDataset(d, width, height, bands, dtype)
	for b := range bands {
		for y := range height {
			for x := range width {
				ds.planes[b][y*width+x] = dtype.Clamp(fill(b+1, x, y))
			}
		}
	}
	d.sets[path] = ds

	return ds
}

type tileCall struct {
	band int
	tile Tile
}

type fakeDataset struct {
	drv           *fakeDriver
	width, height int
	dtype         DataType
	planes        [][]float64
	mode          AccessMode
	closed        bool
	closes        int

	reads   []tileCall
	writes  []tileCall
	flushes []int
}

func newFakeDataset(drv *fakeDriver, width, height, bands int, dtype DataType) *fakeDataset {
	planes := make([][]float64, bands)
	for i := range planes {
		planes[i] = make([]float64, width*height)
	}

	return &fakeDataset{drv: drv, width: width, height: height, dtype: dtype, planes: planes}
}

func (ds *fakeDataset) Width() int         { return ds.width }
func (ds *fakeDataset) Height() int        { return ds.height }
func (ds *fakeDataset) BandCount() int     { return len(ds.planes) }
func (ds *fakeDataset) DataType() DataType { return ds.dtype }

func (ds *fakeDataset) ReadTile(band, x, y, w, h int, buf any) error {
	if ds.closed {
		return ErrClosed
	}
	if _, err := CheckTile(ds, band, x, y, w, h, buf); err != nil {
		return err
	}
	ds.reads = append(ds.reads, tileCall{band: band, tile: Tile{X: x, Y: y, Width: w, Height: h}})
	if ds.drv.failReadAt > 0 && len(ds.reads) == ds.drv.failReadAt {
		return errInjected
	}

	vals := make([]float64, w*h)
	for row := range h {
		copy(vals[row*w:(row+1)*w], ds.planes[band-1][(y+row)*ds.width+x:])
	}

	return CopyFromFloat64(buf, vals)
}

func (ds *fakeDataset) WriteTile(band, x, y, w, h int, buf any) error {
	if ds.closed {
		return ErrClosed
	}
	if ds.mode != Update {
		return ErrReadOnly
	}
	if _, err := CheckTile(ds, band, x, y, w, h, buf); err != nil {
		return err
	}
	ds.writes = append(ds.writes, tileCall{band: band, tile: Tile{X: x, Y: y, Width: w, Height: h}})
	if ds.drv.failWriteAt > 0 && len(ds.writes) == ds.drv.failWriteAt {
		return errInjected
	}

	vals := make([]float64, w*h)
	if err := CopyToFloat64(vals, buf); err != nil {
		return err
	}
	for row := range h {
		for col := range w {
			ds.planes[band-1][(y+row)*ds.width+x+col] = ds.dtype.Clamp(vals[row*w+col])
		}
	}

	return nil
}

func (ds *fakeDataset) Flush(band int) error {
	ds.flushes = append(ds.flushes, band)
	return nil
}

func (ds *fakeDataset) Close() error {
	ds.closes++
	ds.closed = true
	return nil
}
