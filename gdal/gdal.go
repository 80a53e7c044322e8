//go:build gdal

package gdal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/airbusgeo/godal"

	"github.com/woozymasta/rasterblock"
)

var (
	// ErrUnsupportedDataType indicates a GDAL band type with no rasterblock equivalent.
	ErrUnsupportedDataType = errors.New("unsupported GDAL data type")
	// ErrUnknownDriver indicates a GDAL driver that is not registered.
	ErrUnknownDriver = errors.New("unknown GDAL driver")
)

// DefaultDrivers are registered by RegisterAll when called without names.
var DefaultDrivers = []godal.DriverName{godal.GTiff, godal.HFA, godal.VRT}

// RegisterAll registers every GDAL driver with GDAL and the named ones with
// the default rasterblock registry.
func RegisterAll(names ...godal.DriverName) error {
	godal.RegisterAll()
	if len(names) == 0 {
		names = DefaultDrivers
	}

	for _, name := range names {
		if _, ok := godal.RasterDriver(name); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownDriver, name)
		}
		rasterblock.Register(Driver{name: name})
	}

	return nil
}

// Driver is one GDAL raster driver, named by its GDAL short name.
type Driver struct {
	name godal.DriverName
}

// New returns the driver for the GDAL short name, e.g. godal.GTiff.
func New(name godal.DriverName) Driver {
	return Driver{name: name}
}

var (
	_ rasterblock.Driver  = Driver{}
	_ rasterblock.Prober  = Driver{}
	_ rasterblock.Remover = Driver{}
)

// Name implements rasterblock.Driver.
func (d Driver) Name() string { return string(d.name) }

// CanCreate implements rasterblock.Driver. VRT has no Create in GDAL.
func (d Driver) CanCreate() bool { return d.name != godal.VRT }

// Probe reports whether this GDAL driver opens path as a raster.
func (d Driver) Probe(path string) bool {
	ds, err := godal.Open(path, godal.RasterOnly(), godal.Drivers(string(d.name)))
	if err != nil {
		return false
	}
	_ = ds.Close()

	return true
}

// Remove deletes the file at path and the sidecar files GDAL may have
// written next to it: PAM metadata, external overviews and masks, and the
// HFA .rrd/.aux pair.
func (d Driver) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return err
	}

	var errs []error
	for _, side := range sidecars(path) {
		if err := os.Remove(side); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func sidecars(path string) []string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return []string{
		path + ".aux.xml",
		path + ".ovr",
		path + ".msk",
		base + ".rrd",
		base + ".aux",
	}
}

// Open implements rasterblock.Driver.
func (d Driver) Open(path string, mode rasterblock.AccessMode) (rasterblock.Dataset, error) {
	opts := []godal.OpenOption{godal.RasterOnly(), godal.Drivers(string(d.name))}
	if mode == rasterblock.Update {
		opts = append(opts, godal.Update())
	}

	ds, err := godal.Open(path, opts...)
	if err != nil {
		return nil, err
	}

	st := ds.Structure()
	dtype, err := fromGDAL(st.DataType)
	if err != nil {
		_ = ds.Close()
		return nil, err
	}

	return &Dataset{ds: ds, st: st, dtype: dtype, mode: mode}, nil
}

// Create implements rasterblock.Driver. Options are GDAL creation options.
func (d Driver) Create(path string, width, height, bands int, dtype rasterblock.DataType, options []string) (rasterblock.Dataset, error) {
	gdt, err := toGDAL(dtype)
	if err != nil {
		return nil, err
	}

	ds, err := godal.Create(d.name, path, bands, gdt, width, height, godal.CreationOption(options...))
	if err != nil {
		return nil, err
	}

	return &Dataset{ds: ds, st: ds.Structure(), dtype: dtype, mode: rasterblock.Update}, nil
}

// Dataset wraps an open godal dataset.
type Dataset struct {
	ds     *godal.Dataset
	st     godal.DatasetStructure
	dtype  rasterblock.DataType
	mode   rasterblock.AccessMode
	closed bool
}

// Width implements rasterblock.Dataset.
func (ds *Dataset) Width() int { return ds.st.SizeX }

// Height implements rasterblock.Dataset.
func (ds *Dataset) Height() int { return ds.st.SizeY }

// BandCount implements rasterblock.Dataset.
func (ds *Dataset) BandCount() int { return ds.st.NBands }

// DataType implements rasterblock.Dataset.
func (ds *Dataset) DataType() rasterblock.DataType { return ds.dtype }

// ReadTile implements rasterblock.Dataset. GDAL converts to buf's element type.
func (ds *Dataset) ReadTile(band, x, y, w, h int, buf any) error {
	if ds.closed {
		return rasterblock.ErrClosed
	}
	if _, err := rasterblock.CheckTile(ds, band, x, y, w, h, buf); err != nil {
		return err
	}

	return ds.ds.Bands()[band-1].Read(x, y, buf, w, h)
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

	return ds.ds.Bands()[band-1].Write(x, y, buf, w, h)
}

// Flush implements rasterblock.Dataset. GDAL writes its block cache on Close.
func (ds *Dataset) Flush(band int) error {
	if ds.closed {
		return rasterblock.ErrClosed
	}
	if band < 1 || band > ds.st.NBands {
		return fmt.Errorf("%w: %d of %d", rasterblock.ErrBandRange, band, ds.st.NBands)
	}

	return nil
}

// Close implements rasterblock.Dataset.
func (ds *Dataset) Close() error {
	if ds.closed {
		return nil
	}
	ds.closed = true

	return ds.ds.Close()
}

var gdalTypes = map[godal.DataType]rasterblock.DataType{
	godal.Byte:    rasterblock.Byte,
	godal.UInt16:  rasterblock.UInt16,
	godal.Int16:   rasterblock.Int16,
	godal.UInt32:  rasterblock.UInt32,
	godal.Int32:   rasterblock.Int32,
	godal.Float32: rasterblock.Float32,
	godal.Float64: rasterblock.Float64,
}

func fromGDAL(dt godal.DataType) (rasterblock.DataType, error) {
	if t, ok := gdalTypes[dt]; ok {
		return t, nil
	}

	return rasterblock.Unknown, fmt.Errorf("%w: %v", ErrUnsupportedDataType, dt)
}

func toGDAL(dt rasterblock.DataType) (godal.DataType, error) {
	for g, t := range gdalTypes {
		if t == dt {
			return g, nil
		}
	}

	return godal.Unknown, fmt.Errorf("%w: %s", rasterblock.ErrUnknownDataType, dt)
}
