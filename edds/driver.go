package edds

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/woozymasta/bcn"

	"github.com/woozymasta/rasterblock"
)

// DriverName is the output format name of the texture driver.
const DriverName = "EDDS"

func init() {
	rasterblock.Register(Driver{})
}

// Driver reads and writes EDDS textures as Byte rasters. Bands 1 to 4 are
// the R, G, B and A channels; a texture created with one band is gray.
type Driver struct{}

var (
	_ rasterblock.Driver  = Driver{}
	_ rasterblock.Remover = Driver{}
	_ rasterblock.Prober  = Driver{}
)

// Name implements rasterblock.Driver.
func (Driver) Name() string { return DriverName }

// CanCreate implements rasterblock.Driver.
func (Driver) CanCreate() bool { return true }

// Probe reports whether path has the .edds extension and a readable DDS header.
func (Driver) Probe(path string) bool {
	if !strings.EqualFold(filepath.Ext(path), ".edds") {
		return false
	}
	_, err := ReadConfig(path)
	return err == nil
}

// Remove deletes the texture at path.
func (Driver) Remove(path string) error {
	return os.Remove(path)
}

// Open decodes the largest mipmap of the texture. Opened textures always
// expose four bands. With Update the texture is rewritten on Close when
// modified, using BGRA8 with a full LZ4-compressed mip chain.
func (Driver) Open(path string, mode rasterblock.AccessMode) (rasterblock.Dataset, error) {
	img, err := Read(path)
	if err != nil {
		return nil, err
	}

	return &Dataset{
		path:  path,
		mode:  mode,
		pix:   img,
		bands: 4,
		opts:  WriteOptions{Format: bcn.FormatBGRA8, Compress: true},
	}, nil
}

// Create implements rasterblock.Driver. Options: FORMAT=BGRA8|RGBA8|DXT1|DXT5
// (default BGRA8), MIPMAPS=n (0 is the full chain) and COMPRESS=YES|NO
// (default YES). Nothing is written until Close.
func (Driver) Create(path string, width, height, bands int, dtype rasterblock.DataType, options []string) (rasterblock.Dataset, error) {
	if dtype != rasterblock.Byte {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDataType, dtype)
	}
	if bands < 1 || bands > 4 {
		return nil, fmt.Errorf("%w: %d", ErrBandCount, bands)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", rasterblock.ErrTileBounds, width, height)
	}

	wo, err := parseOptions(options)
	if err != nil {
		return nil, err
	}

	pix := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 3; i < len(pix.Pix); i += 4 {
		pix.Pix[i] = 0xff
	}

	return &Dataset{
		path:  path,
		mode:  rasterblock.Update,
		pix:   pix,
		bands: bands,
		opts:  wo,
		dirty: true,
	}, nil
}

func parseOptions(options []string) (WriteOptions, error) {
	wo := WriteOptions{Format: bcn.FormatBGRA8, Compress: true}

	opts, err := rasterblock.ParseCreateOptions(options)
	if err != nil {
		return wo, err
	}
	for key, value := range opts {
		switch key {
		case "FORMAT":
			wo.Format, err = ParseFormat(value)
		case "MIPMAPS":
			wo.MaxMipMaps, err = strconv.Atoi(value)
			if err == nil && wo.MaxMipMaps < 0 {
				err = errors.New("negative mipmap count")
			}
		case "COMPRESS":
			wo.Compress, err = parseYesNo(value)
		default:
			return wo, fmt.Errorf("%w: %s is not an %s option", rasterblock.ErrCreateOption, key, DriverName)
		}
		if err != nil {
			return wo, fmt.Errorf("%w: %s=%s: %v", rasterblock.ErrCreateOption, key, value, err)
		}
	}

	return wo, nil
}

func parseYesNo(v string) (bool, error) {
	switch strings.ToUpper(v) {
	case "YES", "TRUE", "ON", "1":
		return true, nil
	case "NO", "FALSE", "OFF", "0":
		return false, nil
	default:
		return false, fmt.Errorf("%q is not YES or NO", v)
	}
}

// Dataset is a texture held in memory as NRGBA pixels.
type Dataset struct {
	path   string
	mode   rasterblock.AccessMode
	pix    *image.NRGBA
	bands  int
	opts   WriteOptions
	dirty  bool
	closed bool
}

var _ rasterblock.Dataset = (*Dataset)(nil)

// Width implements rasterblock.Dataset.
func (ds *Dataset) Width() int { return ds.pix.Rect.Dx() }

// Height implements rasterblock.Dataset.
func (ds *Dataset) Height() int { return ds.pix.Rect.Dy() }

// BandCount implements rasterblock.Dataset.
func (ds *Dataset) BandCount() int { return ds.bands }

// DataType implements rasterblock.Dataset.
func (ds *Dataset) DataType() rasterblock.DataType { return rasterblock.Byte }

// channels lists the NRGBA offsets written by band. A single-band texture
// writes its gray value to R, G and B.
func (ds *Dataset) channels(band int) []int {
	if ds.bands == 1 {
		return []int{0, 1, 2}
	}
	return []int{band - 1}
}

// ReadTile implements rasterblock.Dataset.
func (ds *Dataset) ReadTile(band, x, y, w, h int, buf any) error {
	if ds.closed {
		return rasterblock.ErrClosed
	}
	if _, err := rasterblock.CheckTile(ds, band, x, y, w, h, buf); err != nil {
		return err
	}

	c := ds.channels(band)[0]
	line := make([]byte, w)
	for row := range h {
		off := ds.pix.PixOffset(x, y+row)
		for col := range line {
			line[col] = ds.pix.Pix[off+4*col+c]
		}
		if err := rasterblock.DecodeRow(buf, row*w, line, rasterblock.Byte, 0, w); err != nil {
			return err
		}
	}

	return nil
}

// WriteTile implements rasterblock.Dataset. Values are rounded and clamped to 0..255.
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

	chans := ds.channels(band)
	line := make([]byte, w)
	for row := range h {
		if err := rasterblock.EncodeRow(line, rasterblock.Byte, 0, buf, row*w, w); err != nil {
			return err
		}
		off := ds.pix.PixOffset(x, y+row)
		for col, v := range line {
			for _, c := range chans {
				ds.pix.Pix[off+4*col+c] = v
			}
		}
	}
	ds.dirty = true

	return nil
}

// Flush implements rasterblock.Dataset. Textures are encoded as a whole on
// Close, so Flush only validates the band.
func (ds *Dataset) Flush(band int) error {
	if ds.closed {
		return rasterblock.ErrClosed
	}
	if band < 1 || band > ds.bands {
		return fmt.Errorf("%w: %d of %d", rasterblock.ErrBandRange, band, ds.bands)
	}

	return nil
}

// Image returns the pixels backing the dataset.
func (ds *Dataset) Image() *image.NRGBA { return ds.pix }

// Close writes the texture when it was created or modified.
func (ds *Dataset) Close() error {
	if ds.closed {
		return nil
	}
	ds.closed = true

	if ds.mode != rasterblock.Update || !ds.dirty {
		return nil
	}

	return WriteWithOptions(ds.pix, ds.path, &ds.opts)
}
