// Package tiled implements TILED, the default output format: an
// uncompressed or block-compressed tiled raster in a single file.
//
// A file is a 64-byte header followed by block bodies and a block index the
// header points at. Each band is cut into fixed-size blocks; every block body is a
// COPY, LZ4 or ZSTD body of the internal block package. The index lists one
// entry (magic, size, offset) per band and block in raster order. Flush
// never overwrites bytes the header still references: space freed by one
// flush is reused only after a later sync.
package tiled

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/woozymasta/rasterblock"
	"github.com/woozymasta/rasterblock/internal/block"
)

const (
	// DriverName is the output format name of the driver.
	DriverName = "TILED"
	// DefaultBlockSize is the block width and height used unless configured.
	DefaultBlockSize = 256
)

func init() {
	rasterblock.Register(Driver{})
}

// Driver creates and opens TILED files. The zero value is ready to use.
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

// Probe reports whether path starts with the TILED magic.
func (Driver) Probe(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return false
	}

	return string(magic[:]) == Magic
}

// Remove deletes the file at path.
func (Driver) Remove(path string) error {
	return os.Remove(path)
}

// Open implements rasterblock.Driver.
func (Driver) Open(path string, mode rasterblock.AccessMode) (rasterblock.Dataset, error) {
	ds, err := Open(path, mode)
	if err != nil {
		return nil, err
	}

	return ds, nil
}

// Create implements rasterblock.Driver. Options: BLOCKXSIZE, BLOCKYSIZE
// (default 256, capped to the raster size) and COMPRESS=NONE|LZ4|ZSTD.
func (Driver) Create(path string, width, height, bands int, dtype rasterblock.DataType, options []string) (rasterblock.Dataset, error) {
	hdr, err := newHeader(width, height, bands, dtype, options)
	if err != nil {
		return nil, err
	}

	ds, err := create(path, hdr)
	if err != nil {
		return nil, err
	}

	return ds, nil
}

func newHeader(width, height, bands int, dtype rasterblock.DataType, options []string) (*header, error) {
	opts, err := rasterblock.ParseCreateOptions(options)
	if err != nil {
		return nil, err
	}

	hdr := &header{
		Width:       width,
		Height:      height,
		Bands:       bands,
		DataType:    dtype,
		BlockWidth:  DefaultBlockSize,
		BlockHeight: DefaultBlockSize,
	}
	for key, value := range opts {
		switch key {
		case "BLOCKXSIZE":
			hdr.BlockWidth, err = strconv.Atoi(value)
		case "BLOCKYSIZE":
			hdr.BlockHeight, err = strconv.Atoi(value)
		case "COMPRESS":
			hdr.Codec, err = block.ParseCodec(value)
		default:
			return nil, fmt.Errorf("%w: %s is not a %s option", rasterblock.ErrCreateOption, key, DriverName)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%s: %v", rasterblock.ErrCreateOption, key, value, err)
		}
	}
	if hdr.BlockWidth > width && width > 0 {
		hdr.BlockWidth = width
	}
	if hdr.BlockHeight > height && height > 0 {
		hdr.BlockHeight = height
	}

	if err := hdr.validate(); err != nil {
		return nil, err
	}

	return hdr, nil
}

func create(path string, hdr *header) (*Dataset, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrCreateFile, path, err)
	}

	ds := &Dataset{
		f:     f,
		path:  path,
		mode:  rasterblock.Update,
		hdr:   hdr,
		index: make([]entry, hdr.entries()),
		dirty: make(map[int][]byte),
		end:   headerSize,
	}
	if err := ds.commit(nil); err != nil {
		_ = f.Close()
		return nil, err
	}

	return ds, nil
}

// Open opens an existing TILED file.
func Open(path string, mode rasterblock.AccessMode) (*Dataset, error) {
	flag := os.O_RDONLY
	if mode == rasterblock.Update {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrOpenFile, path, err)
	}

	ds, err := load(f, path, mode)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return ds, nil
}

func load(f *os.File, path string, mode rasterblock.AccessMode) (*Dataset, error) {
	hdr, err := readHeader(f)
	if err != nil {
		return nil, err
	}

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrOpenFile, path, err)
	}
	if hdr.IndexOffset+hdr.IndexLength > st.Size() {
		return nil, fmt.Errorf("%w: index ends at %d, file has %d bytes", ErrInvalidHeader, hdr.IndexOffset+hdr.IndexLength, st.Size())
	}

	index, err := readIndex(io.NewSectionReader(f, hdr.IndexOffset, hdr.IndexLength), hdr.entries())
	if err != nil {
		return nil, err
	}
	idxEnd := hdr.IndexOffset + hdr.IndexLength
	for i, e := range index {
		if e.missing() {
			continue
		}
		bodyEnd := e.Offset + int64(e.Size)
		if bodyEnd > st.Size() {
			return nil, fmt.Errorf("%w: entry %d ends at %d past the file end", ErrIndexRead, i, bodyEnd)
		}
		if e.Offset < idxEnd && bodyEnd > hdr.IndexOffset {
			return nil, fmt.Errorf("%w: entry %d overlaps the index", ErrIndexRead, i)
		}
	}

	return &Dataset{
		f:     f,
		path:  path,
		mode:  mode,
		hdr:   hdr,
		index: index,
		dirty: make(map[int][]byte),
		end:   st.Size(),
	}, nil
}
