package tiled

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/woozymasta/rasterblock"
	"github.com/woozymasta/rasterblock/internal/block"
)

const (
	// Magic opens every TILED file.
	Magic = "RBTL"
	// Version is the format version written by this package.
	Version = 1

	headerSize = 64
	// entrySize is magic, int32 body size and uint64 body offset.
	entrySize = 16
)

// header is the fixed 64-byte file header. All fields are little-endian.
//
//	0  magic "RBTL"     4  version uint16   6  data type uint16
//	8  width uint32    12  height uint32   16  bands uint32
//	20 block w uint32  24  block h uint32  28  codec uint16
//	32 index offset    40  index length (uint64 each), rest reserved
type header struct {
	Width, Height int
	Bands         int
	DataType      rasterblock.DataType
	BlockWidth    int
	BlockHeight   int
	Codec         block.Codec
	IndexOffset   int64
	IndexLength   int64
}

func (h *header) blocksX() int { return (h.Width + h.BlockWidth - 1) / h.BlockWidth }
func (h *header) blocksY() int { return (h.Height + h.BlockHeight - 1) / h.BlockHeight }

// blockBytes is the raw size of one block. Edge blocks are padded to full size.
func (h *header) blockBytes() int { return h.BlockWidth * h.BlockHeight * h.DataType.Size() }

// entries is the number of index entries: one per band per block.
func (h *header) entries() int { return h.Bands * h.blocksX() * h.blocksY() }

func (h *header) validate() error {
	if h.Width <= 0 || h.Height <= 0 || h.Bands <= 0 {
		return fmt.Errorf("%w: %dx%d with %d bands", ErrInvalidHeader, h.Width, h.Height, h.Bands)
	}
	if h.BlockWidth <= 0 || h.BlockHeight <= 0 {
		return fmt.Errorf("%w: block %dx%d", ErrInvalidHeader, h.BlockWidth, h.BlockHeight)
	}
	if !h.DataType.Valid() {
		return fmt.Errorf("%w: %s", rasterblock.ErrUnknownDataType, h.DataType)
	}
	if h.Codec < block.None || h.Codec > block.ZSTD {
		return fmt.Errorf("%w: %s", block.ErrUnknownCodec, h.Codec)
	}
	if _, err := block.I32(h.blockBytes()); err != nil {
		return fmt.Errorf("%w: block of %d bytes", ErrInvalidHeader, h.blockBytes())
	}

	return nil
}

func (h *header) marshal() ([]byte, error) {
	fields := []int{h.Width, h.Height, h.Bands, h.BlockWidth, h.BlockHeight}
	vals := make([]uint32, len(fields))
	for i, f := range fields {
		v, err := block.U32(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHeaderWrite, err)
		}
		vals[i] = v
	}

	buf := make([]byte, headerSize)
	copy(buf, Magic)
	le := binary.LittleEndian
	le.PutUint16(buf[4:], Version)
	le.PutUint16(buf[6:], uint16(h.DataType)) // #nosec G115 -- validated
	for i, v := range vals {
		le.PutUint32(buf[8+4*i:], v)
	}
	le.PutUint16(buf[28:], uint16(h.Codec))       // #nosec G115 -- validated
	le.PutUint64(buf[32:], uint64(h.IndexOffset)) // #nosec G115 -- non-negative
	le.PutUint64(buf[40:], uint64(h.IndexLength)) // #nosec G115 -- non-negative

	return buf, nil
}

func readHeader(r io.Reader) (*header, error) {
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHeaderRead, err)
	}
	if string(buf[:4]) != Magic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadMagic, buf[:4])
	}

	le := binary.LittleEndian
	if v := le.Uint16(buf[4:]); v != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	h := &header{
		DataType:    rasterblock.DataType(le.Uint16(buf[6:])),
		Width:       int(le.Uint32(buf[8:])),
		Height:      int(le.Uint32(buf[12:])),
		Bands:       int(le.Uint32(buf[16:])),
		BlockWidth:  int(le.Uint32(buf[20:])),
		BlockHeight: int(le.Uint32(buf[24:])),
		Codec:       block.Codec(le.Uint16(buf[28:])),
		IndexOffset: int64(le.Uint64(buf[32:])), // #nosec G115 -- checked below
		IndexLength: int64(le.Uint64(buf[40:])), // #nosec G115 -- checked below
	}
	if err := h.validate(); err != nil {
		return nil, err
	}
	if want := int64(h.entries()) * entrySize; h.IndexLength != want || h.IndexOffset < headerSize {
		return nil, fmt.Errorf("%w: index of %d bytes at %d, want %d bytes", ErrInvalidHeader, h.IndexLength, h.IndexOffset, want)
	}

	return h, nil
}

// entry locates one stored block. A zero Size means the block was never
// written and reads as zeros.
type entry struct {
	Magic  string
	Size   int32
	Offset int64
}

func (e entry) missing() bool { return e.Size == 0 }

func marshalIndex(index []entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(index) * entrySize)
	for i, e := range index {
		magic := e.Magic
		if magic == "" {
			magic = block.MagicCOPY
		}
		if err := block.WriteHeader(&buf, block.Header{Magic: magic, Size: e.Size}); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrIndexWrite, i, err)
		}
		if err := binary.Write(&buf, binary.LittleEndian, e.Offset); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrIndexWrite, i, err)
		}
	}

	return buf.Bytes(), nil
}

func readIndex(r io.Reader, n int) ([]entry, error) {
	index := make([]entry, n)
	for i := range index {
		h, err := block.ReadHeader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrIndexRead, i, err)
		}
		var off int64
		if err := binary.Read(r, binary.LittleEndian, &off); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrIndexRead, i, err)
		}
		if off < 0 || (h.Size > 0 && off < headerSize) {
			return nil, fmt.Errorf("%w: entry %d: offset %d", ErrIndexRead, i, off)
		}
		index[i] = entry{Magic: h.Magic, Size: h.Size, Offset: off}
	}

	return index, nil
}
