// Package block implements the block bodies and block tables shared by the
// TILED and EDDS storage formats: raw COPY bodies, LZ4 chunk streams and
// ZSTD frames, each tagged by a four byte magic.
package block

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

const (
	// MagicCOPY marks an uncompressed block.
	MagicCOPY = "COPY"
	// MagicLZ4 marks an LZ4 chunk-stream block.
	MagicLZ4 = "LZ4 "
	// MagicZSTD marks a ZSTD frame block.
	MagicZSTD = "ZSTD"

	// ChunkSize is the chunk size of LZ4 streams.
	ChunkSize = 64 * 1024

	// bodies below minCompressSize are always stored as COPY.
	minCompressSize = 1024
	// compressed bodies above maxRatio of the raw size are stored as COPY.
	maxRatio = 0.85
)

// Codec selects how block bodies are compressed.
type Codec int

const (
	// None stores raw COPY blocks.
	None Codec = iota
	// LZ4 stores LZ4 chunk streams.
	LZ4
	// ZSTD stores ZSTD frames.
	ZSTD
)

// String implements fmt.Stringer.
func (c Codec) String() string {
	switch c {
	case None:
		return "NONE"
	case LZ4:
		return "LZ4"
	case ZSTD:
		return "ZSTD"
	default:
		return fmt.Sprintf("Codec(%d)", int(c))
	}
}

// ParseCodec parses a codec name. An empty name, "NONE" and "COPY" select None.
func ParseCodec(name string) (Codec, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "NONE", "COPY":
		return None, nil
	case "LZ4":
		return LZ4, nil
	case "ZSTD":
		return ZSTD, nil
	default:
		return None, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// Block is one stored block body. Data holds the body exactly as stored,
// including the uncompressed size prefix of LZ4 and ZSTD bodies.
type Block struct {
	Magic string
	Data  []byte
}

// Header returns the table entry describing b.
func (b *Block) Header() Header {
	// Encode and ReadBody keep len(Data) within int32.
	return Header{Magic: b.Magic, Size: int32(len(b.Data))} // #nosec G115
}

// Encode compresses data with codec c. Small or poorly compressible data
// falls back to a COPY block. The returned block may alias data.
func Encode(c Codec, data []byte) (*Block, error) {
	if _, err := I32(len(data)); err != nil {
		return nil, fmt.Errorf("%w: %d bytes", err, len(data))
	}

	if c == None || len(data) < minCompressSize {
		return &Block{Magic: MagicCOPY, Data: data}, nil
	}

	var (
		body  []byte
		magic string
		err   error
	)
	switch c {
	case LZ4:
		magic = MagicLZ4
		body, err = encodeLZ4(data)
	case ZSTD:
		magic = MagicZSTD
		body, err = encodeZSTD(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, c)
	}
	if err != nil {
		return nil, err
	}
	if body == nil || float64(len(body)) > float64(len(data))*maxRatio {
		return &Block{Magic: MagicCOPY, Data: data}, nil
	}
	if _, err := I32(len(body)); err != nil {
		return nil, fmt.Errorf("%w: compressed %d bytes", err, len(body))
	}

	return &Block{Magic: magic, Data: body}, nil
}

// Decode inflates b into a new slice of rawSize bytes.
func Decode(b *Block, rawSize int) ([]byte, error) {
	switch b.Magic {
	case MagicCOPY:
		if len(b.Data) != rawSize {
			return nil, fmt.Errorf("%w: expected %d, got %d", ErrCopySizeMismatch, rawSize, len(b.Data))
		}
		out := make([]byte, len(b.Data))
		copy(out, b.Data)
		return out, nil
	case MagicLZ4:
		return decodeLZ4(b.Data, rawSize)
	case MagicZSTD:
		return decodeZSTD(b.Data, rawSize)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMagic, b.Magic)
	}
}

// sizePrefix prepends the little-endian uncompressed size to a body.
func sizePrefix(rawSize, capacity int) []byte {
	out := make([]byte, 4, 4+capacity)
	binary.LittleEndian.PutUint32(out, uint32(rawSize)) // #nosec G115 -- checked by Encode
	return out
}

// Header is one block table entry: a magic followed by the int32 body size.
type Header struct {
	Magic string
	Size  int32
}

func knownMagic(magic string) bool {
	return magic == MagicCOPY || magic == MagicLZ4 || magic == MagicZSTD
}

// ReadHeader reads one table entry.
func ReadHeader(r io.Reader) (Header, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return Header{}, fmt.Errorf("%w: magic: %v", ErrTableRead, err)
	}

	var size int32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return Header{}, fmt.Errorf("%w: size: %v", ErrTableRead, err)
	}
	if !knownMagic(string(magic[:])) {
		return Header{}, fmt.Errorf("%w: %q", ErrUnknownMagic, magic[:])
	}
	if size < 0 {
		return Header{}, fmt.Errorf("%w: negative size %d", ErrTableRead, size)
	}

	return Header{Magic: string(magic[:]), Size: size}, nil
}

// ReadTable reads n consecutive table entries.
func ReadTable(r io.Reader, n int) ([]Header, error) {
	hdrs := make([]Header, 0, n)
	for i := range n {
		h, err := ReadHeader(r)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		hdrs = append(hdrs, h)
	}

	return hdrs, nil
}

// WriteHeader writes one table entry.
func WriteHeader(w io.Writer, h Header) error {
	if _, err := io.WriteString(w, h.Magic); err != nil {
		return fmt.Errorf("%w: magic: %v", ErrTableWrite, err)
	}
	if err := binary.Write(w, binary.LittleEndian, h.Size); err != nil {
		return fmt.Errorf("%w: size: %v", ErrTableWrite, err)
	}

	return nil
}

// ReadBody reads the body described by h.
func ReadBody(r io.Reader, h Header) (*Block, error) {
	if h.Size < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrBodyRead, h.Size)
	}

	data := make([]byte, h.Size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBodyRead, h.Magic, err)
	}

	return &Block{Magic: h.Magic, Data: data}, nil
}

// WriteBody writes the body of b (no table entry).
func WriteBody(w io.Writer, b *Block) error {
	if _, err := w.Write(b.Data); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBodyWrite, b.Magic, err)
	}

	return nil
}
