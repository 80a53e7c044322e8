package block

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

const (
	// lastChunk flags the final chunk of a stream.
	lastChunk = 0x80
	// maxChunkSize is the largest value of the 24-bit chunk size field.
	maxChunkSize = 0x7FFFFF
	dictCap      = 64 * 1024
)

// encodeLZ4 builds the size prefix and chunk stream for data. Every chunk
// is a 3-byte little-endian compressed size, a flag byte and the LZ4 block.
// It returns nil when a chunk does not shrink enough to be worth storing.
func encodeLZ4(data []byte) ([]byte, error) {
	out := sizePrefix(len(data), len(data)/2)
	scratch := make([]byte, lz4.CompressBlockBound(ChunkSize))

	for start := 0; start < len(data); start += ChunkSize {
		end := min(start+ChunkSize, len(data))
		chunk := data[start:end]

		n, err := lz4.CompressBlockHC(chunk, scratch, 0, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLZ4Compress, err)
		}
		if n == 0 || float64(n) > float64(len(chunk))*maxRatio {
			return nil, nil
		}
		if n > maxChunkSize {
			return nil, fmt.Errorf("%w: %d", ErrChunkTooLarge, n)
		}

		var flags byte
		if end == len(data) {
			flags = lastChunk
		}
		out = append(out, byte(n), byte(n>>8), byte(n>>16), flags)
		out = append(out, scratch[:n]...)
	}

	return out, nil
}

// decodeLZ4 inflates an LZ4 body. The size prefix is optional: bodies
// written without it are bare chunk streams of rawSize bytes.
func decodeLZ4(data []byte, rawSize int) ([]byte, error) {
	target := rawSize
	if len(data) >= 8 {
		peek := int(binary.LittleEndian.Uint32(data[:4]))
		c0 := int(data[4]) | int(data[5])<<8 | int(data[6])<<16
		if (peek == rawSize || rawSize <= 0) && c0 > 0 && c0 < 1<<20 {
			target = peek
			data = data[4:]
		}
	}
	if target <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTargetSize, target)
	}

	// Chunks may reference up to 64KB of previously decoded output.
	dict := make([]byte, 0, dictCap)
	out := make([]byte, target)
	written := 0
	pos := 0

	for {
		if len(data)-pos < 4 {
			return nil, fmt.Errorf("%w: need 4 bytes header, have %d", ErrChunkStreamTruncated, len(data)-pos)
		}
		size := int(data[pos]) | int(data[pos+1])<<8 | int(data[pos+2])<<16
		flags := data[pos+3]
		pos += 4

		if flags&^lastChunk != 0 {
			return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownLZ4Flags, flags)
		}
		if size <= 0 || size > len(data)-pos {
			return nil, fmt.Errorf("%w: %d (remaining %d)", ErrInvalidChunkSize, size, len(data)-pos)
		}

		remaining := target - written
		if remaining <= 0 {
			return nil, ErrDecodeOverrun
		}
		dst := out[written : written+min(ChunkSize, remaining)]

		n, err := lz4.UncompressBlockWithDict(data[pos:pos+size], dst, dict)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLZ4Decode, err)
		}
		pos += size
		written += n
		dict = slideDict(dict, out[written-n:written])

		if flags&lastChunk != 0 {
			break
		}
	}

	if written != target {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDecodedSizeMismatch, target, written)
	}
	if pos != len(data) {
		return nil, fmt.Errorf("%w: %d bytes left after decode", ErrBlockLengthMismatch, len(data)-pos)
	}

	return out, nil
}

// slideDict appends decoded to dict, keeping the newest dictCap bytes.
func slideDict(dict, decoded []byte) []byte {
	if len(decoded) >= dictCap {
		dict = dict[:dictCap]
		copy(dict, decoded[len(decoded)-dictCap:])
		return dict
	}
	if overflow := len(dict) + len(decoded) - dictCap; overflow > 0 {
		copy(dict, dict[overflow:])
		dict = dict[:len(dict)-overflow]
	}

	return append(dict, decoded...)
}
