package block

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

func mustNewZstdEncoder() *zstd.Encoder {
	enc, err := zstd.NewWriter(
		nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithLowerEncoderMem(true),
	)
	if err != nil {
		panic(err)
	}
	return enc
}

func mustNewZstdDecoder() *zstd.Decoder {
	dec, err := zstd.NewReader(
		nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true),
	)
	if err != nil {
		panic(err)
	}
	return dec
}

var zstdEncPool = sync.Pool{
	New: func() any {
		return mustNewZstdEncoder()
	},
}

var zstdDecPool = sync.Pool{
	New: func() any {
		return mustNewZstdDecoder()
	},
}

// encodeZSTD builds the size prefix followed by one ZSTD frame.
func encodeZSTD(data []byte) ([]byte, error) {
	enc := zstdEncPool.Get().(*zstd.Encoder)
	out := enc.EncodeAll(data, sizePrefix(len(data), len(data)/2))
	zstdEncPool.Put(enc)

	return out, nil
}

func decodeZSTD(data []byte, rawSize int) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: body of %d bytes", ErrZSTDDecode, len(data))
	}
	target := int(binary.LittleEndian.Uint32(data[:4]))
	if rawSize > 0 && target != rawSize {
		return nil, fmt.Errorf("%w: expected %d, header says %d", ErrDecodedSizeMismatch, rawSize, target)
	}
	if target <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTargetSize, target)
	}

	dec := zstdDecPool.Get().(*zstd.Decoder)
	out, err := dec.DecodeAll(data[4:], make([]byte, 0, target))
	zstdDecPool.Put(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrZSTDDecode, err)
	}
	if len(out) != target {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDecodedSizeMismatch, target, len(out))
	}

	return out, nil
}
