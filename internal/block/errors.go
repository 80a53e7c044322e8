package block

import "errors"

var (
	// ErrSizeOverflow indicates a size outside the int32/uint32 range of the block format.
	ErrSizeOverflow = errors.New("size overflow")
	// ErrUnknownCodec indicates an unsupported codec name.
	ErrUnknownCodec = errors.New("unknown codec")
	// ErrUnknownMagic indicates an unsupported block magic.
	ErrUnknownMagic = errors.New("unknown block magic")

	// ErrCopySizeMismatch indicates a COPY block size mismatch.
	ErrCopySizeMismatch = errors.New("copy block size mismatch")
	// ErrInvalidTargetSize indicates an invalid decompression target size.
	ErrInvalidTargetSize = errors.New("invalid target size")
	// ErrChunkTooLarge indicates an LZ4 chunk larger than the 24-bit size field.
	ErrChunkTooLarge = errors.New("compressed chunk too large")
	// ErrChunkStreamTruncated indicates a truncated LZ4 chunk stream.
	ErrChunkStreamTruncated = errors.New("chunk stream truncated")
	// ErrUnknownLZ4Flags indicates unsupported LZ4 chunk flags.
	ErrUnknownLZ4Flags = errors.New("unknown lz4 chunk flags")
	// ErrInvalidChunkSize indicates an invalid LZ4 chunk size.
	ErrInvalidChunkSize = errors.New("invalid chunk size")
	// ErrDecodeOverrun indicates the chunk stream decodes past the target size.
	ErrDecodeOverrun = errors.New("decode overrun")
	// ErrLZ4Compress indicates an LZ4 compression failure.
	ErrLZ4Compress = errors.New("lz4 compress")
	// ErrLZ4Decode indicates an LZ4 decode failure.
	ErrLZ4Decode = errors.New("lz4 decode")
	// ErrZSTDDecode indicates a ZSTD decode failure.
	ErrZSTDDecode = errors.New("zstd decode")
	// ErrDecodedSizeMismatch indicates a decoded size mismatch.
	ErrDecodedSizeMismatch = errors.New("decoded size mismatch")
	// ErrBlockLengthMismatch indicates trailing bytes after decode.
	ErrBlockLengthMismatch = errors.New("block length mismatch")

	// ErrTableRead indicates a failure reading a block table entry.
	ErrTableRead = errors.New("read block table")
	// ErrTableWrite indicates a failure writing a block table entry.
	ErrTableWrite = errors.New("write block table")
	// ErrBodyRead indicates a failure reading a block body.
	ErrBodyRead = errors.New("read block body")
	// ErrBodyWrite indicates a failure writing a block body.
	ErrBodyWrite = errors.New("write block body")
)
