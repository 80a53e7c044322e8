package edds

import "errors"

var (
	// ErrInvalidFormat indicates an unsupported texture format.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrUnknownFormat indicates a texture whose format cannot be detected.
	ErrUnknownFormat = errors.New("unknown texture format")
	// ErrEmptyMipmaps indicates missing mipmap data.
	ErrEmptyMipmaps = errors.New("empty mipmaps")
	// ErrMipmapSizeMismatch indicates a mipmap payload size mismatch.
	ErrMipmapSizeMismatch = errors.New("mipmap size mismatch")
	// ErrUnsupportedDataType indicates a band type other than Byte.
	ErrUnsupportedDataType = errors.New("textures store Byte bands only")
	// ErrBandCount indicates a band count outside 1..4 on create.
	ErrBandCount = errors.New("textures hold 1 to 4 bands")

	// ErrOpenFile indicates a failure opening the texture file.
	ErrOpenFile = errors.New("open file")
	// ErrCreateFile indicates a failure creating the texture file.
	ErrCreateFile = errors.New("create file")
	// ErrDDSHeaderRead indicates a failure reading the DDS header.
	ErrDDSHeaderRead = errors.New("read DDS header")
	// ErrDDSDX10Read indicates a failure reading the DX10 header extension.
	ErrDDSDX10Read = errors.New("read DDS DX10 header")
	// ErrWriteDDSHeader indicates a failure writing the DDS magic or header.
	ErrWriteDDSHeader = errors.New("write DDS header")
	// ErrBlockTable indicates a failure reading or writing the mipmap block table.
	ErrBlockTable = errors.New("mipmap block table")
	// ErrBlockBody indicates a failure reading, decoding or writing a mipmap body.
	ErrBlockBody = errors.New("mipmap block body")
	// ErrLegacyPayload indicates a legacy single-payload file could not be parsed.
	ErrLegacyPayload = errors.New("legacy single payload")
	// ErrEncodeMipmap indicates a BCn encode failure.
	ErrEncodeMipmap = errors.New("encode mipmap")
	// ErrDecodeImage indicates a BCn decode failure.
	ErrDecodeImage = errors.New("decode image")
)
