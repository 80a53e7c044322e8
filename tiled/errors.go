package tiled

import "errors"

var (
	// ErrOpenFile indicates a failure opening the dataset file.
	ErrOpenFile = errors.New("open file")
	// ErrCreateFile indicates a failure creating the dataset file.
	ErrCreateFile = errors.New("create file")
	// ErrBadMagic indicates the file is not a TILED dataset.
	ErrBadMagic = errors.New("not a tiled dataset")
	// ErrUnsupportedVersion indicates an unknown format version.
	ErrUnsupportedVersion = errors.New("unsupported format version")
	// ErrInvalidHeader indicates header fields out of range.
	ErrInvalidHeader = errors.New("invalid header")
	// ErrHeaderRead indicates a failure reading the header.
	ErrHeaderRead = errors.New("read header")
	// ErrHeaderWrite indicates a failure writing the header.
	ErrHeaderWrite = errors.New("write header")
	// ErrIndexRead indicates a failure reading the block index.
	ErrIndexRead = errors.New("read block index")
	// ErrIndexWrite indicates a failure writing the block index.
	ErrIndexWrite = errors.New("write block index")
	// ErrBlockRead indicates a failure reading or decoding a block.
	ErrBlockRead = errors.New("read block")
	// ErrBlockWrite indicates a failure encoding or writing a block.
	ErrBlockWrite = errors.New("write block")
	// ErrCloseFile indicates a failure closing the dataset file.
	ErrCloseFile = errors.New("close file")
	// ErrSync indicates a failure syncing the file to disk.
	ErrSync = errors.New("sync file")
)
