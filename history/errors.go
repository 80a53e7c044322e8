package history

import "errors"

var (
	// ErrOpenDatabase indicates the history database could not be opened or migrated.
	ErrOpenDatabase = errors.New("open history database")
	// ErrWriteRecord indicates a run record could not be stored.
	ErrWriteRecord = errors.New("write run record")
	// ErrReadRecords indicates run records could not be listed.
	ErrReadRecords = errors.New("read run records")
)
