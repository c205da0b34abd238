package types

import "errors"

// Persistence errors. Read and write failures are recovered where they occur
// and only reach logs; import failures are surfaced to the user.
var (
	ErrStorageRead  = errors.New("storage read failed")
	ErrStorageWrite = errors.New("storage write failed")
	ErrImportParse  = errors.New("import parse failed")
)

// Filter errors.
var (
	ErrInvalidStatus   = errors.New("invalid status filter")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidSort     = errors.New("invalid sort key")
)
