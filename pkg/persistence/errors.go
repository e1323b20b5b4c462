package persistence

import "errors"

// Sentinel errors. Callers match them with errors.Is.
var (
	// ErrNotFound means there is no snapshot at the requested location.
	ErrNotFound = errors.New("snapshot not found")

	// ErrMalformed means the snapshot exists but does not have the expected shape.
	ErrMalformed = errors.New("malformed snapshot document")

	// ErrInvalidDestination means a dump destination cannot be written to.
	ErrInvalidDestination = errors.New("invalid dump destination")

	// ErrUnknownDriver means the snapshot backend driver is not supported.
	ErrUnknownDriver = errors.New("unknown snapshot driver")
)
