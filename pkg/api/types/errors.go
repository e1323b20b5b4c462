package types

import (
	"errors"

	"github.com/getmockd/kbase/pkg/persistence"
)

// StatusFromError maps a persistence error to a Status. nil is OK and any
// unrecognized error is an IO_ERROR.
func StatusFromError(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, persistence.ErrNotFound):
		return StatusFileNotFound
	case errors.Is(err, persistence.ErrInvalidDestination):
		return StatusInvalidPath
	case errors.Is(err, persistence.ErrMalformed):
		return StatusMalformedDocument
	default:
		return StatusIOError
	}
}
