package cli

import (
	"errors"
	"fmt"
)

// ErrServerNotRunning is returned when the API cannot be reached.
var ErrServerNotRunning = errors.New("kbase server not reachable - start with: kbase serve")

// ExitError carries a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }
