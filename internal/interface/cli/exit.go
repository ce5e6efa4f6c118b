package cli

import (
	"errors"
	"fmt"
)

// Process exit codes
const (
	ExitOK        = 0
	ExitError     = 1
	ExitExhausted = 2
)

// ExitCodeError asks main to exit with Code. Its output has already been
// written, so main prints nothing further.
type ExitCodeError struct {
	Code   int
	Reason string
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit %d: %s", e.Code, e.Reason)
}

// exhausted signals that a clarification was printed instead of a result
func exhausted(reason string) error {
	return &ExitCodeError{Code: ExitExhausted, Reason: reason}
}

// ExitCode maps an Execute error onto a process exit code
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ec *ExitCodeError
	if errors.As(err, &ec) {
		return ec.Code
	}
	return ExitError
}

// Silent reports whether err has already been reported to the user
func Silent(err error) bool {
	var ec *ExitCodeError
	return errors.As(err, &ec)
}
