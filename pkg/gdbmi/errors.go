package gdbmi

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when the controller is constructed or
	// called with unusable input (empty gdb path, empty command, ...).
	ErrInvalidConfig = errors.New("invalid gdb configuration")

	// ErrNoProcess is returned when an operation is attempted but no live
	// gdb process is attached. The process may have been terminated via
	// Exit, exited on its own, or failed to start.
	ErrNoProcess = errors.New("no gdb process")

	// ErrTimeout is returned when no response arrived from gdb before the
	// deadline and the caller asked for strict timeout failure.
	ErrTimeout = errors.New("no response from gdb before deadline")
)

// DecodeError reports a line of gdb output that could not be decoded under
// the MI grammar. The offending line is carried so callers can log or
// surface it; records decoded from earlier lines of the same batch are
// returned alongside the error, not discarded.
type DecodeError struct {
	// Line is the raw line that failed to decode.
	Line string

	reason string
}

func newDecodeError(line, format string, args ...any) *DecodeError {
	return &DecodeError{Line: line, reason: fmt.Sprintf(format, args...)}
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode gdb output line %q: %s", e.Line, e.reason)
}

// IsUsageError reports whether err indicates caller misuse (bad
// configuration or an operation against a dead process) rather than a
// protocol or I/O fault.
func IsUsageError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) || errors.Is(err, ErrNoProcess)
}
