//go:build windows

package osutil

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/windows"
)

// UnknownExitCode is reported when a process is known to be gone but its
// exit status could not be captured.
const UnknownExitCode = -1

// readinessPollInterval paces the PeekNamedPipe loop. Anonymous pipes are
// not selectable on Windows, so readiness is probed rather than awaited.
const readinessPollInterval = 10 * time.Millisecond

// SetNonblocking switches the pipe handle to PIPE_NOWAIT mode so a read
// with no data available returns immediately instead of stalling. It takes
// the raw handle value for symmetry with the Unix implementation.
func SetNonblocking(fd int) error {
	mode := uint32(windows.PIPE_NOWAIT)
	if err := windows.SetNamedPipeHandleState(windows.Handle(uintptr(fd)), &mode, nil, nil); err != nil {
		return fmt.Errorf("could not set PIPE_NOWAIT on handle %d: %w", fd, err)
	}
	return nil
}

// WaitReadable waits until at least one of the pipe handles has data to
// read (or has been closed on the far side) and returns the ready subset.
// A negative timeout blocks indefinitely; zero checks once and returns
// immediately.
func WaitReadable(fds []int, timeout time.Duration) ([]int, error) {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		var ready []int
		for _, fd := range fds {
			var avail uint32
			err := windows.PeekNamedPipe(windows.Handle(uintptr(fd)), nil, 0, nil, &avail, nil)
			switch {
			case err == nil && avail > 0:
				ready = append(ready, fd)
			case err == windows.ERROR_BROKEN_PIPE:
				// Let the caller read the EOF.
				ready = append(ready, fd)
			case err != nil:
				return nil, fmt.Errorf("PeekNamedPipe on handle %d failed: %w", fd, err)
			}
		}
		if len(ready) > 0 {
			return ready, nil
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return nil, nil
		}
		time.Sleep(readinessPollInterval)
	}
}

// WaitWritable always reports ready: pipe writability cannot be probed on
// Windows, and pipe writes complete as long as the buffer has room.
func WaitWritable(fd int, timeout time.Duration) (bool, error) {
	return true, nil
}

// DrainPipe reads all bytes currently available on a PIPE_NOWAIT handle
// without stalling. Zero or more bytes may be returned; EOF is not an
// error and yields whatever was read before it.
func DrainPipe(fd int) ([]byte, error) {
	h := windows.Handle(uintptr(fd))
	var out []byte
	buf := make([]byte, 4096)
	for {
		var done uint32
		err := windows.ReadFile(h, buf, &done, nil)
		if done > 0 {
			out = append(out, buf[:done]...)
		}
		switch {
		case err == windows.ERROR_NO_DATA:
			return out, nil
		case err == windows.ERROR_BROKEN_PIPE:
			return out, nil
		case err != nil:
			return out, fmt.Errorf("read on handle %d failed: %w", fd, err)
		case done == 0:
			return out, nil
		}
	}
}

// WritePipe writes the whole buffer to the pipe handle. The write goes
// straight to the pipe, so there is no userspace buffer left to flush; gdb
// sees the command as soon as this returns.
func WritePipe(fd int, data []byte) error {
	h := windows.Handle(uintptr(fd))
	for len(data) > 0 {
		var done uint32
		if err := windows.WriteFile(h, data, &done, nil); err != nil {
			return fmt.Errorf("write on handle %d failed: %w", fd, err)
		}
		data = data[done:]
	}
	return nil
}

// ProcessExited probes whether the child process has finished, without
// blocking. Exit codes are not retrievable from the PID alone, so the
// code is always UnknownExitCode.
func ProcessExited(pid int) (bool, int) {
	if processExists(pid) {
		return false, UnknownExitCode
	}
	return true, UnknownExitCode
}

// Terminate forcibly stops the process; Windows has no close equivalent
// of SIGTERM for console-less children.
func Terminate(p *os.Process) error {
	return p.Kill()
}
