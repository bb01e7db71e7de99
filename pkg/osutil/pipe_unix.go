//go:build !windows

package osutil

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// UnknownExitCode is reported when a process is known to be gone but its
// exit status could not be captured.
const UnknownExitCode = -1

// SetNonblocking switches the descriptor to non-blocking mode so a read
// with no data available returns immediately instead of stalling. It takes
// a raw descriptor on purpose: os.File.Fd flips the descriptor back to
// blocking mode on Unix, so callers capture the fd once and use it raw
// from then on.
func SetNonblocking(fd int) error {
	if err := unix.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("could not set O_NONBLOCK on fd %d: %w", fd, err)
	}
	return nil
}

// WaitReadable waits until at least one of the descriptors has data to
// read (or has been closed on the far side) and returns the ready subset.
// A negative timeout blocks indefinitely; zero checks once and returns
// immediately.
func WaitReadable(fds []int, timeout time.Duration) ([]int, error) {
	pollFds := make([]unix.PollFd, len(fds))
	for i, fd := range fds {
		pollFds[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}
	}

	if err := pollRetryIntr(pollFds, timeout); err != nil {
		return nil, err
	}

	var ready []int
	for i := range pollFds {
		// POLLHUP counts as readable so the caller observes EOF promptly;
		// POLLNVAL/POLLERR so the caller observes the failure instead of
		// re-polling forever.
		if pollFds[i].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			ready = append(ready, fds[i])
		}
	}
	return ready, nil
}

// WaitWritable waits until the descriptor accepts writes without blocking.
// A negative timeout blocks indefinitely.
func WaitWritable(fd int, timeout time.Duration) (bool, error) {
	pollFds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	if err := pollRetryIntr(pollFds, timeout); err != nil {
		return false, err
	}
	return pollFds[0].Revents&unix.POLLOUT != 0, nil
}

func pollRetryIntr(pollFds []unix.PollFd, timeout time.Duration) error {
	for {
		_, err := unix.Poll(pollFds, timeoutMillis(timeout))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("poll failed: %w", err)
		}
		return nil
	}
}

func timeoutMillis(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	ms := int(timeout / time.Millisecond)
	if ms == 0 && timeout > 0 {
		ms = 1
	}
	return ms
}

// DrainPipe reads all bytes currently available on a non-blocking
// descriptor without stalling. Zero or more bytes may be returned; EOF is
// not an error and yields whatever was read before it.
func DrainPipe(fd int) ([]byte, error) {
	var out []byte
	buf := make([]byte, 4096)
	for {
		n, err := unix.Read(fd, buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return out, nil
		case err != nil:
			return out, fmt.Errorf("read on fd %d failed: %w", fd, err)
		case n == 0: // EOF
			return out, nil
		}
	}
}

// WritePipe writes the whole buffer to the descriptor. The write goes
// straight to the pipe, so there is no userspace buffer left to flush; gdb
// sees the command as soon as this returns.
func WritePipe(fd int, data []byte) error {
	for len(data) > 0 {
		n, err := unix.Write(fd, data)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("write on fd %d failed: %w", fd, err)
		}
		data = data[n:]
	}
	return nil
}

// ProcessExited probes whether the child process has finished, without
// blocking. The child is reaped if it has. When the wait status is not
// retrievable (for example the process was reaped elsewhere), existence of
// the PID decides, with UnknownExitCode for the code.
func ProcessExited(pid int) (bool, int) {
	var status unix.WaitStatus
	wpid, err := unix.Wait4(pid, &status, unix.WNOHANG, nil)
	if err != nil {
		return !processExists(pid), UnknownExitCode
	}
	if wpid == pid {
		return true, status.ExitStatus()
	}
	return false, UnknownExitCode
}

// Terminate asks the process to shut down (SIGTERM).
func Terminate(p *os.Process) error {
	return p.Signal(unix.SIGTERM)
}
