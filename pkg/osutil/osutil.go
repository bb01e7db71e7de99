// Package osutil isolates the platform-specific mechanics the gdb
// controller needs: resolving executables, switching pipes to non-blocking
// mode, waiting for pipe readiness under a deadline, draining readable
// bytes, and probing or terminating the gdb process.
//
// Pipe readiness and non-blocking I/O have two divergent OS mechanisms
// (poll/fcntl on Unix, named-pipe state and PeekNamedPipe on Windows).
// The controller is written only against the functions declared here; the
// implementations are selected at build time.
package osutil

import (
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/tklauser/ps"
)

// ResolveExecutable resolves a command name or partial path to an absolute
// executable path, searching PATH the way the shell would.
func ResolveExecutable(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("executable name is empty")
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("could not resolve executable from %q: %w", name, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("could not make %q absolute: %w", path, err)
	}
	return abs, nil
}

// processExists reports whether a process with the given PID currently
// exists, without requiring it to be a child of the calling process.
func processExists(pid int) bool {
	_, err := ps.FindProcess(pid)
	return err == nil
}
