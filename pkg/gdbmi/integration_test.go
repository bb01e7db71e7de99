//go:build !windows

package gdbmi

import (
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSampleBinary compiles the sample C program with debug symbols and
// returns the binary path. The test is skipped when no C compiler or gdb
// is installed.
func buildSampleBinary(t *testing.T) string {
	t.Helper()

	if _, err := exec.LookPath("gdb"); err != nil {
		t.Skip("gdb is not installed")
	}

	cc, err := exec.LookPath("gcc")
	if err != nil {
		if cc, err = exec.LookPath("cc"); err != nil {
			t.Skip("no C compiler installed")
		}
	}

	binary := filepath.Join(t.TempDir(), "hello")
	out, err := exec.Command(cc, "-g", "testdata/hello.c", "-o", binary).CombinedOutput()
	require.NoError(t, err, "compile failed: %s", out)
	return binary
}

// TestGdbEndToEnd drives a real gdb through a load/break/run cycle and
// checks the decoded record stream, mirroring how a frontend would use
// the controller.
func TestGdbEndToEnd(t *testing.T) {
	binary := buildSampleBinary(t)

	ctrl, err := New("gdb", nil)
	require.NoError(t, err)
	defer func() {
		_ = ctrl.Exit()
	}()

	opts := &WriteOptions{
		Timeout:        3 * time.Second,
		RaiseOnTimeout: true,
		ReadResponse:   true,
	}

	// Loading the binary also flushes gdb's startup notifications, which
	// nobody has read yet.
	records, err := ctrl.Write(NewCommand("-file-exec-and-symbols "+binary), opts)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.True(t, hasRecord(records, KindNotify, "thread-group-added"), "expected gdb's startup notification, got %v", records)
	assert.True(t, hasRecord(records, KindResult, "done"), "expected a done result, got %v", records)
	for _, rec := range records {
		assert.NotEqual(t, prompt, rec.Payload, "prompt lines must never surface as records")
		assert.Equal(t, StreamStdout, rec.Stream)
	}

	records, err = ctrl.Write(NewCommandList([]string{"-file-list-exec-source-files", "-break-insert main"}), opts)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.True(t, hasRecord(records, KindResult, "done"), "breakpoint insertion should produce a done result, got %v", records)

	records, err = ctrl.Write(NewCommandList([]string{"-exec-run", "-exec-continue"}), &WriteOptions{
		Timeout:        5 * time.Second,
		RaiseOnTimeout: true,
		ReadResponse:   true,
	})
	require.NoError(t, err)
	foundInferiorOutput := false
	for _, rec := range records {
		if rec.Payload == "  leading spaces should be preserved. So should trailing spaces.  " {
			foundInferiorOutput = true
		}
	}
	assert.True(t, foundInferiorOutput, "inferior stdout should pass through with spaces intact, got %v", records)

	require.NoError(t, ctrl.Exit())
	assert.False(t, ctrl.Running())

	_, err = ctrl.Write(NewCommand("-file-exec-and-symbols "+binary), opts)
	require.ErrorIs(t, err, ErrNoProcess)
}

func hasRecord(records []Record, kind Kind, message string) bool {
	for _, rec := range records {
		if rec.Kind == kind && rec.Message == message {
			return true
		}
	}
	return false
}
