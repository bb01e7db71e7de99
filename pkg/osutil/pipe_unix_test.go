//go:build !windows

package osutil

import (
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPipe returns the raw descriptors of a fresh pipe with the read
// end switched to non-blocking mode.
func newTestPipe(t *testing.T) (readFD, writeFD int) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = r.Close()
		_ = w.Close()
	})

	readFD, writeFD = int(r.Fd()), int(w.Fd())
	require.NoError(t, SetNonblocking(readFD))
	return readFD, writeFD
}

func TestDrainPipe_EmptyPipeDoesNotBlock(t *testing.T) {
	t.Parallel()

	readFD, _ := newTestPipe(t)

	start := time.Now()
	data, err := DrainPipe(readFD)
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitReadable_ReportsDataAndTimesOut(t *testing.T) {
	t.Parallel()

	readFD, writeFD := newTestPipe(t)

	// Nothing to read yet: the wait must expire empty.
	ready, err := WaitReadable([]int{readFD}, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, ready)

	require.NoError(t, WritePipe(writeFD, []byte("^done\n")))

	ready, err = WaitReadable([]int{readFD}, time.Second)
	require.NoError(t, err)
	require.Equal(t, []int{readFD}, ready)

	data, err := DrainPipe(readFD)
	require.NoError(t, err)
	assert.Equal(t, []byte("^done\n"), data)
}

func TestWaitWritable_EmptyPipeIsWritable(t *testing.T) {
	t.Parallel()

	_, writeFD := newTestPipe(t)

	ready, err := WaitWritable(writeFD, time.Second)
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestDrainPipe_ReadsEverythingAvailable(t *testing.T) {
	t.Parallel()

	readFD, writeFD := newTestPipe(t)

	// More than one internal read buffer's worth.
	payload := make([]byte, 10000)
	for i := range payload {
		payload[i] = byte('a' + i%26)
	}
	require.NoError(t, WritePipe(writeFD, payload))

	data, err := DrainPipe(readFD)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestProcessExited(t *testing.T) {
	t.Parallel()

	// The current process is running (and not our child): existence decides.
	exited, _ := ProcessExited(os.Getpid())
	assert.False(t, exited)

	cmd := exec.Command("true")
	require.NoError(t, cmd.Start())

	assert.Eventually(t, func() bool {
		exited, code := ProcessExited(cmd.Process.Pid)
		return exited && code == 0
	}, 5*time.Second, 10*time.Millisecond, "short-lived child should be reaped as exited")

	// Probing again after the reap still reports exited.
	exited, _ = ProcessExited(cmd.Process.Pid)
	assert.True(t, exited)
}