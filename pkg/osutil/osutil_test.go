package osutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveExecutable(t *testing.T) {
	t.Parallel()

	_, err := ResolveExecutable("")
	require.Error(t, err)

	_, err = ResolveExecutable("no-such-executable-on-any-path-b41f")
	require.Error(t, err)

	path, err := ResolveExecutable("go")
	if err != nil {
		t.Skip("go binary not on PATH")
	}
	assert.True(t, filepath.IsAbs(path), "resolved path %q should be absolute", path)
}

func TestProcessExists_Self(t *testing.T) {
	t.Parallel()

	assert.True(t, processExists(os.Getpid()), "the current process should exist")
}
