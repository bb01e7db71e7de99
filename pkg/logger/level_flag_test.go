package logger

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestStringToLevel(t *testing.T) {
	t.Parallel()

	level, err := StringToLevel("debug", zapcore.InfoLevel)
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, level)

	level, err = StringToLevel("ERROR", zapcore.InfoLevel)
	require.NoError(t, err)
	assert.Equal(t, zapcore.ErrorLevel, level)

	// Verbosity integers map to increasingly negative zap levels.
	level, err = StringToLevel("3", zapcore.InfoLevel)
	require.NoError(t, err)
	assert.Equal(t, zapcore.Level(-3), level)

	_, err = StringToLevel("bogus", zapcore.InfoLevel)
	require.Error(t, err)

	_, err = StringToLevel("-2", zapcore.InfoLevel)
	require.Error(t, err)
}

func TestAddLevelFlag(t *testing.T) {
	t.Parallel()

	log := New("test")
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	log.AddLevelFlag(fs)

	require.NoError(t, fs.Parse([]string{"-v=debug"}))
	assert.True(t, log.V(1).Enabled(), "debug verbosity should enable V(1) output")
}
