package logflags

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset() {
	debugger = false
	threads = false
	memory = false
}

func TestSetupComponents(t *testing.T) {
	reset()
	require.NoError(t, Setup(true, "debugger,memory", ""))
	assert.True(t, Debugger())
	assert.True(t, memory)
	assert.False(t, threads)
}

func TestSetupDefaultsToDebugger(t *testing.T) {
	reset()
	require.NoError(t, Setup(true, "", ""))
	assert.True(t, Debugger())
}

func TestSetupRejectsOutputWithoutLog(t *testing.T) {
	reset()
	assert.Error(t, Setup(false, "debugger", ""))
}

func TestDisabledLoggerIsQuiet(t *testing.T) {
	reset()
	log := DebuggerLogger()
	assert.Equal(t, logrus.PanicLevel, log.Logger.Level)

	require.NoError(t, Setup(true, "debugger", ""))
	log = DebuggerLogger()
	assert.Equal(t, logrus.DebugLevel, log.Logger.Level)
}
