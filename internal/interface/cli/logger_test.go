package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/YoshitsuguKoike/deequery/internal/app"
)

func TestLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(LogLevelWarn, &buf)

	l.Debug("d")
	l.Info("i")
	l.Warn("attempt %d failed", 2)
	l.Error("e")
	assert.Equal(t, "WARN: attempt 2 failed\nERROR: e\n", buf.String())

	buf.Reset()
	l.SetLevel(LogLevelDebug)
	l.Debug("now visible")
	assert.Equal(t, "DEBUG: now visible\n", buf.String())
	assert.Equal(t, LogLevelDebug, l.GetLevel())
}

func TestLogLevelFromString(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LogLevelDebug,
		"INFO":    LogLevelInfo,
		"warning": LogLevelWarn,
		" error ": LogLevelError,
		"":        LogLevelWarn,
		"loud":    LogLevelWarn,
	}
	for in, want := range tests {
		assert.Equal(t, want, LogLevelFromString(in), in)
	}
}

func TestInitializeLoggers_BridgesAppLayer(t *testing.T) {
	old := app.GetLogger()
	defer app.SetLogger(old)

	var buf bytes.Buffer
	InitializeLoggers(NewLogger(LogLevelInfo, &buf))
	app.GetLogger().Debug("dropped")
	app.GetLogger().Info("batch %s", "b1")

	assert.Equal(t, "INFO: batch b1\n", buf.String())
}
