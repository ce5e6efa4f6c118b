package app

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Logger is the printf-style logger used below the CLI layer
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// stderrLogger is used until the CLI installs its level-filtered logger.
// Debug output is dropped.
type stderrLogger struct {
	output io.Writer
}

func (l stderrLogger) logf(prefix, format string, args ...interface{}) {
	fmt.Fprintf(l.output, prefix+": "+format+"\n", args...)
}

func (l stderrLogger) Debug(format string, args ...interface{}) {}

func (l stderrLogger) Info(format string, args ...interface{}) {
	l.logf("INFO", format, args...)
}

func (l stderrLogger) Warn(format string, args ...interface{}) {
	l.logf("WARN", format, args...)
}

func (l stderrLogger) Error(format string, args ...interface{}) {
	l.logf("ERROR", format, args...)
}

var (
	loggerMu     sync.RWMutex
	globalLogger Logger = stderrLogger{output: os.Stderr}
)

// SetLogger replaces the global logger; nil is ignored
func SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	loggerMu.Lock()
	globalLogger = logger
	loggerMu.Unlock()
}

// GetLogger returns the current logger
func GetLogger() Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return globalLogger
}

// NopLogger discards all messages
type NopLogger struct{}

func (NopLogger) Debug(format string, args ...interface{}) {}
func (NopLogger) Info(format string, args ...interface{})  {}
func (NopLogger) Warn(format string, args ...interface{})  {}
func (NopLogger) Error(format string, args ...interface{}) {}
