package cli

import (
	"github.com/YoshitsuguKoike/deequery/internal/app"
)

// loggerBridge adapts CLI logger to app.Logger interface
type loggerBridge struct {
	cliLogger *Logger
}

func (b *loggerBridge) Debug(format string, args ...interface{}) {
	b.cliLogger.Debug(format, args...)
}

func (b *loggerBridge) Info(format string, args ...interface{}) {
	b.cliLogger.Info(format, args...)
}

func (b *loggerBridge) Warn(format string, args ...interface{}) {
	b.cliLogger.Warn(format, args...)
}

func (b *loggerBridge) Error(format string, args ...interface{}) {
	b.cliLogger.Error(format, args...)
}

// InitializeLoggers routes app layer logging through the CLI logger
func InitializeLoggers(logger *Logger) {
	app.SetLogger(&loggerBridge{cliLogger: logger})
}
