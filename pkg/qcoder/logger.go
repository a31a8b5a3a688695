package qcoder

import (
	"io"

	"avaneesh/qcoder-go/pkg/internal/logger"
)

// Logger receives pipeline diagnostics
type Logger = logger.Logger

// LogLevel represents logging level
type LogLevel int

const (
	// LevelDebug shows all log messages including step traces
	LevelDebug LogLevel = iota
	// LevelInfo shows info, warn, and error messages (default)
	LevelInfo
	// LevelWarn shows warn and error messages
	LevelWarn
	// LevelError shows only error messages
	LevelError
)

// NewLogger creates a leveled logger writing to w
func NewLogger(w io.Writer, level LogLevel) Logger {
	return logger.New(w, logger.Level(level))
}

// ParseLogLevel maps "debug", "info", "warn" or "error" to a LogLevel
func ParseLogLevel(name string) (LogLevel, error) {
	l, err := logger.ParseLevel(name)
	return LogLevel(l), err
}
