// Package logger provides levelled logging for the work-order assistant.
// Messages are written through zerolog to stderr in console format.
// When verbose mode is enabled via the --verbose flag, debug messages
// are printed too, which helps when tracing the slot-filling pipeline.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu      sync.RWMutex
	verbose bool
	level   = zerolog.WarnLevel
	output  io.Writer = os.Stderr
	log               = newLogger(output, level)
)

func newLogger(w io.Writer, lvl zerolog.Level) zerolog.Logger {
	cw := zerolog.ConsoleWriter{
		Out:          w,
		NoColor:      true,
		PartsExclude: []string{zerolog.TimestampFieldName},
	}
	return zerolog.New(cw).Level(lvl).With().Timestamp().Logger()
}

// rebuild recreates the logger (caller must hold the write lock).
func rebuild() {
	lvl := level
	if verbose {
		lvl = zerolog.DebugLevel
	}
	log = newLogger(output, lvl)
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	rebuild()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetLevel sets the minimum level when not verbose ("debug", "info", "warn", "error").
func SetLevel(name string) error {
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	mu.Lock()
	defer mu.Unlock()
	level = lvl
	rebuild()
	return nil
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	rebuild()
}

// Logger returns the underlying structured logger for callers that
// attach fields, such as the HTTP request middleware.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Debug logs a message at debug level. Printed only in verbose mode.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Debug().Msgf(format, args...)
}

// Section logs a pipeline stage header at debug level.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	log.Debug().Msgf("=== %s ===", name)
}

// Info logs an informational message.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Info().Msgf(format, args...)
}

// Warn logs a warning message.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Warn().Msgf(format, args...)
}

// Error logs an error with a message.
func Error(err error, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Error().Err(err).Msgf(format, args...)
}
