// Package logger is the process-wide structured log sink.
//
// Nothing is written until Init or InitWriter is called, so library code can
// log freely without forcing a destination on embedders.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the global logger.
type Options struct {
	Level         string // trace, debug, info, warn, error; default debug
	HumanReadable bool   // console format instead of JSON lines
}

var (
	globalLogger = zerolog.Nop()
	logFile      *os.File
	mu           sync.Mutex
)

// Init opens (appending) the log file at logPath and routes all logging there.
func Init(logPath string, opts Options) error {
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	if err := InitWriter(f, opts); err != nil {
		f.Close()
		return err
	}

	mu.Lock()
	logFile = f
	mu.Unlock()
	return nil
}

// InitWriter routes all logging to w. Any previously opened log file is closed.
func InitWriter(w io.Writer, opts Options) error {
	level := zerolog.DebugLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	out := w
	if opts.HumanReadable {
		console := zerolog.NewConsoleWriter()
		console.Out = w
		console.NoColor = true
		console.TimeFormat = time.TimeOnly
		out = console
	}

	mu.Lock()
	defer mu.Unlock()

	closeFileLocked()
	globalLogger = zerolog.New(out).Level(level).With().Timestamp().Logger()
	return nil
}

// SetLevel changes the minimum level of the current logger.
func SetLevel(level string) error {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return err
	}
	mu.Lock()
	globalLogger = globalLogger.Level(parsed)
	mu.Unlock()
	return nil
}

// Close closes the log file and silences further logging.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	closeFileLocked()
	globalLogger = zerolog.Nop()
}

func closeFileLocked() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

func current() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return globalLogger
}

// Info logs an info message.
func Info(format string, v ...interface{}) {
	l := current()
	l.Info().Msgf(format, v...)
}

// Debug logs a debug message.
func Debug(format string, v ...interface{}) {
	l := current()
	l.Debug().Msgf(format, v...)
}

// Error logs an error message.
func Error(format string, v ...interface{}) {
	l := current()
	l.Error().Msgf(format, v...)
}

// Warn logs a warning message.
func Warn(format string, v ...interface{}) {
	l := current()
	l.Warn().Msgf(format, v...)
}

// With returns a child logger carrying the given fields, for call sites that
// log several related events (a run, an iteration).
func With(fields map[string]interface{}) zerolog.Logger {
	l := current()
	return l.With().Fields(fields).Logger()
}
