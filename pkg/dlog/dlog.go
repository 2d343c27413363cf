package dlog

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// TraceFileEnv names the environment variable that, when set, makes the
// logger append to the given file. Without it all logging is discarded:
// ddiff owns the terminal while it runs, and stray writes would corrupt
// the screen.
const TraceFileEnv = "DDIFF_LOG"

var defaultLogger atomic.Pointer[slog.Logger]

var levelVar = new(slog.LevelVar)

func init() {
	out := io.Writer(io.Discard)
	if path := os.Getenv(TraceFileEnv); path != "" {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			out = f
		}
	}
	defaultLogger.Store(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: levelVar})))
}

// SetOutput redirects the logger's output, primarily for testing.
func SetOutput(w io.Writer) {
	defaultLogger.Store(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: levelVar})))
}

// SetLevel adjusts the minimum logged level from its name ("debug",
// "info", "warn", "error"). Unknown names leave the level unchanged.
func SetLevel(name string) {
	switch strings.ToLower(name) {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "info":
		levelVar.Set(slog.LevelInfo)
	case "warn", "warning":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	}
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	defaultLogger.Load().Debug(msg, args...)
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	defaultLogger.Load().Info(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	defaultLogger.Load().Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	defaultLogger.Load().Error(msg, args...)
}
