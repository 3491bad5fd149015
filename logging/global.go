// Package logging wires log/slog for the service: a console handler plus a
// weekly rotating JSON file, package level helpers and the request logger.
package logging

import (
	"io"
	"log/slog"
	"os"
)

type LoggingService struct {
	Logger *slog.Logger
	closer io.Closer
}

var DefaultLoggingService *LoggingService

// InitLogger builds the process logger and installs it as the slog default
func InitLogger(opts Options) {
	logger, closer := NewLogger(opts)
	DefaultLoggingService = &LoggingService{Logger: logger, closer: closer}
	slog.SetDefault(logger)
}

// Close flushes and releases the log file
func Close() error {
	if DefaultLoggingService == nil || DefaultLoggingService.closer == nil {
		return nil
	}
	return DefaultLoggingService.closer.Close()
}

func current(level slog.Level) *slog.Logger {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		// Not initialised yet, write to stderr
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	return DefaultLoggingService.Logger
}

func Info(msg string, args ...any) {
	current(slog.LevelInfo).Info(msg, args...)
}

func Error(msg string, args ...any) {
	current(slog.LevelError).Error(msg, args...)
}

func Warn(msg string, args ...any) {
	current(slog.LevelWarn).Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	current(slog.LevelDebug).Debug(msg, args...)
}
