package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/giygas/druginteractions-api/config"
)

// Options configures the process logger
type Options struct {
	LogDir         string
	Env            config.Environment
	Level          string
	RetentionWeeks int
	MaxFileSize    int64
	// Verbose keeps console output at info level when running tests
	Verbose bool
	// Console defaults to os.Stdout
	Console io.Writer
}

// parseLogLevel maps a LOG_LEVEL value to a slog level, defaulting to info
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetConsoleLogLevel picks the console level. An explicit LOG_LEVEL wins,
// except under test where the console stays quiet unless verbose.
func GetConsoleLogLevel(env config.Environment, level string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}
	if level != "" {
		return parseLogLevel(level)
	}
	switch env {
	case config.EnvProduction, config.EnvStaging:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// GetFileLogLevel is the file level: the file always keeps debug records
func GetFileLogLevel() slog.Level {
	return slog.LevelDebug
}

// NewLogger builds a logger writing text to the console and JSON to a
// weekly rotating file. The returned closer releases the file. When the
// file cannot be opened the logger falls back to console only.
func NewLogger(opts Options) (*slog.Logger, io.Closer) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	consoleHandler := slog.NewTextHandler(console, &slog.HandlerOptions{
		Level: GetConsoleLogLevel(opts.Env, opts.Level, opts.Verbose),
	})

	if opts.LogDir == "" {
		return slog.New(consoleHandler), nopCloser{}
	}

	retention := opts.RetentionWeeks
	if retention <= 0 {
		retention = 4
	}
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = defaultMaxFileSize
	}

	rotating := NewRotatingLogger(opts.LogDir, retention, maxSize)
	if err := rotating.Open(); err != nil {
		logger := slog.New(consoleHandler)
		logger.Error("Failed to open log file, logging to console only", "error", err)
		return logger, nopCloser{}
	}

	fileHandler := slog.NewJSONHandler(rotating, &slog.HandlerOptions{Level: GetFileLogLevel()})
	return slog.New(&multiHandler{handlers: []slog.Handler{consoleHandler, fileHandler}}), rotating
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// multiHandler fans records out to several handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: next}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: next}
}
