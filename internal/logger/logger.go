// Package logger provides logging for the Sercha indexer.
//
// Console output keeps the short "[LEVEL] message" form. Debug and info
// messages are printed only in verbose mode; warnings and errors always are.
// When a log file is configured, every record at or above the file level is
// also written there as JSON.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	slogmulti "github.com/samber/slog-multi"
)

var (
	mu      sync.RWMutex
	writeMu sync.Mutex
	verbose bool
	output  io.Writer = os.Stderr
	file    slog.Handler
	base    = slog.New(&consoleHandler{})
)

// Config controls Setup.
type Config struct {
	// Verbose enables debug and info output on the console.
	Verbose bool

	// File is an optional path for JSON logs.
	File string

	// Level is the minimum level written to File (debug, info, warn, error).
	Level string
}

// Setup configures console verbosity and the optional JSON log file.
// The returned cleanup closes the file.
func Setup(cfg Config) (func() error, error) {
	SetVerbose(cfg.Verbose)
	if cfg.File == "" {
		setFileHandler(nil)
		return func() error { return nil }, nil
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return func() error { return nil }, fmt.Errorf("open log file: %w", err)
	}
	setFileHandler(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}))

	return func() error {
		setFileHandler(nil)
		return f.Close()
	}, nil
}

// SetupWithWriter routes JSON records to w (for testing).
func SetupWithWriter(w io.Writer, level string) {
	setFileHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

func setFileHandler(h slog.Handler) {
	mu.Lock()
	defer mu.Unlock()
	file = h
	if h == nil {
		base = slog.New(&consoleHandler{})
		return
	}
	base = slog.New(slogmulti.Fanout(&consoleHandler{}, h))
}

// ParseLevel converts a level name to a slog.Level. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// Logger returns the structured logger behind the package functions.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the console writer.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Debug logs a debug message.
func Debug(format string, args ...any) {
	logf(slog.LevelDebug, format, args...)
}

// Info logs an informational message.
func Info(format string, args ...any) {
	logf(slog.LevelInfo, format, args...)
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	logf(slog.LevelWarn, format, args...)
}

// Error logs an error.
func Error(format string, args ...any) {
	logf(slog.LevelError, format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

func logf(level slog.Level, format string, args ...any) {
	l := Logger()
	ctx := context.Background()
	if !l.Enabled(ctx, level) {
		return
	}
	l.Log(ctx, level, fmt.Sprintf(format, args...))
}

// consoleHandler writes "[LEVEL] message key=value" lines to the console writer.
type consoleHandler struct {
	attrs []slog.Attr
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return level >= slog.LevelWarn || verbose
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", r.Level.String(), r.Message)
	for _, a := range h.attrs {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	})
	b.WriteByte('\n')

	mu.RLock()
	w := output
	mu.RUnlock()

	writeMu.Lock()
	defer writeMu.Unlock()
	_, err := io.WriteString(w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &consoleHandler{attrs: merged}
}

func (h *consoleHandler) WithGroup(_ string) slog.Handler {
	return h
}
