// Package logging provides structured logging for the hooks app using slog.
//
// Logs are JSON lines written to ${TMPDIR}/turboshovel/hooks-YYYY-MM-DD.log
// when TURBOSHOVEL_LOG=1. The minimum level comes from TURBOSHOVEL_LOG_LEVEL
// (default info). Logging never fails a hook: any file error silently
// disables output.
//
// Usage:
//
//	if err := logging.Init(settings); err != nil {
//	    // handle error
//	}
//	defer logging.Close()
//
//	ctx = logging.WithEvent(ctx, "PostToolUse")
//	logging.Info(ctx, "gate executed",
//	    slog.String("gate", name),
//	    slog.Bool("passed", passed),
//	)
package logging

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/turboshovel/hooks/cmd/hooks-app/cli/paths"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/settings"
)

var (
	// logger is the package-level logger instance
	logger *slog.Logger

	// logFile holds the current log file handle for cleanup
	logFile *os.File

	// logBufWriter wraps logFile with buffered I/O
	logBufWriter *bufio.Writer

	// logDir is the directory used by Init, kept for Always and path helpers
	logDir string

	// mu protects logger, logFile, logBufWriter and logDir
	mu sync.RWMutex

	// now is replaceable in tests
	now = time.Now
)

// Init configures the package logger from s. When logging is disabled all
// leveled calls are discarded; Always still writes.
func Init(s settings.Settings) error {
	level := parseLogLevel(s.LogLevel)
	if s.LogLevel != "" && !isValidLogLevel(s.LogLevel) {
		fmt.Fprintf(os.Stderr, "[hooks-app] Warning: invalid log level %q, defaulting to INFO\n", s.LogLevel)
	}

	mu.Lock()
	defer mu.Unlock()

	closeLocked()
	logDir = s.LogDir

	if !s.LogEnabled {
		logger = createLogger(io.Discard, level)
		return nil
	}

	f, err := openLogFile(logDir)
	if err != nil {
		// Logging must never break a hook
		logger = createLogger(io.Discard, level)
		return nil //nolint:nilerr // fall back to discarding
	}

	logFile = f
	logBufWriter = bufio.NewWriterSize(f, 8192)
	logger = createLogger(logBufWriter, level)
	return nil
}

// Close flushes and closes the log file if one is open.
// Safe to call multiple times.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	logger = nil
}

func closeLocked() {
	if logBufWriter != nil {
		_ = logBufWriter.Flush()
		logBufWriter = nil
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// Dir returns the directory log files are written to.
func Dir(s settings.Settings) string {
	return s.LogDir
}

// FilePath returns today's log file path.
func FilePath(s settings.Settings) string {
	return filepath.Join(s.LogDir, paths.LogFileName(now()))
}

func openLogFile(dir string) (*os.File, error) {
	if dir == "" {
		return nil, fmt.Errorf("log directory not configured")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	name := filepath.Join(dir, paths.LogFileName(now()))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // name built from constants
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

// getLogger returns the current logger, or a discarding logger if Init was
// never called. Hooks must not write stray text to stderr.
func getLogger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()

	if logger == nil {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return logger
}

// createLogger creates a JSON logger writing to the given writer at the specified level.
func createLogger(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}
	handler := slog.NewJSONHandler(w, opts)
	return slog.New(handler)
}

// parseLogLevel parses a log level string to slog.Level.
// Returns slog.LevelInfo for empty or invalid values.
func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// isValidLogLevel checks if the given string is a valid log level.
func isValidLogLevel(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR", "":
		return true
	default:
		return false
	}
}

// Debug logs at DEBUG level with context values automatically extracted.
func Debug(ctx context.Context, msg string, attrs ...any) {
	log(ctx, slog.LevelDebug, msg, attrs...)
}

// Info logs at INFO level with context values automatically extracted.
func Info(ctx context.Context, msg string, attrs ...any) {
	log(ctx, slog.LevelInfo, msg, attrs...)
}

// Warn logs at WARN level with context values automatically extracted.
func Warn(ctx context.Context, msg string, attrs ...any) {
	log(ctx, slog.LevelWarn, msg, attrs...)
}

// Error logs at ERROR level with context values automatically extracted.
func Error(ctx context.Context, msg string, attrs ...any) {
	log(ctx, slog.LevelError, msg, attrs...)
}

// Always writes an INFO entry even when logging is disabled. It is used
// once per invocation so operators can confirm hooks are firing.
func Always(ctx context.Context, msg string, attrs ...any) {
	mu.RLock()
	dir := logDir
	enabled := logBufWriter != nil
	mu.RUnlock()

	if enabled {
		log(ctx, slog.LevelInfo, msg, attrs...)
		return
	}

	f, err := openLogFile(dir)
	if err != nil {
		return
	}
	defer f.Close()

	l := createLogger(f, slog.LevelInfo)
	l.Log(context.Background(), slog.LevelInfo, msg, buildAttrs(ctx, attrs)...)
}

// LogDuration logs a message with duration_ms calculated from the start time.
// Designed for use with defer:
//
//	defer logging.LogDuration(ctx, slog.LevelDebug, "dispatch completed", time.Now())
func LogDuration(ctx context.Context, level slog.Level, msg string, start time.Time, attrs ...any) {
	durationMs := time.Since(start).Milliseconds()

	allAttrs := make([]any, 0, len(attrs)+1)
	allAttrs = append(allAttrs, slog.Int64("duration_ms", durationMs))
	allAttrs = append(allAttrs, attrs...)

	log(ctx, level, msg, allAttrs...)
}

// log is the internal logging function that extracts context values and logs.
func log(ctx context.Context, level slog.Level, msg string, attrs ...any) {
	getLogger().Log(context.Background(), level, msg, buildAttrs(ctx, attrs)...)
}

func buildAttrs(ctx context.Context, attrs []any) []any {
	contextAttrs := attrsFromContext(ctx)
	all := make([]any, 0, len(contextAttrs)+len(attrs))
	for _, a := range contextAttrs {
		all = append(all, a)
	}
	return append(all, attrs...)
}

// attrsFromContext extracts logging attributes from a context.
func attrsFromContext(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	keys := []struct {
		key  contextKey
		name string
	}{
		{invocationKey, "invocation_id"},
		{sessionIDKey, "session_id"},
		{componentKey, "component"},
		{eventKey, "event"},
		{gateKey, "gate"},
	}

	var attrs []slog.Attr
	for _, k := range keys {
		if s, ok := ctx.Value(k.key).(string); ok && s != "" {
			attrs = append(attrs, slog.String(k.name, s))
		}
	}
	return attrs
}
