package logging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/turboshovel/hooks/cmd/hooks-app/cli/settings"
)

// Test constants to avoid goconst warnings
const (
	testEvent     = "PostToolUse"
	testComponent = "dispatch"
	levelINFO     = "INFO"
)

func fixNow(t *testing.T) {
	t.Helper()
	orig := now
	now = func() time.Time { return time.Date(2025, 11, 25, 9, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { now = orig })
}

func readEntries(t *testing.T, dir string) []map[string]any {
	t.Helper()

	content, err := os.ReadFile(filepath.Join(dir, "hooks-2025-11-25.log"))
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	var entries []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("Log output is not valid JSON: %v\nContent: %s", err, scanner.Text())
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     slog.Level
	}{
		{"empty defaults to INFO", "", slog.LevelInfo},
		{"DEBUG lowercase", "debug", slog.LevelDebug},
		{"DEBUG uppercase", "DEBUG", slog.LevelDebug},
		{"INFO lowercase", "info", slog.LevelInfo},
		{"WARN lowercase", "warn", slog.LevelWarn},
		{"warning alias", "warning", slog.LevelWarn},
		{"ERROR uppercase", "ERROR", slog.LevelError},
		{"surrounding whitespace", " debug ", slog.LevelDebug},
		{"invalid defaults to INFO", "invalid", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseLogLevel(tt.envValue)
			if got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.envValue, got, tt.want)
			}
		})
	}
}

func TestInit_DisabledWritesNothing(t *testing.T) {
	fixNow(t)
	dir := filepath.Join(t.TempDir(), "logs")

	if err := Init(settings.Settings{LogDir: dir}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	Info(context.Background(), "discarded")
	Close()

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("disabled logging created %s", dir)
	}
}

func TestInit_WritesJSONLogs(t *testing.T) {
	fixNow(t)
	dir := filepath.Join(t.TempDir(), "logs")

	if err := Init(settings.Settings{LogEnabled: true, LogDir: dir}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	ctx := WithComponent(WithEvent(WithInvocation(context.Background()), testEvent), testComponent)
	Info(ctx, "gate executed", slog.String("gate", "lint"))
	Close()

	entries := readEntries(t, dir)
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	entry := entries[0]

	if entry["msg"] != "gate executed" {
		t.Errorf("msg = %v, want %q", entry["msg"], "gate executed")
	}
	if entry["level"] != levelINFO {
		t.Errorf("level = %v, want %q", entry["level"], levelINFO)
	}
	if entry["event"] != testEvent {
		t.Errorf("event = %v, want %q", entry["event"], testEvent)
	}
	if entry["component"] != testComponent {
		t.Errorf("component = %v, want %q", entry["component"], testComponent)
	}
	if entry["gate"] != "lint" {
		t.Errorf("gate = %v, want %q", entry["gate"], "lint")
	}
	if id, _ := entry["invocation_id"].(string); id == "" {
		t.Error("invocation_id missing from log entry")
	}
}

func TestInit_RespectsLevel(t *testing.T) {
	fixNow(t)
	dir := t.TempDir()

	if err := Init(settings.Settings{LogEnabled: true, LogDir: dir, LogLevel: "warn"}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	ctx := context.Background()
	Debug(ctx, "debug message")
	Info(ctx, "info message")
	Warn(ctx, "warn message")
	Error(ctx, "error message")
	Close()

	entries := readEntries(t, dir)
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}
	if entries[0]["msg"] != "warn message" || entries[1]["msg"] != "error message" {
		t.Errorf("unexpected entries: %v", entries)
	}
}

func TestAlways_WritesWhenDisabled(t *testing.T) {
	fixNow(t)
	dir := t.TempDir()

	if err := Init(settings.Settings{LogDir: dir}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	Always(WithInvocation(context.Background()), "HOOK_INVOKED", slog.Int("input_length", 42))
	Close()

	entries := readEntries(t, dir)
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	if entries[0]["msg"] != "HOOK_INVOKED" {
		t.Errorf("msg = %v, want HOOK_INVOKED", entries[0]["msg"])
	}
	if entries[0]["input_length"] != float64(42) {
		t.Errorf("input_length = %v, want 42", entries[0]["input_length"])
	}
}

func TestLogDuration(t *testing.T) {
	fixNow(t)
	dir := t.TempDir()

	if err := Init(settings.Settings{LogEnabled: true, LogDir: dir}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	LogDuration(context.Background(), slog.LevelInfo, "dispatch completed", time.Now().Add(-50*time.Millisecond))
	Close()

	entries := readEntries(t, dir)
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	ms, ok := entries[0]["duration_ms"].(float64)
	if !ok || ms < 50 {
		t.Errorf("duration_ms = %v, want >= 50", entries[0]["duration_ms"])
	}
}

func TestLogging_WithoutInitIsSafe(t *testing.T) {
	Close()
	// Must not panic or write anywhere
	Info(context.Background(), "no logger")
	Close()
}

func TestFilePath(t *testing.T) {
	fixNow(t)
	s := settings.Settings{LogDir: "/tmp/turboshovel"}

	if got := Dir(s); got != "/tmp/turboshovel" {
		t.Errorf("Dir() = %q", got)
	}
	if got, want := FilePath(s), filepath.Join("/tmp/turboshovel", "hooks-2025-11-25.log"); got != want {
		t.Errorf("FilePath() = %q, want %q", got, want)
	}
}
