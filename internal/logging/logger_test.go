package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewMirrorsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	logger, err := New(Options{Format: "console", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("hello", String("key", "value"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "INFO") || !strings.Contains(line, "hello") {
		t.Fatalf("unexpected log line %q", line)
	}
	if !strings.Contains(line, "key=value") {
		t.Fatalf("attr missing from line %q", line)
	}
}

func TestConsoleHandlerExtractsComponent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	logger, err := New(Options{Format: "console", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	NewComponentLogger(logger, "importer").Info("working")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "importer: working") {
		t.Fatalf("component prefix missing from %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component attr should be folded into the prefix: %q", line)
	}
}

func TestConsoleHandlerQuotesSpacedValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	logger, err := New(Options{Format: "console", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("resolved", String(FieldTitle, "Grim Fandango"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `title="Grim Fandango"`) {
		t.Fatalf("spaced value not quoted: %q", string(data))
	}
}

func TestJSONHandlerShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	logger, err := New(Options{Format: "json", Level: "debug", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Debug("probe", Int64(FieldGameID, 7))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, string(data))
	}
	if entry["msg"] != "probe" {
		t.Fatalf("unexpected msg %v", entry["msg"])
	}
	if entry["level"] != "debug" {
		t.Fatalf("unexpected level %v", entry["level"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatal("missing ts key")
	}
	if entry[FieldGameID] != float64(7) {
		t.Fatalf("unexpected game id %v", entry[FieldGameID])
	}
}

func TestLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	logger, err := New(Options{Format: "console", Level: "warn", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("suppressed")
	logger.Warn("kept")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(data)
	if strings.Contains(line, "suppressed") {
		t.Fatalf("info line should be filtered: %q", line)
	}
	if !strings.Contains(line, "kept") {
		t.Fatalf("warn line missing: %q", line)
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger must not be enabled")
	}
}

func TestNewComponentLoggerNilBase(t *testing.T) {
	logger := NewComponentLogger(nil, "test")
	if logger == nil {
		t.Fatal("expected a usable logger")
	}
	logger.Info("must not panic")
}

func TestErrorAttr(t *testing.T) {
	if got := Error(nil); got.Value.String() != "<nil>" {
		t.Fatalf("unexpected nil error attr %v", got)
	}
}
