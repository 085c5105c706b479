package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediacheck/internal/config"
	"mediacheck/internal/logging"
	"mediacheck/internal/services"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := config.Default()
	cfg.Logging.File = filepath.Join(t.TempDir(), "nested", "scan.log")

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello file")

	if got := readLog(t, cfg.Logging.File); !strings.Contains(got, "hello file") {
		t.Fatalf("expected message in log file, got %q", got)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	if got := readLog(t, logPath); strings.Contains(got, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", got)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	if got := readLog(t, logPath); !strings.Contains(got, ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", got)
	}
}

func TestConsoleLoggerHeaderCarriesComponentAndPath(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRunID(context.Background(), "run-1")
	ctx = services.WithPath(ctx, "/media/a.mkv")
	scoped := logging.WithContext(ctx, logging.NewComponentLogger(logger, "validation"))
	scoped.Info("file validated", logging.String("status", "ok"), logging.String("note", "two words"))

	got := readLog(t, logPath)
	for _, want := range []string{"INFO [validation] /media/a.mkv – file validated", "status=ok", `note="two words"`} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
	if strings.Contains(got, "run-1") {
		t.Fatalf("expected run id hidden at info level, got %q", got)
	}
}

func TestJSONLoggerShape(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Warn("json message", logging.String("k", "v"), logging.Error(errors.New("boom")))

	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record["level"] != "warn" || record["msg"] != "json message" || record["k"] != "v" {
		t.Fatalf("unexpected record: %v", record)
	}
	if record["error"] != "boom" {
		t.Fatalf("expected error rendered as string, got %v", record["error"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestInvalidLevelDefaultsToInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "level.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "invalid", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown")

	got := readLog(t, logPath)
	if strings.Contains(got, "hidden") || !strings.Contains(got, "shown") {
		t.Fatalf("expected info threshold, got %q", got)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "oracle unavailable", "oracle_connect_failed",
		logging.String(logging.FieldErrorHint, "check transmission settings"))

	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record[logging.FieldEventType] != "oracle_connect_failed" {
		t.Fatalf("unexpected event_type: %v", record[logging.FieldEventType])
	}
	if record[logging.FieldErrorHint] != "check transmission settings" {
		t.Fatalf("expected caller hint kept, got %v", record[logging.FieldErrorHint])
	}
	if _, ok := record[logging.FieldImpact]; !ok {
		t.Fatalf("expected impact default, got %v", record)
	}
}

func TestWithContextWithoutFieldsReturnsSameLogger(t *testing.T) {
	logger := logging.NewNop()
	if logging.WithContext(context.Background(), logger) != logger {
		t.Fatal("expected same logger when context carries no fields")
	}
}
