package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readLogLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line is not JSON: %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestLoggerWritesJSONToFile(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLogger(dir, "info")
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	log.Info("task started", "task_id", "t1")
	if err := log.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	lines := readLogLines(t, filepath.Join(dir, "client.log"))
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if lines[0]["msg"] != "task started" || lines[0]["task_id"] != "t1" {
		t.Errorf("unexpected entry: %v", lines[0])
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLogger(dir, "warn")
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	log.Debug("dropped")
	log.Info("dropped too")
	log.Warn("kept")
	_ = log.Close()

	lines := readLogLines(t, filepath.Join(dir, "client.log"))
	if len(lines) != 1 || lines[0]["msg"] != "kept" {
		t.Errorf("level filter failed: %v", lines)
	}
}

func TestChildLoggersCarryScope(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLogger(dir, "info")
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	log.WithTask("t1").WithAgent("a1").Info("output chunk")
	// The parent logger is unaffected by child scopes.
	log.Info("plain")
	_ = log.Close()

	lines := readLogLines(t, filepath.Join(dir, "client.log"))
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0]["task_id"] != "t1" || lines[0]["agent_id"] != "a1" {
		t.Errorf("scoped entry missing attributes: %v", lines[0])
	}
	if _, ok := lines[1]["task_id"]; ok {
		t.Error("parent logger leaked child scope")
	}
}

func TestNopLoggerIsSafe(t *testing.T) {
	log := NopLogger()
	log.Info("into the void", "key", "value")
	if err := log.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestRotatingWriterRotates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.log")

	w, err := newRotatingWriter(path)
	if err != nil {
		t.Fatalf("newRotatingWriter() error = %v", err)
	}
	// Shrink the cap so the test does not need megabytes of writes.
	w.maxBytes = 64

	chunk := []byte(strings.Repeat("x", 40) + "\n")
	for i := 0; i < 4; i++ {
		if _, err := w.Write(chunk); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Error("live log file should exist after rotation")
	}
	if _, err := os.Stat(path + ".1"); err != nil {
		t.Error("rotation should have produced a .1 backup")
	}
}

func TestRotatingWriterClosedWrite(t *testing.T) {
	dir := t.TempDir()
	w, err := newRotatingWriter(filepath.Join(dir, "client.log"))
	if err != nil {
		t.Fatalf("newRotatingWriter() error = %v", err)
	}
	_ = w.Close()

	if _, err := w.Write([]byte("late")); err == nil {
		t.Error("write after close should fail")
	}
}
