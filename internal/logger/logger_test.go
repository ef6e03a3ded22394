package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestInitWritesToWriterAndFile(t *testing.T) {
	var buf bytes.Buffer
	dir := t.TempDir()

	closer, err := Init(&buf, dir, false)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer closer.Close()
	t.Cleanup(func() { Init(os.Stderr, "", false) })

	Info("fetched %d tasks", 3)
	Error("delete failed: %s", "boom")
	Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "[INFO] ") || !strings.Contains(out, "fetched 3 tasks") {
		t.Errorf("expected info line, got %q", out)
	}
	if !strings.Contains(out, "[ERROR] ") || !strings.Contains(out, "delete failed: boom") {
		t.Errorf("expected error line, got %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("expected debug line to be suppressed, got %q", out)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one log file, got %v (%v)", entries, err)
	}
}

func TestDebugEnabled(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Init(&buf, "", true); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { Init(os.Stderr, "", false) })

	Debug("request %s", "GET /api/tasks")
	if !strings.Contains(buf.String(), "[DEBUG] request GET /api/tasks") {
		t.Errorf("expected debug line, got %q", buf.String())
	}
}
