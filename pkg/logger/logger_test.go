package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	Info("server at %s", "http://127.0.0.1:4723/")
	Warn("slow")
	Error("boom: %v", "x")

	out := buf.String()
	for _, want := range []string{"[INFO] server at http://127.0.0.1:4723/", "[WARN] slow", "[ERROR] boom: x"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestDebugDisabledByDefault(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	SetDebug(false)
	Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}

	SetDebug(true)
	defer SetDebug(false)
	Debug("shown")
	if !strings.Contains(buf.String(), "[DEBUG] shown") {
		t.Errorf("expected debug line, got %q", buf.String())
	}
}

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harness.log")
	if err := Init(path); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	Info("hello file")
	if GetWriter() == os.Stderr {
		t.Error("GetWriter() should return the log file after Init")
	}
	Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[INFO] hello file") {
		t.Errorf("log file content = %q", string(data))
	}
	if GetWriter() != os.Stderr {
		t.Error("Close() should fall back to stderr")
	}
}

func TestInitBadPath(t *testing.T) {
	if err := Init(filepath.Join(t.TempDir(), "missing", "dir", "x.log")); err == nil {
		t.Error("expected error for unwritable path")
	}
}
