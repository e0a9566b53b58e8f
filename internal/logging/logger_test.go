package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestHelpersAreNoOpsBeforeInit(t *testing.T) {
	Close()
	Info("nothing", "k", "v")
	Warn("nothing")
	Error("nothing")
	Debug("nothing")
}

func TestInitWriterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWriter(&buf, "warn"); err != nil {
		t.Fatal(err)
	}
	defer Close()

	Info("hidden")
	Warn("Provider fetch failed", "provider", "reddit")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info should be filtered at warn level")
	}
	if !strings.Contains(out, "Provider fetch failed") || !strings.Contains(out, "provider=reddit") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestInitCreatesDatedFile(t *testing.T) {
	dir := t.TempDir()
	path, err := Init(dir, "info")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	Info("hello")
	Close()

	want := filepath.Join(dir, "logs", "feedterm-"+time.Now().Format("2006-01-02")+".log")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("log file missing message: %q", data)
	}
}

func TestInitRejectsBadLevel(t *testing.T) {
	if _, err := Init(t.TempDir(), "loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
