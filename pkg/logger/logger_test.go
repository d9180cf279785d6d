package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}

	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInit_WritesToRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")

	Init(Options{Level: "debug", Format: "json", File: path, MaxSizeMB: 1})
	t.Cleanup(func() { Init(Options{}) })

	Debugf("dispatching message %d", 42)
	Infof("batch %s settled", "b-1")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	out := string(data)
	if !strings.Contains(out, "dispatching message 42") {
		t.Fatalf("expected debug line in log file, got %q", out)
	}
	if !strings.Contains(out, `"level":"INFO"`) {
		t.Fatalf("expected json formatted output, got %q", out)
	}
}
