package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewManager_DefaultConfig(t *testing.T) {
	mgr, logger := NewManager(DefaultConfig())
	defer mgr.Close() //nolint:errcheck

	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	if mgr.Config().Level != "info" {
		t.Errorf("expected level info, got %s", mgr.Config().Level)
	}
	if mgr.Config().Format != "json" {
		t.Errorf("expected format json, got %s", mgr.Config().Format)
	}
}

func TestManager_LevelSwap(t *testing.T) {
	var buf bytes.Buffer
	mgr, logger := NewManager(Config{Level: "info", Format: "json", Output: &buf})
	defer mgr.Close() //nolint:errcheck

	ctx := context.Background()
	if !logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("expected info to be enabled")
	}
	if logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("expected debug to be disabled")
	}

	if !mgr.Reconfigure(Config{Level: "debug", Format: "json"}) {
		t.Error("expected level change to be reported")
	}
	if !logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("expected debug to be enabled after reconfigure")
	}

	mgr.Reconfigure(Config{Level: "error", Format: "json"})
	if logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("expected info to be disabled when level is error")
	}
	if !logger.Enabled(ctx, slog.LevelError) {
		t.Error("expected error to be enabled")
	}
}

func TestManager_FormatSwapReachesComponentLoggers(t *testing.T) {
	var buf bytes.Buffer
	mgr, logger := NewManager(Config{Level: "info", Format: "json", Output: &buf})
	defer mgr.Close() //nolint:errcheck

	component := logger.With(slog.String("component", "runner"))
	component.Info("first")
	if !strings.Contains(buf.String(), `"component":"runner"`) {
		t.Fatalf("expected json output with component attr, got %q", buf.String())
	}

	buf.Reset()
	mgr.Reconfigure(Config{Level: "info", Format: "text"})
	component.Info("second")

	out := buf.String()
	if !strings.Contains(out, "component=runner") {
		t.Errorf("expected text output with component attr, got %q", out)
	}
	if !strings.Contains(out, "msg=second") {
		t.Errorf("expected text message, got %q", out)
	}
}

func TestManager_GroupedLoggerFollowsSwap(t *testing.T) {
	var buf bytes.Buffer
	mgr, logger := NewManager(Config{Level: "info", Format: "json", Output: &buf})
	defer mgr.Close() //nolint:errcheck

	grouped := logger.WithGroup("track").With(slog.String("id", "t1"))
	mgr.Reconfigure(Config{Level: "info", Format: "text"})
	grouped.Info("enriched")

	if !strings.Contains(buf.String(), "track.id=t1") {
		t.Errorf("expected grouped attr in text output, got %q", buf.String())
	}
}

func TestManager_ReconfigureUnchanged(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{Level: "info", Format: "json", Output: &buf}
	mgr, _ := NewManager(cfg)
	defer mgr.Close() //nolint:errcheck

	if mgr.Reconfigure(cfg) {
		t.Error("expected identical config to report no change")
	}
	// Output is carried over when the new config leaves it unset.
	if mgr.Reconfigure(Config{Level: "info", Format: "json"}) {
		t.Error("expected config without output to report no change")
	}
}

func TestManager_FileOutput(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "earmark.log")

	var console bytes.Buffer
	mgr, logger := NewManager(Config{
		Level:          "info",
		Format:         "json",
		FilePath:       logFile,
		FileMaxSizeMB:  1,
		FileMaxFiles:   1,
		FileMaxAgeDays: 1,
		Output:         &console,
	})

	logger.Info("hello from test")

	if err := mgr.Close(); err != nil {
		t.Fatalf("closing manager: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("expected log file to contain message, got %q", data)
	}
	if console.Len() == 0 {
		t.Error("expected console output as well")
	}
}

func TestManager_CloseIdempotent(t *testing.T) {
	mgr, _ := NewManager(DefaultConfig())
	if err := mgr.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestValidLevel(t *testing.T) {
	for _, l := range []string{"debug", "info", "warn", "error"} {
		if !ValidLevel(l) {
			t.Errorf("expected %q to be valid", l)
		}
	}
	for _, l := range []string{"", "trace", "fatal", "DEBUG"} {
		if ValidLevel(l) {
			t.Errorf("expected %q to be invalid", l)
		}
	}
}

func TestValidFormat(t *testing.T) {
	if !ValidFormat("text") || !ValidFormat("json") {
		t.Error("text and json should be valid")
	}
	if ValidFormat("xml") || ValidFormat("") {
		t.Error("xml and empty should be invalid")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in  string
		out slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"unknown", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.out {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.out)
		}
	}
}

func TestConfig_String(t *testing.T) {
	cfg := Config{Level: "info", Format: "json"}
	if s := cfg.String(); s != "level=info format=json" {
		t.Errorf("unexpected string: %s", s)
	}

	cfg.FilePath = "/var/log/earmark.log"
	cfg.FileMaxSizeMB = 50
	cfg.FileMaxFiles = 5
	cfg.FileMaxAgeDays = 7
	expected := "level=info format=json file=/var/log/earmark.log max_size=50MB max_files=5 max_age=7d"
	if s := cfg.String(); s != expected {
		t.Errorf("got %q, want %q", s, expected)
	}
}
