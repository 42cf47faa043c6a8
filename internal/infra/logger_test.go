package infra

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" DEBUG ", slog.LevelDebug},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewLogger_WritesRotatedFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.App.Name = "dash_test"
	cfg.Logging.Dir = filepath.Join(t.TempDir(), "logs")
	cfg.Logging.Level = "warn"

	logger := NewLogger(cfg)
	logger.Info("below threshold")
	logger.Warn("stream rejected", slog.String("symbol", "BTCUSDT"))

	data, err := os.ReadFile(filepath.Join(cfg.Logging.Dir, "dash_test.log"))
	if err != nil {
		t.Fatalf("Log file missing: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"stream rejected"`) || !strings.Contains(out, `"symbol":"BTCUSDT"`) {
		t.Errorf("Expected JSON warn entry, got %s", out)
	}
	if strings.Contains(out, "below threshold") {
		t.Error("Info entry should be filtered at warn level")
	}
}

func TestNewLogger_NoDirWritesStdoutOnly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Dir = ""

	if NewLogger(cfg) == nil {
		t.Fatal("Expected a logger")
	}
}
