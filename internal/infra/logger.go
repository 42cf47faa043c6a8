package infra

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the JSON logger: stdout plus a rotated file named after the app.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(cfg.Logging.Level),
		// AddSource: true, // Optional: Include file line number (expensive)
	}

	writer, err := logWriter(cfg)
	if err != nil {
		// Fallback to stderr if the log dir cannot be created
		fallback := slog.New(slog.NewJSONHandler(os.Stderr, opts))
		fallback.Warn("File logging disabled", slog.String("dir", cfg.Logging.Dir), slog.Any("error", err))
		return fallback
	}
	return slog.New(slog.NewJSONHandler(writer, opts))
}

func logWriter(cfg *Config) (io.Writer, error) {
	dir := cfg.Logging.Dir
	if dir == "" {
		return os.Stdout, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	name := cfg.App.Name
	if name == "" {
		name = "crypto_dash"
	}
	file := &lumberjack.Logger{
		Filename:   filepath.Join(dir, name+".log"),
		MaxSize:    cfg.Logging.MaxSizeMB, // Megabytes, 0 means lumberjack's 100
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAgeDays,
		Compress:   true,
	}
	return io.MultiWriter(os.Stdout, file), nil
}

// ParseLevel maps the config string onto a slog level. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
