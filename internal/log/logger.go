// Package log implements the daemon's structured application logger using slog.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/msgctl/netaidkit-nakd/internal/config"
)

// Init initializes the global slog logger from configuration.
func Init(cfg config.LogConfig) error {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	var writers []io.Writer
	for i, output := range cfg.Outputs {
		writer, err := createWriter(output)
		if err != nil {
			return fmt.Errorf("output[%d] (%s): %w", i, output.Type, err)
		}
		if writer != nil {
			writers = append(writers, writer)
		}
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	multiWriter := io.MultiWriter(writers...)

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(multiWriter, opts)
	case "text":
		handler = slog.NewTextHandler(multiWriter, opts)
	default:
		return fmt.Errorf("unsupported log format: %s (must be json or text)", cfg.Format)
	}

	current = slog.New(handler)
	slog.SetDefault(current)
	return nil
}

var current *slog.Logger

// Get returns the most recently initialized logger, or the slog default if
// Init hasn't run yet.
func Get() *slog.Logger {
	if current == nil {
		return slog.Default()
	}
	return current
}

func parseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown level: %s", levelStr)
	}
}

func createWriter(output config.OutputConfig) (io.Writer, error) {
	switch strings.ToLower(output.Type) {
	case "console", "stdout", "":
		return os.Stdout, nil

	case "file":
		if output.Path == "" {
			return nil, fmt.Errorf("file output requires 'path' field")
		}
		return &lumberjack.Logger{
			Filename:   output.Path,
			MaxSize:    output.MaxSizeMB,
			MaxBackups: output.MaxBackups,
			MaxAge:     output.MaxAgeDays,
			Compress:   output.Compress,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported output type: %s", output.Type)
	}
}
