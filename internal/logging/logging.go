package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nhle/planeissues/internal/model"
)

// ParseLevel maps a configured level name to a slog level. Unknown names
// fall back to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug", "http":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds the process logger: text to w at the configured level and,
// when file logs are enabled, combined.log plus an error-only error.log in
// cfg.Directory. The returned close function releases the log files.
func New(cfg model.LogConfig, w io.Writer) (*slog.Logger, func() error, error) {
	level := ParseLevel(cfg.Level)
	handlers := []slog.Handler{
		slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}),
	}
	var files []*os.File
	closeAll := func() error {
		var errs []error
		for _, f := range files {
			errs = append(errs, f.Close())
		}
		return errors.Join(errs...)
	}

	if cfg.FileLogs {
		dir := cfg.Directory
		if dir == "" {
			dir = "logs"
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory %s: %w", dir, err)
		}

		for _, target := range []struct {
			name  string
			level slog.Level
		}{
			{"combined.log", level},
			{"error.log", slog.LevelError},
		} {
			path := filepath.Join(dir, target.name)
			f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				_ = closeAll()
				return nil, nil, fmt.Errorf("opening log file %s: %w", path, err)
			}
			files = append(files, f)
			handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: target.level}))
		}
	}

	if len(handlers) == 1 {
		return slog.New(handlers[0]), closeAll, nil
	}
	return slog.New(fanout(handlers)), closeAll, nil
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
