package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the rotating log file inside <home>/logs.
const FileName = "tvremote.log"

// MultiHandler fans out records to multiple handlers.
type MultiHandler struct {
	handlers []slog.Handler
}

func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := handler.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: handlers}
}

func (h *MultiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &MultiHandler{handlers: handlers}
}

// ParseLevel maps a --log-level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// New builds a logger writing JSON records to a rotating file in
// <home>/logs/tvremote.log and text records to console.
func New(home string, level slog.Level, console io.Writer) *slog.Logger {
	logDir := filepath.Join(home, "logs")
	handlers := make([]slog.Handler, 0, 2)

	if err := os.MkdirAll(logDir, 0700); err != nil {
		// Console only; the failure itself is reported there.
		fmt.Fprintf(console, "failed to create log directory: %v\n", err)
	} else {
		fileLogger := &lumberjack.Logger{
			Filename:   filepath.Join(logDir, FileName),
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		handlers = append(handlers, slog.NewJSONHandler(fileLogger, &slog.HandlerOptions{
			Level: level,
		}))
	}

	handlers = append(handlers, slog.NewTextHandler(console, &slog.HandlerOptions{
		Level: level,
	}))
	return slog.New(NewMultiHandler(handlers...))
}

// Setup installs New(home, level, os.Stderr) as the default slog logger.
// Stdout stays free for command output.
func Setup(home string, level slog.Level) *slog.Logger {
	l := New(home, level, os.Stderr)
	slog.SetDefault(l)
	return l
}
