// Package logging wires log/slog for the service: a console text handler
// plus a JSON file handler behind a shared multi-handler, with package-level
// helpers that fall back to stderr when the logger was never initialized
// (early startup, tests).
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LoggingService owns the configured logger.
type LoggingService struct {
	Logger *slog.Logger
}

// DefaultLoggingService is the process-wide logging service.
var DefaultLoggingService *LoggingService

// InitLogger initializes the global logger. An empty logDir logs to the
// console only.
func InitLogger(logDir string) {
	InitLoggerWithRetention(logDir, 4)
}

// InitLoggerWithRetention initializes the global logger with a custom log
// file retention in weeks.
func InitLoggerWithRetention(logDir string, retentionWeeks int) {
	DefaultLoggingService = &LoggingService{
		Logger: setupLogger(logDir, retentionWeeks),
	}
	slog.SetDefault(DefaultLoggingService.Logger)
}

// Level parses a textual log level, defaulting to info.
func Level(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupLogger(logDir string, retentionWeeks int) *slog.Logger {
	console := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	if logDir == "" {
		return slog.New(console)
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		logger := slog.New(console)
		logger.Error("Failed to create log directory, logging to console only",
			"dir", logDir, "error", err)
		return logger
	}

	name := fmt.Sprintf("app-%s.log", time.Now().Format("2006-01-02"))
	file, err := os.OpenFile(filepath.Join(logDir, name),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := slog.New(console)
		logger.Error("Failed to open log file, logging to console only",
			"file", name, "error", err)
		return logger
	}

	go cleanupOldLogs(logDir, time.Duration(retentionWeeks)*7*24*time.Hour)

	return slog.New(&multiHandler{handlers: []slog.Handler{
		console,
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelInfo}),
	}})
}

// cleanupOldLogs periodically removes log files older than the retention.
func cleanupOldLogs(logDir string, retention time.Duration) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		entries, err := os.ReadDir(logDir)
		if err != nil {
			continue
		}
		cutoff := time.Now().Add(-retention)
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasPrefix(entry.Name(), "app-") ||
				!strings.HasSuffix(entry.Name(), ".log") {
				continue
			}
			if info, err := entry.Info(); err == nil && info.ModTime().Before(cutoff) {
				os.Remove(filepath.Join(logDir, entry.Name()))
			}
		}
	}
}

// logger returns the configured logger or a stderr fallback.
func logger() *slog.Logger {
	if DefaultLoggingService != nil && DefaultLoggingService.Logger != nil {
		return DefaultLoggingService.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// Package-level helpers for direct access.

func Info(msg string, args ...any) { logger().Info(msg, args...) }
func Warn(msg string, args ...any) { logger().Warn(msg, args...) }
func Error(msg string, args ...any) { logger().Error(msg, args...) }
func Debug(msg string, args ...any) { logger().Debug(msg, args...) }

// multiHandler fans records out to every wrapped handler.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
