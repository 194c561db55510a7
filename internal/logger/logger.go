// Package logger is a thin facade over log/slog shared by every package.
package logger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
)

var (
	globalLogger = slog.Default()
	output       *os.File
)

type ctxKey struct{}

// LogLevel represents different log levels
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config holds logger configuration
type Config struct {
	Level      LogLevel
	OutputPath string // "stdout" or a file path
	Format     string // "json" or "text"
}

// InitWithConfig replaces the global logger. A file output is opened in
// append mode and its directory created.
func InitWithConfig(config Config) error {
	w := os.Stdout
	if config.OutputPath != "" && config.OutputPath != "stdout" {
		if err := os.MkdirAll(filepath.Dir(config.OutputPath), 0755); err != nil {
			return err
		}
		f, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}
		w = f
	}

	opts := &slog.HandlerOptions{
		Level:     config.Level.slogLevel(),
		AddSource: true,
	}
	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	if err := Close(); err != nil {
		return err
	}
	if w != os.Stdout {
		output = w
	}
	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
	return nil
}

// Close releases the log file, if any.
func Close() error {
	if output == nil {
		return nil
	}
	err := output.Close()
	output = nil
	return err
}

// ContextWith stores fields in ctx so that WithContext attaches them later.
func ContextWith(ctx context.Context, fields ...any) context.Context {
	prev, _ := ctx.Value(ctxKey{}).([]any)
	merged := make([]any, 0, len(prev)+len(fields))
	merged = append(merged, prev...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, ctxKey{}, merged)
}

// WithContext returns a logger carrying the fields stored by ContextWith
func WithContext(ctx context.Context) *slog.Logger {
	if fields, ok := ctx.Value(ctxKey{}).([]any); ok && len(fields) > 0 {
		return globalLogger.With(fields...)
	}
	return globalLogger
}

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Info logs an info message
func Info(msg string, args ...any) {
	globalLogger.Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	globalLogger.Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	globalLogger.Error(msg, args...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, args ...any) {
	globalLogger.Error(msg, args...)
	os.Exit(1)
}
