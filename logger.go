package bitjit

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with bitjit-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithEngine adds an engine name field to the logger.
func (l *Logger) WithEngine(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("engine", name),
	}
}

// LogParse logs a parse operation.
func (l *Logger) LogParse(ctx context.Context, query string, leaves int, err error) {
	if err != nil {
		l.WarnContext(ctx, "parse failed",
			"query", query,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "parse completed",
			"query", query,
			"leaves", leaves,
		)
	}
}

// LogCompile logs a compilation.
func (l *Logger) LogCompile(ctx context.Context, stats CompileStats, err error) {
	if err != nil {
		l.WarnContext(ctx, "compile failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "compile completed",
			"code_bytes", stats.CodeBytes,
			"instructions", stats.Instructions,
			"spills", stats.Spills,
			"rows", stats.Rows,
		)
	}
}

// LogRun logs the execution of a compiled query.
func (l *Logger) LogRun(ctx context.Context, matches int, elapsed time.Duration, err error) {
	if err != nil {
		l.WarnContext(ctx, "run failed",
			"matches", matches,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "run completed",
			"matches", matches,
			"elapsed", elapsed,
		)
	}
}

// LogBatch logs a pool batch.
func (l *Logger) LogBatch(ctx context.Context, count, failed int) {
	if failed > 0 {
		l.WarnContext(ctx, "batch completed with failures",
			"total", count,
			"failed", failed,
			"success", count-failed,
		)
	} else {
		l.InfoContext(ctx, "batch completed",
			"count", count,
		)
	}
}
