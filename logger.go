package recgo

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/recgo/validate"
)

// Logger wraps slog.Logger with recgo-specific context.
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
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithModel adds a model field to the logger.
func (l *Logger) WithModel(modelClass string) *Logger {
	return &Logger{
		Logger: l.Logger.With("model", modelClass),
	}
}

// LogInit logs a bootstrap.
func (l *Logger) LogInit(ctx context.Context, models, records int, rebuilt bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "init failed",
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "init completed",
		"models", models,
		"records", records,
		"indexes_rebuilt", rebuilt,
	)
}

// LogCreate logs a create operation.
func (l *Logger) LogCreate(ctx context.Context, modelClass, id string, errs validate.Errors) {
	l.logMutation(ctx, "create", modelClass, id, errs)
}

// LogUpdate logs an update operation.
func (l *Logger) LogUpdate(ctx context.Context, modelClass, id string, errs validate.Errors) {
	l.logMutation(ctx, "update", modelClass, id, errs)
}

// LogRemove logs a remove operation.
func (l *Logger) LogRemove(ctx context.Context, modelClass, id string, errs validate.Errors) {
	l.logMutation(ctx, "remove", modelClass, id, errs)
}

func (l *Logger) logMutation(ctx context.Context, op, modelClass, id string, errs validate.Errors) {
	if len(errs) > 0 {
		l.InfoContext(ctx, op+" rejected",
			"model", modelClass,
			"id", id,
			"errors", map[string][]string(errs),
		)
		return
	}
	l.DebugContext(ctx, op+" completed",
		"model", modelClass,
		"id", id,
	)
}

// LogList logs a list operation.
func (l *Logger) LogList(ctx context.Context, modelClass string, total, hits, misses int) {
	l.DebugContext(ctx, "list completed",
		"model", modelClass,
		"total", total,
		"index_hits", hits,
		"index_misses", misses,
	)
}

// LogAtomic logs the outcome of a saga.
func (l *Logger) LogAtomic(ctx context.Context, saga string, steps int, success bool) {
	if !success {
		l.WarnContext(ctx, "atomic failed",
			"saga", saga,
			"steps", steps,
		)
		return
	}
	l.DebugContext(ctx, "atomic completed",
		"saga", saga,
		"steps", steps,
	)
}

// LogRollback logs the compensation of a saga step.
func (l *Logger) LogRollback(ctx context.Context, saga, step string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "rollback failed",
			"saga", saga,
			"step", step,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "rollback completed",
		"saga", saga,
		"step", step,
	)
}

// LogPersist logs a failed persistence write.
func (l *Logger) LogPersist(ctx context.Context, key string, err error) {
	if err == nil {
		return
	}
	l.ErrorContext(ctx, "persist failed",
		"key", key,
		"error", err,
	)
}
