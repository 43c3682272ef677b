package termdex

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with index-specific helpers.
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
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithDir adds the index directory to the logger.
func (l *Logger) WithDir(dir string) *Logger {
	return &Logger{
		Logger: l.Logger.With("dir", dir),
	}
}

// LogAdd logs the insertion of a reference.
func (l *Logger) LogAdd(ctx context.Context, term, doc string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add failed",
			"term", term,
			"doc", doc,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "add completed",
			"term", term,
			"doc", doc,
		)
	}
}

// LogRemove logs the removal of references.
func (l *Logger) LogRemove(ctx context.Context, doc string, removed int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "remove failed",
			"doc", doc,
			"removed", removed,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "remove completed",
			"doc", doc,
			"removed", removed,
		)
	}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, terms, results int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"terms", terms,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"terms", terms,
			"results", results,
		)
	}
}

// LogCheckpoint logs a checkpoint of the in-memory indexes.
func (l *Logger) LogCheckpoint(ctx context.Context, postings int64, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "checkpoint failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "checkpoint completed",
			"postings", postings,
			"duration", duration,
		)
	}
}

// LogRecovery logs a rebuild of the indexes from the record file.
func (l *Logger) LogRecovery(ctx context.Context, records, trimmed int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "recovery failed",
			"records_scanned", records,
			"error", err,
		)
	} else {
		l.WarnContext(ctx, "recovery completed",
			"records_scanned", records,
			"trailing_slots_trimmed", trimmed,
		)
	}
}

// LogBackup logs an upload to a blob store.
func (l *Logger) LogBackup(ctx context.Context, id uint64, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "backup failed",
			"backup_id", id,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "backup saved",
			"backup_id", id,
			"bytes", bytes,
		)
	}
}

// LogRestore logs a download from a blob store.
func (l *Logger) LogRestore(ctx context.Context, id uint64, dir string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "restore failed",
			"backup_id", id,
			"dir", dir,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "restore completed",
			"backup_id", id,
			"dir", dir,
		)
	}
}
