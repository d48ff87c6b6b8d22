package labels

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with label-index specific helpers.
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

// NewJSONLogger creates a Logger that outputs JSON-formatted logs to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewJSONLoggerTo(os.Stderr, level)
}

// NewJSONLoggerTo creates a JSON Logger writing to w.
func NewJSONLoggerTo(w io.Writer, level slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewTextLoggerTo(os.Stderr, level)
}

// NewTextLoggerTo creates a text Logger writing to w.
func NewTextLoggerTo(w io.Writer, level slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.Level(1000), // Unreachable level
		})),
	}
}

// WithPath adds the input path to every record.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// LogParse logs the outcome of reading a c.e file.
func (l *Logger) LogParse(ctx context.Context, records, skipped int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "parse failed",
			"error", err,
			"elapsed", elapsed,
		)
		return
	}
	if skipped > 0 {
		l.WarnContext(ctx, "parse skipped malformed lines",
			"records", records,
			"skipped", skipped,
			"elapsed", elapsed,
		)
		return
	}
	l.DebugContext(ctx, "parse completed",
		"records", records,
		"elapsed", elapsed,
	)
}

// LogRejected logs a single label dropped during validation.
func (l *Logger) LogRejected(ctx context.Context, err *ValidationError) {
	l.DebugContext(ctx, "label rejected",
		"id", err.ID,
		"reason", err.Reason.String(),
		"error", err,
	)
}

// LogBuild logs a completed index build.
func (l *Logger) LogBuild(ctx context.Context, idx *Index, elapsed time.Duration) {
	if err := idx.Err(); err != nil {
		l.WarnContext(ctx, "index build produced invalid index",
			"rejected", len(idx.Rejected()),
			"error", err,
			"elapsed", elapsed,
		)
		return
	}
	if n := len(idx.Rejected()); n > 0 {
		l.WarnContext(ctx, "index build completed with rejected labels",
			"labels", idx.Len(),
			"rejected", n,
			"height", idx.Height(),
			"elapsed", elapsed,
		)
		return
	}
	l.InfoContext(ctx, "index build completed",
		"labels", idx.Len(),
		"nodes", idx.NodeCount(),
		"height", idx.Height(),
		"elapsed", elapsed,
	)
}

// LogQuery logs a completed threshold-range query.
func (l *Logger) LogQuery(ctx context.Context, box Box, minT float64, results int, elapsed time.Duration) {
	l.DebugContext(ctx, "query completed",
		"box", box.String(),
		"min_t", minT,
		"results", results,
		"elapsed", elapsed,
	)
}

// LogRelease logs a released handle.
func (l *Logger) LogRelease(ctx context.Context, state State) {
	l.DebugContext(ctx, "handle released",
		"state", state.String(),
	)
}
