// Package dbexec provides database query execution abstractions.
package dbexec

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// Rows abstracts sql.Rows so callers can scan without holding a *sql.Rows.
type Rows interface {
	Next() bool
	Columns() ([]string, error)
	Scan(dest ...any) error
	Err() error
	Close() error
}

// QueryExecutor abstracts SQL execution so stores can run against a plain
// handle, a transaction, or a logging wrapper.
type QueryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// StandardExecutor executes queries directly against a database handle.
type StandardExecutor struct {
	db *sql.DB
}

// NewStandardExecutor creates an executor that runs queries directly against the database.
func NewStandardExecutor(db *sql.DB) *StandardExecutor {
	return &StandardExecutor{db: db}
}

func (e *StandardExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	if e.db == nil {
		return nil, sql.ErrConnDone
	}
	return e.db.QueryContext(ctx, query, args...)
}

func (e *StandardExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if e.db == nil {
		return nil, sql.ErrConnDone
	}
	return e.db.ExecContext(ctx, query, args...)
}

// LoggingExecutor logs every statement at debug level with its duration.
type LoggingExecutor struct {
	next   QueryExecutor
	logger *slog.Logger
}

// NewLoggingExecutor wraps next. A nil logger uses slog.Default.
func NewLoggingExecutor(next QueryExecutor, logger *slog.Logger) *LoggingExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingExecutor{next: next, logger: logger}
}

func (e *LoggingExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	start := time.Now()
	rows, err := e.next.QueryContext(ctx, query, args...)
	e.log(ctx, query, len(args), start, err)
	return rows, err
}

func (e *LoggingExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := e.next.ExecContext(ctx, query, args...)
	e.log(ctx, query, len(args), start, err)
	return res, err
}

func (e *LoggingExecutor) log(ctx context.Context, query string, argCount int, start time.Time, err error) {
	attrs := []any{
		slog.String("sql", query),
		slog.Int("args", argCount),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		e.logger.WarnContext(ctx, "sql statement failed", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	e.logger.DebugContext(ctx, "sql statement", attrs...)
}
