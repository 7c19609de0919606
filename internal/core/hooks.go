package core

import (
	"context"
	"time"
)

// QueryEvent contains information about an executed statement.
// This is passed to QueryHook callbacks for logging, metrics, or tracing.
type QueryEvent struct {
	// SQL is the executed statement with its values inlined
	SQL string
	// Table is the builder's target table, empty for DB.SQL
	Table string
	// Duration is how long the statement took, including a transparent reconnect
	Duration time.Duration
	// Rows is the number of rows returned by a reading statement
	Rows int
	// RowsAffected is the number of rows changed by a writing statement
	RowsAffected int64
	// Reconnected reports that a lost connection was re-established to run the statement
	Reconnected bool
	// Error is any error that occurred during execution (nil on success)
	Error error
	// Operation is the statement kind (SELECT, INSERT, UPDATE, DELETE, ...)
	Operation string
}

// QueryHook is a callback function invoked after each execution.
// Statements built in ToSQL mode are never executed and never reach the hook.
//
// Example:
//
//	db := fluentdb.New(driver, cfg,
//	    fluentdb.WithQueryHook(func(ctx context.Context, e fluentdb.QueryEvent) {
//	        slog.Info("query", "sql", e.SQL, "duration", e.Duration, "err", e.Error)
//	    }))
type QueryHook func(ctx context.Context, event QueryEvent)

// invokeHook calls the query hook if set.
func (db *DB) invokeHook(ctx context.Context, event QueryEvent) {
	if db.queryHook != nil {
		db.queryHook(ctx, event)
	}
}
