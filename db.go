// Package fluentdb is a fluent SQL query builder with a self-healing
// connection manager for MySQL and SQLite. Queries are composed on a
// Builder, rendered to SQL with escaped literals and quoted identifiers,
// and executed over a single lazily dialed session that reconnects once
// when the server drops it.
package fluentdb

import (
	"github.com/coregx/fluentdb/internal/core"
	"github.com/coregx/fluentdb/internal/security"
	"github.com/coregx/fluentdb/internal/transport"
)

type (
	// DB is the connection manager and entry point for building queries.
	DB = core.DB
	// Builder accumulates the parts of one statement.
	Builder = core.Builder
	// Config describes how to reach the database server.
	Config = core.Config
	// Option is a functional option for configuring DB.
	Option = core.Option
	// Result is the normalized outcome of every terminal operation.
	Result = core.Result
	// Row is one result row keyed by column name.
	Row = core.Row
	// Expr is SQL text inserted verbatim.
	Expr = core.Expr
	// Predicate is a structured condition accepted by WherePredicate and friends.
	Predicate = core.Predicate
	// ConnState is the lifecycle state of the session.
	ConnState = core.ConnState
	// QueryEvent describes one executed statement.
	QueryEvent = core.QueryEvent
	// QueryHook observes executed statements.
	QueryHook = core.QueryHook
	// HealthStatus reports the background health check.
	HealthStatus = core.HealthStatus

	// Driver dials sessions for one database engine.
	Driver = core.Driver
	// Conn is one live session.
	Conn = core.Conn
	// MySQL is the go-sql-driver/mysql transport.
	MySQL = transport.MySQL
	// SQLite is the modernc.org/sqlite transport.
	SQLite = transport.SQLite

	// TransportError reports a session failure.
	TransportError = core.TransportError
	// SQLExecutionError reports a statement rejected by the server.
	SQLExecutionError = core.SQLExecutionError
	// Validator rejects dangerous raw SQL fragments.
	Validator = security.Validator
)

// Connection states.
const (
	StateDisconnected = core.StateDisconnected
	StateConnecting   = core.StateConnecting
	StateConnected    = core.StateConnected
	StateDestroyed    = core.StateDestroyed
)

// Errors.
var (
	ErrConnectionDestroyed = core.ErrConnectionDestroyed
	ErrUnknownDriver       = core.ErrUnknownDriver
	ErrInvalidOperator     = core.ErrInvalidOperator
	ErrInvalidDirection    = core.ErrInvalidDirection
	ErrInvalidArgument     = core.ErrInvalidArgument
	ErrUnsafeSQL           = security.ErrUnsafeSQL
)

// Re-export core functions.
var (
	New  = core.New
	Open = core.Open

	WithLogger          = core.WithLogger
	WithTracer          = core.WithTracer
	WithQueryHook       = core.WithQueryHook
	WithValidator       = core.WithValidator
	WithColumnCache     = core.WithColumnCache
	WithHealthCheck     = core.WithHealthCheck
	WithSensitiveFields = core.WithSensitiveFields

	// Predicate builders
	Raw     = core.Raw
	Eq      = core.Eq
	Compare = core.Compare
	Group   = core.Group
	Batch   = core.Batch

	RegisterDriver   = core.RegisterDriver
	Drivers          = core.Drivers
	IsTransportLost  = core.IsTransportLost
	IsTransportError = core.IsTransportError

	NewValidator = security.NewValidator
	WithStrict   = security.WithStrict

	MySQLDSN  = transport.MySQLDSN
	SQLiteDSN = transport.SQLiteDSN
)
