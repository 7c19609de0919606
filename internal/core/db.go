// Package core provides the core database functionality for fluentdb: the
// connection manager, the fluent query builder and the execution facade.
package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coregx/fluentdb/internal/cache"
	"github.com/coregx/fluentdb/internal/dialects"
	"github.com/coregx/fluentdb/internal/logger"
	"github.com/coregx/fluentdb/internal/security"
	"github.com/coregx/fluentdb/internal/tracer"
)

// DB is the database facade. It owns one logical connection, created lazily
// on first use, and hands out query builders bound to it.
//
// A DB is safe for concurrent use; statements are serialized onto the
// single connection in call order.
type DB struct {
	driver  Driver
	dialect dialects.Dialect
	conn    *connManager

	logger    logger.Logger
	sanitizer *logger.Sanitizer
	tracer    *tracer.Tracer
	queryHook QueryHook
	validator *security.Validator
	columns   *cache.ColumnCache

	healthInterval time.Duration
	healthMu       sync.Mutex
	health         *healthChecker
}

// New creates a DB over an injected transport. No connection is made until
// the first statement, Escape or an explicit Connect.
func New(driver Driver, cfg Config, opts ...Option) *DB {
	db := &DB{
		driver:    driver,
		dialect:   driver.Dialect(),
		sanitizer: logger.NewSanitizer(nil),
	}

	for _, opt := range opts {
		opt(db)
	}

	db.conn = newConnManager(driver, cfg, db.logger)
	db.conn.tracer = db.tracer
	db.startHealthCheck()
	return db
}

// Open creates a DB over the transport registered under cfg.Driver.
func Open(cfg Config, opts ...Option) (*DB, error) {
	driver, ok := LookupDriver(cfg.DriverName())
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %s)",
			ErrUnknownDriver, cfg.DriverName(), strings.Join(Drivers(), ", "))
	}
	return New(driver, cfg, opts...), nil
}

// Connect opens the connection if it is not open yet. Passing a Config
// replaces the stored one and re-establishes the session with it.
// After Destroy or End it fails with ErrConnectionDestroyed.
func (db *DB) Connect(ctx context.Context, cfg ...Config) error {
	db.forgetSchema(cfg)
	return db.conn.connect(ctx, firstConfig(cfg))
}

// ReConnect clears the destroyed state left by Destroy or End and connects.
func (db *DB) ReConnect(ctx context.Context, cfg ...Config) error {
	db.startHealthCheck()
	db.forgetSchema(cfg)
	return db.conn.reconnect(ctx, firstConfig(cfg))
}

// Destroy closes the connection immediately. Statements in flight fail.
func (db *DB) Destroy() error {
	db.stopHealthCheck()
	db.clearColumnCache()
	return db.conn.destroy()
}

// End waits for statements already in flight, then closes the connection.
// Statements issued after End fail with ErrConnectionDestroyed.
func (db *DB) End(ctx context.Context) error {
	db.stopHealthCheck()
	db.clearColumnCache()
	return db.conn.end(ctx)
}

// State returns the connection state.
func (db *DB) State() ConnState {
	return db.conn.State()
}

// Config returns the stored connection configuration.
func (db *DB) Config() Config {
	return db.conn.config()
}

// Dialect returns the SQL dialect of the transport.
func (db *DB) Dialect() dialects.Dialect {
	return db.dialect
}

// Health returns the status of the background health checks.
func (db *DB) Health() HealthStatus {
	db.healthMu.Lock()
	h := db.health
	db.healthMu.Unlock()

	if h == nil {
		return HealthStatus{}
	}
	return h.snapshot()
}

// SQL formats query with args ("?" values, "??" identifiers) and executes it.
func (db *DB) SQL(ctx context.Context, query string, args ...any) (*Result, error) {
	if err := db.validate(query); err != nil {
		return nil, err
	}
	return db.execute(ctx, db.Format(query, args...), "")
}

// Escape renders v as a SQL literal, connecting first if necessary.
func (db *DB) Escape(ctx context.Context, v any) (string, error) {
	if err := db.conn.connect(ctx, nil); err != nil {
		return "", err
	}
	return db.dialect.Escape(v), nil
}

// Format substitutes "?" placeholders with escaped values and "??"
// placeholders with quoted identifiers.
func (db *DB) Format(query string, args ...any) string {
	return dialects.Format(db.dialect, query, args...)
}

// Raw returns a pre-formatted SQL expression that builders insert verbatim.
func (db *DB) Raw(query string, args ...any) Expr {
	return Expr(db.Format(query, args...))
}

// Table starts a query builder targeting name.
func (db *DB) Table(name string) *Builder {
	return newBuilder(db, name)
}

// validate screens a raw SQL template when a validator is configured.
func (db *DB) validate(query string) error {
	if db.validator == nil {
		return nil
	}
	return db.validator.ValidateQuery(query)
}

// execute runs a finished statement and reports it to the logger, the tracer
// and the query hook.
func (db *DB) execute(ctx context.Context, query, table string) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := db.tracer.StartQuery(ctx, db.dialect.Name())

	start := time.Now()
	res, reconnected, err := db.conn.exec(ctx, query)
	elapsed := time.Since(start)

	if err == nil {
		res.SQL = query
		res.Executed = true
	}

	event := QueryEvent{
		SQL:         query,
		Table:       table,
		Duration:    elapsed,
		Reconnected: reconnected,
		Error:       err,
		Operation:   tracer.DetectOperation(query),
	}
	if res != nil {
		event.Rows = len(res.Rows)
		event.RowsAffected = res.RowsAffected
	}

	db.logExecution(event)

	meta := &tracer.QueryMetadata{
		Duration:     elapsed,
		Rows:         event.Rows,
		RowsAffected: event.RowsAffected,
		Reconnected:  reconnected,
		Error:        err,
		Operation:    event.Operation,
		Table:        table,
	}
	if db.tracer.Enabled() {
		meta.SQL = db.sanitizer.MaskSQL(query)
		meta.Namespace = db.conn.config().Database
	}
	tracer.EndQuery(span, meta)

	db.invokeHook(ctx, event)

	if err != nil {
		return nil, err
	}
	return res, nil
}

// logExecution logs a statement outcome if a logger is configured.
func (db *DB) logExecution(e QueryEvent) {
	if db.logger == nil {
		return
	}

	masked := db.sanitizer.MaskSQL(e.SQL)

	if e.Error != nil {
		db.logger.Error("query execution failed",
			"sql", masked,
			"duration_ms", e.Duration.Milliseconds(),
			"database", db.dialect.Name(),
			"reconnected", e.Reconnected,
			"error", e.Error,
		)
		return
	}

	db.logger.Info("query executed",
		"sql", masked,
		"duration_ms", e.Duration.Milliseconds(),
		"rows", e.Rows,
		"rows_affected", e.RowsAffected,
		"database", db.dialect.Name(),
		"reconnected", e.Reconnected,
	)
}

func (db *DB) startHealthCheck() {
	if db.healthInterval <= 0 {
		return
	}

	db.healthMu.Lock()
	defer db.healthMu.Unlock()

	if db.health != nil {
		return
	}

	log := logger.Discard
	if db.logger != nil {
		log = db.logger.With("component", "health")
	}
	db.health = newHealthChecker(db.conn, log, db.healthInterval)
	db.health.start()
}

func (db *DB) stopHealthCheck() {
	db.healthMu.Lock()
	h := db.health
	db.health = nil
	db.healthMu.Unlock()

	if h != nil {
		h.shutdown()
	}
}

func (db *DB) clearColumnCache() {
	if db.columns != nil {
		db.columns.Clear()
	}
}

// forgetSchema drops cached column lists when a new config may point the
// session at another database.
func (db *DB) forgetSchema(cfg []Config) {
	if len(cfg) > 0 {
		db.clearColumnCache()
	}
}

func firstConfig(cfg []Config) *Config {
	if len(cfg) == 0 {
		return nil
	}
	c := cfg[0]
	return &c
}
