package core

import (
	"log/slog"
	"time"

	"github.com/coregx/fluentdb/internal/cache"
	"github.com/coregx/fluentdb/internal/logger"
	"github.com/coregx/fluentdb/internal/security"
	"github.com/coregx/fluentdb/internal/tracer"
	"go.opentelemetry.io/otel/trace"
)

// DefaultDriver is used when Config.Driver is empty.
const DefaultDriver = "mysql"

// Config describes how to reach the database server.
type Config struct {
	// Driver names a registered transport ("mysql", "sqlite"). Defaults to "mysql".
	Driver string
	// Host is "host" or "host:port" for network drivers, the file name for sqlite.
	Host string
	// Port overrides the port of Host when non-zero.
	Port int
	// User is the account name. Username is accepted as an alias.
	User     string
	Username string
	Password string
	Database string
	// Params are extra driver parameters appended to the DSN.
	Params map[string]string
	// Timeout bounds the connection handshake when non-zero.
	Timeout time.Duration
	// Debug logs connection errors to slog.Default() when no logger is configured.
	Debug bool
}

// UserName returns User, falling back to Username.
func (c Config) UserName() string {
	if c.User != "" {
		return c.User
	}
	return c.Username
}

// DriverName returns the transport name, defaulting to DefaultDriver.
func (c Config) DriverName() string {
	if c.Driver == "" {
		return DefaultDriver
	}
	return c.Driver
}

// Option is a functional option for configuring DB.
type Option func(*DB)

// WithLogger enables statement and connection logging through l.
func WithLogger(l *slog.Logger) Option {
	return func(db *DB) {
		db.logger = logger.New(l)
	}
}

// WithTracer records every statement and connection handshake as an
// OpenTelemetry span created by t.
func WithTracer(t trace.Tracer) Option {
	return func(db *DB) {
		db.tracer = tracer.New(t)
	}
}

// WithQueryHook registers a callback invoked after each execution.
func WithQueryHook(hook QueryHook) Option {
	return func(db *DB) {
		db.queryHook = hook
	}
}

// WithValidator screens raw SQL templates (the *Raw builder methods and DB.SQL)
// with v before they are formatted.
func WithValidator(v *security.Validator) Option {
	return func(db *DB) {
		db.validator = v
	}
}

// WithColumnCache memoizes the column lists fetched for onlyExisting inserts and
// updates, keeping at most capacity tables.
func WithColumnCache(capacity int) Option {
	return func(db *DB) {
		db.columns = cache.NewColumnCacheWithCapacity(capacity)
	}
}

// WithHealthCheck pings the live session every interval and reconnects once
// when the ping reports a lost connection.
func WithHealthCheck(interval time.Duration) Option {
	return func(db *DB) {
		db.healthInterval = interval
	}
}

// WithSensitiveFields replaces the column names whose literals are redacted in logs.
func WithSensitiveFields(fields ...string) Option {
	return func(db *DB) {
		db.sanitizer = logger.NewSanitizer(fields)
	}
}
