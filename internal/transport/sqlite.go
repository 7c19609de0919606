package transport

import (
	"context"
	"database/sql"
	"net/url"
	"strconv"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/coregx/fluentdb/internal/core"
	"github.com/coregx/fluentdb/internal/dialects"
)

func init() {
	core.RegisterDriver("sqlite", SQLite{})
	core.RegisterDriver("sqlite3", SQLite{})
}

// SQLite is the transport for embedded SQLite databases.
type SQLite struct{}

// Dialect returns the SQLite dialect.
func (SQLite) Dialect() dialects.Dialect {
	return dialects.GetDialect("sqlite")
}

// Connect opens the database file named by cfg.
func (SQLite) Connect(ctx context.Context, cfg core.Config) (core.Conn, error) {
	db, err := sql.Open("sqlite", SQLiteDSN(cfg))
	if err != nil {
		return nil, &core.TransportError{Op: "connect", Err: err}
	}
	return open(ctx, db, lostConnection)
}

// SQLiteDSN returns the file name, Host or else Database, with Params as
// query parameters. An empty name is a private in-memory database.
// Timeout becomes the busy timeout.
func SQLiteDSN(cfg core.Config) string {
	name := cfg.Host
	if name == "" {
		name = cfg.Database
	}
	if name == "" {
		name = ":memory:"
	}

	params := url.Values{}
	for k, v := range cfg.Params {
		params.Add(k, v)
	}
	if cfg.Timeout > 0 {
		params.Add("_pragma", "busy_timeout("+strconv.FormatInt(cfg.Timeout.Milliseconds(), 10)+")")
	}
	if len(params) == 0 {
		return name
	}
	return name + "?" + params.Encode()
}
