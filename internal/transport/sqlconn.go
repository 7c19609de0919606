// Package transport implements the fluentdb driver capability over
// database/sql for MySQL (github.com/go-sql-driver/mysql) and SQLite
// (modernc.org/sqlite). Each session pins one *sql.Conn.
package transport

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/coregx/fluentdb/internal/core"
)

// readingKeywords start statements that return rows.
var readingKeywords = []string{"SELECT", "SHOW", "PRAGMA", "WITH", "DESCRIBE", "DESC", "EXPLAIN", "VALUES"}

// sqlConn is one session: a *sql.DB limited to a single pinned connection.
// Destroy cancels base, which aborts whatever is running on the session.
type sqlConn struct {
	db     *sql.DB
	conn   *sql.Conn
	base   context.Context
	cancel context.CancelFunc
	lost   func(error) bool
}

// open pins a connection of db. db is closed on failure.
func open(ctx context.Context, db *sql.DB, lost func(error) bool) (*sqlConn, error) {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err == nil {
		err = conn.PingContext(ctx)
		if err != nil {
			_ = conn.Close()
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, &core.TransportError{Op: "connect", Lost: lost(err), Err: err}
	}

	base, cancel := context.WithCancel(context.Background())
	return &sqlConn{
		db:     db,
		conn:   conn,
		base:   base,
		cancel: cancel,
		lost:   lost,
	}, nil
}

// bind derives a context that is canceled by either ctx or Destroy.
func (c *sqlConn) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.base, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (c *sqlConn) Query(ctx context.Context, query string) (*core.Result, error) {
	if c.base.Err() != nil {
		return nil, &core.TransportError{Op: "query", Err: core.ErrConnectionDestroyed}
	}

	ctx, cancel := c.bind(ctx)
	defer cancel()

	var (
		res *core.Result
		err error
	)
	if isReading(query) {
		res, err = c.read(ctx, query)
	} else {
		res, err = c.exec(ctx, query)
	}
	return res, c.classify("query", err)
}

func (c *sqlConn) read(ctx context.Context, query string) (*core.Result, error) {
	rows, err := c.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	columns := make([]string, len(types))
	for i, t := range types {
		columns[i] = t.Name()
	}

	res := &core.Result{Columns: columns, Rows: []core.Row{}}
	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make(core.Row, len(columns))
		for i, name := range columns {
			row[name] = convert(values[i], types[i].DatabaseTypeName())
		}
		res.Rows = append(res.Rows, row)
	}
	return res, rows.Err()
}

func (c *sqlConn) exec(ctx context.Context, query string) (*core.Result, error) {
	r, err := c.conn.ExecContext(ctx, query)
	if err != nil {
		return nil, err
	}
	res := &core.Result{}
	res.LastInsertID, _ = r.LastInsertId()
	res.RowsAffected, _ = r.RowsAffected()
	return res, nil
}

// classify maps session failures to *core.TransportError and leaves SQL
// errors as they are.
func (c *sqlConn) classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case c.base.Err() != nil:
		return &core.TransportError{Op: op, Err: core.ErrConnectionDestroyed}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case c.lost(err):
		return &core.TransportError{Op: op, Lost: true, Err: err}
	}
	return err
}

func (c *sqlConn) Ping(ctx context.Context) error {
	ctx, cancel := c.bind(ctx)
	defer cancel()
	return c.classify("ping", c.conn.PingContext(ctx))
}

func (c *sqlConn) Destroy() error {
	c.cancel()
	_ = c.conn.Close()
	return c.db.Close()
}

func (c *sqlConn) End(_ context.Context) error {
	err := c.conn.Close()
	if cerr := c.db.Close(); err == nil {
		err = cerr
	}
	c.cancel()
	if errors.Is(err, sql.ErrConnDone) {
		return nil
	}
	return err
}

// lostConnection reports the database/sql level signs of a dead session.
func lostConnection(err error) bool {
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

func isReading(query string) bool {
	q := strings.ToUpper(strings.TrimLeft(query, " \t\r\n("))
	for _, kw := range readingKeywords {
		if strings.HasPrefix(q, kw) && (len(q) == len(kw) || !isWordChar(q[len(kw)])) {
			return true
		}
	}
	return false
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// convert turns raw driver bytes into Go values according to the column type.
func convert(v any, dbType string) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}

	switch strings.ToUpper(dbType) {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT", "YEAR",
		"UNSIGNED TINYINT", "UNSIGNED SMALLINT", "UNSIGNED MEDIUMINT", "UNSIGNED INT", "UNSIGNED BIGINT":
		if n, err := strconv.ParseInt(string(b), 10, 64); err == nil {
			return n
		}
	case "FLOAT", "DOUBLE", "REAL", "DECIMAL", "NUMERIC":
		if f, err := strconv.ParseFloat(string(b), 64); err == nil {
			return f
		}
	case "BINARY", "VARBINARY", "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB", "BIT", "GEOMETRY":
		return append([]byte(nil), b...)
	}
	return string(b)
}
