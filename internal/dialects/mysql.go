package dialects

import (
	"strings"

	"github.com/huandu/go-sqlbuilder"
)

// MySQLDialect implements MySQL-specific SQL dialect.
type MySQLDialect struct{}

func init() {
	RegisterDialect("mysql", &MySQLDialect{})
}

// Name returns "mysql".
func (d *MySQLDialect) Name() string {
	return "mysql"
}

// QuoteIdentifier quotes a MySQL identifier using backticks.
func (d *MySQLDialect) QuoteIdentifier(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

// Escape renders v the way the MySQL client library does for "?" placeholders.
func (d *MySQLDialect) Escape(v any) string {
	return escapeValue(d, v, mysqlLiterals)
}

// RandomFunction returns RAND().
func (d *MySQLDialect) RandomFunction() string {
	return "RAND()"
}

// ColumnsSQL uses SHOW COLUMNS, whose "Field" column carries the name.
func (d *MySQLDialect) ColumnsSQL(table string) (string, string) {
	return "SHOW COLUMNS FROM " + table, "Field"
}

// InsertSQL renders the INSERT ... SET form.
func (d *MySQLDialect) InsertSQL(table string, columns, values []string) string {
	if len(columns) == 0 {
		return "INSERT INTO " + table + " () VALUES ()"
	}
	return "INSERT INTO " + table + " SET " + assignments(columns, values)
}

// TruncateSQL renders TRUNCATE TABLE.
func (d *MySQLDialect) TruncateSQL(table string) string {
	return "TRUNCATE TABLE " + table
}

// MaxLimit is the largest unsigned BIGINT, as recommended by the MySQL manual.
func (d *MySQLDialect) MaxLimit() string {
	return "18446744073709551615"
}

// mysqlLiterals delegates string and integer literals to the MySQL flavor,
// which applies the client library's backslash escapes.
var mysqlLiterals = literals{flavor: sqlbuilder.MySQL, quote: mysqlString, yes: "true", no: "false"}

func mysqlString(s string) string {
	out, err := sqlbuilder.MySQL.Interpolate("?", []any{s})
	if err != nil {
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
	return out
}

func assignments(columns, values []string) string {
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = col + " = " + values[i]
	}
	return strings.Join(parts, ", ")
}
