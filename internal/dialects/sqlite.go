package dialects

import (
	"strings"

	"github.com/huandu/go-sqlbuilder"
)

// SQLiteDialect implements SQLite-specific SQL dialect.
type SQLiteDialect struct{}

func init() {
	RegisterDialect("sqlite", &SQLiteDialect{})
	RegisterDialect("sqlite3", &SQLiteDialect{})
}

// Name returns "sqlite".
func (d *SQLiteDialect) Name() string {
	return "sqlite"
}

// QuoteIdentifier quotes a SQLite identifier using double quotes.
func (d *SQLiteDialect) QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Escape renders v as a SQLite literal. Strings double embedded quotes.
func (d *SQLiteDialect) Escape(v any) string {
	return escapeValue(d, v, sqliteLiterals)
}

// RandomFunction returns RANDOM().
func (d *SQLiteDialect) RandomFunction() string {
	return "RANDOM()"
}

// ColumnsSQL uses PRAGMA table_info, whose "name" column carries the name.
func (d *SQLiteDialect) ColumnsSQL(table string) (string, string) {
	return "PRAGMA table_info(" + table + ")", "name"
}

// InsertSQL renders the column-list INSERT form; SQLite has no INSERT ... SET.
func (d *SQLiteDialect) InsertSQL(table string, columns, values []string) string {
	if len(columns) == 0 {
		return "INSERT INTO " + table + " DEFAULT VALUES"
	}
	return "INSERT INTO " + table + " (" + strings.Join(columns, ", ") + ") VALUES (" + strings.Join(values, ", ") + ")"
}

// TruncateSQL renders DELETE FROM; SQLite has no TRUNCATE.
func (d *SQLiteDialect) TruncateSQL(table string) string {
	return "DELETE FROM " + table
}

// MaxLimit is -1, which SQLite reads as "no limit".
func (d *SQLiteDialect) MaxLimit() string {
	return "-1"
}

// sqliteLiterals delegates integers to the SQLite flavor. Strings double
// embedded quotes because SQLite does not read backslash as an escape.
var sqliteLiterals = literals{flavor: sqlbuilder.SQLite, quote: sqliteString, yes: "1", no: "0"}

func sqliteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
