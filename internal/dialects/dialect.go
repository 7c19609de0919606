// Package dialects provides database-specific SQL spellings for MySQL and SQLite:
// identifier quoting, literal escaping, and the few statements whose syntax differs
// between the two engines.
package dialects

// Dialect defines database-specific behaviors.
type Dialect interface {
	// Name returns the registered dialect name.
	Name() string
	// QuoteIdentifier quotes a single identifier part (no dots).
	QuoteIdentifier(string) string
	// Escape renders a Go value as a SQL literal.
	Escape(any) string
	// RandomFunction returns the expression used by ORDER BY for random ordering.
	RandomFunction() string
	// ColumnsSQL returns the statement listing the columns of a quoted table
	// and the result column holding the column name.
	ColumnsSQL(table string) (query, field string)
	// InsertSQL renders an INSERT of pre-rendered values into a quoted table.
	InsertSQL(table string, columns, values []string) string
	// TruncateSQL renders a statement removing every row of a quoted table.
	TruncateSQL(table string) string
	// MaxLimit is the row count used when only an offset is set.
	MaxLimit() string
}

// SQLStringer is implemented by values that already are SQL text.
// Escape and Format pass their text through unchanged.
type SQLStringer interface {
	SQLString() string
}

var dialects = make(map[string]Dialect)

// RegisterDialect registers a database dialect by driver name.
func RegisterDialect(name string, d Dialect) {
	dialects[name] = d
}

// GetDialect retrieves a registered dialect by driver name, panics if not found.
func GetDialect(name string) Dialect {
	if d, ok := dialects[name]; ok {
		return d
	}
	panic("unsupported dialect: " + name)
}

// LookupDialect retrieves a registered dialect by driver name.
func LookupDialect(name string) (Dialect, bool) {
	d, ok := dialects[name]
	return d, ok
}
