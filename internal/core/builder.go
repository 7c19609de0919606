package core

import (
	"fmt"
	"strings"
)

// Builder accumulates the clauses of one statement against a table. Each
// method appends finished SQL fragments (identifiers quoted, values escaped)
// and returns the builder for chaining. A malformed call latches an error
// that the next terminal method returns.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	db     *DB
	table  string
	target string

	distinct  bool
	fields    []string
	where     []string
	orWhere   []string
	groupBy   []string
	having    []string
	orHaving  []string
	orderBy   []string
	innerJoin []string
	leftJoin  []string
	rightJoin []string
	crossJoin []string
	count     *int
	offset    *int
	unions    []*Builder

	asSQL bool
	err   error
}

func newBuilder(db *DB, table string) *Builder {
	b := &Builder{db: db, table: table}
	if table != "" {
		b.target = wrapField(db.dialect, table)
	}
	return b
}

// Err returns the first error latched by a builder method.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) latch(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Builder) fail(sentinel error, format string, args ...any) {
	b.latch(fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)))
}

// Select replaces the selected fields. Without arguments it selects "*".
// Fields are strings, quoted as identifiers, or Expr values.
func (b *Builder) Select(fields ...any) *Builder {
	b.fields = nil
	return b.AddSelect(fields...)
}

// AddSelect appends fields to the selection.
func (b *Builder) AddSelect(fields ...any) *Builder {
	for _, f := range fields {
		b.fields = append(b.fields, b.wrap(f))
	}
	return b
}

// SelectRaw appends a formatted SQL expression to the selection.
func (b *Builder) SelectRaw(sql string, args ...any) *Builder {
	if err := b.db.validate(sql); err != nil {
		b.latch(err)
		return b
	}
	b.fields = append(b.fields, b.db.Format(sql, args...))
	return b
}

// Distinct makes the SELECT return distinct rows.
func (b *Builder) Distinct() *Builder {
	b.distinct = true
	return b
}

// Join adds an INNER JOIN of table on "first op second".
func (b *Builder) Join(table, first, op, second string) *Builder {
	return b.addJoin(&b.innerJoin, table, first, op, second)
}

// InnerJoin is Join.
func (b *Builder) InnerJoin(table, first, op, second string) *Builder {
	return b.Join(table, first, op, second)
}

// LeftJoin adds a LEFT JOIN of table on "first op second".
func (b *Builder) LeftJoin(table, first, op, second string) *Builder {
	return b.addJoin(&b.leftJoin, table, first, op, second)
}

// RightJoin adds a RIGHT JOIN of table on "first op second".
func (b *Builder) RightJoin(table, first, op, second string) *Builder {
	return b.addJoin(&b.rightJoin, table, first, op, second)
}

// CrossJoin adds a CROSS JOIN of table, optionally constrained by
// on = (first, op, second).
func (b *Builder) CrossJoin(table string, on ...string) *Builder {
	switch len(on) {
	case 0:
		b.crossJoin = append(b.crossJoin, b.wrap(table))
		return b
	case 3:
		return b.addJoin(&b.crossJoin, table, on[0], on[1], on[2])
	}
	b.fail(ErrInvalidArgument, "CrossJoin %s: expected 0 or 3 join arguments, got %d", table, len(on))
	return b
}

func (b *Builder) addJoin(list *[]string, table, first, op, second string) *Builder {
	normalized, ok := normalizeOperator(op)
	if !ok {
		b.fail(ErrInvalidOperator, "join %s on %q", table, op)
		return b
	}
	*list = append(*list, b.wrap(table)+" ON "+b.wrap(first)+" "+normalized+" "+b.wrap(second))
	return b
}

// GroupBy appends GROUP BY fields (strings or Expr values).
func (b *Builder) GroupBy(fields ...any) *Builder {
	for _, f := range fields {
		b.groupBy = append(b.groupBy, b.wrap(f))
	}
	return b
}

// GroupByRaw appends a formatted GROUP BY expression.
func (b *Builder) GroupByRaw(sql string, args ...any) *Builder {
	if err := b.db.validate(sql); err != nil {
		b.latch(err)
		return b
	}
	b.groupBy = append(b.groupBy, b.db.Format(sql, args...))
	return b
}

// OrderBy appends an ORDER BY field. dir is "ASC" (default) or "DESC",
// case-insensitively.
func (b *Builder) OrderBy(field any, dir ...string) *Builder {
	direction := "ASC"
	if len(dir) > 0 {
		direction = strings.ToUpper(strings.TrimSpace(dir[0]))
	}
	if direction != "ASC" && direction != "DESC" {
		b.fail(ErrInvalidDirection, "%q", dir[0])
		return b
	}
	b.orderBy = append(b.orderBy, b.wrap(field)+" "+direction)
	return b
}

// OrderByDesc appends a descending ORDER BY field.
func (b *Builder) OrderByDesc(field any) *Builder {
	return b.OrderBy(field, "DESC")
}

// OrderByRaw appends a formatted ORDER BY expression.
func (b *Builder) OrderByRaw(sql string, args ...any) *Builder {
	if err := b.db.validate(sql); err != nil {
		b.latch(err)
		return b
	}
	b.orderBy = append(b.orderBy, b.db.Format(sql, args...))
	return b
}

// Latest orders by column descending, created_at by default.
func (b *Builder) Latest(column ...string) *Builder {
	return b.OrderBy(defaultColumn(column, "created_at"), "DESC")
}

// Oldest orders by column ascending, created_at by default.
func (b *Builder) Oldest(column ...string) *Builder {
	return b.OrderBy(defaultColumn(column, "created_at"), "ASC")
}

// InRandomOrder orders rows randomly.
func (b *Builder) InRandomOrder() *Builder {
	b.orderBy = append(b.orderBy, b.db.dialect.RandomFunction())
	return b
}

// Limit sets the row count with one argument and the offset and row count
// with two: Limit(10) or Limit(5, 10).
func (b *Builder) Limit(n int, count ...int) *Builder {
	switch len(count) {
	case 0:
		return b.Take(n)
	case 1:
		return b.Skip(n).Take(count[0])
	}
	b.fail(ErrInvalidArgument, "Limit: expected 1 or 2 arguments, got %d", len(count)+1)
	return b
}

// Take sets the row count, keeping any offset.
func (b *Builder) Take(n int) *Builder {
	if n < 0 {
		b.fail(ErrInvalidArgument, "negative limit %d", n)
		return b
	}
	b.count = &n
	return b
}

// Skip sets the number of rows to skip, keeping any row count.
func (b *Builder) Skip(n int) *Builder {
	if n < 0 {
		b.fail(ErrInvalidArgument, "negative offset %d", n)
		return b
	}
	b.offset = &n
	return b
}

// Offset is Skip.
func (b *Builder) Offset(n int) *Builder {
	return b.Skip(n)
}

// Union appends a query whose rows are combined with this one's by UNION.
func (b *Builder) Union(other *Builder) *Builder {
	if other == nil {
		b.fail(ErrInvalidArgument, "Union: nil builder")
		return b
	}
	b.unions = append(b.unions, other)
	return b
}

// When applies fn when cond is true, otherwise the optional alternative.
func (b *Builder) When(cond bool, fn func(*Builder), otherwise ...func(*Builder)) *Builder {
	if cond {
		fn(b)
	} else if len(otherwise) > 0 && otherwise[0] != nil {
		otherwise[0](b)
	}
	return b
}

// ToSQL makes the next terminal method return the statement it would run in
// Result.SQL, with Executed false, instead of running it. The flag is
// consumed by that call. ToSQL(false) clears it.
func (b *Builder) ToSQL(flag ...bool) *Builder {
	b.asSQL = len(flag) == 0 || flag[0]
	return b
}

// SQL returns the SELECT statement Get would run. It does not consume the
// ToSQL flag.
func (b *Builder) SQL() string {
	return b.selectSQL()
}

func defaultColumn(column []string, fallback string) string {
	if len(column) > 0 && column[0] != "" {
		return column[0]
	}
	return fallback
}
