package core

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// buildErr returns the error latched by the builder or one of its unions.
func (b *Builder) buildErr() error {
	if b.err != nil {
		return b.err
	}
	for _, u := range b.unions {
		if u.err != nil {
			return u.err
		}
	}
	return nil
}

// run executes a finished statement, or returns it unexecuted when the
// ToSQL flag is set.
func (b *Builder) run(ctx context.Context, sql string) (*Result, error) {
	if err := b.buildErr(); err != nil {
		return nil, err
	}
	if b.asSQL {
		b.asSQL = false
		return &Result{SQL: sql}, nil
	}
	return b.db.execute(ctx, sql, b.table)
}

// Get runs the SELECT and returns its rows.
func (b *Builder) Get(ctx context.Context) (*Result, error) {
	return b.run(ctx, b.selectSQL())
}

// First runs the SELECT limited to one row. An empty result is not an error.
func (b *Builder) First(ctx context.Context) (*Result, error) {
	b.Take(1)
	return b.Get(ctx)
}

// Find returns the row whose id equals id.
func (b *Builder) Find(ctx context.Context, id any) (*Result, error) {
	return b.Where("id", id).First(ctx)
}

// Pluck selects one column and returns its values in Result.Value: a []any,
// or a map[string]any keyed by the key column when key is given. Value is
// nil when no rows match.
func (b *Builder) Pluck(ctx context.Context, column string, key ...string) (*Result, error) {
	b.fields = []string{b.wrap(column)}
	if len(key) > 0 {
		b.fields = append(b.fields, b.wrap(key[0]))
	}

	res, err := b.Get(ctx)
	if err != nil || !res.Executed || len(res.Rows) == 0 {
		return res, err
	}

	name := resultColumn(column)
	if len(key) == 0 {
		res.Value = lo.Map(res.Rows, func(row Row, _ int) any {
			return row[name]
		})
		return res, nil
	}

	keyName := resultColumn(key[0])
	res.Value = lo.Associate(res.Rows, func(row Row) (string, any) {
		return fmt.Sprint(row[keyName]), row[name]
	})
	return res, nil
}

// Value returns column of the first row in Result.Value, nil when no row matches.
func (b *Builder) Value(ctx context.Context, column string) (*Result, error) {
	b.fields = []string{b.wrap(column)}

	res, err := b.First(ctx)
	if err != nil || !res.Executed {
		return res, err
	}
	if row := res.First(); row != nil {
		res.Value = row[resultColumn(column)]
	}
	return res, nil
}

// resultColumn is the name a selected field comes back under.
func resultColumn(field string) string {
	tokens := strings.Fields(field)
	if len(tokens) == 0 {
		return field
	}
	name := tokens[len(tokens)-1]
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Count returns COUNT(*), or COUNT(column), in Result.Value.
func (b *Builder) Count(ctx context.Context, column ...string) (*Result, error) {
	if len(column) == 0 {
		return b.aggregate(ctx, "COUNT(*)")
	}
	return b.aggregate(ctx, "COUNT("+b.wrap(column[0])+")")
}

// Min returns MIN(column) in Result.Value.
func (b *Builder) Min(ctx context.Context, column string) (*Result, error) {
	return b.aggregate(ctx, "MIN("+b.wrap(column)+")")
}

// Max returns MAX(column) in Result.Value.
func (b *Builder) Max(ctx context.Context, column string) (*Result, error) {
	return b.aggregate(ctx, "MAX("+b.wrap(column)+")")
}

// Avg returns AVG(column) in Result.Value.
func (b *Builder) Avg(ctx context.Context, column string) (*Result, error) {
	return b.aggregate(ctx, "AVG("+b.wrap(column)+")")
}

// Sum returns SUM(column) in Result.Value.
func (b *Builder) Sum(ctx context.Context, column string) (*Result, error) {
	return b.aggregate(ctx, "SUM("+b.wrap(column)+")")
}

func (b *Builder) aggregate(ctx context.Context, expr string) (*Result, error) {
	b.fields = []string{expr + " AS num"}

	res, err := b.First(ctx)
	if err != nil || !res.Executed {
		return res, err
	}
	if row := res.First(); row != nil {
		res.Value = row["num"]
	}
	return res, nil
}

// Exists reports in Result.Value whether any row matches.
func (b *Builder) Exists(ctx context.Context) (*Result, error) {
	res, err := b.First(ctx)
	if err != nil || !res.Executed {
		return res, err
	}
	res.Value = len(res.Rows) > 0
	return res, nil
}

// DoesntExist reports in Result.Value whether no row matches.
func (b *Builder) DoesntExist(ctx context.Context) (*Result, error) {
	res, err := b.Exists(ctx)
	if err != nil || !res.Executed {
		return res, err
	}
	res.Value = !res.Bool()
	return res, nil
}

// Insert inserts one row. With onlyExisting, keys that are not columns of the
// table are dropped; if none remain the insert is rejected. An empty values
// map inserts a row of defaults. Result.Value holds the generated id.
func (b *Builder) Insert(ctx context.Context, values map[string]any, onlyExisting ...bool) (*Result, error) {
	columns, literals, err := b.assignments(ctx, values, onlyExisting)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 && len(values) > 0 {
		return nil, fmt.Errorf("%w: insert into %s sets no columns", ErrInvalidArgument, b.table)
	}

	res, err := b.run(ctx, b.db.dialect.InsertSQL(b.target, columns, literals))
	if err != nil || !res.Executed {
		return res, err
	}
	res.Value = res.LastInsertID
	return res, nil
}

// Update sets values on the rows matched by the builder. With onlyExisting,
// keys that are not columns of the table are dropped. Result.Value holds the
// number of affected rows.
func (b *Builder) Update(ctx context.Context, values map[string]any, onlyExisting ...bool) (*Result, error) {
	columns, literals, err := b.assignments(ctx, values, onlyExisting)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: update of %s sets no columns", ErrInvalidArgument, b.table)
	}

	sets := make([]string, len(columns))
	for i := range columns {
		sets[i] = columns[i] + " = " + literals[i]
	}
	return b.write(ctx, b.compose("UPDATE "+b.target+" SET "+strings.Join(sets, ", ")))
}

// Delete removes the rows matched by the builder.
func (b *Builder) Delete(ctx context.Context) (*Result, error) {
	return b.write(ctx, b.compose("DELETE FROM "+b.target))
}

// Increment adds n (default 1) to column on the matched rows.
func (b *Builder) Increment(ctx context.Context, column string, n ...int) (*Result, error) {
	return b.step(ctx, column, "+", n)
}

// Decrement subtracts n (default 1) from column on the matched rows.
func (b *Builder) Decrement(ctx context.Context, column string, n ...int) (*Result, error) {
	return b.step(ctx, column, "-", n)
}

func (b *Builder) step(ctx context.Context, column, op string, n []int) (*Result, error) {
	amount := 1
	if len(n) > 0 {
		amount = n[0]
	}
	col := b.wrap(column)
	return b.write(ctx, b.compose("UPDATE "+b.target+" SET "+col+" = "+col+" "+op+" "+strconv.Itoa(amount)))
}

// write runs a data-changing statement; Result.Value holds the affected rows.
func (b *Builder) write(ctx context.Context, sql string) (*Result, error) {
	res, err := b.run(ctx, sql)
	if err != nil || !res.Executed {
		return res, err
	}
	res.Value = res.RowsAffected
	return res, nil
}

// Truncate removes every row of the table.
func (b *Builder) Truncate(ctx context.Context) (*Result, error) {
	res, err := b.run(ctx, b.db.dialect.TruncateSQL(b.target))
	if err == nil && res.Executed {
		b.invalidateColumns()
	}
	return res, err
}

// Drop drops the table.
func (b *Builder) Drop(ctx context.Context) (*Result, error) {
	res, err := b.run(ctx, "DROP TABLE "+b.target)
	if err == nil && res.Executed {
		b.invalidateColumns()
	}
	return res, err
}

// ColumnNames fetches the column names of the table from the server. It is
// never affected by ToSQL.
func (b *Builder) ColumnNames(ctx context.Context) ([]string, error) {
	query, field := b.db.dialect.ColumnsSQL(b.target)

	res, err := b.db.execute(ctx, query, b.table)
	if err != nil {
		return nil, WrapError(err, "listing columns of "+b.table)
	}

	names := lo.Map(res.Rows, func(row Row, _ int) string {
		return fmt.Sprint(row[field])
	})
	if b.db.columns != nil {
		b.db.columns.Set(b.table, names)
	}
	return names, nil
}

// existingColumns returns the table's columns, from the column cache when enabled.
func (b *Builder) existingColumns(ctx context.Context) ([]string, error) {
	if b.db.columns != nil {
		if names, ok := b.db.columns.Get(b.table); ok {
			return names, nil
		}
	}
	return b.ColumnNames(ctx)
}

func (b *Builder) invalidateColumns() {
	if b.db.columns != nil {
		b.db.columns.Invalidate(b.table)
	}
}

// assignments renders values as quoted columns and literals in sorted key
// order. Expr values, and strings containing "(", are inserted verbatim.
func (b *Builder) assignments(ctx context.Context, values map[string]any, onlyExisting []bool) ([]string, []string, error) {
	if err := b.buildErr(); err != nil {
		return nil, nil, err
	}

	keys := lo.Keys(values)
	sort.Strings(keys)

	if len(onlyExisting) > 0 && onlyExisting[0] {
		existing, err := b.existingColumns(ctx)
		if err != nil {
			return nil, nil, err
		}
		keys = lo.Filter(keys, func(key string, _ int) bool {
			return lo.Contains(existing, key)
		})
	}

	columns := lo.Map(keys, func(key string, _ int) string {
		return b.wrap(key)
	})
	literals := lo.Map(keys, func(key string, _ int) string {
		return b.literal(values[key])
	})
	return columns, literals, nil
}

func (b *Builder) literal(v any) string {
	switch v := v.(type) {
	case Expr:
		return string(v)
	case string:
		if strings.Contains(v, "(") {
			return v
		}
	}
	return b.escape(v)
}

