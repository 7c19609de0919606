package core

import (
	"reflect"
	"strings"

	"github.com/samber/lo"
)

// Where appends an AND condition. It accepts three shapes:
//
//	Where("price > 10")          // raw condition
//	Where("status", "active")    // status = 'active'
//	Where("age", ">=", 18)       // age >= 18
func (b *Builder) Where(column string, args ...any) *Builder {
	b.push(&b.where, b.shape(column, args))
	return b
}

// OrWhere is Where for the OR list.
func (b *Builder) OrWhere(column string, args ...any) *Builder {
	b.push(&b.orWhere, b.shape(column, args))
	return b
}

// WherePredicate appends p to the AND list.
func (b *Builder) WherePredicate(p Predicate) *Builder {
	if p == nil {
		b.fail(ErrInvalidArgument, "nil predicate")
		return b
	}
	b.push(&b.where, p)
	return b
}

// OrWherePredicate appends p to the OR list.
func (b *Builder) OrWherePredicate(p Predicate) *Builder {
	if p == nil {
		b.fail(ErrInvalidArgument, "nil predicate")
		return b
	}
	b.push(&b.orWhere, p)
	return b
}

// WhereGroup appends a parenthesized group built by fn.
func (b *Builder) WhereGroup(fn func(*Builder)) *Builder {
	b.push(&b.where, Group(fn))
	return b
}

// OrWhereGroup appends a parenthesized group built by fn to the OR list.
func (b *Builder) OrWhereGroup(fn func(*Builder)) *Builder {
	b.push(&b.orWhere, Group(fn))
	return b
}

// WhereRaw appends a formatted condition.
func (b *Builder) WhereRaw(sql string, args ...any) *Builder {
	return b.raw(&b.where, sql, args)
}

// OrWhereRaw appends a formatted condition to the OR list.
func (b *Builder) OrWhereRaw(sql string, args ...any) *Builder {
	return b.raw(&b.orWhere, sql, args)
}

func (b *Builder) raw(list *[]string, sql string, args []any) *Builder {
	if err := b.db.validate(sql); err != nil {
		b.latch(err)
		return b
	}
	*list = append(*list, b.db.Format(sql, args...))
	return b
}

// WhereIn appends "column IN (values)". A single slice argument is expanded.
// An empty list matches nothing.
func (b *Builder) WhereIn(column string, values ...any) *Builder {
	b.where = append(b.where, b.in(column, false, values))
	return b
}

// WhereNotIn appends "column NOT IN (values)". An empty list matches everything.
func (b *Builder) WhereNotIn(column string, values ...any) *Builder {
	b.where = append(b.where, b.in(column, true, values))
	return b
}

// OrWhereIn is WhereIn for the OR list.
func (b *Builder) OrWhereIn(column string, values ...any) *Builder {
	b.orWhere = append(b.orWhere, b.in(column, false, values))
	return b
}

// OrWhereNotIn is WhereNotIn for the OR list.
func (b *Builder) OrWhereNotIn(column string, values ...any) *Builder {
	b.orWhere = append(b.orWhere, b.in(column, true, values))
	return b
}

func (b *Builder) in(column string, not bool, values []any) string {
	values = expandList(values)
	if len(values) == 0 {
		if not {
			return "1 = 1"
		}
		return "0 = 1"
	}

	literals := lo.Map(values, func(v any, _ int) string {
		return b.escape(v)
	})

	op := " IN ("
	if not {
		op = " NOT IN ("
	}
	return b.wrap(column) + op + strings.Join(literals, ", ") + ")"
}

// expandList flattens a single slice argument into its elements.
func expandList(values []any) []any {
	if len(values) != 1 {
		return values
	}
	rv := reflect.ValueOf(values[0])
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return values
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return values // []byte is a single value
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// WhereBetween appends "column BETWEEN from AND to".
func (b *Builder) WhereBetween(column string, from, to any) *Builder {
	b.where = append(b.where, b.between(column, "BETWEEN", from, to))
	return b
}

// WhereNotBetween appends "column NOT BETWEEN from AND to".
func (b *Builder) WhereNotBetween(column string, from, to any) *Builder {
	b.where = append(b.where, b.between(column, "NOT BETWEEN", from, to))
	return b
}

// OrWhereBetween is WhereBetween for the OR list.
func (b *Builder) OrWhereBetween(column string, from, to any) *Builder {
	b.orWhere = append(b.orWhere, b.between(column, "BETWEEN", from, to))
	return b
}

func (b *Builder) between(column, op string, from, to any) string {
	return b.wrap(column) + " " + op + " " + b.escape(from) + " AND " + b.escape(to)
}

// WhereNull appends "column IS NULL".
func (b *Builder) WhereNull(column string) *Builder {
	b.where = append(b.where, b.wrap(column)+" IS NULL")
	return b
}

// WhereNotNull appends "column IS NOT NULL".
func (b *Builder) WhereNotNull(column string) *Builder {
	b.where = append(b.where, b.wrap(column)+" IS NOT NULL")
	return b
}

// OrWhereNull is WhereNull for the OR list.
func (b *Builder) OrWhereNull(column string) *Builder {
	b.orWhere = append(b.orWhere, b.wrap(column)+" IS NULL")
	return b
}

// OrWhereNotNull is WhereNotNull for the OR list.
func (b *Builder) OrWhereNotNull(column string) *Builder {
	b.orWhere = append(b.orWhere, b.wrap(column)+" IS NOT NULL")
	return b
}

// WhereDate compares DATE(column): WhereDate("created_at", "2024-01-31")
// or WhereDate("created_at", ">", "2024-01-31").
func (b *Builder) WhereDate(column string, args ...any) *Builder {
	return b.whereFunc("DATE", column, args)
}

// WhereDay compares DAY(column).
func (b *Builder) WhereDay(column string, args ...any) *Builder {
	return b.whereFunc("DAY", column, args)
}

// WhereWeek compares WEEK(column).
func (b *Builder) WhereWeek(column string, args ...any) *Builder {
	return b.whereFunc("WEEK", column, args)
}

// WhereMonth compares MONTH(column).
func (b *Builder) WhereMonth(column string, args ...any) *Builder {
	return b.whereFunc("MONTH", column, args)
}

// WhereYear compares YEAR(column).
func (b *Builder) WhereYear(column string, args ...any) *Builder {
	return b.whereFunc("YEAR", column, args)
}

// WhereTime compares TIME(column).
func (b *Builder) WhereTime(column string, args ...any) *Builder {
	return b.whereFunc("TIME", column, args)
}

func (b *Builder) whereFunc(fn, column string, args []any) *Builder {
	p := b.shape(column, args)
	var op string
	var value any
	switch p := p.(type) {
	case eqPredicate:
		op, value = "=", p.value
	case comparePredicate:
		normalized, ok := normalizeOperator(p.op)
		if !ok {
			b.fail(ErrInvalidOperator, "%q", p.op)
			return b
		}
		op, value = normalized, p.value
	case rawPredicate:
		b.fail(ErrInvalidArgument, "%s(%s): missing value", fn, column)
		return b
	default:
		return b
	}
	b.where = append(b.where, fn+"("+b.wrap(column)+") "+op+" "+b.escape(value))
	return b
}

// WhereColumn compares two columns: WhereColumn("a", "b") or
// WhereColumn("updated_at", ">", "created_at").
func (b *Builder) WhereColumn(first string, args ...string) *Builder {
	var op, second string
	switch len(args) {
	case 1:
		op, second = "=", args[0]
	case 2:
		op, second = args[0], args[1]
	default:
		b.fail(ErrInvalidArgument, "WhereColumn %s: expected 1 or 2 arguments, got %d", first, len(args))
		return b
	}

	normalized, ok := normalizeOperator(op)
	if !ok {
		b.fail(ErrInvalidOperator, "%q", op)
		return b
	}
	b.where = append(b.where, b.wrap(first)+" "+normalized+" "+b.wrap(second))
	return b
}

// WhereColumns applies WhereColumn to each {first, [op,] second} tuple.
func (b *Builder) WhereColumns(tuples ...[]string) *Builder {
	for _, t := range tuples {
		if len(t) == 0 {
			b.fail(ErrInvalidArgument, "WhereColumns: empty tuple")
			return b
		}
		b.WhereColumn(t[0], t[1:]...)
	}
	return b
}

// Having appends an AND condition to HAVING, with the shapes of Where.
func (b *Builder) Having(column string, args ...any) *Builder {
	b.push(&b.having, b.shape(column, args))
	return b
}

// OrHaving is Having for the OR list.
func (b *Builder) OrHaving(column string, args ...any) *Builder {
	b.push(&b.orHaving, b.shape(column, args))
	return b
}

// HavingRaw appends a formatted HAVING condition.
func (b *Builder) HavingRaw(sql string, args ...any) *Builder {
	return b.raw(&b.having, sql, args)
}

// OrHavingRaw appends a formatted HAVING condition to the OR list.
func (b *Builder) OrHavingRaw(sql string, args ...any) *Builder {
	return b.raw(&b.orHaving, sql, args)
}

// HavingGroup appends a parenthesized HAVING group built by fn with Where calls.
func (b *Builder) HavingGroup(fn func(*Builder)) *Builder {
	b.push(&b.having, Group(fn))
	return b
}

// HavingPredicate appends p to the HAVING list.
func (b *Builder) HavingPredicate(p Predicate) *Builder {
	if p == nil {
		b.fail(ErrInvalidArgument, "nil predicate")
		return b
	}
	b.push(&b.having, p)
	return b
}
