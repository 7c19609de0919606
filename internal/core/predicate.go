package core

import (
	"strings"
)

// Predicate is one condition destined for a WHERE or HAVING list.
// The variants are Raw, Eq, Compare, Group and Batch.
type Predicate interface {
	predicate()
}

type rawPredicate struct {
	sql string
}

type eqPredicate struct {
	column string
	value  any
}

type comparePredicate struct {
	column string
	op     string
	value  any
}

type groupPredicate struct {
	fn func(*Builder)
}

type batchPredicate struct {
	members []Predicate
}

func (rawPredicate) predicate()     {}
func (eqPredicate) predicate()      {}
func (comparePredicate) predicate() {}
func (groupPredicate) predicate()   {}
func (batchPredicate) predicate()   {}

// Raw is a finished SQL condition appended as is.
func Raw(sql string) Predicate {
	return rawPredicate{sql: sql}
}

// Eq is "column = value".
func Eq(column string, value any) Predicate {
	return eqPredicate{column: column, value: value}
}

// Compare is "column op value". op must be a comparison operator such as
// "<>", ">=", "LIKE" or "IN".
func Compare(column, op string, value any) Predicate {
	return comparePredicate{column: column, op: op, value: value}
}

// Group builds a parenthesized sub-condition from the Where and OrWhere
// calls fn makes on a fresh builder. A group with no conditions is skipped.
func Group(fn func(*Builder)) Predicate {
	return groupPredicate{fn: fn}
}

// Batch appends each member in order.
func Batch(members ...Predicate) Predicate {
	return batchPredicate{members: members}
}

// operators lists the comparison operators accepted by Compare.
var operators = map[string]bool{
	"=": true, "<": true, ">": true, "<=": true, ">=": true,
	"<>": true, "!=": true, "<=>": true,
	"LIKE": true, "NOT LIKE": true,
	"REGEXP": true, "NOT REGEXP": true, "RLIKE": true,
	"GLOB": true,
	"IN": true, "NOT IN": true,
	"IS": true, "IS NOT": true,
	"&": true, "|": true, "^": true,
}

// normalizeOperator upper-cases op and collapses inner whitespace.
func normalizeOperator(op string) (string, bool) {
	op = strings.ToUpper(strings.Join(strings.Fields(op), " "))
	return op, operators[op]
}

// push renders p and appends the result to list.
func (b *Builder) push(list *[]string, p Predicate) {
	switch p := p.(type) {
	case nil:
		// shape has already latched the error
	case rawPredicate:
		if err := b.db.validate(p.sql); err != nil {
			b.latch(err)
			return
		}
		*list = append(*list, p.sql)

	case eqPredicate:
		*list = append(*list, b.wrap(p.column)+" = "+b.escape(p.value))

	case comparePredicate:
		op, ok := normalizeOperator(p.op)
		if !ok {
			b.fail(ErrInvalidOperator, "%q", p.op)
			return
		}
		if op == "IN" || op == "NOT IN" {
			*list = append(*list, b.in(p.column, op == "NOT IN", []any{p.value}))
			return
		}
		*list = append(*list, b.wrap(p.column)+" "+op+" "+b.escape(p.value))

	case groupPredicate:
		nested := newBuilder(b.db, "")
		p.fn(nested)
		if nested.err != nil {
			b.latch(nested.err)
			return
		}
		if cond := nested.whereSQL(); cond != "" {
			*list = append(*list, "("+cond+")")
		}

	case batchPredicate:
		for _, member := range p.members {
			b.push(list, member)
		}

	default:
		b.fail(ErrInvalidArgument, "unsupported predicate %T", p)
	}
}

// shape turns the variadic call shapes of Where and its relatives into a
// Predicate: no args is a raw condition, one arg is equality, two args are
// an operator and a value.
func (b *Builder) shape(column string, args []any) Predicate {
	switch len(args) {
	case 0:
		return Raw(column)
	case 1:
		return Eq(column, args[0])
	case 2:
		op, ok := args[0].(string)
		if !ok {
			b.fail(ErrInvalidOperator, "operator must be a string, got %T", args[0])
			return nil
		}
		return Compare(column, op, args[1])
	}
	b.fail(ErrInvalidArgument, "%s: expected at most 2 arguments, got %d", column, len(args))
	return nil
}
