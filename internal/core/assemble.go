package core

import (
	"strconv"
	"strings"
)

// selectSQL renders the SELECT statement with its unions.
func (b *Builder) selectSQL() string {
	first := b.compose(b.selectCommand())
	if len(b.unions) == 0 {
		return first
	}

	parts := make([]string, 0, len(b.unions)+1)
	parts = append(parts, "("+first+")")
	for _, u := range b.unions {
		parts = append(parts, "("+u.compose(u.selectCommand())+")")
	}
	return strings.Join(parts, " UNION ")
}

func (b *Builder) selectCommand() string {
	fields := "*"
	if len(b.fields) > 0 {
		fields = strings.Join(b.fields, ", ")
	}

	distinct := ""
	if b.distinct {
		distinct = "DISTINCT "
	}
	return "SELECT " + distinct + fields + " FROM " + b.target
}

// compose appends the clauses to command in their fixed order: joins (inner,
// left, right, cross), WHERE, GROUP BY, HAVING, ORDER BY, LIMIT.
func (b *Builder) compose(command string) string {
	sql := []string{command}

	sql = appendJoins(sql, "INNER", b.innerJoin)
	sql = appendJoins(sql, "LEFT", b.leftJoin)
	sql = appendJoins(sql, "RIGHT", b.rightJoin)
	sql = appendJoins(sql, "CROSS", b.crossJoin)

	if where := b.whereSQL(); where != "" {
		sql = append(sql, "WHERE "+where)
	}
	if len(b.groupBy) > 0 {
		sql = append(sql, "GROUP BY "+strings.Join(b.groupBy, ", "))
	}
	if having := conditionSQL(b.having, b.orHaving); having != "" {
		sql = append(sql, "HAVING "+having)
	}
	if len(b.orderBy) > 0 {
		sql = append(sql, "ORDER BY "+strings.Join(b.orderBy, ", "))
	}
	if limit := b.limitSQL(); limit != "" {
		sql = append(sql, limit)
	}

	return strings.Join(sql, " ")
}

func appendJoins(sql []string, kind string, joins []string) []string {
	if len(joins) == 0 {
		return sql
	}
	keyword := kind + " JOIN "
	return append(sql, keyword+strings.Join(joins, " "+keyword))
}

func (b *Builder) whereSQL() string {
	return conditionSQL(b.where, b.orWhere)
}

// conditionSQL renders "a AND b [OR c OR d]".
func conditionSQL(and, or []string) string {
	var sql []string
	if len(and) > 0 {
		sql = append(sql, strings.Join(and, " AND "))
	}
	if len(or) > 0 {
		sql = append(sql, strings.Join(or, " OR "))
	}
	return strings.Join(sql, " OR ")
}

// limitSQL renders "LIMIT count" or "LIMIT offset, count". An offset without
// a count uses the dialect's maximum row count.
func (b *Builder) limitSQL() string {
	switch {
	case b.offset != nil && b.count != nil:
		return "LIMIT " + strconv.Itoa(*b.offset) + ", " + strconv.Itoa(*b.count)
	case b.offset != nil:
		return "LIMIT " + strconv.Itoa(*b.offset) + ", " + b.db.dialect.MaxLimit()
	case b.count != nil:
		return "LIMIT " + strconv.Itoa(*b.count)
	}
	return ""
}
