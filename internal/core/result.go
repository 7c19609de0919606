package core

import (
	"fmt"
	"strconv"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Result is the normalized outcome of an execution.
//
// A builder terminal called after ToSQL returns a Result with only SQL set
// and Executed false. Otherwise Rows holds the rows of a reading statement,
// LastInsertID and RowsAffected describe a writing statement, and Value holds
// the scalar a terminal extracted (aggregate, Value, Pluck, Exists).
type Result struct {
	SQL          string
	Executed     bool
	Columns      []string
	Rows         []Row
	LastInsertID int64
	RowsAffected int64
	Value        any
}

// First returns the first row, or nil when there is none.
func (r *Result) First() Row {
	if r == nil || len(r.Rows) == 0 {
		return nil
	}
	return r.Rows[0]
}

// Len returns the number of rows.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Int64 converts Value to int64. NULL converts to 0.
func (r *Result) Int64() (int64, error) {
	switch v := r.Value.(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	}
	return 0, fmt.Errorf("%w: cannot convert %T to int64", ErrInvalidArgument, r.Value)
}

// Float64 converts Value to float64. NULL converts to 0.
func (r *Result) Float64() (float64, error) {
	switch v := r.Value.(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	case string:
		return strconv.ParseFloat(v, 64)
	}
	return 0, fmt.Errorf("%w: cannot convert %T to float64", ErrInvalidArgument, r.Value)
}

// Bool reports Value as a boolean (Exists / DoesntExist).
func (r *Result) Bool() bool {
	b, _ := r.Value.(bool)
	return b
}
