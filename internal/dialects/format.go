package dialects

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/huandu/go-sqlbuilder"
)

// timeLayout matches the DATETIME(3) literal format accepted by both engines.
const timeLayout = "2006-01-02 15:04:05.000"

// Format substitutes "?" placeholders with escaped values and "??" placeholders
// with quoted identifiers, left to right. Placeholders without a matching
// argument are left untouched.
func Format(d Dialect, query string, args ...any) string {
	if len(args) == 0 {
		return query
	}

	var sb strings.Builder
	sb.Grow(len(query) + 8*len(args))

	next := 0
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c != '?' || next >= len(args) {
			sb.WriteByte(c)
			continue
		}
		if i+1 < len(query) && query[i+1] == '?' {
			sb.WriteString(QuoteIdentifierPath(d, fmt.Sprint(args[next])))
			i++
		} else {
			sb.WriteString(d.Escape(args[next]))
		}
		next++
	}
	return sb.String()
}

// QuoteIdentifierPath quotes every dot-separated part of a qualified identifier.
func QuoteIdentifierPath(d Dialect, name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		parts[i] = d.QuoteIdentifier(part)
	}
	return strings.Join(parts, ".")
}

// literals holds the per-dialect leaf rules. Integers go through the
// go-sqlbuilder flavor interpolation; quote renders strings and yes/no are
// the boolean spellings.
type literals struct {
	flavor sqlbuilder.Flavor
	quote  func(string) string
	yes    string
	no     string
}

// interpolate renders a single scalar with the flavor's "?" interpolation.
func (l literals) interpolate(v any) (string, error) {
	return l.flavor.Interpolate("?", []any{v})
}

// scalar renders an integer, falling back to decimal formatting when the
// flavor rejects the value.
func (l literals) scalar(v any) string {
	if out, err := l.interpolate(v); err == nil {
		return out
	}
	return fmt.Sprint(v)
}

// escapeValue renders v as a literal using the leaf rules in lit.
//
//nolint:cyclop // one case per literal kind
func escapeValue(d Dialect, v any, lit literals) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case SQLStringer:
		return val.SQLString()
	case string:
		return lit.quote(val)
	case []byte:
		if val == nil {
			return "NULL"
		}
		return "X'" + hex.EncodeToString(val) + "'"
	case bool:
		if val {
			return lit.yes
		}
		return lit.no
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return lit.scalar(val)
	case float32:
		return formatFloat(float64(val), 32)
	case float64:
		return formatFloat(val, 64)
	case time.Time:
		if val.IsZero() {
			return "NULL"
		}
		return lit.quote(val.Format(timeLayout))
	case *time.Time:
		if val == nil {
			return "NULL"
		}
		return escapeValue(d, *val, lit)
	case driver.Valuer:
		inner, err := val.Value()
		if err != nil {
			return "NULL"
		}
		return escapeValue(d, inner, lit)
	case fmt.Stringer:
		return lit.quote(val.String())
	}

	return escapeReflect(d, reflect.ValueOf(v), lit)
}

// escapeReflect handles pointers, slices, arrays and string-keyed maps.
func escapeReflect(d Dialect, rv reflect.Value, lit literals) string {
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "NULL"
		}
		return escapeValue(d, rv.Elem().Interface(), lit)

	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			item := rv.Index(i)
			if isList(item) {
				parts[i] = "(" + escapeReflect(d, item, lit) + ")"
				continue
			}
			parts[i] = escapeValue(d, item.Interface(), lit)
		}
		return strings.Join(parts, ", ")

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			val := rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key()))
			parts[i] = QuoteIdentifierPath(d, k) + " = " + escapeValue(d, val.Interface(), lit)
		}
		return strings.Join(parts, ", ")

	case reflect.String:
		return lit.quote(rv.String())
	case reflect.Bool:
		return escapeValue(d, rv.Bool(), lit)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lit.scalar(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return lit.scalar(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return formatFloat(rv.Float(), 64)
	}

	return lit.quote(fmt.Sprint(rv.Interface()))
}

func isList(rv reflect.Value) bool {
	for rv.Kind() == reflect.Interface && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice:
		return rv.Type().Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	}
	return false
}

func formatFloat(f float64, bits int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "NULL"
	}
	if math.Abs(f) >= 1e21 {
		return strconv.FormatFloat(f, 'g', -1, bits)
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}
