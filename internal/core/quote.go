package core

import (
	"regexp"
	"strings"

	"github.com/coregx/fluentdb/internal/dialects"
)

var (
	numericToken = regexp.MustCompile(`^[0-9.]+$`)
	plainToken   = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// wrapField quotes the identifiers of a field expression such as
// "users.id AS uid". Tokens that are numbers, operators, function calls
// or already quoted pass through unchanged, as do "as" and "*".
func wrapField(d dialects.Dialect, field string) string {
	tokens := strings.Fields(field)
	for i, token := range tokens {
		tokens[i] = wrapToken(d, token)
	}
	return strings.Join(tokens, " ")
}

func wrapToken(d dialects.Dialect, token string) string {
	if numericToken.MatchString(token) || !plainToken.MatchString(token) {
		return token
	}
	if strings.EqualFold(token, "as") || token == "*" {
		return token
	}
	return dialects.QuoteIdentifierPath(d, token)
}

// wrap renders a field argument: Expr verbatim, anything else through wrapField.
func (b *Builder) wrap(field any) string {
	switch f := field.(type) {
	case Expr:
		return string(f)
	case dialects.SQLStringer:
		return f.SQLString()
	case string:
		return wrapField(b.db.dialect, f)
	}
	b.fail(ErrInvalidArgument, "field must be a string or Expr, got %T", field)
	return ""
}

// escape renders v as a literal the way Format renders a single "?".
func (b *Builder) escape(v any) string {
	return dialects.Format(b.db.dialect, "?", v)
}
