// Package security screens hand-written SQL fragments (the *Raw builder methods and
// DB.SQL templates) for constructs typical of injected input.
package security

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnsafeSQL is returned when a fragment matches a dangerous pattern.
var ErrUnsafeSQL = errors.New("unsafe SQL fragment")

// Validator checks raw SQL templates against dangerous patterns.
// Templates are checked before placeholder substitution, so escaped values
// never trigger a match.
type Validator struct {
	patterns []pattern
	strict   bool
}

type pattern struct {
	name string
	re   *regexp.Regexp
}

// ValidatorOption configures the Validator.
type ValidatorOption func(*Validator)

// WithStrict also rejects any OR/UNION/EXEC keyword in a raw fragment.
func WithStrict(strict bool) ValidatorOption {
	return func(v *Validator) {
		v.strict = strict
	}
}

// NewValidator creates a validator with the default dangerous patterns.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		patterns: compilePatterns(dangerousPatterns),
	}

	for _, opt := range opts {
		opt(v)
	}

	if v.strict {
		v.patterns = append(v.patterns, compilePatterns(strictPatterns)...)
	}

	return v
}

// dangerousPatterns maps a short name to an upper-case pattern.
var dangerousPatterns = [][2]string{
	{"line comment", `--(\s|$)`},
	{"block comment", `/\*.*\*/`},
	{"hash comment", `#(\s|$)`},

	{"stacked statement", `;\s*(DROP|DELETE|TRUNCATE|ALTER|CREATE|INSERT|UPDATE|GRANT)\s+`},
	{"union select", `UNION\s+(ALL\s+)?SELECT`},

	{"file access", `\bLOAD_FILE\s*\(|\bINTO\s+(OUT|DUMP)FILE\b`},
	{"timing", `\bSLEEP\s*\(|\bBENCHMARK\s*\(|PG_SLEEP\s*\(|WAITFOR\s+DELAY`},
	{"schema probe", `INFORMATION_SCHEMA|\bSQLITE_MASTER\b|\bMYSQL\.USER\b`},
	{"procedure call", `XP_CMDSHELL|SP_EXECUTESQL|\bEXEC(UTE)?\s*\(`},

	{"tautology", `\s+OR\s+1\s*=\s*1\b|\s+OR\s+'1'\s*=\s*'1'|\s+AND\s+1\s*=\s*0\b`},
}

// strictPatterns may reject legitimate fragments.
var strictPatterns = [][2]string{
	{"OR keyword", `\bOR\b`},
	{"UNION keyword", `\bUNION\b`},
	{"EXEC keyword", `\bEXEC(UTE)?\b`},
}

// ValidateQuery returns an error wrapping ErrUnsafeSQL when the fragment
// matches a dangerous pattern.
func (v *Validator) ValidateQuery(query string) error {
	normalized := strings.ToUpper(query)

	for _, p := range v.patterns {
		if p.re.MatchString(normalized) {
			return fmt.Errorf("%w: %s", ErrUnsafeSQL, p.name)
		}
	}

	return nil
}

func compilePatterns(defs [][2]string) []pattern {
	compiled := make([]pattern, 0, len(defs))
	for _, def := range defs {
		compiled = append(compiled, pattern{name: def[0], re: regexp.MustCompile(def[1])})
	}
	return compiled
}
