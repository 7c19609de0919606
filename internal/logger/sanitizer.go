package logger

import (
	"regexp"
	"strings"
)

// DefaultMask replaces redacted literals in logged SQL.
const DefaultMask = "'***REDACTED***'"

// maxLoggedSQL caps the length of a statement written to the log.
const maxLoggedSQL = 2000

// literal matches a quoted SQL string (backslash or doubled-quote escapes) or a number.
const literal = `'(?:[^'\\]|\\.|'')*'|-?[0-9][0-9.]*`

var stringLiteral = regexp.MustCompile(`'(?:[^'\\]|\\.|'')*'`)

// Sanitizer masks literals bound to sensitive columns in SQL text before it is logged.
// Statements carry their values inline, so masking works on the text itself.
type Sanitizer struct {
	sensitiveFields []string
	maskValue       string
	// comparisons match "<field> <op> <literal>" for every sensitive field
	comparisons []*regexp.Regexp
	mentions    []*regexp.Regexp
}

// NewSanitizer creates a sanitizer for the given sensitive column names.
// If no fields are provided, a default set of common sensitive names is used.
func NewSanitizer(sensitiveFields []string) *Sanitizer {
	if len(sensitiveFields) == 0 {
		sensitiveFields = []string{
			"password", "passwd", "pwd",
			"token", "api_key", "apikey", "api_token",
			"secret", "auth", "authorization",
			"credit_card", "card_number", "cvv", "cvc",
			"ssn", "social_security",
			"private_key", "priv_key",
		}
	}

	comparisons := make([]*regexp.Regexp, 0, len(sensitiveFields))
	mentions := make([]*regexp.Regexp, 0, len(sensitiveFields))
	for _, field := range sensitiveFields {
		name := "[`\"]?" + regexp.QuoteMeta(field) + "[`\"]?"
		comparisons = append(comparisons, regexp.MustCompile(
			`(?i)((?:^|[^A-Za-z0-9_])`+name+`\s*(?:=|<>|!=|<=|>=|<|>|\bLIKE\b)\s*)(`+literal+`)`))
		mentions = append(mentions, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(field)+`\b`))
	}

	return &Sanitizer{
		sensitiveFields: sensitiveFields,
		maskValue:       DefaultMask,
		comparisons:     comparisons,
		mentions:        mentions,
	}
}

// MaskSQL returns sql with every literal compared to or assigned to a sensitive
// column replaced by the mask. Column-list inserts (VALUES form) that mention a
// sensitive column get every string literal masked, since positions are not tracked.
// The original string is not modified.
func (s *Sanitizer) MaskSQL(sql string) string {
	masked := sql
	for _, re := range s.comparisons {
		masked = re.ReplaceAllString(masked, "${1}"+s.maskValue)
	}

	if strings.Contains(strings.ToUpper(masked), " VALUES ") && s.mentionsSensitive(masked) {
		masked = stringLiteral.ReplaceAllString(masked, s.maskValue)
	}

	if len(masked) > maxLoggedSQL {
		return masked[:maxLoggedSQL] + "..."
	}
	return masked
}

func (s *Sanitizer) mentionsSensitive(sql string) bool {
	for _, re := range s.mentions {
		if re.MatchString(sql) {
			return true
		}
	}
	return false
}
