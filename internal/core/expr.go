package core

// Expr is pre-formatted SQL text. Builders insert it verbatim wherever an
// identifier or a value is expected; it is never quoted or escaped again.
type Expr string

// SQLString implements dialects.SQLStringer.
func (e Expr) SQLString() string {
	return string(e)
}

// String returns the SQL text.
func (e Expr) String() string {
	return string(e)
}
