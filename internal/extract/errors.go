package extract

import "fmt"

// ErrorKind classifies extraction failures. Extraction errors are scoped to
// one table or key-value: the pipeline abandons that table and continues
// with independent tables in the same file.
type ErrorKind string

const (
	ErrMissingCell   ErrorKind = "missing_cell"
	ErrTitleNotFound ErrorKind = "title_not_found"
	ErrTableNotFound ErrorKind = "table_not_found"
	ErrTypeCoercion  ErrorKind = "type_coercion"
	ErrCalcMismatch  ErrorKind = "calculation_type_mismatch"
)

// Error is an extraction failure with its worksheet location. Row and Col
// are zero-based and -1 when not applicable.
type Error struct {
	Kind   ErrorKind
	Table  string // logical table or key-value name
	Column string
	Row    int
	Col    int
	Detail string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("extract %s", e.Kind)

	if e.Table != "" {
		msg += fmt.Sprintf(" [%s]", e.Table)
	}

	if e.Column != "" {
		msg += fmt.Sprintf(" column %q", e.Column)
	}

	if e.Row >= 0 {
		msg += fmt.Sprintf(" row %d", e.Row)
	}

	if e.Col >= 0 {
		msg += fmt.Sprintf(" col %d", e.Col)
	}

	if e.Detail != "" {
		msg += ": " + e.Detail
	}

	return msg
}

func newError(kind ErrorKind, table string, row, col int, format string, args ...any) *Error {
	return &Error{
		Kind:   kind,
		Table:  table,
		Row:    row,
		Col:    col,
		Detail: fmt.Sprintf(format, args...),
	}
}
