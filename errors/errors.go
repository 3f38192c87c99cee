package errors

import "fmt"

// RowParseError wraps a specific error with the row it occurred on.
// Row errors are counted and skipped; they never abort a run.
type RowParseError struct {
	Line   int
	Record []string
	Err    error
}

func (e *RowParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %v (row: %v)", e.Line, e.Err, e.Record)
}

func (e *RowParseError) Unwrap() error {
	return e.Err
}

// Define specific error types for better error handling
var (
	ErrMissingCallID    = fmt.Errorf("missing call identifier")
	ErrInvalidCauseCode = fmt.Errorf("invalid cause code")
	ErrInvalidTimestamp = fmt.Errorf("invalid timestamp")
	ErrInvalidDuration  = fmt.Errorf("invalid duration")
	ErrShortRow         = fmt.Errorf("row has fewer columns than header")
	ErrUnknownSchema    = fmt.Errorf("header matches neither CDR nor CMR schema")
)
