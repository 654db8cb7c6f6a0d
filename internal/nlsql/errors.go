package nlsql

import "fmt"

// GenerationError reports that no executable query could be produced from a
// natural-language request. Reason is safe to show to the end user.
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sql generation failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("sql generation failed: %s", e.Reason)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// UnsafeQueryError reports that a submitted SQL statement was rejected by the
// safety validator. The statement is never executed.
type UnsafeQueryError struct {
	SQL string
}

func (e *UnsafeQueryError) Error() string {
	return "query rejected: only read-only SELECT statements are allowed"
}
