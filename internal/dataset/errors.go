package dataset

import "fmt"

// ShapeError reports malformed input: missing fields or columns, invalid
// entities, empty collections or a matrix that does not match the population.
type ShapeError struct {
	Message string
	Cause   error
}

func (e *ShapeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("data shape error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("data shape error: %s", e.Message)
}

func (e *ShapeError) Unwrap() error {
	return e.Cause
}

// Shapef builds a ShapeError with a formatted message.
func Shapef(format string, args ...any) *ShapeError {
	return &ShapeError{Message: fmt.Sprintf(format, args...)}
}
