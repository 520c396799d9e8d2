package recommend

import (
	"errors"
	"fmt"
)

// ErrNotFound matches any NotFoundError with errors.Is.
var ErrNotFound = errors.New("not found")

// ErrNoSnapshot is returned by an Engine that has not been given a snapshot yet.
var ErrNoSnapshot = errors.New("no snapshot loaded")

// NotFoundError reports a user id that is absent from the population. It is
// a user-facing condition, not a failure of the process.
type NotFoundError struct {
	UserID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("user %d not found", e.UserID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
