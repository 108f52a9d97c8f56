package state

import (
	"errors"
	"fmt"
)

// ValidationError rejects a mutation before any state changes. The
// operation is a no-op; callers surface the reason inline.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}
