package misty

import "fmt"

// ValidationError reports a parameter that was rejected client-side, before
// any request reached the robot.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("misty: invalid %s: %s", e.Field, e.Reason)
}

func validationErrorf(field string, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
