package messaging

import "fmt"

// ValidationError reports a field value that fails a type, required-presence,
// closed-choice, or decode constraint at construction time. A validation
// failure rejects the entire construction; no structure is partially built.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a new ValidationError for the given field path.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// prefixed returns a copy of the error with a parent structure name
// prepended to the field path.
func (e *ValidationError) prefixed(parent string) *ValidationError {
	return &ValidationError{Field: parent + "." + e.Field, Reason: e.Reason}
}
