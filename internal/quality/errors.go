package quality

import "fmt"

// ValidationError reports a hard invariant violation during construction or
// deserialization. Field names the offending field; Value carries the value
// that was rejected (nil when the field was absent).
type ValidationError struct {
	Field string
	Value any
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("missing required field %q", e.Field)
	}
	return fmt.Sprintf("invalid value for %q: %v", e.Field, e.Value)
}

func invalidField(field string, value any) *ValidationError {
	return &ValidationError{Field: field, Value: value}
}

func missingField(field string) *ValidationError {
	return &ValidationError{Field: field}
}
