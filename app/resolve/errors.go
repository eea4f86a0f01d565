package resolve

import (
	"fmt"
)

// ValidationError marks a malformed observation. It is surfaced immediately
// and never retried; callers record the item as failed within a partial run.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid observation: %s %s", e.Field, e.Reason)
}

func requireNonEmpty(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Reason: "is empty"}
	}
	return nil
}
