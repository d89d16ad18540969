package registration

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared between the service and its store implementations.
// Controllers map these to HTTP codes; the raw driver error never leaves the
// server-side log.
var (
	// ErrNotFound means the referenced registration id does not exist.
	ErrNotFound = errors.New("registration not found")

	// ErrDuplicateNumber means an insert collided on registration_number.
	ErrDuplicateNumber = errors.New("duplicate registration number")

	// ErrNumbersExhausted means the bounded retry budget for number
	// generation ran out. Operator-visible: should alert, not just log.
	ErrNumbersExhausted = errors.New("registration number retries exhausted")

	// ErrInvalidTransition means the requested status change is not
	// reachable from the record's current status.
	ErrInvalidTransition = errors.New("invalid payment status transition")

	// ErrStaleStatus means a concurrent update changed the status between
	// read and write. The caller lost the race and must not overwrite.
	ErrStaleStatus = errors.New("payment status changed concurrently")
)

// Field error reasons.
const (
	ReasonRequired = "required"
	ReasonFormat   = "format"
	ReasonType     = "type"
)

// FieldError identifies one violated submission field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError carries the complete set of violated fields for a
// submission, collected in one pass.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, fmt.Sprintf("%s (%s)", f.Field, f.Reason))
	}
	return "validation failed: " + strings.Join(names, ", ")
}

// FieldNames returns the violated field names in report order.
func (e *ValidationError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return names
}

func (e *ValidationError) add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

func (e *ValidationError) has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}
