package domain

import (
	"errors"
	"strings"
)

var (
	ErrColumnNotFound  = errors.New("column not found")
	ErrDefaultColumn   = errors.New("default column cannot be deactivated")
	ErrLabelNotFound   = errors.New("label not found")
	ErrNotSnoozed      = errors.New("email is not snoozed")
	ErrEmailSnoozed    = errors.New("email is snoozed")
	ErrProviderFailure = errors.New("mail provider request failed")
)

// FieldError describes one invalid request field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned before any persistence when a request is malformed
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field error
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns nil when no field errors were collected
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NewValidationError builds a single-field validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// IsValidationError reports whether err carries field errors
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
