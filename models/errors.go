package models

import (
	"errors"
	"strings"
)

// ErrNotAuthenticated is returned by any operation that needs a signed in user.
var ErrNotAuthenticated = errors.New("not authenticated")

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string
	Rule    string
	Message string
}

// ValidationError is a client-side schema rejection. No request was sent.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Field returns the error for the named field, if any.
func (e *ValidationError) Field(name string) (FieldError, bool) {
	for _, f := range e.Fields {
		if f.Field == name {
			return f, true
		}
	}
	return FieldError{}, false
}

func NewValidationError(field, rule, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Rule: rule, Message: message}}}
}
