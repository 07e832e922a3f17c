package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidSchema is returned when a model definition is invalid.
	ErrInvalidSchema = errors.New("schema: invalid schema")

	// ErrModelNotFound is returned when a model name is not registered.
	ErrModelNotFound = errors.New("schema: model not found")

	// ErrValidation is returned when an entity fails validation.
	ErrValidation = errors.New("schema: validation failed")
)

// Error describes an invalid model definition.
type Error struct {
	Model   string // Model name
	Field   string // Field name (if applicable)
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("schema: invalid model")
	if e.Model != "" {
		b.WriteString(" ")
		b.WriteString(e.Model)
	}
	if e.Field != "" {
		b.WriteString(" field ")
		b.WriteString(e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether the target matches ErrInvalidSchema.
func (e *Error) Is(target error) bool { return target == ErrInvalidSchema }

// NotFoundError is returned by Registry.Lookup for unknown model names.
type NotFoundError struct {
	Model string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("schema: model %q not found", e.Model)
}

// Is reports whether the target matches ErrModelNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrModelNotFound }

// ValidationError is returned when a field value fails validation.
type ValidationError struct {
	Field string // qualified field name.
	Err   error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema: validator failed for field %q: %v", e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error { return e.Err }

// Is reports whether the target matches ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}
