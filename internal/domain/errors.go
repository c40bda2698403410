package domain

import (
	"errors"
	"fmt"
)

// Request validation failures. Both map to 400 responses.
var (
	ErrMissingField = errors.New("missing required field")
	ErrInvalidInput = errors.New("invalid input value")
)

// Infrastructure and model failures. All map to 500 responses.
var (
	ErrMissingArtifact = errors.New("missing artifact")
	ErrSchemaMismatch  = errors.New("artifact schema mismatch")
	ErrInference       = errors.New("inference failure")
)

// FieldError ties a validation failure to the form field that caused it.
type FieldError struct {
	Field string
	Err   error // ErrMissingField or ErrInvalidInput
	Cause error // optional underlying parse error
}

func (e *FieldError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v: %v", e.Field, e.Err, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is/errors.As.
func (e *FieldError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func missingField(field string) error {
	return &FieldError{Field: field, Err: ErrMissingField}
}

func invalidInput(field string, cause error) error {
	return &FieldError{Field: field, Err: ErrInvalidInput, Cause: cause}
}
