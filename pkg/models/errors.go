package models

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownField indicates a partial update named a field that is not persisted.
	ErrUnknownField = errors.New("unknown field")

	// ErrInvalidFieldValue indicates a partial update carried a value of the wrong type.
	ErrInvalidFieldValue = errors.New("invalid field value")

	// ErrInvalidTransition indicates a request status change that is not strictly forward.
	ErrInvalidTransition = errors.New("invalid status transition")
)

type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
