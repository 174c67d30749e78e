// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrRouteNotFound indicates a route was not found by the given identifier.
	ErrRouteNotFound = errors.New("route not found")

	// ErrRequestNotFound indicates a request record was not found by the given identifier.
	ErrRequestNotFound = errors.New("request record not found")

	// ErrFlowNotFound indicates a flow was not found by the given identifier.
	ErrFlowNotFound = errors.New("flow not found")

	// ErrRequestExists indicates a request record with the same identifier was already created.
	ErrRequestExists = errors.New("request record already exists")
)

// RecordError wraps storage errors with the entity and operation involved.
type RecordError struct {
	Op     string // Operation being performed (e.g., "GetByID", "Save", "Update")
	Entity string // "route", "request" or "flow"
	ID     string
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for record errors.
func (e *RecordError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRouteError creates a new route error with context.
func NewRouteError(op, id string, err error) *RecordError {
	return &RecordError{Op: op, Entity: "route", ID: id, Err: err}
}

// NewRequestError creates a new request record error with context.
func NewRequestError(op, id string, err error) *RecordError {
	return &RecordError{Op: op, Entity: "request", ID: id, Err: err}
}

// NewFlowError creates a new flow error with context.
func NewFlowError(op, id string, err error) *RecordError {
	return &RecordError{Op: op, Entity: "flow", ID: id, Err: err}
}

// IsRouteNotFound checks if an error indicates a route was not found.
func IsRouteNotFound(err error) bool {
	return errors.Is(err, ErrRouteNotFound)
}

// IsRequestNotFound checks if an error indicates a request record was not found.
func IsRequestNotFound(err error) bool {
	return errors.Is(err, ErrRequestNotFound)
}

// IsFlowNotFound checks if an error indicates a flow was not found.
func IsFlowNotFound(err error) bool {
	return errors.Is(err, ErrFlowNotFound)
}
