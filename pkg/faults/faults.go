// Package faults classifies request processing failures and maps them to HTTP status codes.
package faults

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the classification of a failure.
type Kind int

const (
	KindExecution Kind = iota
	KindRouting
	KindValidation
	KindUnsupportedInput
	KindSchemaBinding
	KindUnsupportedSchemaShape
)

var kindNames = map[Kind]string{
	KindExecution:              "execution_error",
	KindRouting:                "routing_error",
	KindValidation:             "validation_error",
	KindUnsupportedInput:       "unsupported_input",
	KindSchemaBinding:          "schema_binding_error",
	KindUnsupportedSchemaShape: "unsupported_schema_shape",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return kindNames[KindExecution]
}

// StatusCode returns the HTTP status answered for failures of this kind.
func (k Kind) StatusCode() int {
	switch k {
	case KindRouting:
		return http.StatusNotFound
	case KindValidation, KindUnsupportedInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var (
	// ErrRouteNotFound indicates no stored route prefix matches the request path.
	ErrRouteNotFound = errors.New("route not found")

	// ErrInvalidDocument indicates a document does not satisfy its JSON schema.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrUnsupportedInput indicates a flow was invoked without an HTTP request input.
	ErrUnsupportedInput = errors.New("flow input is not an http request")

	// ErrSchemaNotBound indicates no schema in the contract is bound to the entity.
	ErrSchemaNotBound = errors.New("entity is not bound to any schema")

	// ErrBindingMismatch indicates the schema found by name is bound to another entity.
	ErrBindingMismatch = errors.New("schema is bound to a different entity")

	// ErrFilterValueMissing indicates a required read filter resolved to an empty value.
	ErrFilterValueMissing = errors.New("filter value missing")

	// ErrUnsupportedSchemaShape indicates a schema without declared properties or with conflicting markers.
	ErrUnsupportedSchemaShape = errors.New("unsupported schema shape")
)

var sentinelKinds = []struct {
	err  error
	kind Kind
}{
	{ErrRouteNotFound, KindRouting},
	{ErrInvalidDocument, KindValidation},
	{ErrFilterValueMissing, KindValidation},
	{ErrUnsupportedInput, KindUnsupportedInput},
	{ErrSchemaNotBound, KindSchemaBinding},
	{ErrBindingMismatch, KindSchemaBinding},
	{ErrUnsupportedSchemaShape, KindUnsupportedSchemaShape},
}

// Error wraps a classified failure with the operation that raised it.
type Error struct {
	Op      string // Operation being performed (e.g., "Resolve", "Locate", "Invoke")
	Kind    Kind
	Message string // Additional context message
	Err     error  // Underlying error
	Body    any    // Structured response body, when the failure defines one
}

func (e *Error) Error() string {
	if e.Message != "" && e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}

	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// New creates a classified error. The kind is derived from err when it wraps a known sentinel.
func New(op string, err error, message string) *Error {
	return &Error{
		Op:      op,
		Kind:    KindOf(err),
		Message: message,
		Err:     err,
	}
}

// KindOf classifies err; unknown failures are execution errors.
func KindOf(err error) Kind {
	if err == nil {
		return KindExecution
	}

	var fault *Error
	if errors.As(err, &fault) {
		return fault.Kind
	}

	for _, s := range sentinelKinds {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}

	return KindExecution
}

// StatusCode returns the HTTP status derived from the classification of err.
func StatusCode(err error) int {
	return KindOf(err).StatusCode()
}

// BodyOf returns the structured response body carried by err, if any.
func BodyOf(err error) (any, bool) {
	var fault *Error
	if errors.As(err, &fault) && fault.Body != nil {
		return fault.Body, true
	}

	return nil, false
}

// IsRouting checks if an error indicates no route matched.
func IsRouting(err error) bool {
	return KindOf(err) == KindRouting
}

// IsValidation checks if an error is a contract validation failure.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}
