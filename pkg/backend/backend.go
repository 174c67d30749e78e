// Package backend reads entity rows for response assembly.
package backend

import (
	"context"
	"errors"
)

var (
	ErrUnknownEntity     = errors.New("unknown entity")
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// ProgressFunc receives human readable progress while a read runs. It may be nil.
type ProgressFunc func(message string)

// Report calls f when set.
func (f ProgressFunc) Report(message string) {
	if f != nil {
		f(message)
	}
}

// Attribute is one selected column: the response property and the opaque expression
// producing it.
type Attribute struct {
	Property   string
	Expression string
}

// Query describes a single entity read.
type Query struct {
	Entity     string
	Table      string
	Attributes []Attribute
	Filters    map[string]any
	Progress   ProgressFunc
}

// Reader returns the rows of an entity, one map per row keyed by attribute property.
type Reader interface {
	Read(ctx context.Context, query Query) ([]map[string]any, error)
}
