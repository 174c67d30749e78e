// Package response assembles JSON response bodies from contract schemas and backend rows.
package response

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dukex/restflow/pkg/openapi"
)

var ErrPlaceholderCast = errors.New("placeholder value does not match the declared type")

// PlaceholderResolver evaluates a placeholder expression to its string value.
type PlaceholderResolver interface {
	Resolve(expr string) (string, error)
}

// Build walks node and produces the part of the body this invocation can populate.
//
// A node bound to boundAlias yields rows. Arrays wrap a non-empty item result in a single
// element list. Objects populate, in declaration order, properties bound to boundAlias,
// placeholder properties and nested unbound arrays or objects. Everything else is left out.
// Build returns nil when nothing could be populated.
func Build(node *openapi.Node, rows any, boundAlias string, placeholders PlaceholderResolver) (any, error) {
	b := &builder{rows: normalizeRows(rows), alias: boundAlias, placeholders: placeholders}

	return b.build(node)
}

type builder struct {
	rows         any
	alias        string
	placeholders PlaceholderResolver
}

func (b *builder) build(node *openapi.Node) (any, error) {
	if node == nil {
		return nil, nil
	}

	if node.IsEntity(b.alias) {
		return b.rows, nil
	}

	switch node.Kind {
	case openapi.KindArray:
		item, err := b.build(node.Items)
		if err != nil {
			return nil, err
		}

		if IsEmpty(item) {
			return nil, nil
		}

		return []any{item}, nil
	case openapi.KindObject:
		return b.object(node)
	default:
		return nil, nil
	}
}

func (b *builder) object(node *openapi.Node) (any, error) {
	out := map[string]any{}

	for _, p := range node.Properties {
		schema := p.Schema

		switch {
		case schema.IsEntity(b.alias):
			out[p.Name] = b.rows
		case schema.Binding == openapi.BindingPlaceholder:
			value, err := b.placeholder(schema)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", p.Name, err)
			}

			out[p.Name] = value
		case schema.Binding == openapi.BindingNone &&
			(schema.Kind == openapi.KindArray || schema.Kind == openapi.KindObject):
			value, err := b.build(schema)
			if err != nil {
				return nil, err
			}

			if !IsEmpty(value) {
				out[p.Name] = value
			}
		}
	}

	if len(out) == 0 {
		return nil, nil
	}

	return out, nil
}

func (b *builder) placeholder(node *openapi.Node) (any, error) {
	if b.placeholders == nil {
		return nil, nil
	}

	value, err := b.placeholders.Resolve(node.Alias)
	if err != nil {
		return nil, err
	}

	if value == "" {
		return nil, nil
	}

	switch node.Type {
	case "integer":
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrPlaceholderCast, value)
		}

		return n, nil
	case "boolean":
		if v, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return v, nil
		}

		return true, nil
	default:
		return value, nil
	}
}

// IsEmpty reports whether v carries nothing: nil, an empty object or an empty list.
func IsEmpty(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(value) == 0
	case []any:
		return len(value) == 0
	case []map[string]any:
		return len(value) == 0
	default:
		return false
	}
}

func normalizeRows(rows any) any {
	if list, ok := rows.([]map[string]any); ok {
		out := make([]any, len(list))
		for i, row := range list {
			out[i] = row
		}

		return out
	}

	return rows
}
