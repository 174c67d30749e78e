// Package openapi interprets the parts of an OpenAPI document that drive response assembly:
// schema nodes, their binding markers, and the operations declared under paths.
package openapi

import (
	"fmt"
	"strings"

	"github.com/dukex/restflow/pkg/faults"
	"github.com/tidwall/gjson"
)

// Binding markers recognized on schema nodes.
const (
	MarkerEntity      = "x-object-alias"
	MarkerAttribute   = "x-attribute-alias"
	MarkerPlaceholder = "x-placeholder"
)

const schemaRefPrefix = "#/components/schemas/"

// Kind is the structural classification of a schema node.
type Kind int

const (
	KindScalar Kind = iota
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "scalar"
	}
}

// Binding is the marker a node carries, if any.
type Binding int

const (
	BindingNone Binding = iota
	BindingEntity
	BindingAttribute
	BindingPlaceholder
)

var markerBindings = []struct {
	marker  string
	binding Binding
}{
	{MarkerEntity, BindingEntity},
	{MarkerAttribute, BindingAttribute},
	{MarkerPlaceholder, BindingPlaceholder},
}

// Node is a schema fragment classified once at parse time.
type Node struct {
	Kind Kind
	// Type is the declared JSON schema type, empty when undeclared.
	Type    string
	Binding Binding
	// Alias is the marker value: an entity alias, an attribute expression or a placeholder name.
	Alias      string
	Properties []Property
	Items      *Node
}

// Property is a named object member; declaration order is preserved.
type Property struct {
	Name   string
	Schema *Node
}

// IsEntity reports whether the node is bound to the given entity alias.
func (n *Node) IsEntity(alias string) bool {
	return n != nil && n.Binding == BindingEntity && n.Alias == alias
}

// Property returns the named property schema.
func (n *Node) Property(name string) (*Node, bool) {
	for _, p := range n.Properties {
		if p.Name == name {
			return p.Schema, true
		}
	}

	return nil, false
}

// ParseSchema classifies a standalone schema. Local references are resolved against schemas,
// which may be the zero Result when the fragment has none.
func ParseSchema(raw []byte, schemas gjson.Result) (*Node, error) {
	if !gjson.ValidBytes(raw) {
		return nil, faults.New("ParseSchema", faults.ErrUnsupportedSchemaShape, "schema is not valid JSON")
	}

	p := &parser{schemas: schemas, resolving: map[string]bool{}}

	return p.parse(gjson.ParseBytes(raw), "#")
}

type parser struct {
	schemas   gjson.Result
	resolving map[string]bool
}

func (p *parser) parse(value gjson.Result, pointer string) (*Node, error) {
	if !value.IsObject() {
		return &Node{Kind: KindScalar}, nil
	}

	fields := map[string]gjson.Result{}

	value.ForEach(func(key, v gjson.Result) bool {
		fields[key.String()] = v

		return true
	})

	binding, alias, err := classifyBinding(fields, pointer)
	if err != nil {
		return nil, err
	}

	if ref, ok := fields["$ref"]; ok {
		node, err := p.resolve(ref.String(), pointer)
		if err != nil {
			return nil, err
		}

		if binding != BindingNone {
			bound := *node
			bound.Binding = binding
			bound.Alias = alias
			node = &bound
		}

		return node, nil
	}

	node := &Node{
		Type:    declaredType(fields["type"]),
		Binding: binding,
		Alias:   alias,
	}

	properties, hasProperties := fields["properties"]
	items, hasItems := fields["items"]

	switch {
	case node.Type == "object" || (node.Type == "" && hasProperties):
		node.Kind = KindObject
	case node.Type == "array" || (node.Type == "" && hasItems):
		node.Kind = KindArray
	default:
		node.Kind = KindScalar
	}

	if node.Kind == KindObject && properties.IsObject() {
		var parseErr error

		properties.ForEach(func(key, v gjson.Result) bool {
			child, err := p.parse(v, pointer+"/properties/"+escapePointer(key.String()))
			if err != nil {
				parseErr = err

				return false
			}

			node.Properties = append(node.Properties, Property{Name: key.String(), Schema: child})

			return true
		})

		if parseErr != nil {
			return nil, parseErr
		}
	}

	if node.Kind == KindArray && hasItems {
		node.Items, err = p.parse(items, pointer+"/items")
		if err != nil {
			return nil, err
		}
	}

	return node, nil
}

// resolve follows a local component reference. Remote references and reference cycles
// resolve to an unbound scalar, which contributes nothing to a response.
func (p *parser) resolve(ref string, pointer string) (*Node, error) {
	if !strings.HasPrefix(ref, schemaRefPrefix) {
		return &Node{Kind: KindScalar}, nil
	}

	name := unescapePointer(strings.TrimPrefix(ref, schemaRefPrefix))
	if p.resolving[name] {
		return &Node{Kind: KindScalar}, nil
	}

	target, ok := lookup(p.schemas, name)
	if !ok {
		return nil, faults.New("ParseSchema", faults.ErrUnsupportedSchemaShape,
			fmt.Sprintf("%s: unresolved reference %s", pointer, ref))
	}

	p.resolving[name] = true
	defer delete(p.resolving, name)

	return p.parse(target, schemaRefPrefix+escapePointer(name))
}

func classifyBinding(fields map[string]gjson.Result, pointer string) (Binding, string, error) {
	binding := BindingNone
	alias := ""

	for _, m := range markerBindings {
		value, ok := fields[m.marker]
		if !ok {
			continue
		}

		if binding != BindingNone {
			return BindingNone, "", faults.New("ParseSchema", faults.ErrUnsupportedSchemaShape,
				fmt.Sprintf("%s: binding markers are mutually exclusive", pointer))
		}

		if value.Type != gjson.String {
			return BindingNone, "", faults.New("ParseSchema", faults.ErrUnsupportedSchemaShape,
				fmt.Sprintf("%s: %s must be a string", pointer, m.marker))
		}

		binding = m.binding
		alias = value.String()
	}

	return binding, alias, nil
}

// declaredType reads "type", taking the first non-null entry of a type list.
func declaredType(value gjson.Result) string {
	if value.IsArray() {
		for _, t := range value.Array() {
			if t.String() != "null" {
				return t.String()
			}
		}

		return ""
	}

	return value.String()
}

// lookup finds a direct member by exact key without interpreting path syntax.
func lookup(object gjson.Result, key string) (gjson.Result, bool) {
	var (
		found gjson.Result
		ok    bool
	)

	object.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			found, ok = v, true

			return false
		}

		return true
	})

	return found, ok
}

func escapePointer(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~", "~0"), "/", "~1")
}

func unescapePointer(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~1", "/"), "~0", "~")
}
