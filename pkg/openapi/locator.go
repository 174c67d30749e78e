package openapi

import (
	"fmt"

	"github.com/dukex/restflow/pkg/faults"
)

// AttributeBinding ties a property to an opaque backend attribute expression.
type AttributeBinding struct {
	Property   string
	Expression string
}

type AttributeBindings []AttributeBinding

func (b AttributeBindings) Properties() []string {
	out := make([]string, 0, len(b))
	for _, binding := range b {
		out = append(out, binding.Property)
	}

	return out
}

func (b AttributeBindings) Expressions() []string {
	out := make([]string, 0, len(b))
	for _, binding := range b {
		out = append(out, binding.Expression)
	}

	return out
}

// Locate finds the schema bound to a backend entity.
//
// A schema keyed by the qualified alias is used as is. A schema keyed by the short alias must
// carry an entity marker equal to the qualified alias. Otherwise the first top-level schema
// whose entity marker equals the qualified alias wins.
func Locate(schemas *Schemas, qualifiedAlias, shortAlias string) (*Node, error) {
	if node, ok := schemas.Get(qualifiedAlias); ok {
		return node, nil
	}

	if node, ok := schemas.Get(shortAlias); ok {
		if node.IsEntity(qualifiedAlias) {
			return node, nil
		}

		return nil, faults.New("Locate", faults.ErrBindingMismatch,
			fmt.Sprintf("schema %q is not bound to entity %q", shortAlias, qualifiedAlias))
	}

	for _, entry := range schemas.All() {
		if entry.Node.IsEntity(qualifiedAlias) {
			return entry.Node, nil
		}
	}

	return nil, faults.New("Locate", faults.ErrSchemaNotBound,
		fmt.Sprintf("no schema is bound to entity %q", qualifiedAlias))
}

// ExtractAttributeBindings lists the attribute-bound properties of node in declaration order.
func ExtractAttributeBindings(node *Node) (AttributeBindings, error) {
	if node == nil || len(node.Properties) == 0 {
		return nil, faults.New("ExtractAttributeBindings", faults.ErrUnsupportedSchemaShape,
			"entity schema declares no properties")
	}

	bindings := AttributeBindings{}

	for _, p := range node.Properties {
		if p.Schema.Binding == BindingAttribute {
			bindings = append(bindings, AttributeBinding{Property: p.Name, Expression: p.Schema.Alias})
		}
	}

	return bindings, nil
}
