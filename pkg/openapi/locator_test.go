package openapi

import (
	"testing"

	"github.com/dukex/restflow/pkg/faults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schemasOf(t *testing.T, doc string) *Schemas {
	t.Helper()

	d, err := ParseDocument([]byte(doc))
	require.NoError(t, err)

	schemas, err := d.Schemas()
	require.NoError(t, err)

	return schemas
}

func TestLocate_QualifiedKeyAndScanAgree(t *testing.T) {
	byKey := schemasOf(t, `{"components": {"schemas": {
		"ns.A": {"x-object-alias": "ns.A", "properties": {"Id": {"x-attribute-alias": "id"}}}
	}}}`)
	byScan := schemasOf(t, `{"components": {"schemas": {
		"Other": {"type": "object"},
		"A1": {"x-object-alias": "ns.A", "properties": {"Id": {"x-attribute-alias": "id"}}}
	}}}`)

	viaKey, err := Locate(byKey, "ns.A", "A")
	require.NoError(t, err)

	viaScan, err := Locate(byScan, "ns.A", "A")
	require.NoError(t, err)

	assert.Equal(t, viaKey, viaScan)
}

func TestLocate_ShortKey(t *testing.T) {
	schemas := schemasOf(t, `{"components": {"schemas": {
		"A": {"x-object-alias": "ns.A", "properties": {"Id": {"x-attribute-alias": "id"}}}
	}}}`)

	node, err := Locate(schemas, "ns.A", "A")
	require.NoError(t, err)
	assert.True(t, node.IsEntity("ns.A"))

	// the same tree located by qualified key, short key and scan yields the same node
	scanned, err := Locate(schemas, "ns.A", "Unrelated")
	require.NoError(t, err)
	assert.Same(t, node, scanned)
}

func TestLocate_ShortKeyMismatch(t *testing.T) {
	schemas := schemasOf(t, `{"components": {"schemas": {
		"A": {"x-object-alias": "other.A", "properties": {"Id": {}}},
		"B": {"x-object-alias": "ns.A", "properties": {"Id": {}}}
	}}}`)

	_, err := Locate(schemas, "ns.A", "A")
	require.Error(t, err)

	assert.ErrorIs(t, err, faults.ErrBindingMismatch)
	assert.Equal(t, faults.KindSchemaBinding, faults.KindOf(err))
}

func TestLocate_FirstScanMatchWins(t *testing.T) {
	schemas := schemasOf(t, `{"components": {"schemas": {
		"First": {"x-object-alias": "ns.A", "properties": {"One": {}}},
		"Second": {"x-object-alias": "ns.A", "properties": {"Two": {}}}
	}}}`)

	node, err := Locate(schemas, "ns.A", "A")
	require.NoError(t, err)

	_, ok := node.Property("One")
	assert.True(t, ok)
}

func TestLocate_NotBound(t *testing.T) {
	schemas := schemasOf(t, `{"components": {"schemas": {"X": {"type": "object"}}}}`)

	_, err := Locate(schemas, "ns.A", "A")
	require.Error(t, err)
	assert.ErrorIs(t, err, faults.ErrSchemaNotBound)
	assert.Equal(t, 500, faults.StatusCode(err))

	_, err = Locate(NewSchemas(), "ns.A", "A")
	assert.ErrorIs(t, err, faults.ErrSchemaNotBound)
}

func TestExtractAttributeBindings(t *testing.T) {
	schemas := schemasOf(t, `{"components": {"schemas": {
		"ns.A": {"x-object-alias": "ns.A", "properties": {
			"Name": {"x-attribute-alias": "name"},
			"Shown": {"type": "string", "example": "illustrative"},
			"Total": {"x-attribute-alias": "orders.amount:sum"},
			"Page": {"x-placeholder": "request.query.page"}
		}}
	}}}`)

	node, err := Locate(schemas, "ns.A", "A")
	require.NoError(t, err)

	bindings, err := ExtractAttributeBindings(node)
	require.NoError(t, err)

	assert.Equal(t, AttributeBindings{
		{Property: "Name", Expression: "name"},
		{Property: "Total", Expression: "orders.amount:sum"},
	}, bindings)
	assert.Equal(t, []string{"Name", "Total"}, bindings.Properties())
	assert.Equal(t, []string{"name", "orders.amount:sum"}, bindings.Expressions())
}

func TestExtractAttributeBindings_NoProperties(t *testing.T) {
	for _, node := range []*Node{nil, {Kind: KindScalar}, {Kind: KindObject}} {
		_, err := ExtractAttributeBindings(node)
		require.Error(t, err)
		assert.ErrorIs(t, err, faults.ErrUnsupportedSchemaShape)
	}
}
