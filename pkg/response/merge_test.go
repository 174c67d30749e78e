package response

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	merged := Merge(
		map[string]any{"a": []any{1}, "b": 2},
		map[string]any{"a": []any{2}, "b": 3},
	)

	assert.Equal(t, map[string]any{"a": []any{1, 2}, "b": 3}, merged)
}

func TestMerge_Rules(t *testing.T) {
	tests := []struct {
		name     string
		existing map[string]any
		incoming map[string]any
		expected map[string]any
	}{
		{
			name:     "keys only in existing are kept",
			existing: map[string]any{"keep": "x"},
			incoming: map[string]any{"new": "y"},
			expected: map[string]any{"keep": "x", "new": "y"},
		},
		{
			name:     "lists concatenate without dedup",
			existing: map[string]any{"rows": []any{1, 2}},
			incoming: map[string]any{"rows": []any{2}},
			expected: map[string]any{"rows": []any{1, 2, 2}},
		},
		{
			name:     "typed row lists count as lists",
			existing: map[string]any{"rows": []map[string]any{{"Id": 1}}},
			incoming: map[string]any{"rows": []any{map[string]any{"Id": 2}}},
			expected: map[string]any{"rows": []any{map[string]any{"Id": 1}, map[string]any{"Id": 2}}},
		},
		{
			name:     "list replaced by non list",
			existing: map[string]any{"rows": []any{1}},
			incoming: map[string]any{"rows": "none"},
			expected: map[string]any{"rows": "none"},
		},
		{
			name:     "nested objects are replaced, not merged",
			existing: map[string]any{"meta": map[string]any{"a": 1, "b": 2}},
			incoming: map[string]any{"meta": map[string]any{"b": 3}},
			expected: map[string]any{"meta": map[string]any{"b": 3}},
		},
		{
			name:     "nil existing",
			existing: nil,
			incoming: map[string]any{"a": 1},
			expected: map[string]any{"a": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Merge(tt.existing, tt.incoming))
		})
	}
}

func TestMerge_DoesNotAliasInputs(t *testing.T) {
	existing := map[string]any{"rows": []any{1}}
	incoming := map[string]any{"rows": []any{2}}

	Merge(existing, incoming)

	assert.Equal(t, map[string]any{"rows": []any{1}}, existing)
	assert.Equal(t, map[string]any{"rows": []any{2}}, incoming)
}

func TestMergeBody(t *testing.T) {
	merged, err := MergeBody(json.RawMessage(`{"a":[1],"b":2,"big":12345678901234567890}`), map[string]any{"a": []any{2}, "b": 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":[1,2],"b":3,"big":12345678901234567890}`, string(merged))
}

func TestMergeBody_EmptyStored(t *testing.T) {
	for _, stored := range []json.RawMessage{nil, json.RawMessage(`null`), json.RawMessage(`  `)} {
		merged, err := MergeBody(stored, map[string]any{"a": 1})
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":1}`, string(merged))
	}
}

func TestMergeBody_NonObjects(t *testing.T) {
	merged, err := MergeBody(json.RawMessage(`{"a":1}`), []any{1, 2})
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2]`, string(merged))

	merged, err = MergeBody(json.RawMessage(`[1]`), map[string]any{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(merged))

	merged, err = MergeBody(json.RawMessage(`{"a":1}`), nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(merged))
}

func TestMergeBody_CorruptStored(t *testing.T) {
	_, err := MergeBody(json.RawMessage(`{"a":`), map[string]any{"a": 1})
	assert.Error(t, err)
}
