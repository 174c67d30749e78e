package response

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Merge combines a partial body with the stored one, one level deep. Lists under the same
// key are concatenated, any other value under a shared key is replaced by incoming, and keys
// only present in existing are kept. Nested values are never merged.
func Merge(existing, incoming map[string]any) map[string]any {
	out := make(map[string]any, len(existing)+len(incoming))

	for k, v := range existing {
		out[k] = v
	}

	for k, v := range incoming {
		if current, ok := out[k]; ok {
			left, leftIsList := asList(current)
			right, rightIsList := asList(v)

			if leftIsList && rightIsList {
				merged := make([]any, 0, len(left)+len(right))
				merged = append(merged, left...)
				out[k] = append(merged, right...)

				continue
			}
		}

		out[k] = v
	}

	return out
}

// MergeBody merges partial into a stored JSON body. A partial object is merged with a stored
// object; any other non-nil partial replaces the stored body.
func MergeBody(stored json.RawMessage, partial any) (json.RawMessage, error) {
	if partial == nil {
		return stored, nil
	}

	incoming, isObject := partial.(map[string]any)
	if !isObject {
		return json.Marshal(partial)
	}

	existing := map[string]any{}

	if len(bytes.TrimSpace(stored)) > 0 {
		var current any

		decoder := json.NewDecoder(bytes.NewReader(stored))
		decoder.UseNumber()

		if err := decoder.Decode(&current); err != nil {
			return nil, fmt.Errorf("failed to decode stored response body: %w", err)
		}

		if object, ok := current.(map[string]any); ok {
			existing = object
		}
	}

	return json.Marshal(Merge(existing, incoming))
}

func asList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case []map[string]any:
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = item
		}

		return out, true
	default:
		return nil, false
	}
}
