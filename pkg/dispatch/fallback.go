package dispatch

import (
	"encoding/json"

	"github.com/dukex/restflow/pkg/models"
	"github.com/dukex/restflow/pkg/openapi"
)

var emptyObject = json.RawMessage(`{}`)

// fallbackBody is the body answered when no step populated one: the documented example of
// the matched operation, then the first defaultResponse found in the document, then {}.
func fallbackBody(document []byte, method string, candidates ...string) json.RawMessage {
	if models.IsNullJSON(document) {
		return emptyObject
	}

	doc, err := openapi.ParseDocument(document)
	if err != nil {
		return emptyObject
	}

	if operation, ok := doc.Operation(method, candidates...); ok {
		if example, ok := operation.Example(); ok {
			return example
		}
	}

	if found, ok := openapi.FindDefaultResponse(document); ok {
		return found
	}

	return emptyObject
}
