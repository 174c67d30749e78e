package read

import (
	"github.com/dukex/restflow/pkg/backend"
	"github.com/dukex/restflow/pkg/protocol"
)

// ActionFactory creates read actions sharing one backend reader.
type ActionFactory struct {
	reader backend.Reader
	writer protocol.ResponseWriter
}

func NewActionFactory(reader backend.Reader, writer protocol.ResponseWriter) *ActionFactory {
	return &ActionFactory{reader: reader, writer: writer}
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.reader, f.writer)
}

func (*ActionFactory) ID() string {
	return "read"
}

func (*ActionFactory) Name() string {
	return "Read entity"
}

func (*ActionFactory) Description() string {
	return "Reads backend rows for an entity bound in the route contract and merges them into the response body."
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"entity": map[string]any{
				"type":        "string",
				"description": "Qualified alias of the backend entity, matched against x-object-alias.",
				"examples":    []string{"crm.Customer"},
			},
			"table": map[string]any{
				"type":        "string",
				"description": "Table read by the SQL backend. Defaults to the entity.",
			},
			"filters": map[string]any{
				"type": "object",
				"description": "Column to placeholder expression. A filter resolving to an empty value fails the read " +
					"unless its column is listed in optional_filters.",
				"additionalProperties": map[string]any{
					"type": "string",
				},
				"examples": []map[string]string{
					{"id": "request.path.id"},
					{"tenant_id": `{{ index . "request.header.X-Tenant" }}`},
				},
			},
			"optional_filters": map[string]any{
				"type":        "array",
				"description": "Filter columns skipped when they resolve to an empty value.",
				"items":       map[string]any{"type": "string"},
				"examples":    [][]string{{"id"}},
			},
			"response_schema": map[string]any{
				"description": "Name of a components schema, or an inline schema, used to build the body. " +
					"Defaults to the documented success response of the matched operation.",
				"type": []string{"string", "object"},
			},
			"input": map[string]any{
				"type":        "string",
				"description": "Flow input holding the request. Defaults to the flow's declared input.",
			},
		},
		"required":             []string{"entity"},
		"additionalProperties": false,
	}
}
