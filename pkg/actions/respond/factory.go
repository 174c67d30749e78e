package respond

import "github.com/dukex/restflow/pkg/protocol"

type ActionFactory struct {
	writer protocol.ResponseWriter
}

func NewActionFactory(writer protocol.ResponseWriter) *ActionFactory {
	return &ActionFactory{writer: writer}
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.writer)
}

func (*ActionFactory) ID() string {
	return "respond"
}

func (*ActionFactory) Name() string {
	return "Respond"
}

func (*ActionFactory) Description() string {
	return "Merges a static body into the response and sets response headers. String values support templating."
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"body": map[string]any{
				"type":        "object",
				"description": "Partial body merged into the response. Template strings are rendered against the placeholders.",
				"examples": []map[string]any{
					{"generated_at": "{{ now }}", "tenant": `{{ index . "request.header.X-Tenant" }}`},
				},
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "Response headers. Values are placeholder names or templates.",
				"additionalProperties": map[string]any{
					"type": "string",
				},
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Result text reported for the step.",
			},
		},
		"additionalProperties": false,
	}
}
