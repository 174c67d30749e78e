package log

import "github.com/dukex/restflow/pkg/protocol"

// ActionFactory is the factory for creating log actions.
type ActionFactory struct{}

// NewActionFactory creates a new instance of ActionFactory.
func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

// ID returns the unique identifier for the action factory.
func (*ActionFactory) ID() string {
	return "log"
}

// Name returns the name of the action factory.
func (*ActionFactory) Name() string {
	return "Log"
}

// Description returns a brief description of the action.
func (*ActionFactory) Description() string {
	return "Logs a message at a specified level. Supports templating for dynamic content."
}

func (*ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	if config == nil {
		config = map[string]any{}
	}

	return NewAction(config), nil
}

// Schema returns the JSON schema for configuring this action.
func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "The message to log. Supports templating against the placeholders.",
				"examples": []string{
					"Serving customers",
					`Request {{ index . "task.flow_run" }} on {{ index . "request.path" }}`,
				},
			},
			"level": map[string]any{
				"type":        "string",
				"description": "Log level",
				"default":     "info",
				"enum":        []string{"debug", "info", "warn", "error"},
			},
		},
		"additionalProperties": false,
	}
}
