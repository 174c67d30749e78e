// Package respond provides a flow step that contributes a static part of the response.
package respond

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/restflow/pkg/faults"
	"github.com/dukex/restflow/pkg/models"
	"github.com/dukex/restflow/pkg/protocol"
	"github.com/dukex/restflow/pkg/template"
)

type Action struct {
	Body    map[string]any
	Headers map[string]string
	Message string

	writer protocol.ResponseWriter
}

func NewAction(config map[string]any, writer protocol.ResponseWriter) (*Action, error) {
	body, _ := config["body"].(map[string]any)
	message, _ := config["message"].(string)

	headers := make(map[string]string)

	if headersConfig, ok := config["headers"].(map[string]any); ok {
		for k, v := range headersConfig {
			if strVal, ok := v.(string); ok {
				headers[k] = strVal
			}
		}
	}

	return &Action{Body: body, Headers: headers, Message: message, writer: writer}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (*protocol.StepResult, error) {
	logger = logger.With("action_type", "respond")

	record, ok := executionCtx.RequestInput()
	if !ok {
		return nil, faults.New("respond", faults.ErrUnsupportedInput, "respond requires an http request input")
	}

	placeholders := template.Placeholders(executionCtx.Placeholders)

	if len(a.Headers) > 0 {
		headers := make(map[string]string, len(a.Headers))

		for name, expr := range a.Headers {
			value := expr
			if template.IsExpression(expr) {
				resolved, err := placeholders.Resolve(expr)
				if err != nil {
					return nil, fmt.Errorf("header %s: %w", name, err)
				}

				value = resolved
			}

			headers[name] = value
		}

		if err := a.writer.SetHeaders(ctx, record, headers); err != nil {
			return nil, fmt.Errorf("failed to store response headers: %w", err)
		}
	}

	var body map[string]any

	if len(a.Body) > 0 {
		rendered, err := render(a.Body, placeholders)
		if err != nil {
			return nil, err
		}

		body, _ = rendered.(map[string]any)

		if err := a.writer.MergeBody(ctx, record, body); err != nil {
			return nil, fmt.Errorf("failed to store response body: %w", err)
		}
	}

	logger.InfoContext(ctx, "Response contribution stored", "keys", len(body), "headers", len(a.Headers))

	return &protocol.StepResult{Message: a.Message, Output: body}, nil
}

// render walks value and renders every template string it holds.
func render(value any, placeholders template.Placeholders) (any, error) {
	switch v := value.(type) {
	case string:
		return placeholders.Render(v)
	case map[string]any:
		out := make(map[string]any, len(v))

		for k, item := range v {
			rendered, err := render(item, placeholders)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}

			out[k] = rendered
		}

		return out, nil
	case []any:
		out := make([]any, len(v))

		for i, item := range v {
			rendered, err := render(item, placeholders)
			if err != nil {
				return nil, err
			}

			out[i] = rendered
		}

		return out, nil
	default:
		return value, nil
	}
}
