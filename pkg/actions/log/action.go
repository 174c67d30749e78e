// Package log provides a flow step that writes a message to the service log.
package log

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukex/restflow/pkg/models"
	"github.com/dukex/restflow/pkg/protocol"
	"github.com/dukex/restflow/pkg/template"
)

type Action struct {
	Message string
	Level   string
}

func NewAction(config map[string]any) *Action {
	message, _ := config["message"].(string)

	level, _ := config["level"].(string)
	if level == "" {
		level = "info"
	}

	return &Action{Message: message, Level: level}
}

func (a *Action) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (*protocol.StepResult, error) {
	logger = logger.With("action_type", "log")

	message := a.Message
	if template.IsExpression(message) {
		rendered, err := template.Placeholders(executionCtx.Placeholders).Resolve(message)
		if err != nil {
			return nil, err
		}

		message = rendered
	}

	logger.Log(ctx, parseLevel(a.Level), message)

	return &protocol.StepResult{Output: map[string]any{"message": message, "level": a.Level}}, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
