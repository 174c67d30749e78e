package log

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/dukex/restflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewActionFactory(t *testing.T) {
	factory := NewActionFactory()
	assert.NotNil(t, factory)
	assert.Equal(t, "log", factory.ID())
	assert.Equal(t, "Log", factory.Name())
}

func TestActionFactory_Create(t *testing.T) {
	factory := NewActionFactory()

	tests := []struct {
		name   string
		config map[string]any
	}{
		{
			name:   "nil config",
			config: nil,
		},
		{
			name:   "empty config",
			config: map[string]any{},
		},
		{
			name: "config with values",
			config: map[string]any{
				"message": "test message",
				"level":   "info",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, err := factory.Create(tt.config)
			require.NoError(t, err)
			assert.NotNil(t, action)
			assert.IsType(t, &Action{}, action)
		})
	}
}

func TestNewAction(t *testing.T) {
	tests := []struct {
		name          string
		config        map[string]any
		expectedMsg   string
		expectedLevel string
	}{
		{
			name:          "empty config",
			config:        map[string]any{},
			expectedMsg:   "",
			expectedLevel: "info",
		},
		{
			name: "config with message only",
			config: map[string]any{
				"message": "test message",
			},
			expectedMsg:   "test message",
			expectedLevel: "info",
		},
		{
			name: "config with message and level",
			config: map[string]any{
				"message": "debug message",
				"level":   "debug",
			},
			expectedMsg:   "debug message",
			expectedLevel: "debug",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action := NewAction(tt.config)
			assert.NotNil(t, action)
			assert.Equal(t, tt.expectedMsg, action.Message)
			assert.Equal(t, tt.expectedLevel, action.Level)
		})
	}
}

func TestAction_Execute(t *testing.T) {
	tests := []struct {
		name        string
		config      map[string]any
		expectedMsg string
		expectedLog string
	}{
		{
			name:        "simple message",
			config:      map[string]any{"message": "Hello, World!"},
			expectedMsg: "Hello, World!",
			expectedLog: `level=INFO msg="Hello, World!"`,
		},
		{
			name:        "message with debug level",
			config:      map[string]any{"message": "Debug message", "level": "debug"},
			expectedMsg: "Debug message",
			expectedLog: `level=DEBUG msg="Debug message"`,
		},
		{
			name:        "message with templating",
			config:      map[string]any{"message": `Serving {{ index . "request.path" }}`, "level": "warn"},
			expectedMsg: "Serving customers/list",
			expectedLog: `level=WARN msg="Serving customers/list"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			execCtx := &models.ExecutionContext{Placeholders: map[string]string{"request.path": "customers/list"}}

			result, err := NewAction(tt.config).Execute(context.Background(), execCtx, logger)
			require.NoError(t, err)

			output, ok := result.Output.(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tt.expectedMsg, output["message"])
			assert.Empty(t, result.Message)
			assert.Contains(t, buf.String(), tt.expectedLog)
			assert.Contains(t, buf.String(), "action_type=log")
		})
	}
}

func TestAction_ExecuteBadTemplate(t *testing.T) {
	_, err := NewAction(map[string]any{"message": "{{ index . }"}).
		Execute(context.Background(), &models.ExecutionContext{}, slog.Default())
	assert.Error(t, err)
}
