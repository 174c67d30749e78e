// Package protocol defines the contracts between the flow engine and its actions.
package protocol

import (
	"context"
	"log/slog"

	"github.com/dukex/restflow/pkg/models"
)

// StepResult summarizes one executed step.
type StepResult struct {
	Message       string `json:"message,omitempty"`
	ProcessedRows int    `json:"processed_rows"`
	Output        any    `json:"output,omitempty"`
}

type Action interface {
	Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (*StepResult, error)
}

type ActionFactory interface {
	Create(config map[string]any) (Action, error)
	ID() string
	// Schema returns the JSON schema step configurations must satisfy.
	Schema() map[string]any
}

// ResponseWriter accumulates the response of the request a flow run serves.
type ResponseWriter interface {
	// MergeBody merges partial into the persisted response body of record.
	MergeBody(ctx context.Context, record *models.RequestRecord, partial any) error
	// SetHeaders adds response headers to record.
	SetHeaders(ctx context.Context, record *models.RequestRecord, headers map[string]string) error
}
