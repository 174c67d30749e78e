// Package flow runs stored flow definitions on behalf of routed requests.
package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/restflow/pkg/metrics"
	"github.com/dukex/restflow/pkg/models"
	"github.com/dukex/restflow/pkg/otelhelper"
	"github.com/dukex/restflow/pkg/protocol"
	"github.com/dukex/restflow/pkg/registry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Result summarizes a flow run.
type Result struct {
	Message           string `json:"message"`
	ProcessedRowCount int    `json:"processed_row_count"`
}

// Engine executes the enabled steps of a flow in order, stopping at the first failure.
type Engine struct {
	registry *registry.Registry
	tracer   trace.Tracer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewEngine(registry *registry.Registry, tracer trace.Tracer, m *metrics.Metrics, logger *slog.Logger) *Engine {
	return &Engine{
		registry: registry,
		tracer:   tracer,
		metrics:  m,
		logger:   logger.With("module", "flow_engine"),
	}
}

func (e *Engine) Run(ctx context.Context, flow *models.Flow, executionCtx *models.ExecutionContext) (*Result, error) {
	logger := e.logger.With("flow_id", flow.ID, "flow_run", executionCtx.ID)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "flow.run",
		attribute.String(otelhelper.FlowIDKey, flow.ID),
		attribute.String(otelhelper.FlowRunKey, executionCtx.ID),
	)
	defer span.End()

	logger.InfoContext(ctx, "Starting flow run", "steps", len(flow.Steps))

	if executionCtx.StepResults == nil {
		executionCtx.StepResults = make(map[string]any)
	}

	result := &Result{}

	for _, step := range flow.Steps {
		stepLogger := logger.With("step_id", step.ID, "step_action", step.Action)

		if !step.Enabled {
			stepLogger.InfoContext(ctx, "Step is disabled, skipping")

			continue
		}

		stepResult, err := e.runStep(ctx, step, executionCtx, stepLogger)
		if err != nil {
			e.metrics.StepFailed(step.Action)
			otelhelper.SetError(span, err, attribute.String(otelhelper.StepIDKey, step.ID))
			stepLogger.ErrorContext(ctx, "Step failed", "error", err)

			return nil, err
		}

		executionCtx.StepResults[step.ID] = stepResult

		if stepResult.Message != "" {
			result.Message = stepResult.Message
		}

		result.ProcessedRowCount += stepResult.ProcessedRows
	}

	e.metrics.AddFlowRows(flow.ID, result.ProcessedRowCount)
	span.SetAttributes(attribute.Int(otelhelper.RowCountKey, result.ProcessedRowCount))

	logger.InfoContext(ctx, "Completed flow run", "rows", result.ProcessedRowCount)

	return result, nil
}

func (e *Engine) runStep(
	ctx context.Context,
	step *models.FlowStep,
	executionCtx *models.ExecutionContext,
	logger *slog.Logger,
) (*protocol.StepResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "flow.step",
		attribute.String(otelhelper.StepIDKey, step.ID),
		attribute.String(otelhelper.StepActionKey, step.Action),
	)
	defer span.End()

	action, err := e.registry.CreateAction(step.Action, step.Config)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to create action for step %s: %w", step.ID, err)
	}

	outcome, err := action.Execute(ctx, executionCtx, logger)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to execute step %s: %w", step.ID, err)
	}

	if outcome == nil {
		outcome = &protocol.StepResult{}
	}

	logger.InfoContext(ctx, "Step executed successfully", "rows", outcome.ProcessedRows)

	return outcome, nil
}
