package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/restflow/pkg/models"
	"github.com/dukex/restflow/pkg/persistence"
	"github.com/dukex/restflow/pkg/template"
	"github.com/google/uuid"
)

// Runner executes a loaded flow.
type Runner interface {
	Run(ctx context.Context, flow *models.Flow, executionCtx *models.ExecutionContext) (*Result, error)
}

// Invoker hands a routed request over to the flow bound to its route.
type Invoker struct {
	flows    persistence.FlowRepository
	runner   Runner
	basePath string
	logger   *slog.Logger
}

// NewInvoker creates an invoker for requests served below basePath.
func NewInvoker(flows persistence.FlowRepository, runner Runner, basePath string, logger *slog.Logger) *Invoker {
	return &Invoker{
		flows:    flows,
		runner:   runner,
		basePath: basePath,
		logger:   logger.With("module", "flow_invoker"),
	}
}

// Invoke loads flowRef and runs it with record bound to the flow's declared input. The run
// id is the record's flow run id.
func (i *Invoker) Invoke(ctx context.Context, flowRef string, route *models.Route, record *models.RequestRecord) (*Result, error) {
	flow, err := i.flows.GetByID(ctx, flowRef)
	if err != nil {
		return nil, fmt.Errorf("failed to load flow %s: %w", flowRef, err)
	}

	runID := record.FlowRun
	if runID == "" {
		runID = uuid.New().String()
	}

	executionCtx := &models.ExecutionContext{
		ID:          runID,
		FlowID:      flow.ID,
		Route:       route,
		BasePath:    i.basePath,
		Input:       flow.InputName(),
		Inputs:      map[string]any{flow.InputName(): record},
		StepResults: make(map[string]any),
	}
	executionCtx.Placeholders = template.FromEnvironment(executionCtx, record)

	i.logger.InfoContext(ctx, "Invoking flow",
		"flow_id", flow.ID,
		"flow_run", runID,
		"request_id", record.ID,
		"input", flow.InputName(),
	)

	return i.runner.Run(ctx, flow, executionCtx)
}
