package flow

import (
	"context"
	"log/slog"
	"testing"

	"github.com/dukex/restflow/pkg/models"
	"github.com/dukex/restflow/pkg/persistence"
	"github.com/dukex/restflow/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingRunner struct {
	flow    *models.Flow
	execCtx *models.ExecutionContext
}

func (r *capturingRunner) Run(_ context.Context, flow *models.Flow, execCtx *models.ExecutionContext) (*Result, error) {
	r.flow = flow
	r.execCtx = execCtx

	return &Result{Message: "done", ProcessedRowCount: 4}, nil
}

func TestInvoker_Invoke(t *testing.T) {
	ctx := context.Background()
	flows := file.NewPersistence(t.TempDir()).FlowRepository()

	require.NoError(t, flows.Save(ctx, &models.Flow{
		ID:    "flow-1",
		Name:  "Customers",
		Input: "call",
		Steps: []*models.FlowStep{{ID: "read", Action: "read", Enabled: true}},
	}))

	runner := &capturingRunner{}
	invoker := NewInvoker(flows, runner, "api/dataflow", slog.Default())

	route := &models.Route{ID: "route-1", Prefix: "customers", FlowID: "flow-1"}
	record := &models.RequestRecord{
		ID:      "req-1",
		URL:     "http://x/api/dataflow/customers/list?page=1",
		URLPath: "/api/dataflow/customers/list",
		Method:  "GET",
		FlowRun: "run-7",
	}

	result, err := invoker.Invoke(ctx, "flow-1", route, record)
	require.NoError(t, err)

	assert.Equal(t, &Result{Message: "done", ProcessedRowCount: 4}, result)
	assert.Equal(t, "flow-1", runner.flow.ID)

	execCtx := runner.execCtx
	assert.Equal(t, "run-7", execCtx.ID)
	assert.Equal(t, "flow-1", execCtx.FlowID)
	assert.Same(t, route, execCtx.Route)
	assert.Equal(t, "call", execCtx.Input)
	assert.Equal(t, "api/dataflow", execCtx.BasePath)

	bound, ok := execCtx.RequestInput()
	require.True(t, ok)
	assert.Same(t, record, bound)

	assert.Equal(t, "run-7", execCtx.Placeholders["task.flow_run"])
	assert.Equal(t, "/list", execCtx.Placeholders["request.subpath"])
	assert.Equal(t, "1", execCtx.Placeholders["request.query.page"])
}

func TestInvoker_InvokeDefaultsRunID(t *testing.T) {
	ctx := context.Background()
	flows := file.NewPersistence(t.TempDir()).FlowRepository()

	require.NoError(t, flows.Save(ctx, &models.Flow{ID: "flow-1", Name: "Customers"}))

	runner := &capturingRunner{}

	_, err := NewInvoker(flows, runner, "", slog.Default()).
		Invoke(ctx, "flow-1", &models.Route{ID: "r"}, &models.RequestRecord{ID: "req-1"})
	require.NoError(t, err)

	assert.NotEmpty(t, runner.execCtx.ID)
	assert.Equal(t, models.DefaultFlowInput, runner.execCtx.Input)
}

func TestInvoker_InvokeMissingFlow(t *testing.T) {
	flows := file.NewPersistence(t.TempDir()).FlowRepository()

	_, err := NewInvoker(flows, &capturingRunner{}, "", slog.Default()).
		Invoke(context.Background(), "missing", &models.Route{}, &models.RequestRecord{})
	require.Error(t, err)

	assert.True(t, persistence.IsFlowNotFound(err))
}
