package read

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/dukex/restflow/pkg/backend"
	"github.com/dukex/restflow/pkg/faults"
	"github.com/dukex/restflow/pkg/models"
	"github.com/dukex/restflow/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contract = `{
	"openapi": "3.0.0",
	"paths": {
		"/": {
			"get": {"responses": {"200": {"content": {"application/json": {"schema": {
				"type": "object",
				"properties": {
					"page": {"type": "integer", "x-placeholder": "request.query.page"},
					"rows": {"type": "array", "items": {"$ref": "#/components/schemas/Customer"}}
				}
			}}}}}}
		},
		"/{id}": {
			"get": {"responses": {"200": {"content": {"application/json": {"schema": {
				"type": "object",
				"properties": {"customer": {"$ref": "#/components/schemas/Customer"}}
			}}}}}}
		}
	},
	"components": {"schemas": {
		"Customer": {"x-object-alias": "crm.Customer", "type": "object", "properties": {
			"Id": {"type": "integer", "x-attribute-alias": "id"},
			"Name": {"type": "string", "x-attribute-alias": "name"},
			"Note": {"type": "string"}
		}},
		"Flat": {"type": "object", "properties": {"items": {"x-object-alias": "crm.Customer"}}}
	}}
}`

type bodyRecorder struct {
	bodies []any
}

func (r *bodyRecorder) MergeBody(_ context.Context, record *models.RequestRecord, partial any) error {
	r.bodies = append(r.bodies, partial)

	merged, err := response.MergeBody(record.ResponseBody, partial)
	if err != nil {
		return err
	}

	record.ResponseBody = merged

	return nil
}

func (r *bodyRecorder) SetHeaders(context.Context, *models.RequestRecord, map[string]string) error {
	return nil
}

func newReader() *backend.MemoryReader {
	reader := backend.NewMemoryReader()
	reader.Put("crm.Customer", []map[string]any{
		{"id": 1, "name": "Ann"},
		{"id": 2, "name": "Bob"},
	})

	return reader
}

func executionContext(path, url string) (*models.ExecutionContext, *models.RequestRecord) {
	record := &models.RequestRecord{ID: "req-1", Method: "GET", URLPath: path, URL: url}

	return &models.ExecutionContext{
		ID:     "run-1",
		Route:  &models.Route{ID: "route-1", Prefix: "customers", OpenAPI: json.RawMessage(contract)},
		Input:  models.DefaultFlowInput,
		Inputs: map[string]any{models.DefaultFlowInput: record},
		Placeholders: map[string]string{
			"request.query.page": "2",
		},
	}, record
}

func TestNewAction(t *testing.T) {
	action, err := NewAction(map[string]any{
		"entity":  "crm.Customer",
		"table":   "customers",
		"filters": map[string]any{"id": "request.path.id", "ignored": 3},
	}, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "crm.Customer", action.Entity)
	assert.Equal(t, "customers", action.Table)
	assert.Equal(t, map[string]string{"id": "request.path.id"}, action.Filters)

	_, err = NewAction(map[string]any{}, nil, nil)
	assert.ErrorIs(t, err, ErrEntityMissing)
}

func TestShortAlias(t *testing.T) {
	assert.Equal(t, "Customer", ShortAlias("crm.Customer"))
	assert.Equal(t, "Customer", ShortAlias("Customer"))
	assert.Equal(t, "C", ShortAlias("a.b.C"))
}

func TestAction_ExecuteDocumentedOperation(t *testing.T) {
	writer := &bodyRecorder{}
	execCtx, record := executionContext("customers", "http://x/api/dataflow/customers?page=2")

	action, err := NewAction(map[string]any{"entity": "crm.Customer"}, newReader(), writer)
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), execCtx, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, 2, result.ProcessedRows)
	assert.Equal(t, "read 2 crm.Customer rows", result.Message)
	assert.JSONEq(t, `{"page":2,"rows":[[{"Id":1,"Name":"Ann"},{"Id":2,"Name":"Bob"}]]}`, string(record.ResponseBody))
}

func TestAction_ExecutePathParameterFilter(t *testing.T) {
	writer := &bodyRecorder{}
	execCtx, record := executionContext("customers/2", "http://x/api/dataflow/customers/2")

	action, err := NewAction(map[string]any{
		"entity":  "crm.Customer",
		"filters": map[string]any{"id": "request.path.id"},
	}, newReader(), writer)
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), execCtx, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, 1, result.ProcessedRows)
	assert.JSONEq(t, `{"customer":[{"Id":2,"Name":"Bob"}]}`, string(record.ResponseBody))
}

func TestAction_ExecuteOptionalFilter(t *testing.T) {
	writer := &bodyRecorder{}
	execCtx, record := executionContext("customers", "http://x/api/dataflow/customers?page=2")

	action, err := NewAction(map[string]any{
		"entity":           "crm.Customer",
		"filters":          map[string]any{"id": "request.path.id"},
		"optional_filters": []any{"id"},
	}, newReader(), writer)
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, action.OptionalFilters)

	result, err := action.Execute(context.Background(), execCtx, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, 2, result.ProcessedRows)
	assert.JSONEq(t, `{"page":2,"rows":[[{"Id":1,"Name":"Ann"},{"Id":2,"Name":"Bob"}]]}`, string(record.ResponseBody))
}

func TestAction_ExecuteNamedResponseSchema(t *testing.T) {
	execCtx, record := executionContext("customers/unknown/path", "http://x")

	action, err := NewAction(map[string]any{"entity": "crm.Customer", "response_schema": "Flat"}, newReader(), &bodyRecorder{})
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), execCtx, slog.Default())
	require.NoError(t, err)

	assert.JSONEq(t, `{"items":[{"Id":1,"Name":"Ann"},{"Id":2,"Name":"Bob"}]}`, string(record.ResponseBody))
}

func TestAction_ExecuteWithoutResponseSchema(t *testing.T) {
	execCtx, record := executionContext("customers/unknown/path", "http://x")

	action, err := NewAction(map[string]any{"entity": "crm.Customer"}, newReader(), &bodyRecorder{})
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), execCtx, slog.Default())
	require.NoError(t, err)

	assert.JSONEq(t, `{"Customer":[{"Id":1,"Name":"Ann"},{"Id":2,"Name":"Bob"}]}`, string(record.ResponseBody))
}

func TestAction_ExecuteMergesWithPreviousSteps(t *testing.T) {
	execCtx, record := executionContext("customers", "http://x")
	record.ResponseBody = json.RawMessage(`{"rows":[["earlier"]],"meta":"kept"}`)

	action, err := NewAction(map[string]any{"entity": "crm.Customer"}, newReader(), &bodyRecorder{})
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), execCtx, slog.Default())
	require.NoError(t, err)

	assert.JSONEq(t,
		`{"meta":"kept","page":2,"rows":[["earlier"],[{"Id":1,"Name":"Ann"},{"Id":2,"Name":"Bob"}]]}`,
		string(record.ResponseBody))
}

func TestAction_ExecuteFailures(t *testing.T) {
	tests := []struct {
		name     string
		config   map[string]any
		mutate   func(*models.ExecutionContext)
		expected error
		kind     faults.Kind
	}{
		{
			name:     "not an http request",
			config:   map[string]any{"entity": "crm.Customer"},
			mutate:   func(c *models.ExecutionContext) { c.Inputs = map[string]any{"request": "cron"} },
			expected: faults.ErrUnsupportedInput,
			kind:     faults.KindUnsupportedInput,
		},
		{
			name:     "entity not bound",
			config:   map[string]any{"entity": "crm.Order"},
			expected: faults.ErrSchemaNotBound,
			kind:     faults.KindSchemaBinding,
		},
		{
			name:     "short key bound elsewhere",
			config:   map[string]any{"entity": "billing.Customer"},
			expected: faults.ErrBindingMismatch,
			kind:     faults.KindSchemaBinding,
		},
		{
			name:     "unknown response schema",
			config:   map[string]any{"entity": "crm.Customer", "response_schema": "Nope"},
			expected: ErrSchemaNotFound,
			kind:     faults.KindExecution,
		},
		{
			name:     "filter without a value",
			config:   map[string]any{"entity": "crm.Customer", "filters": map[string]any{"id": "request.query.id"}},
			expected: faults.ErrFilterValueMissing,
			kind:     faults.KindValidation,
		},
		{
			name:     "no route",
			config:   map[string]any{"entity": "crm.Customer"},
			mutate:   func(c *models.ExecutionContext) { c.Route = nil },
			expected: ErrRouteMissing,
			kind:     faults.KindExecution,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			execCtx, _ := executionContext("customers", "http://x")
			if tt.mutate != nil {
				tt.mutate(execCtx)
			}

			action, err := NewAction(tt.config, newReader(), &bodyRecorder{})
			require.NoError(t, err)

			_, err = action.Execute(context.Background(), execCtx, slog.Default())
			require.Error(t, err)

			assert.ErrorIs(t, err, tt.expected)
			assert.Equal(t, tt.kind, faults.KindOf(err))
		})
	}
}

func TestAction_ExecuteNonObjectEntitySchema(t *testing.T) {
	execCtx, _ := executionContext("customers", "http://x")
	execCtx.Route.OpenAPI = json.RawMessage(`{"components":{"schemas":{"Customer":{"x-object-alias":"crm.Customer","type":"string"}}}}`)

	action, err := NewAction(map[string]any{"entity": "crm.Customer"}, newReader(), &bodyRecorder{})
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), execCtx, slog.Default())
	assert.ErrorIs(t, err, faults.ErrUnsupportedSchemaShape)
}

func TestActionFactory(t *testing.T) {
	factory := NewActionFactory(newReader(), &bodyRecorder{})

	assert.Equal(t, "read", factory.ID())
	assert.NotEmpty(t, factory.Name())
	assert.NotEmpty(t, factory.Description())
	assert.Equal(t, []string{"entity"}, factory.Schema()["required"])

	action, err := factory.Create(map[string]any{"entity": "crm.Customer"})
	require.NoError(t, err)
	assert.IsType(t, &Action{}, action)
}
