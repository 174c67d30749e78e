package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	logaction "github.com/dukex/restflow/pkg/actions/log"
	"github.com/dukex/restflow/pkg/dispatch"
	"github.com/dukex/restflow/pkg/eventbus"
	"github.com/dukex/restflow/pkg/flow"
	"github.com/dukex/restflow/pkg/lifecycle"
	"github.com/dukex/restflow/pkg/metrics"
	"github.com/dukex/restflow/pkg/mocks"
	"github.com/dukex/restflow/pkg/models"
	"github.com/dukex/restflow/pkg/persistence"
	"github.com/dukex/restflow/pkg/persistence/file"
	"github.com/dukex/restflow/pkg/registry"
	"github.com/dukex/restflow/pkg/routing"
	"github.com/dukex/restflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type greetingInvoker struct {
	recorder *lifecycle.Logger
}

func (g *greetingInvoker) Invoke(ctx context.Context, _ string, route *models.Route, record *models.RequestRecord) (*flow.Result, error) {
	err := g.recorder.MergeBody(ctx, record, map[string]any{"route": route.ID, "method": record.Method})
	if err != nil {
		return nil, err
	}

	return &flow.Result{Message: "greeted"}, nil
}

func setupTestApp(t *testing.T) (*fiber.App, persistence.Persistence) {
	t.Helper()

	return setupTestAppWith(t, nil, nil)
}

func setupTestAppWith(t *testing.T, publisher eventbus.EventPublisher, m *metrics.Metrics) (*fiber.App, persistence.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	logger := slog.Default()

	reg := registry.NewRegistry(logger)
	reg.RegisterAction(logaction.NewActionFactory())

	resolver := routing.NewResolver(store.RouteRepository(), logger)
	recorder := lifecycle.NewLogger(store.RequestRepository(), nil, nil, logger)

	dispatcher := dispatch.NewDispatcher("api/dataflow", dispatch.Dependencies{
		Routes:    resolver,
		Lifecycle: recorder,
		Invoker:   &greetingInvoker{recorder: recorder},
		Logger:    logger,
	})

	handlers := web.NewAPIHandlers(store, resolver, reg, validator.New(validator.WithRequiredStructEnabled()), publisher, m, logger)

	app := fiber.New()

	admin := app.Group("/admin")
	admin.Get("/routes", handlers.GetRoutes)
	admin.Post("/routes", handlers.CreateRoute)
	admin.Get("/routes/:id", handlers.GetRoute)
	admin.Get("/flows", handlers.GetFlows)
	admin.Get("/flows/:id", handlers.GetFlow)
	admin.Put("/flows/:id", handlers.SaveFlow)
	admin.Get("/requests/:id", handlers.GetRequest)
	admin.Get("/actions", handlers.GetActions)
	app.Get("/health", handlers.HealthCheck)
	app.All("/api/dataflow/*", web.DispatchHandler(dispatcher))

	return app, store
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, ok := body.([]byte)
		if !ok {
			var err error
			raw, err = json.Marshal(body)
			require.NoError(t, err)
		}

		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, data
}

func TestAPIHandlers_CreateRoute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
	}{
		{
			name: "successful creation",
			requestBody: web.CreateRouteRequest{
				ID: "customers", FlowID: "flow-1", Prefix: "customers",
				OpenAPI:    json.RawMessage(`{"openapi":"3.0.0"}`),
				TypeSchema: json.RawMessage(`{"type":"object","required":["openapi"]}`),
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing prefix",
			requestBody:    web.CreateRouteRequest{ID: "customers", FlowID: "flow-1"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "document rejected by type schema",
			requestBody: web.CreateRouteRequest{
				ID: "customers", FlowID: "flow-1", Prefix: "customers",
				OpenAPI:    json.RawMessage(`{"swagger":"2.0"}`),
				TypeSchema: json.RawMessage(`{"type":"object","required":["openapi"]}`),
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid json",
			requestBody:    []byte(`{"id":`),
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, _ := setupTestApp(t)

			resp, _ := doJSON(t, app, http.MethodPost, "/admin/routes", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestAPIHandlers_CreateRouteConflict(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)
	route := web.CreateRouteRequest{ID: "customers", FlowID: "flow-1", Prefix: "customers"}

	resp, _ := doJSON(t, app, http.MethodPost, "/admin/routes", route)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/admin/routes", route)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, "/admin/routes", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var routes []models.Route
	require.NoError(t, json.Unmarshal(body, &routes))
	assert.Len(t, routes, 1)
}

func TestAPIHandlers_CreateRouteExplicitNulls(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		typeSchema json.RawMessage
	}{
		{
			name: "both documents null",
			body: `{"id":"customers","flow_id":"flow-1","prefix":"customers","openapi":null,"type_schema":null}`,
		},
		{
			name: "document null with type schema",
			body: `{"id":"customers","flow_id":"flow-1","prefix":"customers","openapi":null,` +
				`"type_schema":{"type":"object","required":["openapi"]}}`,
			typeSchema: json.RawMessage(`{"type":"object","required":["openapi"]}`),
		},
		{
			name: "type schema null with document",
			body: `{"id":"customers","flow_id":"flow-1","prefix":"customers","openapi":{"openapi":"3.0.0"},"type_schema":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, store := setupTestApp(t)

			resp, body := doJSON(t, app, http.MethodPost, "/admin/routes", []byte(tt.body))
			require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

			route, err := store.RouteRepository().GetByID(context.Background(), "customers")
			require.NoError(t, err)
			assert.Equal(t, tt.typeSchema != nil, route.HasTypeSchema())
			assert.NotEqual(t, "null", strings.TrimSpace(string(route.OpenAPI)))
			assert.NotEqual(t, "null", strings.TrimSpace(string(route.TypeSchema)))

			resp, body = doJSON(t, app, http.MethodGet, "/api/dataflow/customers/list", nil)
			assert.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		})
	}
}

func TestDispatchHandler_StoredNullDocument(t *testing.T) {
	t.Parallel()

	app, store := setupTestApp(t)

	require.NoError(t, store.RouteRepository().Save(context.Background(), &models.Route{
		ID: "customers", FlowID: "flow-1", Prefix: "customers",
		OpenAPI:    json.RawMessage(`null`),
		TypeSchema: json.RawMessage(`{"type":"object","required":["openapi"]}`),
	}))

	resp, body := doJSON(t, app, http.MethodGet, "/api/dataflow/customers/list", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"route":"customers","method":"GET"}`, string(body))

	resp, body = doJSON(t, app, http.MethodGet, "/api/dataflow/customers/openapi", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{}`, string(body))
}

func TestAPIHandlers_CreateRoutePublishFailure(t *testing.T) {
	t.Parallel()

	publisher := &mocks.MockEventBus{}
	publisher.On("Publish", mock.Anything, "customers", mock.Anything).Return(errors.New("broker down"))

	m := metrics.New()
	app, _ := setupTestAppWith(t, publisher, m)

	resp, _ := doJSON(t, app, http.MethodPost, "/admin/routes", web.CreateRouteRequest{ID: "customers", FlowID: "flow-1", Prefix: "customers"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	publisher.AssertExpectations(t)

	expected := `
# HELP restflow_events_publish_failures_total Lifecycle events that could not be published.
# TYPE restflow_events_publish_failures_total counter
restflow_events_publish_failures_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "restflow_events_publish_failures_total"))
}

func TestAPIHandlers_NewRouteIsServedImmediately(t *testing.T) {
	t.Parallel()

	app, store := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/dataflow/customers", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/admin/routes", web.CreateRouteRequest{ID: "customers", FlowID: "flow-1", Prefix: "customers"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, "/api/dataflow/customers/list", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"route":"customers","method":"GET"}`, string(body))

	requestID := resp.Header.Get("X-Request-Id")
	require.NotEmpty(t, requestID)

	record, err := store.RequestRepository().GetByID(context.Background(), requestID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusDone, record.Status)
	assert.Equal(t, "greeted", record.ResultText)

	resp, body = doJSON(t, app, http.MethodGet, "/admin/requests/"+requestID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var logged models.RequestRecord
	require.NoError(t, json.Unmarshal(body, &logged))
	assert.Equal(t, models.RequestStatusDone, logged.Status)
	assert.Equal(t, "/api/dataflow/customers/list", logged.URLPath)
}

func TestDispatchHandler_OpenAPIDocument(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/admin/routes", web.CreateRouteRequest{
		ID: "customers", FlowID: "flow-1", Prefix: "customers",
		TypeSchema: json.RawMessage(`{"type":"object","required":["openapi"]}`),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/api/dataflow/customers/openapi", []byte(`{"swagger":"2.0"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Error-Logid"))
	assert.Contains(t, string(body), "Invalid Swagger")

	resp, body = doJSON(t, app, http.MethodPost, "/api/dataflow/customers/openapi", []byte(`{"openapi":"3.0.0"}`))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "GET /api/dataflow", resp.Header.Get("Path"))
	assert.JSONEq(t, `{"openapi":"3.0.0"}`, string(body))

	resp, body = doJSON(t, app, http.MethodGet, "/api/dataflow/customers/openapi", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"openapi":"3.0.0"}`, string(body))
}

func TestAPIHandlers_SaveFlow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
	}{
		{
			name: "valid flow",
			requestBody: web.SaveFlowRequest{
				Name:  "Customers",
				Steps: []*web.FlowStepRequest{{ID: "log", Action: "log", Enabled: true, Config: map[string]any{"message": "hi"}}},
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "no steps",
			requestBody:    web.SaveFlowRequest{Name: "Customers"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unknown action",
			requestBody: web.SaveFlowRequest{
				Name:  "Customers",
				Steps: []*web.FlowStepRequest{{ID: "x", Action: "http_request"}},
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "config rejected by action schema",
			requestBody: web.SaveFlowRequest{
				Name:  "Customers",
				Steps: []*web.FlowStepRequest{{ID: "log", Action: "log", Config: map[string]any{"level": "loud"}}},
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, _ := setupTestApp(t)

			resp, _ := doJSON(t, app, http.MethodPut, "/admin/flows/flow-1", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestAPIHandlers_GetFlow(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/admin/flows/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPut, "/admin/flows/flow-1", web.SaveFlowRequest{
		Name:  "Customers",
		Input: "call",
		Steps: []*web.FlowStepRequest{{ID: "log", Action: "log", Enabled: true}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, "/admin/flows/flow-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stored models.Flow
	require.NoError(t, json.Unmarshal(body, &stored))
	assert.Equal(t, "call", stored.Input)
	assert.Len(t, stored.Steps, 1)

	resp, body = doJSON(t, app, http.MethodGet, "/admin/flows", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "flow-1")
}

func TestAPIHandlers_GetRequestNotFound(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/admin/requests/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "request not found")
}

func TestAPIHandlers_HealthAndActions(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "healthy")

	resp, body = doJSON(t, app, http.MethodGet, "/admin/actions", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `["log"]`, string(body))
}

func TestDispatchHandler_UnknownRoute(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/dataflow/nothing/here", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-Request-Id"))

	var problem map[string]any
	require.NoError(t, json.Unmarshal(body, &problem))
	assert.Equal(t, "routing_error", problem["type"])
}
