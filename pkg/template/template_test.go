package template

import (
	"testing"

	"github.com/dukex/restflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_SimpleExpression(t *testing.T) {
	data := map[string]any{
		"name":  "John",
		"age":   30,
		"isNew": true,
	}

	result, err := Render("{{ .name }}", data)
	require.NoError(t, err)
	assert.Equal(t, "John", result)

	result, err = Render("{{ .isNew }}", data)
	require.NoError(t, err)
	assert.Equal(t, true, result)

	// numbers always decode to float
	result, err = Render("{{ .age }}", data)
	require.NoError(t, err)
	assert.Equal(t, 30.0, result)
}

func TestRender_ObjectConstruction(t *testing.T) {
	data := map[string]any{
		"user":   map[string]any{"name": "Alice"},
		"orders": []any{1, 2},
	}

	result, err := Render(`{"user_name": "{{ .user.name }}", "total_orders": {{ len .orders }}}`, data)
	require.NoError(t, err)

	resultMap, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Alice", resultMap["user_name"])
	assert.Equal(t, 2.0, resultMap["total_orders"])
}

func TestRender_ErrorHandling(t *testing.T) {
	data := map[string]any{"test": "value"}

	_, err := Render("{ invalid..expression }}", data)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse json")

	_, err = Render("{{ nonexistent.field }}", data)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "function \"nonexistent\" not defined")
}

func testContext() (*models.ExecutionContext, *models.RequestRecord) {
	execCtx := &models.ExecutionContext{
		ID:     "run-1",
		FlowID: "flow-1",
		Route:  &models.Route{ID: "route-1", Prefix: "customers"},
	}

	record := &models.RequestRecord{
		ID:          "req-1",
		URL:         "http://localhost/api/dataflow/customers/list?page=2&page=3&q=ann",
		URLPath:     "customers/list",
		Method:      "GET",
		Body:        `{"a":1}`,
		ContentType: "application/json",
		Headers:     map[string]string{"X-Tenant": "acme"},
		FlowRun:     "run-1",
	}

	return execCtx, record
}

func TestNewPlaceholders(t *testing.T) {
	execCtx, record := testContext()

	p := NewPlaceholders(execCtx, record, []string{
		"RESTFLOW_REGION=eu",
		"RESTFLOW_BROKEN",
		"RESTFLOW_EMPTY=",
		"RESTFLOW_=bare",
		"DATABASE_URL=postgres://user:secret@db/restflow",
		"HOME=/root",
	})

	assert.Equal(t, "run-1", p[KeyTaskID])
	assert.Equal(t, "run-1", p[KeyTaskFlowRun])
	assert.Equal(t, "route-1", p[KeyRouteID])
	assert.Equal(t, "customers", p[KeyRoutePrefix])
	assert.Equal(t, record.URL, p[KeyRequestURL])
	assert.Equal(t, "customers/list", p[KeyRequestPath])
	assert.Equal(t, "/list", p[KeyRequestSubpath])
	assert.Equal(t, "GET", p[KeyRequestMethod])
	assert.Equal(t, `{"a":1}`, p[KeyRequestBody])
	assert.Equal(t, "application/json", p[KeyRequestContentType])
	assert.Equal(t, "acme", p["request.header.X-Tenant"])
	assert.Equal(t, "2", p["request.query.page"])
	assert.Equal(t, "ann", p["request.query.q"])
	assert.Equal(t, "eu", p["env.REGION"])
	assert.Equal(t, "", p["env.EMPTY"])

	_, ok := p["env.BROKEN"]
	assert.False(t, ok)

	for name, value := range p {
		assert.NotContains(t, value, "secret", name)
	}

	assert.NotContains(t, p, "env.DATABASE_URL")
	assert.NotContains(t, p, "env.HOME")
	assert.NotContains(t, p, "env.")
	assert.NotContains(t, p, "env.RESTFLOW_REGION")
}

func TestNewPlaceholders_WithoutContext(t *testing.T) {
	p := NewPlaceholders(nil, nil, nil)
	assert.Empty(t, p)
}

func TestFromEnvironment(t *testing.T) {
	t.Setenv("RESTFLOW_TEST_VAR", "test_value")
	t.Setenv("BACKEND_URL", "postgres://user:secret@db/rows")

	p := FromEnvironment(nil, nil)
	assert.Equal(t, "test_value", p["env.TEST_VAR"])
	assert.NotContains(t, p, "env.BACKEND_URL")
	assert.NotContains(t, p, "env.RESTFLOW_TEST_VAR")
}

func TestNewPlaceholders_SubpathBelowBasePath(t *testing.T) {
	execCtx, record := testContext()
	execCtx.BasePath = "/api/dataflow/"
	record.URLPath = "/api/dataflow/customers/42/orders"

	p := NewPlaceholders(execCtx, record, nil)

	assert.Equal(t, "/42/orders", p[KeyRequestSubpath])
}

func TestSubpath(t *testing.T) {
	assert.Equal(t, "/list", Subpath("customers/list", "customers"))
	assert.Equal(t, "/list", Subpath("/customers/list", "/customers/"))
	assert.Equal(t, "/", Subpath("customers", "customers"))
}

func TestPlaceholders_Resolve(t *testing.T) {
	p := Placeholders{"p": "5", "request.query.page": "2", "name": "Ann"}

	tests := []struct {
		expr     string
		expected string
	}{
		{"p", "5"},
		{"missing", ""},
		{`{{ index . "request.query.page" }}`, "2"},
		{`{{ index . "missing" }}`, ""},
		{`Hello {{ .name }}!`, "Hello Ann!"},
		{`{{ .nothing }}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := p.Resolve(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := p.Resolve("{{ index . }")
	assert.Error(t, err)
}

func TestPlaceholders_Render(t *testing.T) {
	p := Placeholders{"count": "3"}

	got, err := p.Render(`{{ index . "count" }}`)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)

	got, err = p.Render("count")
	require.NoError(t, err)
	assert.Equal(t, "count", got)

	now, err := p.Render("{{ now }}")
	require.NoError(t, err)
	assert.NotEmpty(t, now)
}

func TestPlaceholders_With(t *testing.T) {
	p := Placeholders{"a": "1"}
	q := p.With(map[string]string{"b": "2", "a": "3"})

	assert.Equal(t, Placeholders{"a": "1"}, p)
	assert.Equal(t, Placeholders{"a": "3", "b": "2"}, q)
}
