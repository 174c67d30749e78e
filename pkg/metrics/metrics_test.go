package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.ObserveRequest("route-1", "DONE", 200, 10*time.Millisecond)
	m.ObserveRequest("route-1", "DONE", 200, 20*time.Millisecond)
	m.ObserveRequest("route-1", "ERROR", 500, time.Millisecond)
	m.AddFlowRows("flow-1", 3)
	m.AddFlowRows("flow-1", 0)
	m.StepFailed("read")
	m.PublishFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("route-1", "DONE", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("route-1", "ERROR", "500")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.flowRows.WithLabelValues("flow-1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stepFailures.WithLabelValues("read")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishFails))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveRequest("r", "DONE", 200, time.Second)
		m.AddFlowRows("f", 1)
		m.StepFailed("read")
		m.PublishFailed()
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveRequest("route-1", "DONE", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `restflow_requests_total{code="200",route="route-1",status="DONE"} 1`))
}
