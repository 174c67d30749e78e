// Package dispatch turns routed HTTP calls into flow runs and answers them from the
// persisted request record.
//
// Every call that resolves to a route is received, processed and closed as DONE or ERROR
// before Dispatch returns. Failures after receipt, panics included, are caught once in
// Dispatch and recorded through the lifecycle logger.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/restflow/pkg/eventbus"
	"github.com/dukex/restflow/pkg/faults"
	"github.com/dukex/restflow/pkg/flow"
	"github.com/dukex/restflow/pkg/lifecycle"
	"github.com/dukex/restflow/pkg/metrics"
	"github.com/dukex/restflow/pkg/models"
	"github.com/dukex/restflow/pkg/openapi"
	"github.com/dukex/restflow/pkg/otelhelper"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	HeaderRequestID   = "X-Request-Id"
	HeaderErrorLogID  = "X-Error-Logid"
	HeaderPath        = "Path"
	HeaderContentType = "Content-Type"

	contentTypeJSON    = "application/json"
	contentTypeProblem = "application/problem+json"

	openAPISegment = "openapi"
)

// Request is a transport independent view of an inbound call.
type Request struct {
	Method      string
	URL         string
	Path        string
	Headers     map[string]string
	Body        []byte
	ContentType string
}

// Response is what the transport writes back.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       json.RawMessage
}

type RouteResolver interface {
	Resolve(ctx context.Context, path string) (*models.Route, error)
	UpdateField(ctx context.Context, path, field string, value any) (*models.Route, error)
}

type Lifecycle interface {
	Receive(ctx context.Context, record *models.RequestRecord) error
	MarkProcessing(ctx context.Context, record *models.RequestRecord, routeID, flowRun string) error
	MarkDone(ctx context.Context, record *models.RequestRecord, resultText string, resp *lifecycle.Response) error
	MarkError(ctx context.Context, record *models.RequestRecord, cause error, resp *lifecycle.Response) error
}

type FlowInvoker interface {
	Invoke(ctx context.Context, flowRef string, route *models.Route, record *models.RequestRecord) (*flow.Result, error)
}

// Dependencies are the collaborators of a Dispatcher. Publisher, Tracer and Metrics are
// optional.
type Dependencies struct {
	Routes    RouteResolver
	Lifecycle Lifecycle
	Invoker   FlowInvoker
	Validator *openapi.Validator
	Publisher eventbus.EventPublisher
	Tracer    trace.Tracer
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

type Dispatcher struct {
	prefix    string
	routes    RouteResolver
	lifecycle Lifecycle
	invoker   FlowInvoker
	validator *openapi.Validator
	publisher eventbus.EventPublisher
	tracer    trace.Tracer
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewDispatcher serves routes below prefix, e.g. "api/dataflow".
func NewDispatcher(prefix string, deps Dependencies) *Dispatcher {
	d := &Dispatcher{
		prefix:    strings.Trim(prefix, "/"),
		routes:    deps.Routes,
		lifecycle: deps.Lifecycle,
		invoker:   deps.Invoker,
		validator: deps.Validator,
		publisher: deps.Publisher,
		tracer:    deps.Tracer,
		metrics:   deps.Metrics,
		logger:    deps.Logger.With("module", "dispatcher"),
	}

	if d.validator == nil {
		d.validator = openapi.NewValidator()
	}

	if d.publisher == nil {
		d.publisher = eventbus.NewNoopEventBus()
	}

	if d.tracer == nil {
		d.tracer = otelhelper.NoopTracer()
	}

	return d
}

// Prefix returns the deployment prefix without surrounding slashes.
func (d *Dispatcher) Prefix() string {
	return d.prefix
}

// Dispatch serves req. A non-nil error means no record was written: either no route
// matches, or the record could not be received.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) (*Response, error) {
	started := time.Now()

	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "dispatch",
		attribute.String("http.method", req.Method),
		attribute.String("http.path", req.Path),
	)
	defer span.End()

	routePath, ok := d.routePath(req.Path)
	if !ok {
		err := faults.New("Dispatch", faults.ErrRouteNotFound, req.Path)
		otelhelper.SetError(span, err)

		return nil, err
	}

	route, err := d.routes.Resolve(ctx, routePath)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(
		attribute.String(otelhelper.RouteIDKey, route.ID),
		attribute.String(otelhelper.RoutePrefixKey, route.Prefix),
	)

	record := newRecord(req)

	err = d.lifecycle.Receive(ctx, record)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.RequestIDKey, record.ID))

	d.serve(ctx, route, routePath, req, record)

	resp := responseFrom(record)

	if record.Status == models.RequestStatusError {
		otelhelper.SetError(span, errors.New(record.ErrorMessage), attribute.String("error_logid", record.ErrorLogID))
	}

	d.metrics.ObserveRequest(route.ID, string(record.Status), resp.StatusCode, time.Since(started))

	return resp, nil
}

// serve processes a received record and closes it.
func (d *Dispatcher) serve(ctx context.Context, route *models.Route, routePath string, req *Request, record *models.RequestRecord) {
	resultText, resp, err := d.process(ctx, route, routePath, req, record)
	if err == nil {
		err = d.lifecycle.MarkDone(ctx, record, resultText, resp)
		if err == nil {
			return
		}

		d.logger.ErrorContext(ctx, "Failed to close request", "request_id", record.ID, "error", err)
	}

	if record.Status.IsTerminal() {
		return
	}

	markErr := d.lifecycle.MarkError(ctx, record, err, errorResponse(err, req.Path))
	if markErr != nil {
		d.logger.ErrorContext(ctx, "Failed to record request error",
			"request_id", record.ID,
			"error", markErr,
			"cause", err,
		)

		d.closeInMemory(record, err)
	}
}

// process is the catch-all boundary: every failure, including a panic, comes back as err.
func (d *Dispatcher) process(
	ctx context.Context,
	route *models.Route,
	routePath string,
	req *Request,
	record *models.RequestRecord,
) (resultText string, resp *lifecycle.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing request %s: %v", record.ID, r)
		}
	}()

	if isOpenAPIPath(routePath, route.Prefix) {
		switch req.Method {
		case http.MethodGet:
			return d.getDocument(ctx, route, record)
		case http.MethodPost:
			return d.postDocument(ctx, route, routePath, req, record)
		}
	}

	return d.invoke(ctx, route, req, record)
}

func (d *Dispatcher) invoke(ctx context.Context, route *models.Route, req *Request, record *models.RequestRecord) (string, *lifecycle.Response, error) {
	if route.HasOpenAPI() && route.HasTypeSchema() {
		err := d.validate(route.OpenAPI, route.TypeSchema)
		if err != nil {
			return "", nil, err
		}
	}

	err := d.lifecycle.MarkProcessing(ctx, record, route.ID, uuid.New().String())
	if err != nil {
		return "", nil, err
	}

	result, err := d.invoker.Invoke(ctx, route.FlowID, route, record)
	if err != nil {
		return "", nil, err
	}

	d.logger.InfoContext(ctx, "Flow completed",
		"request_id", record.ID,
		"route_id", route.ID,
		"flow_run", record.FlowRun,
		"rows", result.ProcessedRowCount,
	)

	body := record.ResponseBody
	if isEmptyBody(body) {
		body = fallbackBody(route.OpenAPI, req.Method, d.operationCandidates(req.Path, route.Prefix)...)
	}

	return result.Message, &lifecycle.Response{
		StatusCode: http.StatusOK,
		Headers:    withContentType(record.ResponseHeaders, contentTypeJSON),
		Body:       body,
	}, nil
}

func (d *Dispatcher) validate(document, schema []byte) error {
	var (
		result *openapi.ValidationResult
		err    error
	)

	if models.IsNullJSON(schema) {
		_, err = openapi.ParseDocument(document)
		result = &openapi.ValidationResult{Valid: err == nil}
	} else {
		result, err = d.validator.Validate(document, schema)
	}

	if err != nil {
		result = &openapi.ValidationResult{Errors: []openapi.ValidationError{{Source: "/", Message: err.Error()}}}
	}

	if result.Valid {
		return nil
	}

	return &faults.Error{
		Op:      "Validate",
		Kind:    faults.KindValidation,
		Message: fmt.Sprintf("%d validation errors", len(result.Errors)),
		Err:     faults.ErrInvalidDocument,
		Body:    result.Body(),
	}
}

// routePath strips the deployment prefix from path. The remainder has no leading slash.
func (d *Dispatcher) routePath(path string) (string, bool) {
	path = strings.TrimLeft(path, "/")
	if d.prefix == "" {
		return path, true
	}

	if path != d.prefix && !strings.HasPrefix(path, d.prefix+"/") {
		return "", false
	}

	return strings.TrimLeft(strings.TrimPrefix(path, d.prefix), "/"), true
}

func (d *Dispatcher) operationCandidates(path, routePrefix string) []string {
	routePath, _ := d.routePath(path)
	rest := strings.TrimPrefix(routePath, strings.TrimLeft(routePrefix, "/"))

	return []string{"/" + strings.TrimLeft(rest, "/"), "/" + strings.TrimLeft(path, "/")}
}

// closeInMemory marks record as failed when storage refused every terminal write, so the
// caller still answers with a terminal response.
func (d *Dispatcher) closeInMemory(record *models.RequestRecord, cause error) {
	resp := errorResponse(cause, record.URLPath)

	record.Status = models.RequestStatusError
	record.ErrorMessage = cause.Error()
	record.ErrorLogID = uuid.New().String()
	record.ResponseCode = resp.StatusCode
	record.ResponseHeaders = resp.Headers
	record.ResponseBody = resp.Body
}

func isOpenAPIPath(routePath, routePrefix string) bool {
	rest := strings.TrimPrefix(routePath, strings.TrimLeft(routePrefix, "/"))

	return strings.Trim(rest, "/") == openAPISegment
}

func newRecord(req *Request) *models.RequestRecord {
	return &models.RequestRecord{
		URL:         req.URL,
		URLPath:     req.Path,
		Method:      req.Method,
		Headers:     req.Headers,
		Body:        string(req.Body),
		ContentType: req.ContentType,
	}
}

// responseFrom builds the reply from the closed record.
func responseFrom(record *models.RequestRecord) *Response {
	headers := make(map[string]string, len(record.ResponseHeaders)+2)
	maps.Copy(headers, record.ResponseHeaders)
	headers[HeaderRequestID] = record.ID

	if record.Status == models.RequestStatusError {
		headers[HeaderErrorLogID] = record.ErrorLogID
	}

	if _, ok := headers[HeaderContentType]; !ok {
		headers[HeaderContentType] = contentTypeJSON
	}

	code := record.ResponseCode
	if code == 0 {
		code = http.StatusOK
	}

	return &Response{
		StatusCode: code,
		Headers:    headers,
		Body:       record.ResponseBody,
	}
}

func withContentType(headers map[string]string, contentType string) map[string]string {
	out := make(map[string]string, len(headers)+1)
	maps.Copy(out, headers)

	if _, ok := out[HeaderContentType]; !ok {
		out[HeaderContentType] = contentType
	}

	return out
}

func isEmptyBody(body json.RawMessage) bool {
	return models.IsNullJSON(body)
}
