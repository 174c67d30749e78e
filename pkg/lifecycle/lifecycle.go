// Package lifecycle persists the RECEIVED → PROCESSING → DONE | ERROR log of every routed request.
//
// Each transition is written synchronously before the caller continues, so no HTTP response
// is produced while its record is still open. Terminal transitions are followed by a
// RequestCompleted or RequestFailed event; a failed publish is logged and counted but never
// changes the outcome of the request.
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/dukex/restflow/pkg/eventbus"
	"github.com/dukex/restflow/pkg/events"
	"github.com/dukex/restflow/pkg/faults"
	"github.com/dukex/restflow/pkg/metrics"
	"github.com/dukex/restflow/pkg/models"
	"github.com/dukex/restflow/pkg/persistence"
	"github.com/dukex/restflow/pkg/response"
	"github.com/google/uuid"
)

// ErrInvalidTransition is returned for backward transitions or transitions out of DONE/ERROR.
var ErrInvalidTransition = models.ErrInvalidTransition

// ErrRecordClosed is returned when a step writes to the response of a finished record.
var ErrRecordClosed = errors.New("request record is closed")

// Response is the HTTP outcome recorded with a terminal transition.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       json.RawMessage
}

type Logger struct {
	requests  persistence.RequestRepository
	publisher eventbus.EventPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewLogger(
	requests persistence.RequestRepository,
	publisher eventbus.EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Logger {
	if publisher == nil {
		publisher = eventbus.NewNoopEventBus()
	}

	return &Logger{
		requests:  requests,
		publisher: publisher,
		metrics:   m,
		logger:    logger.With("module", "lifecycle"),
	}
}

// Receive stores record as a new RECEIVED entry, assigning an id when it has none.
func (l *Logger) Receive(ctx context.Context, record *models.RequestRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	record.Status = models.RequestStatusReceived

	err := l.requests.Create(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to receive request: %w", err)
	}

	l.logger.DebugContext(ctx, "Request received", "request_id", record.ID, "method", record.Method, "path", record.URLPath)

	return nil
}

// MarkProcessing binds the record to its route and flow run.
func (l *Logger) MarkProcessing(ctx context.Context, record *models.RequestRecord, routeID, flowRun string) error {
	fields := models.RequestFields{
		models.RequestFieldRoute:   routeID,
		models.RequestFieldStatus:  models.RequestStatusProcessing,
		models.RequestFieldFlowRun: flowRun,
	}

	return l.transition(ctx, record, models.RequestStatusProcessing, fields)
}

// MarkDone closes the record successfully with the response that will be sent.
func (l *Logger) MarkDone(ctx context.Context, record *models.RequestRecord, resultText string, resp *Response) error {
	if resp == nil {
		resp = &Response{}
	}

	fields := models.RequestFields{
		models.RequestFieldStatus:          models.RequestStatusDone,
		models.RequestFieldResultText:      resultText,
		models.RequestFieldResponseCode:    resp.StatusCode,
		models.RequestFieldResponseHeaders: resp.Headers,
		models.RequestFieldResponseBody:    resp.Body,
	}

	err := l.transition(ctx, record, models.RequestStatusDone, fields)
	if err != nil {
		return err
	}

	l.publish(ctx, record.ID, events.NewRequestCompleted(record.ID, record.RouteID, record.FlowRun, resp.StatusCode, resultText))

	return nil
}

// MarkError closes the record as failed. The status code comes from resp when it carries one,
// otherwise from the classification of cause. A fresh correlation id is stored in
// record.ErrorLogID.
func (l *Logger) MarkError(ctx context.Context, record *models.RequestRecord, cause error, resp *Response) error {
	code := faults.StatusCode(cause)
	if resp != nil && resp.StatusCode != 0 {
		code = resp.StatusCode
	}

	message := ""
	if cause != nil {
		message = cause.Error()
	}

	logID := uuid.New().String()

	fields := models.RequestFields{
		models.RequestFieldStatus:       models.RequestStatusError,
		models.RequestFieldErrorMessage: message,
		models.RequestFieldErrorLogID:   logID,
		models.RequestFieldResponseCode: code,
	}

	if resp != nil {
		fields[models.RequestFieldResponseHeaders] = resp.Headers
		fields[models.RequestFieldResponseBody] = resp.Body
	}

	err := l.transition(ctx, record, models.RequestStatusError, fields)
	if err != nil {
		return err
	}

	l.logger.ErrorContext(ctx, "Request failed",
		"request_id", record.ID,
		"route_id", record.RouteID,
		"flow_run", record.FlowRun,
		"error_logid", logID,
		"error", message,
	)

	failed := events.NewRequestFailed(record.ID, record.RouteID, record.FlowRun, code, message, logID, faults.KindOf(cause).String())
	l.publish(ctx, record.ID, failed)

	return nil
}

func (l *Logger) transition(ctx context.Context, record *models.RequestRecord, next models.RequestStatus, fields models.RequestFields) error {
	if !record.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s to %s for request %s", ErrInvalidTransition, record.Status, next, record.ID)
	}

	err := l.requests.Update(ctx, record.ID, fields)
	if err != nil {
		return fmt.Errorf("failed to mark request %s %s: %w", record.ID, next, err)
	}

	err = record.Apply(fields)
	if err != nil {
		return err
	}

	record.UpdatedAt = time.Now().UTC()

	return nil
}

func (l *Logger) publish(ctx context.Context, key string, event eventbus.Event) {
	err := l.publisher.Publish(ctx, key, event)
	if err != nil {
		l.metrics.PublishFailed()
		l.logger.WarnContext(ctx, "Failed to publish lifecycle event", "event_type", event.GetType(), "request_id", key, "error", err)
	}
}

// MergeBody merges a step's partial body into the persisted response body.
func (l *Logger) MergeBody(ctx context.Context, record *models.RequestRecord, partial any) error {
	if record.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrRecordClosed, record.ID)
	}

	body, err := response.MergeBody(record.ResponseBody, partial)
	if err != nil {
		return fmt.Errorf("failed to merge response body: %w", err)
	}

	err = l.requests.Update(ctx, record.ID, models.RequestFields{models.RequestFieldResponseBody: body})
	if err != nil {
		return fmt.Errorf("failed to store response body: %w", err)
	}

	record.ResponseBody = body

	return nil
}

// SetHeaders adds headers to the persisted response headers, replacing equal names.
func (l *Logger) SetHeaders(ctx context.Context, record *models.RequestRecord, headers map[string]string) error {
	if record.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrRecordClosed, record.ID)
	}

	merged := make(map[string]string, len(record.ResponseHeaders)+len(headers))
	maps.Copy(merged, record.ResponseHeaders)
	maps.Copy(merged, headers)

	err := l.requests.Update(ctx, record.ID, models.RequestFields{models.RequestFieldResponseHeaders: merged})
	if err != nil {
		return fmt.Errorf("failed to store response headers: %w", err)
	}

	record.ResponseHeaders = merged

	return nil
}
