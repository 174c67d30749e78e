// Package events defines the notifications emitted about request lifecycles and routes.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every restflow event.
const Topic = "restflow.requests"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RequestCompletedEvent EventType = "request.completed"
	RequestFailedEvent    EventType = "request.failed"
	RouteUpdatedEvent     EventType = "route.updated"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func newBase(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// RequestCompleted is published once a request record reaches DONE.
type RequestCompleted struct {
	BaseEvent

	RequestID    string `json:"request_id"`
	RouteID      string `json:"route_id"`
	FlowRun      string `json:"flow_run"`
	ResponseCode int    `json:"response_code"`
	ResultText   string `json:"result_text,omitempty"`
}

func NewRequestCompleted(requestID, routeID, flowRun string, responseCode int, resultText string) RequestCompleted {
	return RequestCompleted{
		BaseEvent:    newBase(RequestCompletedEvent),
		RequestID:    requestID,
		RouteID:      routeID,
		FlowRun:      flowRun,
		ResponseCode: responseCode,
		ResultText:   resultText,
	}
}

func (e RequestCompleted) GetType() EventType {
	return RequestCompletedEvent
}

// RequestFailed is published once a request record reaches ERROR.
type RequestFailed struct {
	BaseEvent

	RequestID    string `json:"request_id"`
	RouteID      string `json:"route_id,omitempty"`
	FlowRun      string `json:"flow_run,omitempty"`
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error"`
	ErrorLogID   string `json:"error_logid"`
	Kind         string `json:"kind"`
}

func NewRequestFailed(requestID, routeID, flowRun string, responseCode int, errMessage, errorLogID, kind string) RequestFailed {
	return RequestFailed{
		BaseEvent:    newBase(RequestFailedEvent),
		RequestID:    requestID,
		RouteID:      routeID,
		FlowRun:      flowRun,
		ResponseCode: responseCode,
		Error:        errMessage,
		ErrorLogID:   errorLogID,
		Kind:         kind,
	}
}

func (e RequestFailed) GetType() EventType {
	return RequestFailedEvent
}

// RouteUpdated is published when a stored route changes, so other instances drop their
// cached route table.
type RouteUpdated struct {
	BaseEvent

	RouteID string `json:"route_id"`
	Field   string `json:"field,omitempty"`
}

func NewRouteUpdated(routeID, field string) RouteUpdated {
	return RouteUpdated{
		BaseEvent: newBase(RouteUpdatedEvent),
		RouteID:   routeID,
		Field:     field,
	}
}

func (e RouteUpdated) GetType() EventType {
	return RouteUpdatedEvent
}
