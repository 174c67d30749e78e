package models

import (
	"encoding/json"
	"slices"
	"time"
)

// RequestStatus is the lifecycle state of an inbound request.
type RequestStatus string

const (
	RequestStatusReceived   RequestStatus = "RECEIVED"
	RequestStatusProcessing RequestStatus = "PROCESSING"
	RequestStatusDone       RequestStatus = "DONE"
	RequestStatusError      RequestStatus = "ERROR"
)

// Persisted request log field names.
const (
	RequestFieldStatus          = "status"
	RequestFieldURL             = "url"
	RequestFieldURLPath         = "url_path"
	RequestFieldMethod          = "http_method"
	RequestFieldHeaders         = "http_headers"
	RequestFieldBody            = "http_body"
	RequestFieldContentType     = "http_content_type"
	RequestFieldRoute           = "route"
	RequestFieldFlowRun         = "flow_run"
	RequestFieldErrorMessage    = "error_message"
	RequestFieldErrorLogID      = "error_logid"
	RequestFieldResponseCode    = "http_response_code"
	RequestFieldResponseHeaders = "response_header"
	RequestFieldResponseBody    = "response_body"
	RequestFieldResultText      = "result_text"
)

var transitions = map[RequestStatus][]RequestStatus{
	RequestStatusReceived:   {RequestStatusProcessing, RequestStatusError},
	RequestStatusProcessing: {RequestStatusDone, RequestStatusError},
}

// IsTerminal reports whether no further transition is allowed.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusDone || s == RequestStatusError
}

// CanTransitionTo reports whether next is a legal forward step from s.
// DONE is only reachable through PROCESSING; ERROR from any non-terminal state.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	return slices.Contains(transitions[s], next)
}

// RequestRecord is the queryable lifecycle log of one inbound call.
type RequestRecord struct {
	ID              string            `json:"id"`
	Status          RequestStatus     `json:"status"`
	URL             string            `json:"url"`
	URLPath         string            `json:"url_path"`
	Method          string            `json:"http_method"`
	Headers         map[string]string `json:"http_headers,omitempty"`
	Body            string            `json:"http_body,omitempty"`
	ContentType     string            `json:"http_content_type,omitempty"`
	RouteID         string            `json:"route,omitempty"`
	FlowRun         string            `json:"flow_run,omitempty"`
	ErrorMessage    string            `json:"error_message,omitempty"`
	ErrorLogID      string            `json:"error_logid,omitempty"`
	ResponseCode    int               `json:"http_response_code,omitempty"`
	ResponseHeaders map[string]string `json:"response_header,omitempty"`
	ResponseBody    json.RawMessage   `json:"response_body,omitempty"`
	ResultText      string            `json:"result_text,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// RequestFields is a partial update of a request record keyed by persisted field name.
type RequestFields map[string]any

// Apply assigns every field in fields to the record.
func (r *RequestRecord) Apply(fields RequestFields) error {
	for name, value := range fields {
		if err := r.setField(name, value); err != nil {
			return err
		}
	}

	return nil
}

func (r *RequestRecord) setField(name string, value any) error {
	invalid := &FieldError{Field: name, Err: ErrInvalidFieldValue}

	switch name {
	case RequestFieldStatus:
		switch v := value.(type) {
		case RequestStatus:
			r.Status = v
		case string:
			r.Status = RequestStatus(v)
		default:
			return invalid
		}
	case RequestFieldResponseCode:
		code, ok := value.(int)
		if !ok {
			return invalid
		}

		r.ResponseCode = code
	case RequestFieldHeaders, RequestFieldResponseHeaders:
		headers, ok := value.(map[string]string)
		if !ok && value != nil {
			return invalid
		}

		if name == RequestFieldHeaders {
			r.Headers = headers
		} else {
			r.ResponseHeaders = headers
		}
	case RequestFieldResponseBody:
		raw, err := rawJSON(value)
		if err != nil {
			return invalid
		}

		r.ResponseBody = raw
	default:
		target := r.stringField(name)
		if target == nil {
			return &FieldError{Field: name, Err: ErrUnknownField}
		}

		s, ok := value.(string)
		if !ok {
			return invalid
		}

		*target = s
	}

	return nil
}

func (r *RequestRecord) stringField(name string) *string {
	switch name {
	case RequestFieldURL:
		return &r.URL
	case RequestFieldURLPath:
		return &r.URLPath
	case RequestFieldMethod:
		return &r.Method
	case RequestFieldBody:
		return &r.Body
	case RequestFieldContentType:
		return &r.ContentType
	case RequestFieldRoute:
		return &r.RouteID
	case RequestFieldFlowRun:
		return &r.FlowRun
	case RequestFieldErrorMessage:
		return &r.ErrorMessage
	case RequestFieldErrorLogID:
		return &r.ErrorLogID
	case RequestFieldResultText:
		return &r.ResultText
	default:
		return nil
	}
}

// Field returns the value of a persisted field by its storage name.
func (r *RequestRecord) Field(name string) (any, error) {
	switch name {
	case RequestFieldStatus:
		return r.Status, nil
	case RequestFieldResponseCode:
		return r.ResponseCode, nil
	case RequestFieldHeaders:
		return r.Headers, nil
	case RequestFieldResponseHeaders:
		return r.ResponseHeaders, nil
	case RequestFieldResponseBody:
		return r.ResponseBody, nil
	}

	target := r.stringField(name)
	if target == nil {
		return nil, &FieldError{Field: name, Err: ErrUnknownField}
	}

	return *target, nil
}
