// Package models defines the core domain models for OpenAPI-described data routes.
package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Route field names accepted by partial route updates.
const (
	RouteFieldName       = "name"
	RouteFieldFlowID     = "flow_id"
	RouteFieldPrefix     = "prefix"
	RouteFieldOpenAPI    = "openapi"
	RouteFieldTypeSchema = "type_schema"
)

// Route maps a URL prefix to a flow and to the OpenAPI contract describing its endpoints.
// Prefixes are not required to be unique; resolution picks the first stored match.
type Route struct {
	ID         string          `json:"id"                    validate:"required"`
	Name       string          `json:"name"`
	FlowID     string          `json:"flow_id"               validate:"required"`
	Prefix     string          `json:"prefix"                validate:"required"`
	OpenAPI    json.RawMessage `json:"openapi,omitempty"`
	TypeSchema json.RawMessage `json:"type_schema,omitempty"` // JSON schema the OpenAPI document must satisfy
	Position   int             `json:"position"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// SetField assigns a single persisted field by its storage name.
func (r *Route) SetField(field string, value any) error {
	switch field {
	case RouteFieldName, RouteFieldFlowID, RouteFieldPrefix:
		s, ok := value.(string)
		if !ok {
			return &FieldError{Field: field, Err: ErrInvalidFieldValue}
		}

		switch field {
		case RouteFieldName:
			r.Name = s
		case RouteFieldFlowID:
			r.FlowID = s
		default:
			r.Prefix = s
		}
	case RouteFieldOpenAPI, RouteFieldTypeSchema:
		raw, err := rawJSON(value)
		if err != nil {
			return &FieldError{Field: field, Err: err}
		}

		if field == RouteFieldOpenAPI {
			r.OpenAPI = raw
		} else {
			r.TypeSchema = raw
		}
	default:
		return &FieldError{Field: field, Err: ErrUnknownField}
	}

	return nil
}

// HasOpenAPI reports whether the route carries a contract.
func (r *Route) HasOpenAPI() bool {
	return !IsNullJSON(r.OpenAPI)
}

// HasTypeSchema reports whether the route constrains its contract with a JSON schema.
func (r *Route) HasTypeSchema() bool {
	return !IsNullJSON(r.TypeSchema)
}

// IsNullJSON reports whether raw holds no value: empty, blank or the literal null.
func IsNullJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)

	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// NullToNil drops a raw value holding only null, so absent documents are stored as absent.
func NullToNil(raw json.RawMessage) json.RawMessage {
	if IsNullJSON(raw) {
		return nil
	}

	return raw
}

func rawJSON(value any) (json.RawMessage, error) {
	switch v := value.(type) {
	case json.RawMessage:
		return NullToNil(v), nil
	case []byte:
		return NullToNil(v), nil
	case nil:
		return nil, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, ErrInvalidFieldValue
		}

		return NullToNil(data), nil
	}
}
