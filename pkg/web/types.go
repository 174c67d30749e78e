// Package web provides HTTP request and response types for the restflow admin API.
package web

import "encoding/json"

// CreateRouteRequest represents the request body for registering a route.
type CreateRouteRequest struct {
	ID         string          `json:"id"          validate:"required"`
	Name       string          `json:"name"`
	FlowID     string          `json:"flow_id"     validate:"required"`
	Prefix     string          `json:"prefix"      validate:"required"`
	OpenAPI    json.RawMessage `json:"openapi,omitempty"`
	TypeSchema json.RawMessage `json:"type_schema,omitempty"`
}

// SaveFlowRequest represents the request body for creating or replacing a flow.
type SaveFlowRequest struct {
	Name  string             `json:"name"  validate:"required,min=3"`
	Input string             `json:"input"`
	Steps []*FlowStepRequest `json:"steps" validate:"required,min=1,dive"`
}

type FlowStepRequest struct {
	ID      string         `json:"id"      validate:"required"`
	Name    string         `json:"name"`
	Action  string         `json:"action"  validate:"required"`
	Config  map[string]any `json:"config"`
	Enabled bool           `json:"enabled"`
}
