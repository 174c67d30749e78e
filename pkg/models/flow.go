package models

import "time"

// DefaultFlowInput is the input name the request record is bound to when a flow declares none.
const DefaultFlowInput = "request"

// Flow is a persisted pipeline of steps executed for every request routed to it.
type Flow struct {
	ID        string      `json:"id"         validate:"required"`
	Name      string      `json:"name"       validate:"required,min=3"`
	Input     string      `json:"input"`
	Steps     []*FlowStep `json:"steps"      validate:"required,min=1,dive"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// InputName returns the declared input name, defaulting to DefaultFlowInput.
func (f *Flow) InputName() string {
	if f.Input == "" {
		return DefaultFlowInput
	}

	return f.Input
}

type FlowStep struct {
	ID      string         `json:"id"      validate:"required"`
	Name    string         `json:"name"`
	Action  string         `json:"action"  validate:"required"`
	Config  map[string]any `json:"config"`
	Enabled bool           `json:"enabled"`
}
