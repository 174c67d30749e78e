package models

// ExecutionContext is the state shared by the steps of one flow run.
type ExecutionContext struct {
	ID     string `json:"id"`
	FlowID string `json:"flow_id"`
	Route  *Route `json:"route,omitempty"`
	// BasePath is the deployment prefix route prefixes are relative to.
	BasePath string `json:"base_path,omitempty"`
	// Input names the entry of Inputs holding the record the run serves.
	Input        string            `json:"input,omitempty"`
	Inputs       map[string]any    `json:"inputs,omitempty"`
	Placeholders map[string]string `json:"placeholders,omitempty"`
	StepResults  map[string]any    `json:"step_results,omitempty"`
}

// Request returns the request record bound to the named input, if the input is one.
func (e *ExecutionContext) Request(input string) (*RequestRecord, bool) {
	record, ok := e.Inputs[input].(*RequestRecord)

	return record, ok && record != nil
}

// RequestInput returns the record bound to the run's declared input.
func (e *ExecutionContext) RequestInput() (*RequestRecord, bool) {
	input := e.Input
	if input == "" {
		input = DefaultFlowInput
	}

	return e.Request(input)
}
