package openapi

import (
	"errors"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// InvalidSwaggerKey is the body key listing contract validation failures.
const InvalidSwaggerKey = "Invalid Swagger"

const rootContext = "(root)"

var ErrEmptyDocument = errors.New("document is empty")

// ValidationError is a single structural failure, located by JSON pointer.
type ValidationError struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// Body renders the failures the way they are answered to the client.
func (r *ValidationResult) Body() map[string]any {
	errs := r.Errors
	if errs == nil {
		errs = []ValidationError{}
	}

	return map[string]any{InvalidSwaggerKey: errs}
}

// Validator checks documents against a route-type JSON schema.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks instance against schema. Results depend only on the inputs.
func (v *Validator) Validate(instance, schema []byte) (*ValidationResult, error) {
	if len(instance) == 0 {
		return nil, ErrEmptyDocument
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewBytesLoader(instance),
	)
	if err != nil {
		return nil, err
	}

	out := &ValidationResult{Valid: result.Valid(), Errors: []ValidationError{}}

	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Source:  pointerFromContext(desc.Context().String("/")),
			Message: desc.Description(),
		})
	}

	return out, nil
}

// pointerFromContext turns "(root)/paths/~1x" into "/paths/~1x"; the root itself is "/".
func pointerFromContext(context string) string {
	pointer := strings.TrimPrefix(context, rootContext)
	if pointer == "" {
		return "/"
	}

	return pointer
}
