// Package read provides the entity read step of a flow.
package read

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/dukex/restflow/pkg/backend"
	"github.com/dukex/restflow/pkg/faults"
	"github.com/dukex/restflow/pkg/models"
	"github.com/dukex/restflow/pkg/openapi"
	"github.com/dukex/restflow/pkg/protocol"
	"github.com/dukex/restflow/pkg/response"
	"github.com/dukex/restflow/pkg/template"
)

var (
	ErrEntityMissing  = errors.New("missing or invalid 'entity' in configuration")
	ErrRouteMissing   = errors.New("flow run has no route")
	ErrSchemaNotFound = errors.New("response schema not found")
)

// Action reads the rows of one entity and merges the body they populate into the response.
type Action struct {
	Entity          string
	Table           string
	Filters         map[string]string
	OptionalFilters []string
	ResponseSchema  any
	Input           string

	reader backend.Reader
	writer protocol.ResponseWriter
}

func NewAction(config map[string]any, reader backend.Reader, writer protocol.ResponseWriter) (*Action, error) {
	entity, _ := config["entity"].(string)
	if entity == "" {
		return nil, ErrEntityMissing
	}

	table, _ := config["table"].(string)
	input, _ := config["input"].(string)

	filters := make(map[string]string)

	if filtersConfig, ok := config["filters"].(map[string]any); ok {
		for k, v := range filtersConfig {
			if strVal, ok := v.(string); ok {
				filters[k] = strVal
			}
		}
	}

	return &Action{
		Entity:          entity,
		Table:           table,
		Filters:         filters,
		OptionalFilters: stringList(config["optional_filters"]),
		ResponseSchema:  config["response_schema"],
		Input:           input,
		reader:          reader,
		writer:          writer,
	}, nil
}

// ShortAlias is the entity name without its qualifier.
func ShortAlias(entity string) string {
	return entity[strings.LastIndex(entity, ".")+1:]
}

func (a *Action) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (*protocol.StepResult, error) {
	logger = logger.With("action_type", "read", "entity", a.Entity)

	record, ok := a.request(executionCtx)
	if !ok {
		return nil, faults.New("read", faults.ErrUnsupportedInput, "read requires an http request input")
	}

	route := executionCtx.Route
	if route == nil {
		return nil, ErrRouteMissing
	}

	doc, err := openapi.ParseDocument(route.OpenAPI)
	if err != nil {
		return nil, err
	}

	schemas, err := doc.Schemas()
	if err != nil {
		return nil, err
	}

	entityNode, err := openapi.Locate(schemas, a.Entity, ShortAlias(a.Entity))
	if err != nil {
		return nil, err
	}

	bindings, err := openapi.ExtractAttributeBindings(entityNode)
	if err != nil {
		return nil, err
	}

	placeholders := template.Placeholders(executionCtx.Placeholders)
	subpath := placeholders[template.KeyRequestSubpath]
	if subpath == "" {
		subpath = template.Subpath(record.URLPath, route.Prefix)
	}

	operation, hasOperation := doc.Operation(record.Method, subpath, "/"+strings.TrimLeft(record.URLPath, "/"))
	if hasOperation {
		params := make(map[string]string, len(operation.PathParams))
		for name, value := range operation.PathParams {
			params[template.PrefixRequestParam+name] = value
		}

		placeholders = placeholders.With(params)
	}

	filters, err := a.resolveFilters(placeholders)
	if err != nil {
		return nil, err
	}

	attributes := make([]backend.Attribute, 0, len(bindings))
	for _, b := range bindings {
		attributes = append(attributes, backend.Attribute{Property: b.Property, Expression: b.Expression})
	}

	rows, err := a.reader.Read(ctx, backend.Query{
		Entity:     a.Entity,
		Table:      a.Table,
		Attributes: attributes,
		Filters:    filters,
		Progress: func(message string) {
			logger.DebugContext(ctx, "Read progress", "progress", message)
		},
	})
	if err != nil {
		return nil, err
	}

	body, err := a.buildBody(doc, schemas, operation, rows, placeholders)
	if err != nil {
		return nil, err
	}

	if err := a.writer.MergeBody(ctx, record, body); err != nil {
		return nil, fmt.Errorf("failed to store response body: %w", err)
	}

	logger.InfoContext(ctx, "Entity read", "rows", len(rows), "attributes", len(attributes))

	return &protocol.StepResult{
		Message:       fmt.Sprintf("read %d %s rows", len(rows), a.Entity),
		ProcessedRows: len(rows),
		Output:        body,
	}, nil
}

func (a *Action) request(executionCtx *models.ExecutionContext) (*models.RequestRecord, bool) {
	if a.Input != "" {
		return executionCtx.Request(a.Input)
	}

	return executionCtx.RequestInput()
}

// resolveFilters evaluates filter expressions in column order. An empty value fails the read
// unless its column is optional, in which case the filter is dropped.
func (a *Action) resolveFilters(placeholders template.Placeholders) (map[string]any, error) {
	filters := make(map[string]any, len(a.Filters))

	for _, column := range slices.Sorted(maps.Keys(a.Filters)) {
		value, err := placeholders.Resolve(a.Filters[column])
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", column, err)
		}

		if value == "" {
			if slices.Contains(a.OptionalFilters, column) {
				continue
			}

			return nil, faults.New("read", faults.ErrFilterValueMissing,
				fmt.Sprintf("filter %s (%s) resolved to an empty value", column, a.Filters[column]))
		}

		filters[column] = value
	}

	return filters, nil
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}

		return out
	default:
		return nil
	}
}

func (a *Action) buildBody(
	doc *openapi.Document,
	schemas *openapi.Schemas,
	operation *openapi.Operation,
	rows []map[string]any,
	placeholders template.Placeholders,
) (any, error) {
	node, err := a.responseSchema(doc, schemas, operation)
	if err != nil {
		return nil, err
	}

	if node == nil {
		return map[string]any{ShortAlias(a.Entity): rows}, nil
	}

	return response.Build(node, rows, a.Entity, placeholders)
}

func (a *Action) responseSchema(doc *openapi.Document, schemas *openapi.Schemas, operation *openapi.Operation) (*openapi.Node, error) {
	switch schema := a.ResponseSchema.(type) {
	case string:
		node, ok := schemas.Get(schema)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, schema)
		}

		return node, nil
	case map[string]any:
		raw, err := json.Marshal(schema)
		if err != nil {
			return nil, err
		}

		return doc.Schema(raw)
	}

	if operation == nil {
		return nil, nil
	}

	node, found, err := operation.ResponseSchema()
	if err != nil || !found {
		return nil, err
	}

	return node, nil
}
