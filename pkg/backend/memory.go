package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// MemoryReader serves rows held in memory. Attribute expressions are dotted paths into the
// stored records; a path crossing a list yields the list of values, and a ":count" or ":sum"
// suffix aggregates it.
type MemoryReader struct {
	mu       sync.RWMutex
	entities map[string][]map[string]any
}

func NewMemoryReader() *MemoryReader {
	return &MemoryReader{entities: map[string][]map[string]any{}}
}

// LoadMemoryReader reads a JSON object mapping entity aliases to their records.
func LoadMemoryReader(path string) (*MemoryReader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backend rows: %w", err)
	}

	var entities map[string][]map[string]any

	err = json.Unmarshal(data, &entities)
	if err != nil {
		return nil, fmt.Errorf("failed to decode backend rows %s: %w", path, err)
	}

	reader := NewMemoryReader()
	for entity, records := range entities {
		reader.Put(entity, records)
	}

	return reader, nil
}

// Put replaces the records of an entity.
func (r *MemoryReader) Put(entity string, records []map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entities[entity] = records
}

func (r *MemoryReader) Read(_ context.Context, query Query) ([]map[string]any, error) {
	r.mu.RLock()
	records, ok := r.entities[query.Entity]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, query.Entity)
	}

	query.Progress.Report("reading " + query.Entity)

	result := []map[string]any{}

	for _, record := range records {
		if !matches(record, query.Filters) {
			continue
		}

		row := make(map[string]any, len(query.Attributes))
		for _, attr := range query.Attributes {
			row[attr.Property] = evaluate(record, attr.Expression)
		}

		result = append(result, row)
	}

	query.Progress.Report(fmt.Sprintf("read %d %s rows", len(result), query.Entity))

	return result, nil
}

func matches(record map[string]any, filters map[string]any) bool {
	for name, want := range filters {
		if fmt.Sprint(lookupPath(record, strings.Split(name, "."))) != fmt.Sprint(want) {
			return false
		}
	}

	return true
}

func evaluate(record map[string]any, expression string) any {
	path, aggregation, _ := strings.Cut(expression, ":")
	value := lookupPath(record, strings.Split(path, "."))

	switch aggregation {
	case "count":
		if list, ok := value.([]any); ok {
			return len(list)
		}

		if value == nil {
			return 0
		}

		return 1
	case "sum":
		list, ok := value.([]any)
		if !ok {
			list = []any{value}
		}

		total := 0.0

		for _, item := range list {
			switch n := item.(type) {
			case int:
				total += float64(n)
			case int64:
				total += float64(n)
			case float64:
				total += n
			}
		}

		return total
	default:
		return value
	}
}

func lookupPath(value any, path []string) any {
	if len(path) == 0 {
		return value
	}

	switch v := value.(type) {
	case map[string]any:
		return lookupPath(v[path[0]], path[1:])
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, lookupPath(item, path))
		}

		return out
	case []map[string]any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, lookupPath(item, path))
		}

		return out
	default:
		return nil
	}
}
