package openapi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dukex/restflow/pkg/faults"
	"github.com/tidwall/gjson"
)

// DefaultResponseKey is the literal key searched by FindDefaultResponse.
const DefaultResponseKey = "defaultResponse"

const jsonContentType = "application/json"

// successCodes lists the response codes checked for a documented success body, in order.
var successCodes = []string{"200", "201", "default"}

// Document is a stored OpenAPI document. Object member order is kept as written.
type Document struct {
	raw  []byte
	root gjson.Result
}

// ParseDocument wraps raw without copying. raw must be a JSON object.
func ParseDocument(raw []byte) (*Document, error) {
	if !gjson.ValidBytes(raw) {
		return nil, faults.New("ParseDocument", faults.ErrInvalidDocument, "document is not valid JSON")
	}

	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, faults.New("ParseDocument", faults.ErrInvalidDocument, "document must be a JSON object")
	}

	return &Document{raw: raw, root: root}, nil
}

func (d *Document) Raw() []byte {
	return d.raw
}

func (d *Document) components() gjson.Result {
	components, _ := lookup(d.root, "components")
	schemas, _ := lookup(components, "schemas")

	return schemas
}

// Schemas classifies every entry of components.schemas in declaration order.
func (d *Document) Schemas() (*Schemas, error) {
	components := d.components()
	schemas := &Schemas{}

	var parseErr error

	components.ForEach(func(key, value gjson.Result) bool {
		p := &parser{schemas: components, resolving: map[string]bool{key.String(): true}}

		node, err := p.parse(value, schemaRefPrefix+escapePointer(key.String()))
		if err != nil {
			parseErr = err

			return false
		}

		schemas.entries = append(schemas.entries, NamedSchema{Name: key.String(), Node: node})

		return true
	})

	if parseErr != nil {
		return nil, parseErr
	}

	return schemas, nil
}

// Schema classifies a fragment of this document, resolving its local references.
func (d *Document) Schema(raw []byte) (*Node, error) {
	return ParseSchema(raw, d.components())
}

// Operation finds the operation for method under the first candidate path that matches a
// declared path. Templated segments such as {id} match any single segment.
func (d *Document) Operation(method string, candidates ...string) (*Operation, bool) {
	paths, ok := lookup(d.root, "paths")
	if !ok {
		return nil, false
	}

	method = strings.ToLower(method)

	for _, candidate := range candidates {
		var found *Operation

		paths.ForEach(func(key, item gjson.Result) bool {
			params, matched := matchPath(key.String(), candidate)
			if !matched {
				return true
			}

			op, ok := lookup(item, method)
			if !ok {
				return true
			}

			found = &Operation{Path: key.String(), Method: method, PathParams: params, doc: d, node: op}

			return false
		})

		if found != nil {
			return found, true
		}
	}

	return nil, false
}

// Operation is a single method under a declared path.
type Operation struct {
	Path       string
	Method     string
	PathParams map[string]string

	doc  *Document
	node gjson.Result
}

func (o *Operation) successContent() (gjson.Result, bool) {
	responses, ok := lookup(o.node, "responses")
	if !ok {
		return gjson.Result{}, false
	}

	for _, code := range successCodes {
		response, ok := lookup(responses, code)
		if !ok {
			continue
		}

		content, _ := lookup(response, "content")
		if media, ok := lookup(content, jsonContentType); ok {
			return media, true
		}
	}

	return gjson.Result{}, false
}

// ResponseSchema returns the classified schema of the documented success response.
func (o *Operation) ResponseSchema() (*Node, bool, error) {
	media, ok := o.successContent()
	if !ok {
		return nil, false, nil
	}

	schema, ok := lookup(media, "schema")
	if !ok {
		return nil, false, nil
	}

	node, err := o.doc.Schema([]byte(schema.Raw))
	if err != nil {
		return nil, false, err
	}

	return node, true, nil
}

// Example returns the documented success example, if any.
func (o *Operation) Example() (json.RawMessage, bool) {
	media, ok := o.successContent()
	if !ok {
		return nil, false
	}

	example, ok := lookup(media, "example")
	if !ok {
		return nil, false
	}

	return json.RawMessage(example.Raw), true
}

// FindDefaultResponse searches raw depth first for a member keyed "defaultResponse" and
// returns the first value found. Members of an object are checked before its children.
func FindDefaultResponse(raw []byte) (json.RawMessage, bool) {
	if !gjson.ValidBytes(raw) {
		return nil, false
	}

	found, ok := findKey(gjson.ParseBytes(raw), DefaultResponseKey)
	if !ok {
		return nil, false
	}

	return json.RawMessage(found.Raw), true
}

func findKey(value gjson.Result, key string) (gjson.Result, bool) {
	if value.IsObject() {
		if found, ok := lookup(value, key); ok {
			return found, true
		}
	}

	if !value.IsObject() && !value.IsArray() {
		return gjson.Result{}, false
	}

	var (
		found gjson.Result
		ok    bool
	)

	value.ForEach(func(_, child gjson.Result) bool {
		found, ok = findKey(child, key)

		return !ok
	})

	return found, ok
}

// matchPath matches a request path against a declared path template.
func matchPath(template, path string) (map[string]string, bool) {
	want := strings.Split(strings.Trim(template, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")

	if len(want) != len(got) {
		return nil, false
	}

	params := map[string]string{}

	for i, segment := range want {
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") && len(segment) > 2 {
			if got[i] == "" {
				return nil, false
			}

			params[segment[1:len(segment)-1]] = got[i]

			continue
		}

		if segment != got[i] {
			return nil, false
		}
	}

	return params, true
}

// NamedSchema is a top-level entry of components.schemas.
type NamedSchema struct {
	Name string
	Node *Node
}

// Schemas is the ordered components.schemas tree.
type Schemas struct {
	entries []NamedSchema
}

// NewSchemas builds a tree from already classified entries.
func NewSchemas(entries ...NamedSchema) *Schemas {
	return &Schemas{entries: entries}
}

func (s *Schemas) Get(name string) (*Node, bool) {
	for _, e := range s.entries {
		if e.Name == name {
			return e.Node, true
		}
	}

	return nil, false
}

func (s *Schemas) All() []NamedSchema {
	return s.entries
}

func (s *Schemas) Len() int {
	return len(s.entries)
}

func (s *Schemas) String() string {
	names := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		names = append(names, e.Name)
	}

	return fmt.Sprintf("schemas[%s]", strings.Join(names, ","))
}
