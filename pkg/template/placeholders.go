package template

import (
	"net/url"
	"os"
	"strings"

	"github.com/dukex/restflow/pkg/models"
)

// Placeholder names.
const (
	KeyRequestURL         = "request.url"
	KeyRequestPath        = "request.path"
	KeyRequestSubpath     = "request.subpath"
	KeyRequestMethod      = "request.method"
	KeyRequestBody        = "request.body"
	KeyRequestContentType = "request.content_type"
	KeyRouteID            = "route.id"
	KeyRoutePrefix        = "route.prefix"
	KeyTaskID             = "task.id"
	KeyTaskFlowRun        = "task.flow_run"

	PrefixRequestHeader = "request.header."
	PrefixRequestQuery  = "request.query."
	PrefixRequestParam  = "request.path."
	PrefixEnv           = "env."

	// EnvNamespace marks the process variables visible to flows; the rest of the environment,
	// including connection strings, is never exposed.
	EnvNamespace = "RESTFLOW_"
)

// Placeholders is a flat name to value map, read only once built.
type Placeholders map[string]string

// NewPlaceholders collects the values visible to a flow run. Only environment entries in
// EnvNamespace are kept, named without the namespace: RESTFLOW_REGION becomes env.REGION.
func NewPlaceholders(execCtx *models.ExecutionContext, record *models.RequestRecord, environ []string) Placeholders {
	p := Placeholders{}

	if execCtx != nil {
		p[KeyTaskID] = execCtx.ID
		p[KeyTaskFlowRun] = execCtx.ID

		if execCtx.Route != nil {
			p[KeyRouteID] = execCtx.Route.ID
			p[KeyRoutePrefix] = execCtx.Route.Prefix
		}
	}

	if record != nil {
		p[KeyRequestURL] = record.URL
		p[KeyRequestPath] = record.URLPath
		p[KeyRequestMethod] = record.Method
		p[KeyRequestBody] = record.Body
		p[KeyRequestContentType] = record.ContentType

		if record.FlowRun != "" {
			p[KeyTaskFlowRun] = record.FlowRun
		}

		if prefix, ok := p[KeyRoutePrefix]; ok {
			base := ""
			if execCtx != nil {
				base = execCtx.BasePath
			}

			p[KeyRequestSubpath] = Subpath(Subpath(record.URLPath, base), prefix)
		}

		for name, value := range record.Headers {
			p[PrefixRequestHeader+name] = value
		}

		if u, err := url.Parse(record.URL); err == nil {
			for name, values := range u.Query() {
				if len(values) > 0 {
					p[PrefixRequestQuery+name] = values[0]
				}
			}
		}
	}

	for _, env := range environ {
		name, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}

		if short, found := strings.CutPrefix(name, EnvNamespace); found && short != "" {
			p[PrefixEnv+short] = value
		}
	}

	return p
}

// FromEnvironment is NewPlaceholders over the process environment.
func FromEnvironment(execCtx *models.ExecutionContext, record *models.RequestRecord) Placeholders {
	return NewPlaceholders(execCtx, record, os.Environ())
}

// Subpath is the part of path below the route prefix, with a leading slash.
func Subpath(path, prefix string) string {
	rest := strings.TrimPrefix(strings.TrimLeft(path, "/"), strings.TrimLeft(prefix, "/"))

	return "/" + strings.TrimLeft(rest, "/")
}

// IsExpression reports whether s is a template rather than a placeholder name.
func IsExpression(s string) bool {
	return strings.Contains(s, "{{")
}

// With returns a copy of p extended with values.
func (p Placeholders) With(values map[string]string) Placeholders {
	out := make(Placeholders, len(p)+len(values))
	for k, v := range p {
		out[k] = v
	}

	for k, v := range values {
		out[k] = v
	}

	return out
}

// Resolve evaluates expr. Templates are executed over the placeholders, addressed with
// index . "name"; anything else is a name lookup. Missing names resolve to the empty string.
func (p Placeholders) Resolve(expr string) (string, error) {
	if !IsExpression(expr) {
		return p[expr], nil
	}

	out, err := execute(expr, map[string]string(p))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(out), nil
}

// Render executes a template over the placeholders and decodes its output like Render.
func (p Placeholders) Render(expr string) (any, error) {
	if !IsExpression(expr) {
		return expr, nil
	}

	return Render(expr, map[string]string(p))
}
