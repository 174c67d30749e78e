package dispatch

import (
	"encoding/json"

	"github.com/dukex/restflow/pkg/faults"
	"github.com/dukex/restflow/pkg/lifecycle"
	"github.com/moogar0880/problems"
)

// errorResponse is the response recorded for a failed request. Failures that carry their
// own body answer with it; all others answer with a problem document.
func errorResponse(err error, instance string) *lifecycle.Response {
	code := faults.StatusCode(err)

	if body, ok := faults.BodyOf(err); ok {
		raw, marshalErr := json.Marshal(body)
		if marshalErr == nil {
			return &lifecycle.Response{
				StatusCode: code,
				Headers:    map[string]string{HeaderContentType: contentTypeJSON},
				Body:       raw,
			}
		}
	}

	return &lifecycle.Response{
		StatusCode: code,
		Headers:    map[string]string{HeaderContentType: contentTypeProblem},
		Body:       ProblemBody(err, instance),
	}
}

// ProblemBody renders err as an RFC 7807 document typed by its classification.
func ProblemBody(err error, instance string) json.RawMessage {
	problem := problems.NewStatusProblem(faults.StatusCode(err)).
		WithInstance(instance).
		WithType(faults.KindOf(err).String())

	if err != nil {
		problem = problem.WithDetail(err.Error())
	}

	raw, marshalErr := json.Marshal(problem)
	if marshalErr != nil {
		return emptyObject
	}

	return raw
}
