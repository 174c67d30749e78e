package dispatch

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dukex/restflow/pkg/events"
	"github.com/dukex/restflow/pkg/lifecycle"
	"github.com/dukex/restflow/pkg/models"
)

func (d *Dispatcher) getDocument(ctx context.Context, route *models.Route, record *models.RequestRecord) (string, *lifecycle.Response, error) {
	err := d.lifecycle.MarkProcessing(ctx, record, route.ID, "")
	if err != nil {
		return "", nil, err
	}

	body := route.OpenAPI
	if isEmptyBody(body) {
		body = json.RawMessage(`{}`)
	}

	return "openapi document served", &lifecycle.Response{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{HeaderContentType: contentTypeJSON},
		Body:       body,
	}, nil
}

// postDocument validates and stores a new contract for the route. An invalid document is
// answered with 400 and the list of failures.
func (d *Dispatcher) postDocument(
	ctx context.Context,
	route *models.Route,
	routePath string,
	req *Request,
	record *models.RequestRecord,
) (string, *lifecycle.Response, error) {
	err := d.validate(req.Body, route.TypeSchema)
	if err != nil {
		return "", nil, err
	}

	err = d.lifecycle.MarkProcessing(ctx, record, route.ID, "")
	if err != nil {
		return "", nil, err
	}

	updated, err := d.routes.UpdateField(ctx, routePath, models.RouteFieldOpenAPI, json.RawMessage(req.Body))
	if err != nil {
		return "", nil, err
	}

	err = d.publisher.Publish(ctx, updated.ID, events.NewRouteUpdated(updated.ID, models.RouteFieldOpenAPI))
	if err != nil {
		d.metrics.PublishFailed()
		d.logger.WarnContext(ctx, "Failed to publish route update", "route_id", updated.ID, "error", err)
	}

	d.logger.InfoContext(ctx, "OpenAPI document stored", "route_id", updated.ID, "request_id", record.ID)

	return "openapi document stored", &lifecycle.Response{
		StatusCode: http.StatusCreated,
		Headers: map[string]string{
			HeaderContentType: contentTypeJSON,
			HeaderPath:        d.documentLocation(),
		},
		Body: updated.OpenAPI,
	}, nil
}

// documentLocation names the deployment prefix, not the stored route.
func (d *Dispatcher) documentLocation() string {
	return http.MethodGet + " /" + d.prefix
}
