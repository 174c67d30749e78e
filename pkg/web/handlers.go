package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/restflow/pkg/eventbus"
	"github.com/dukex/restflow/pkg/events"
	"github.com/dukex/restflow/pkg/metrics"
	"github.com/dukex/restflow/pkg/models"
	"github.com/dukex/restflow/pkg/openapi"
	"github.com/dukex/restflow/pkg/persistence"
	"github.com/dukex/restflow/pkg/registry"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// RouteCache is dropped whenever the stored route table changes.
type RouteCache interface {
	Invalidate()
}

type APIHandlers struct {
	persistence persistence.Persistence
	routes      RouteCache
	registry    *registry.Registry
	validator   *validator.Validate
	schemas     *openapi.Validator
	publisher   eventbus.EventPublisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewAPIHandlers(
	persistence persistence.Persistence,
	routes RouteCache,
	registry *registry.Registry,
	validator *validator.Validate,
	publisher eventbus.EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *APIHandlers {
	if publisher == nil {
		publisher = eventbus.NewNoopEventBus()
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &APIHandlers{
		persistence: persistence,
		routes:      routes,
		registry:    registry,
		validator:   validator,
		schemas:     openapi.NewValidator(),
		publisher:   publisher,
		metrics:     m,
		logger:      logger.With("module", "admin_api"),
	}
}

func (h *APIHandlers) GetRoutes(c fiber.Ctx) error {
	routes, err := h.persistence.RouteRepository().GetAll(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(routes)
}

func (h *APIHandlers) GetRoute(c fiber.Ctx) error {
	route, err := h.persistence.RouteRepository().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.JSON(route)
}

func (h *APIHandlers) CreateRoute(c fiber.Ctx) error {
	var req CreateRouteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	req.OpenAPI = models.NullToNil(req.OpenAPI)
	req.TypeSchema = models.NullToNil(req.TypeSchema)

	if req.OpenAPI != nil && req.TypeSchema != nil {
		result, err := h.schemas.Validate(req.OpenAPI, req.TypeSchema)
		if err != nil {
			return badRequest(c, "Invalid type schema: "+err.Error())
		}

		if !result.Valid {
			return c.Status(fiber.StatusBadRequest).JSON(result.Body())
		}
	}

	_, err := h.persistence.RouteRepository().GetByID(c.Context(), req.ID)
	if err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "route already exists", "id": req.ID})
	}

	if !persistence.IsRouteNotFound(err) {
		return internalError(c, err)
	}

	route := &models.Route{
		ID:         req.ID,
		Name:       req.Name,
		FlowID:     req.FlowID,
		Prefix:     req.Prefix,
		OpenAPI:    req.OpenAPI,
		TypeSchema: req.TypeSchema,
	}

	err = h.persistence.RouteRepository().Save(c.Context(), route)
	if err != nil {
		return internalError(c, err)
	}

	h.routes.Invalidate()

	err = h.publisher.Publish(c.Context(), route.ID, events.NewRouteUpdated(route.ID, ""))
	if err != nil {
		h.metrics.PublishFailed()
		h.logger.WarnContext(c.Context(), "Failed to publish route update", "route_id", route.ID, "error", err)
	}

	return c.Status(fiber.StatusCreated).JSON(route)
}

func (h *APIHandlers) GetFlows(c fiber.Ctx) error {
	flows, err := h.persistence.FlowRepository().GetAll(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(flows)
}

func (h *APIHandlers) GetFlow(c fiber.Ctx) error {
	flow, err := h.persistence.FlowRepository().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.JSON(flow)
}

// SaveFlow creates or replaces the flow named by the path. Every step must name a
// registered action and carry a configuration its schema accepts.
func (h *APIHandlers) SaveFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	var req SaveFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	flow := &models.Flow{
		ID:    id,
		Name:  req.Name,
		Input: req.Input,
		Steps: make([]*models.FlowStep, 0, len(req.Steps)),
	}

	for _, step := range req.Steps {
		if err := h.registry.ValidateConfig(step.Action, step.Config); err != nil {
			return badRequest(c, fmt.Sprintf("step %s: %v", step.ID, err))
		}

		flow.Steps = append(flow.Steps, &models.FlowStep{
			ID:      step.ID,
			Name:    step.Name,
			Action:  step.Action,
			Config:  step.Config,
			Enabled: step.Enabled,
		})
	}

	existing, err := h.persistence.FlowRepository().GetByID(c.Context(), id)
	if err == nil {
		flow.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, persistence.ErrFlowNotFound) {
		return internalError(c, err)
	}

	err = h.persistence.FlowRepository().Save(c.Context(), flow)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) GetRequest(c fiber.Ctx) error {
	record, err := h.persistence.RequestRepository().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.JSON(record)
}

func (h *APIHandlers) GetActions(c fiber.Ctx) error {
	return c.JSON(h.registry.GetAvailableActions())
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "restflow is healthy"
	httpStatus := http.StatusOK
	repositoryCheck := "ok"

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "restflow is unhealthy"
		httpStatus = http.StatusInternalServerError
		repositoryCheck = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
