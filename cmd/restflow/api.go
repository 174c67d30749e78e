package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukex/restflow/pkg/dispatch"
	"github.com/dukex/restflow/pkg/eventbus"
	"github.com/dukex/restflow/pkg/events"
	"github.com/dukex/restflow/pkg/flow"
	"github.com/dukex/restflow/pkg/lifecycle"
	"github.com/dukex/restflow/pkg/metrics"
	"github.com/dukex/restflow/pkg/openapi"
	"github.com/dukex/restflow/pkg/persistence"
	"github.com/dukex/restflow/pkg/registry"
	"github.com/dukex/restflow/pkg/routing"
	"github.com/dukex/restflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	recorder    *lifecycle.Logger
	resolver    *routing.Resolver
	tracer      trace.Tracer
	metrics     *metrics.Metrics
	prefix      string
	validate    *validator.Validate
}

// NewAPI wires the request pipeline. The registry's actions must write their responses
// through recorder.
func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	recorder *lifecycle.Logger,
	tracer trace.Tracer,
	m *metrics.Metrics,
	prefix string,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		recorder:    recorder,
		resolver:    routing.NewResolver(persistence.RouteRepository(), logger),
		tracer:      tracer,
		metrics:     m,
		prefix:      prefix,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Subscribe drops the route cache whenever any instance reports a route change.
func (a *API) Subscribe(ctx context.Context) error {
	err := a.eventBus.Handle(events.RouteUpdatedEvent, func(ctx context.Context, event any) error {
		if updated, ok := event.(*events.RouteUpdated); ok {
			a.logger.DebugContext(ctx, "Route changed, dropping route cache", "route_id", updated.RouteID)
		}

		a.resolver.Invalidate()

		return nil
	})
	if err != nil {
		return err
	}

	return a.eventBus.Subscribe(ctx)
}

func (a *API) App() *fiber.App {
	engine := flow.NewEngine(a.registry, a.tracer, a.metrics, a.logger)
	invoker := flow.NewInvoker(a.persistence.FlowRepository(), engine, a.prefix, a.logger)

	dispatcher := dispatch.NewDispatcher(a.prefix, dispatch.Dependencies{
		Routes:    a.resolver,
		Lifecycle: a.recorder,
		Invoker:   invoker,
		Validator: openapi.NewValidator(),
		Publisher: a.eventBus,
		Tracer:    a.tracer,
		Metrics:   a.metrics,
		Logger:    a.logger,
	})

	handlers := web.NewAPIHandlers(a.persistence, a.resolver, a.registry, a.validate, a.eventBus, a.metrics, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("restflow")
	})

	app.Get("/health", handlers.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(a.metrics.Handler()))

	admin := app.Group("/admin")
	admin.Get("/routes", handlers.GetRoutes)
	admin.Post("/routes", handlers.CreateRoute)
	admin.Get("/routes/:id", handlers.GetRoute)
	admin.Get("/flows", handlers.GetFlows)
	admin.Get("/flows/:id", handlers.GetFlow)
	admin.Put("/flows/:id", handlers.SaveFlow)
	admin.Get("/requests/:id", handlers.GetRequest)
	admin.Get("/actions", handlers.GetActions)

	app.All("/"+dispatcher.Prefix()+"/*", web.DispatchHandler(dispatcher))

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
