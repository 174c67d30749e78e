// Package main provides the restflow server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/restflow/pkg/cmd"
	"github.com/dukex/restflow/pkg/lifecycle"
	"github.com/dukex/restflow/pkg/log"
	"github.com/dukex/restflow/pkg/metrics"
	"github.com/dukex/restflow/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort      = 9091
	defaultAPIPrefix = "api/dataflow"
)

func main() {
	command := &cli.Command{
		Name:                  "restflow",
		Usage:                 "Serve backend entities through OpenAPI described routes",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Persistence URL (file://dir, postgres://..., redis://...)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "api-prefix",
				Usage:   "Path prefix routed requests are served under",
				Value:   defaultAPIPrefix,
				Sources: cli.EnvVars("API_PREFIX"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka, none)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers for the kafka event bus",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "backend-url",
				Usage:   "Tabular backend (postgres://... or file://rows.json); empty serves no rows",
				Sources: cli.EnvVars("BACKEND_URL"),
			},
			&cli.StringFlag{
				Name:  "plugins-path",
				Usage: "Path to the directory containing action plugins",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
			&cli.BoolFlag{
				Name:    "otel",
				Usage:   "Export traces through OTLP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
		},
		Action: run,
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"), command.String("log-format"))

	logger := log.WithModule("restflow")

	logger.InfoContext(ctx, "Initializing restflow")

	tracer := otelhelper.NoopTracer()

	if command.Bool("otel") {
		t, shutdown, err := otelhelper.NewTracer(ctx, "restflow")
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}

		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
			}
		}()

		tracer = t
	}

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	reader, closeReader, err := cmd.NewReader(ctx, logger, command.String("backend-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := closeReader(); err != nil {
			logger.ErrorContext(ctx, "Failed to close backend reader", "error", err)
		}
	}()

	m := metrics.New()
	recorder := lifecycle.NewLogger(persistence.RequestRepository(), eventBus, m, logger)

	registry, err := cmd.NewRegistry(logger, command.String("plugins-path"), reader, recorder)
	if err != nil {
		return err
	}

	api := NewAPI(logger, persistence, registry, eventBus, recorder, tracer, m, command.String("api-prefix"))

	err = api.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to route events: %w", err)
	}

	return api.Start(command.Int("port"))
}
