package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/restflow/pkg/channels/gochannel"
	"github.com/dukex/restflow/pkg/channels/kafka"
	"github.com/dukex/restflow/pkg/eventbus"
)

const serviceName = "restflow"

func NewEventBus(provider string, brokers string, logger *slog.Logger) (eventbus.EventBus, error) {
	watermillLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermillLogger, kafka.ParseBrokers(brokers), serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(watermillLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "none":
		return eventbus.NewNoopEventBus(), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
