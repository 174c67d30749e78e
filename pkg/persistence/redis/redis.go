// Package redis provides Redis persistence for routes, flows and request logs.
//
// Routes and flows are JSON strings indexed by a list that records insertion order.
// Request records are hashes so that every lifecycle transition is a single HSET of
// the changed fields.
package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/restflow/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "restflow:"

// Persistence implements the persistence layer on top of a Redis client.
type Persistence struct {
	client      goredis.UniversalClient
	logger      *slog.Logger
	routeRepo   *RouteRepository
	requestRepo *RequestRepository
	flowRepo    *FlowRepository
}

// NewPersistence connects to the Redis server described by databaseURL (redis://...).
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	opts, err := goredis.ParseURL(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := goredis.NewClient(opts)

	err = client.Ping(ctx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewPersistenceFromClient(client, logger), nil
}

// NewPersistenceFromClient wraps an existing client.
func NewPersistenceFromClient(client goredis.UniversalClient, logger *slog.Logger) *Persistence {
	return &Persistence{
		client:      client,
		logger:      logger,
		routeRepo:   &RouteRepository{client: client},
		requestRepo: &RequestRepository{client: client},
		flowRepo:    &FlowRepository{client: client},
	}
}

func (p *Persistence) Close(_ context.Context) error {
	err := p.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

func (p *Persistence) RouteRepository() persistence.RouteRepository {
	return p.routeRepo
}

func (p *Persistence) RequestRepository() persistence.RequestRepository {
	return p.requestRepo
}

func (p *Persistence) FlowRepository() persistence.FlowRepository {
	return p.flowRepo
}
