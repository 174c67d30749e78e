// Package persistence provides the storage abstraction for routes, flows and request logs.
package persistence

import (
	"context"

	"github.com/dukex/restflow/pkg/models"
)

type Persistence interface {
	RouteRepository() RouteRepository
	RequestRepository() RequestRepository
	FlowRepository() FlowRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// RouteRepository stores route configurations. GetAll returns routes in storage order,
// which is insertion order unless a position was set explicitly.
type RouteRepository interface {
	GetAll(ctx context.Context) ([]*models.Route, error)
	GetByID(ctx context.Context, id string) (*models.Route, error)
	Save(ctx context.Context, route *models.Route) error
	UpdateField(ctx context.Context, id string, field string, value any) error
}

// RequestRepository stores request lifecycle records. Records are never deleted.
type RequestRepository interface {
	Create(ctx context.Context, record *models.RequestRecord) error
	GetByID(ctx context.Context, id string) (*models.RequestRecord, error)
	Update(ctx context.Context, id string, fields models.RequestFields) error
}

type FlowRepository interface {
	GetAll(ctx context.Context) ([]*models.Flow, error)
	GetByID(ctx context.Context, id string) (*models.Flow, error)
	Save(ctx context.Context, flow *models.Flow) error
}
