package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/restflow/pkg/models"
	"github.com/dukex/restflow/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

const routeIndexKey = keyPrefix + "routes"

func routeKey(id string) string {
	return keyPrefix + "route:" + id
}

// RouteRepository stores routes as JSON strings; storage order is the index list order.
type RouteRepository struct {
	client goredis.UniversalClient
}

func (r *RouteRepository) GetAll(ctx context.Context) ([]*models.Route, error) {
	ids, err := r.client.LRange(ctx, routeIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}

	routes := make([]*models.Route, 0, len(ids))

	for i, id := range ids {
		route, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		route.Position = i + 1
		routes = append(routes, route)
	}

	return routes, nil
}

func (r *RouteRepository) GetByID(ctx context.Context, id string) (*models.Route, error) {
	data, err := r.client.Get(ctx, routeKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, persistence.NewRouteError("GetByID", id, persistence.ErrRouteNotFound)
		}

		return nil, persistence.NewRouteError("GetByID", id, err)
	}

	var route models.Route

	err = json.Unmarshal(data, &route)
	if err != nil {
		return nil, persistence.NewRouteError("GetByID", id, fmt.Errorf("failed to unmarshal route: %w", err))
	}

	return &route, nil
}

// Save stores the route and appends it to the index the first time it is seen.
func (r *RouteRepository) Save(ctx context.Context, route *models.Route) error {
	now := time.Now().UTC()
	if route.CreatedAt.IsZero() {
		route.CreatedAt = now
	}

	route.UpdatedAt = now

	data, err := json.Marshal(route)
	if err != nil {
		return persistence.NewRouteError("Save", route.ID, fmt.Errorf("failed to marshal route: %w", err))
	}

	created, err := r.client.SetNX(ctx, routeKey(route.ID), data, 0).Result()
	if err != nil {
		return persistence.NewRouteError("Save", route.ID, err)
	}

	if created {
		err = r.client.RPush(ctx, routeIndexKey, route.ID).Err()
	} else {
		err = r.client.Set(ctx, routeKey(route.ID), data, 0).Err()
	}

	if err != nil {
		return persistence.NewRouteError("Save", route.ID, err)
	}

	return nil
}

func (r *RouteRepository) UpdateField(ctx context.Context, id string, field string, value any) error {
	route, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = route.SetField(field, value)
	if err != nil {
		return persistence.NewRouteError("UpdateField", id, err)
	}

	route.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(route)
	if err != nil {
		return persistence.NewRouteError("UpdateField", id, fmt.Errorf("failed to marshal route: %w", err))
	}

	err = r.client.Set(ctx, routeKey(id), data, 0).Err()
	if err != nil {
		return persistence.NewRouteError("UpdateField", id, err)
	}

	return nil
}
